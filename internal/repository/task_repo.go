package repository

import (
	"context"
	"errors"
	"fmt"

	"warthug/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// TaskRepository persists the task catalog and per-player completions.
type TaskRepository struct {
	db *pgxpool.Pool
}

func NewTaskRepository(db *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, topic, description, type, required_level, required_points,
	reward_points, reward_hug_points::text, COALESCE(image_url, ''), link,
	completion_delay, COALESCE(expires_at, '0001-01-01'::timestamptz), is_active, is_repeatable, repeat_cooldown,
	total_completions, unique_completions, created_at`

func scanTask(row pgx.Row) (*domain.Task, error) {
	var (
		t   domain.Task
		hug string
	)
	if err := row.Scan(
		&t.ID, &t.Topic, &t.Description, &t.Type, &t.RequiredLevel, &t.RequiredPoints,
		&t.RewardPoints, &hug, &t.ImageURL, &t.Link,
		&t.CompletionDelay, &t.ExpiresAt, &t.IsActive, &t.IsRepeatable, &t.RepeatCooldown,
		&t.TotalCompletions, &t.UniqueCompletions, &t.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var err error
	t.RewardHugPoints, err = decimal.NewFromString(hug)
	if err != nil {
		return nil, fmt.Errorf("tasks: bad reward_hug_points %q: %w", hug, err)
	}
	return &t, nil
}

func (r *TaskRepository) queryTasks(ctx context.Context, query string, args ...any) ([]*domain.Task, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r *TaskRepository) ListActive(ctx context.Context) ([]*domain.Task, error) {
	return r.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE is_active AND (expires_at IS NULL OR expires_at > now())
		 ORDER BY created_at DESC`)
}

func (r *TaskRepository) List(ctx context.Context) ([]*domain.Task, error) {
	return r.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at DESC`)
}

func (r *TaskRepository) Get(ctx context.Context, id int64) (*domain.Task, error) {
	return scanTask(r.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
}

func (r *TaskRepository) Create(ctx context.Context, t *domain.Task) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO tasks (
			topic, description, type, required_level, required_points,
			reward_points, reward_hug_points, image_url, link,
			completion_delay, expires_at, is_active, is_repeatable, repeat_cooldown
		) VALUES ($1,$2,$3,$4,$5,$6,$7::numeric,NULLIF($8,''),$9,$10,$11,$12,$13,$14)
		RETURNING id, created_at`,
		t.Topic, t.Description, t.Type, t.RequiredLevel, t.RequiredPoints,
		t.RewardPoints, t.RewardHugPoints.String(), t.ImageURL, t.Link,
		t.CompletionDelay, nullTime(t.ExpiresAt), t.IsActive, t.IsRepeatable, t.RepeatCooldown,
	).Scan(&t.ID, &t.CreatedAt)
}

func (r *TaskRepository) Update(ctx context.Context, t *domain.Task) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE tasks SET
			topic = $2, description = $3, type = $4, required_level = $5,
			required_points = $6, reward_points = $7, reward_hug_points = $8::numeric,
			image_url = NULLIF($9, ''), link = $10, completion_delay = $11,
			expires_at = $12, is_active = $13, is_repeatable = $14, repeat_cooldown = $15
		 WHERE id = $1`,
		t.ID,
		t.Topic, t.Description, t.Type, t.RequiredLevel,
		t.RequiredPoints, t.RewardPoints, t.RewardHugPoints.String(),
		t.ImageURL, t.Link, t.CompletionDelay,
		nullTime(t.ExpiresAt), t.IsActive, t.IsRepeatable, t.RepeatCooldown,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RecordCompletion inserts the record and bumps the task's counters in one
// transaction.
func (r *TaskRepository) RecordCompletion(ctx context.Context, c *domain.TaskCompletion, firstTime bool) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := tx.QueryRow(ctx,
		`INSERT INTO task_completions (user_id, task_id, completed_at, reward_points, reward_hug_points)
		 VALUES ($1, $2, $3, $4, $5::numeric)
		 RETURNING id`,
		c.UserID, c.TaskID, c.CompletedAt, c.RewardPoints, c.RewardHugPoints.String(),
	).Scan(&c.ID); err != nil {
		return err
	}

	unique := 0
	if firstTime {
		unique = 1
	}
	if _, err := tx.Exec(ctx,
		`UPDATE tasks SET total_completions = total_completions + 1,
		                  unique_completions = unique_completions + $2
		 WHERE id = $1`,
		c.TaskID, unique,
	); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *TaskRepository) LastCompletion(ctx context.Context, userID string, taskID int64) (*domain.TaskCompletion, error) {
	var (
		c   domain.TaskCompletion
		hug string
	)
	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, task_id, completed_at, reward_points, reward_hug_points::text
		 FROM task_completions
		 WHERE user_id = $1 AND task_id = $2
		 ORDER BY completed_at DESC
		 LIMIT 1`,
		userID, taskID,
	).Scan(&c.ID, &c.UserID, &c.TaskID, &c.CompletedAt, &c.RewardPoints, &hug)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if c.RewardHugPoints, err = decimal.NewFromString(hug); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *TaskRepository) ListCompletions(ctx context.Context, userID string) ([]*domain.TaskCompletion, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, task_id, completed_at, reward_points, reward_hug_points::text
		 FROM task_completions
		 WHERE user_id = $1
		 ORDER BY completed_at DESC
		 LIMIT 200`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.TaskCompletion
	for rows.Next() {
		var (
			c   domain.TaskCompletion
			hug string
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.TaskID, &c.CompletedAt, &c.RewardPoints, &hug); err != nil {
			return nil, err
		}
		if c.RewardHugPoints, err = decimal.NewFromString(hug); err != nil {
			return nil, err
		}
		res = append(res, &c)
	}
	return res, rows.Err()
}
