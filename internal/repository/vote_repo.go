package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"warthug/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// VoteRepository persists vote events (choices with tallies as a JSONB
// document) and one-ballot-per-player records.
type VoteRepository struct {
	db *pgxpool.Pool
}

func NewVoteRepository(db *pgxpool.Pool) *VoteRepository {
	return &VoteRepository{db: db}
}

const voteColumns = `id, title, COALESCE(description, ''), reward_amount,
	start_date, end_date, choices, is_active`

func scanVoteEvent(row pgx.Row) (*domain.VoteEvent, error) {
	var (
		e       domain.VoteEvent
		choices []byte
	)
	if err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.RewardAmount,
		&e.StartDate, &e.EndDate, &choices, &e.IsActive,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(choices, &e.Choices); err != nil {
		return nil, fmt.Errorf("vote_events: bad choices document: %w", err)
	}
	return &e, nil
}

func (r *VoteRepository) ListOpen(ctx context.Context) ([]*domain.VoteEvent, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+voteColumns+` FROM vote_events
		 WHERE is_active AND end_date > now()
		 ORDER BY end_date ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.VoteEvent
	for rows.Next() {
		e, err := scanVoteEvent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func (r *VoteRepository) Get(ctx context.Context, id int64) (*domain.VoteEvent, error) {
	return scanVoteEvent(r.db.QueryRow(ctx,
		`SELECT `+voteColumns+` FROM vote_events WHERE id = $1`, id))
}

func (r *VoteRepository) Create(ctx context.Context, e *domain.VoteEvent) error {
	choices, err := json.Marshal(e.Choices)
	if err != nil {
		return err
	}
	return r.db.QueryRow(ctx,
		`INSERT INTO vote_events (title, description, reward_amount, start_date, end_date, choices, is_active)
		 VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7)
		 RETURNING id`,
		e.Title, e.Description, e.RewardAmount, e.StartDate, e.EndDate, choices, e.IsActive,
	).Scan(&e.ID)
}

// RecordBallot inserts the ballot and bumps the chosen option's tally in one
// transaction. A second ballot for the same player and event surfaces as
// domain.ErrAlreadyClaimed.
func (r *VoteRepository) RecordBallot(ctx context.Context, b *domain.VoteBallot) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO vote_ballots (event_id, user_id, choice_index, voted_at)
		 VALUES ($1, $2, $3, $4)`,
		b.EventID, b.UserID, b.ChoiceIndex, b.VotedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyClaimed
		}
		return err
	}

	idx := []string{fmt.Sprintf("%d", b.ChoiceIndex), "votes"}
	tag, err := tx.Exec(ctx,
		`UPDATE vote_events
		 SET choices = jsonb_set(choices, $2,
		     (COALESCE(choices #>> $2, '0')::bigint + 1)::text::jsonb)
		 WHERE id = $1`,
		b.EventID, idx,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return tx.Commit(ctx)
}

func (r *VoteRepository) HasVoted(ctx context.Context, eventID int64, userID string) (bool, error) {
	var voted bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM vote_ballots WHERE event_id = $1 AND user_id = $2)`,
		eventID, userID,
	).Scan(&voted)
	return voted, err
}
