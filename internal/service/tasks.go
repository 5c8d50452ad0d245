package service

import (
	"context"
	"errors"
	"time"

	"warthug/internal/domain"
	"warthug/internal/logger"
)

// Tasks serves the task catalog and handles completions.
type Tasks struct {
	players PlayerStore
	tasks   TaskStore
	ledger  Ledger
	now     clock
}

func NewTasks(players PlayerStore, tasks TaskStore, ledger Ledger) *Tasks {
	return &Tasks{players: players, tasks: tasks, ledger: ledger, now: time.Now}
}

// TaskView is one catalog task annotated with the caller's state.
type TaskView struct {
	*domain.Task
	Completed      bool      `json:"completed"`
	CanComplete    bool      `json:"canComplete"`
	AvailableAt    time.Time `json:"availableAt,omitzero"`
	CooldownMillis int64     `json:"cooldownMillis,omitempty"`
}

// ListForUser returns the active catalog annotated with completion state for
// one player.
func (s *Tasks) ListForUser(ctx context.Context, userID string) ([]*TaskView, error) {
	p, err := s.players.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.tasks.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]*TaskView, 0, len(tasks))
	for _, t := range tasks {
		v := &TaskView{Task: t}
		last, err := s.tasks.LastCompletion(ctx, userID, t.ID)
		switch {
		case err == nil:
			v.Completed = true
			if t.IsRepeatable {
				if rem := t.TimeUntilAvailable(last.CompletedAt, now); rem > 0 {
					v.AvailableAt = last.CompletedAt.Add(time.Duration(t.RepeatCooldown) * time.Second)
					v.CooldownMillis = rem.Milliseconds()
				} else {
					v.Completed = false
				}
			}
		case errors.Is(err, domain.ErrNotFound):
		default:
			return nil, err
		}
		v.CanComplete = !v.Completed && t.CanBeCompletedBy(p, now)
		views = append(views, v)
	}
	return views, nil
}

// CompleteTaskResult reports a successful completion and its payout.
type CompleteTaskResult struct {
	TaskID          int64  `json:"taskId"`
	RewardPoints    int64  `json:"rewardPoints"`
	RewardHugPoints string `json:"rewardHugPoints"`
	TapPoints       int64  `json:"tapPoints"`
	HugPoints       string `json:"hugPoints"`
}

// CompleteTask verifies eligibility, uniqueness and the repeat cooldown, then
// credits the task rewards and records the completion.
func (s *Tasks) CompleteTask(ctx context.Context, userID string, taskID int64) (*CompleteTaskResult, error) {
	t, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !t.IsAvailable(now) {
		return nil, domain.ErrNotEligible
	}

	firstTime := true
	last, err := s.tasks.LastCompletion(ctx, userID, taskID)
	switch {
	case err == nil:
		firstTime = false
		if !t.IsRepeatable {
			return nil, domain.ErrAlreadyClaimed
		}
		if t.TimeUntilAvailable(last.CompletedAt, now) > 0 {
			return nil, domain.ErrCooldownActive
		}
	case errors.Is(err, domain.ErrNotFound):
	default:
		return nil, err
	}

	p, err := mutatePlayer(ctx, s.players, s.now, userID, func(p *domain.Player, now time.Time) error {
		if !t.CanBeCompletedBy(p, now) {
			return domain.ErrNotEligible
		}
		p.TapPoints += t.RewardPoints
		if t.RewardHugPoints.IsPositive() {
			p.HugPoints = p.HugPoints.Add(t.RewardHugPoints)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	completion := &domain.TaskCompletion{
		UserID:          userID,
		TaskID:          taskID,
		CompletedAt:     now,
		RewardPoints:    t.RewardPoints,
		RewardHugPoints: t.RewardHugPoints,
	}
	if err := s.tasks.RecordCompletion(ctx, completion, firstTime); err != nil {
		// Points are already credited; a lost record must not claw them back.
		logger.Error("task completion record failed", "user_id", userID, "task_id", taskID, "error", err)
	}

	if s.ledger != nil {
		if err := s.ledger.Record(ctx, userID, "task_reward", t.RewardPoints, map[string]any{"task_id": taskID}); err != nil {
			logger.Warn("ledger record failed", "user_id", userID, "type", "task_reward", "error", err)
		}
	}
	return &CompleteTaskResult{
		TaskID:          taskID,
		RewardPoints:    t.RewardPoints,
		RewardHugPoints: t.RewardHugPoints.String(),
		TapPoints:       p.TapPoints,
		HugPoints:       p.HugPoints.String(),
	}, nil
}

// CompletedTasks lists the caller's completion history.
func (s *Tasks) CompletedTasks(ctx context.Context, userID string) ([]*domain.TaskCompletion, error) {
	return s.tasks.ListCompletions(ctx, userID)
}

// CreateTask validates and inserts one catalog task.
func (s *Tasks) CreateTask(ctx context.Context, t *domain.Task) error {
	t.CreatedAt = s.now()
	if t.Type == "" {
		t.Type = domain.TaskTypeSpecial
	}
	if err := t.Validate(); err != nil {
		return err
	}
	return s.tasks.Create(ctx, t)
}

// CreateTasks inserts a batch, all-or-nothing on validation.
func (s *Tasks) CreateTasks(ctx context.Context, batch []*domain.Task) error {
	if len(batch) == 0 {
		return domain.ErrInvalidArgument
	}
	now := s.now()
	for _, t := range batch {
		t.CreatedAt = now
		if t.Type == "" {
			t.Type = domain.TaskTypeSpecial
		}
		if err := t.Validate(); err != nil {
			return err
		}
	}
	for _, t := range batch {
		if err := s.tasks.Create(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// UpdateTask validates and replaces a catalog task.
func (s *Tasks) UpdateTask(ctx context.Context, t *domain.Task) error {
	if err := t.Validate(); err != nil {
		return err
	}
	return s.tasks.Update(ctx, t)
}

// DeleteTask removes a task from the catalog.
func (s *Tasks) DeleteTask(ctx context.Context, id int64) error {
	return s.tasks.Delete(ctx, id)
}

// ListAll returns the full catalog, inactive tasks included.
func (s *Tasks) ListAll(ctx context.Context) ([]*domain.Task, error) {
	return s.tasks.List(ctx)
}
