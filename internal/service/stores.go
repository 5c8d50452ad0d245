package service

import (
	"context"
	"time"

	"warthug/internal/domain"
)

// PlayerStore is the persistent player collaborator. Save is compare-and-swap
// on the aggregate's version and returns domain.ErrVersionConflict when a
// concurrent writer got there first.
type PlayerStore interface {
	Load(ctx context.Context, userID string) (*domain.Player, error)
	LoadByUsername(ctx context.Context, username string) (*domain.Player, error)
	Create(ctx context.Context, p *domain.Player) error
	Save(ctx context.Context, p *domain.Player) error

	// ReferralRank returns the player's 1-based position on the referral
	// leaderboard (total direct+indirect referrals, descending).
	ReferralRank(ctx context.Context, userID string) (int, error)
}

// TaskStore persists the task catalog and per-player completion records.
// RecordCompletion also advances the task's completion counters.
type TaskStore interface {
	ListActive(ctx context.Context) ([]*domain.Task, error)
	List(ctx context.Context) ([]*domain.Task, error)
	Get(ctx context.Context, id int64) (*domain.Task, error)
	Create(ctx context.Context, t *domain.Task) error
	Update(ctx context.Context, t *domain.Task) error
	Delete(ctx context.Context, id int64) error

	RecordCompletion(ctx context.Context, c *domain.TaskCompletion, firstTime bool) error
	LastCompletion(ctx context.Context, userID string, taskID int64) (*domain.TaskCompletion, error)
	ListCompletions(ctx context.Context, userID string) ([]*domain.TaskCompletion, error)
}

// VoteStore persists vote events and ballots. RecordBallot must reject a
// second ballot for the same (event, player) pair with domain.ErrAlreadyClaimed
// and increment the chosen option's tally atomically.
type VoteStore interface {
	ListOpen(ctx context.Context) ([]*domain.VoteEvent, error)
	Get(ctx context.Context, id int64) (*domain.VoteEvent, error)
	Create(ctx context.Context, e *domain.VoteEvent) error
	RecordBallot(ctx context.Context, b *domain.VoteBallot) error
	HasVoted(ctx context.Context, eventID int64, userID string) (bool, error)
}

// CardCatalog persists card templates. CreateEverywhere inserts a template and
// fans the new card out to every existing player in one batch.
type CardCatalog interface {
	Templates(ctx context.Context) (map[string][]*domain.CardTemplate, error)
	CreateEverywhere(ctx context.Context, tpl *domain.CardTemplate) (int64, error)
}

// Ledger records point movements for auditing. Implementations must tolerate
// best-effort use; the engine never fails an operation on a ledger error.
type Ledger interface {
	Record(ctx context.Context, userID, txType string, amount int64, meta map[string]any) error
}

// clock returns the wall-clock instant operations settle against. Tests
// substitute a fixed clock.
type clock func() time.Time
