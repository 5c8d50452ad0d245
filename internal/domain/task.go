package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TaskType classifies catalog tasks.
type TaskType string

const (
	TaskTypeDaily   TaskType = "daily"
	TaskTypeWeekly  TaskType = "weekly"
	TaskTypeSpecial TaskType = "special"
	TaskTypeEvent   TaskType = "event"
)

// ValidTaskType reports whether t is a known task type.
func ValidTaskType(t TaskType) bool {
	switch t {
	case TaskTypeDaily, TaskTypeWeekly, TaskTypeSpecial, TaskTypeEvent:
		return true
	}
	return false
}

// Task is a discrete catalog objective a player completes for rewards.
type Task struct {
	ID              int64           `json:"id"`
	Topic           string          `json:"topic"`
	Description     string          `json:"description"`
	Type            TaskType        `json:"type"`
	RequiredLevel   int             `json:"requiredLevel"`
	RequiredPoints  int64           `json:"requiredPoints"`
	RewardPoints    int64           `json:"rewardPoints"`
	RewardHugPoints decimal.Decimal `json:"rewardHugPoints"`
	ImageURL        string          `json:"imageUrl,omitempty"`
	Link            string          `json:"link"`
	CompletionDelay int64           `json:"completionDelay"` // seconds
	ExpiresAt       time.Time       `json:"expiresAt,omitzero"`
	IsActive        bool            `json:"isActive"`
	IsRepeatable    bool            `json:"isRepeatable"`
	RepeatCooldown  int64           `json:"repeatCooldown"` // seconds

	TotalCompletions  int64     `json:"totalCompletions"`
	UniqueCompletions int64     `json:"uniqueCompletions"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Validate checks the writable fields before a task enters the catalog.
func (t *Task) Validate() error {
	if t.Topic == "" || t.Description == "" || t.Link == "" {
		return fmt.Errorf("task: topic, description and link required: %w", ErrInvalidArgument)
	}
	if !ValidTaskType(t.Type) {
		return fmt.Errorf("task: unknown type %q: %w", t.Type, ErrInvalidArgument)
	}
	if t.RequiredPoints < 0 || t.RewardPoints < 0 || t.RepeatCooldown < 0 {
		return fmt.Errorf("task: negative amounts: %w", ErrInvalidArgument)
	}
	if !t.ExpiresAt.IsZero() && !t.CreatedAt.IsZero() && !t.ExpiresAt.After(t.CreatedAt) {
		return fmt.Errorf("task: expiry before creation: %w", ErrInvalidArgument)
	}
	return nil
}

// IsAvailable reports whether the task can currently be handed out.
func (t *Task) IsAvailable(now time.Time) bool {
	return t.IsActive && (t.ExpiresAt.IsZero() || t.ExpiresAt.After(now))
}

// CanBeCompletedBy checks the task gates against a player.
func (t *Task) CanBeCompletedBy(p *Player, now time.Time) bool {
	return t.IsAvailable(now) &&
		p.Level >= t.RequiredLevel &&
		p.TotalPoints >= t.RequiredPoints
}

// TimeUntilAvailable returns the remaining repeat cooldown after a previous
// completion; zero means the task is open.
func (t *Task) TimeUntilAvailable(lastCompleted time.Time, now time.Time) time.Duration {
	if !t.IsRepeatable || lastCompleted.IsZero() {
		return 0
	}
	next := lastCompleted.Add(time.Duration(t.RepeatCooldown) * time.Second)
	if rem := next.Sub(now); rem > 0 {
		return rem
	}
	return 0
}

// TaskCompletion records one payout of a task to one player.
type TaskCompletion struct {
	ID              int64           `json:"id"`
	UserID          string          `json:"userId"`
	TaskID          int64           `json:"taskId"`
	CompletedAt     time.Time       `json:"completedAt"`
	RewardPoints    int64           `json:"rewardPoints"`
	RewardHugPoints decimal.Decimal `json:"rewardHugPoints"`
}
