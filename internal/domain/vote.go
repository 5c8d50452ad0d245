package domain

import (
	"fmt"
	"time"
)

// DefaultVoteReward is credited when an event does not set its own amount.
const DefaultVoteReward = 500000

// VoteChoice is one option inside a vote event, with its running tally.
type VoteChoice struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"imageUrl"`
	Votes       int64  `json:"votes"`
}

// VoteEvent is a time-boxed poll paying a flat point reward per ballot.
type VoteEvent struct {
	ID           int64        `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	RewardAmount int64        `json:"rewardAmount"`
	StartDate    time.Time    `json:"startDate"`
	EndDate      time.Time    `json:"endDate"`
	Choices      []VoteChoice `json:"choices"`
	IsActive     bool         `json:"isActive"`
}

// Validate checks an event before it enters the catalog.
func (e *VoteEvent) Validate() error {
	if e.Title == "" {
		return fmt.Errorf("vote event: title required: %w", ErrInvalidArgument)
	}
	if len(e.Choices) < 2 {
		return fmt.Errorf("vote event: at least two choices required: %w", ErrInvalidArgument)
	}
	if e.EndDate.IsZero() || !e.EndDate.After(e.StartDate) {
		return fmt.Errorf("vote event: end date must follow start date: %w", ErrInvalidArgument)
	}
	return nil
}

// IsOpen reports whether ballots are currently accepted.
func (e *VoteEvent) IsOpen(now time.Time) bool {
	return e.IsActive && e.EndDate.After(now)
}

// VoteBallot is one player's recorded vote in one event.
type VoteBallot struct {
	EventID     int64     `json:"eventId"`
	UserID      string    `json:"userId"`
	ChoiceIndex int       `json:"choiceIndex"`
	VotedAt     time.Time `json:"votedAt"`
}

// VoteResult is the per-choice tally with share of the total.
type VoteResult struct {
	Name       string  `json:"name"`
	Votes      int64   `json:"votes"`
	Percentage float64 `json:"percentage"`
}

// Results computes per-choice percentages over the current tallies.
func (e *VoteEvent) Results() (total int64, results []VoteResult) {
	for _, c := range e.Choices {
		total += c.Votes
	}
	results = make([]VoteResult, len(e.Choices))
	for i, c := range e.Choices {
		r := VoteResult{Name: c.Name, Votes: c.Votes}
		if total > 0 {
			r.Percentage = float64(c.Votes) * 100 / float64(total)
		}
		results[i] = r
	}
	return total, results
}
