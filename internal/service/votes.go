package service

import (
	"context"
	"time"

	"warthug/internal/domain"
	"warthug/internal/logger"
)

// Votes serves the vote events and records ballots.
type Votes struct {
	players PlayerStore
	votes   VoteStore
	ledger  Ledger
	now     clock
}

func NewVotes(players PlayerStore, votes VoteStore, ledger Ledger) *Votes {
	return &Votes{players: players, votes: votes, ledger: ledger, now: time.Now}
}

// VoteEventView is an event annotated with the caller's ballot state.
type VoteEventView struct {
	*domain.VoteEvent
	HasVoted bool `json:"hasVoted"`
}

// ListOpenForUser returns currently open events with the caller's state.
func (s *Votes) ListOpenForUser(ctx context.Context, userID string) ([]*VoteEventView, error) {
	events, err := s.votes.ListOpen(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]*VoteEventView, 0, len(events))
	for _, e := range events {
		voted, err := s.votes.HasVoted(ctx, e.ID, userID)
		if err != nil {
			return nil, err
		}
		views = append(views, &VoteEventView{VoteEvent: e, HasVoted: voted})
	}
	return views, nil
}

// SubmitVoteResult reports a recorded ballot and its payout.
type SubmitVoteResult struct {
	EventID   int64  `json:"eventId"`
	Choice    string `json:"choice"`
	Reward    int64  `json:"reward"`
	TapPoints int64  `json:"tapPoints"`
}

// SubmitVote records a ballot for an open event and credits the reward. One
// ballot per player per event.
func (s *Votes) SubmitVote(ctx context.Context, userID string, eventID int64, choiceIndex int) (*SubmitVoteResult, error) {
	e, err := s.votes.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !e.IsOpen(now) {
		return nil, domain.ErrNotEligible
	}
	if choiceIndex < 0 || choiceIndex >= len(e.Choices) {
		return nil, domain.ErrInvalidArgument
	}

	if err := s.votes.RecordBallot(ctx, &domain.VoteBallot{
		EventID:     eventID,
		UserID:      userID,
		ChoiceIndex: choiceIndex,
		VotedAt:     now,
	}); err != nil {
		return nil, err
	}

	reward := e.RewardAmount
	if reward == 0 {
		reward = domain.DefaultVoteReward
	}
	p, err := mutatePlayer(ctx, s.players, s.now, userID, func(p *domain.Player, now time.Time) error {
		p.TapPoints += reward
		return nil
	})
	if err != nil {
		// Ballot is in; the reward credit failing is an operational problem,
		// not a reason to report the vote as rejected.
		logger.Error("vote reward credit failed", "user_id", userID, "event_id", eventID, "error", err)
		return nil, err
	}

	if s.ledger != nil {
		if err := s.ledger.Record(ctx, userID, "vote_reward", reward, map[string]any{"event_id": eventID}); err != nil {
			logger.Warn("ledger record failed", "user_id", userID, "type", "vote_reward", "error", err)
		}
	}
	return &SubmitVoteResult{
		EventID:   eventID,
		Choice:    e.Choices[choiceIndex].Name,
		Reward:    reward,
		TapPoints: p.TapPoints,
	}, nil
}

// EventResults returns per-choice tallies with percentages.
func (s *Votes) EventResults(ctx context.Context, eventID int64) (int64, []domain.VoteResult, error) {
	e, err := s.votes.Get(ctx, eventID)
	if err != nil {
		return 0, nil, err
	}
	total, results := e.Results()
	return total, results, nil
}

// CreateEvent validates and inserts a vote event.
func (s *Votes) CreateEvent(ctx context.Context, e *domain.VoteEvent) error {
	if e.RewardAmount == 0 {
		e.RewardAmount = domain.DefaultVoteReward
	}
	if e.StartDate.IsZero() {
		e.StartDate = s.now()
	}
	e.IsActive = true
	if err := e.Validate(); err != nil {
		return err
	}
	return s.votes.Create(ctx, e)
}
