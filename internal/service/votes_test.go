package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"warthug/internal/domain"
)

func newVotesAt(players *fakePlayers, votes *fakeVotes, ledger Ledger, at time.Time) *Votes {
	s := NewVotes(players, votes, ledger)
	s.now = fixedClock(at)
	return s
}

func mascotEvent() *domain.VoteEvent {
	return &domain.VoteEvent{
		ID:           1,
		Title:        "Next mascot",
		RewardAmount: 1000,
		StartDate:    t0.Add(-time.Hour),
		EndDate:      t0.Add(24 * time.Hour),
		Choices: []domain.VoteChoice{
			{Name: "Tusker"},
			{Name: "Piglet"},
		},
		IsActive: true,
	}
}

func TestSubmitVoteCreditsAndTallies(t *testing.T) {
	p := domain.NewPlayer("warthog", "u-1", true, t0)
	players := newFakePlayers(p)
	votes := newFakeVotes(mascotEvent())
	ledger := &fakeLedger{}
	s := newVotesAt(players, votes, ledger, t0)

	res, err := s.SubmitVote(context.Background(), "u-1", 1, 1)
	if err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	if res.Choice != "Piglet" || res.Reward != 1000 {
		t.Fatalf("got choice %q reward %d", res.Choice, res.Reward)
	}
	if res.TapPoints != 1000 {
		t.Fatalf("tapPoints %d, want 1000", res.TapPoints)
	}
	if votes.events[1].Choices[1].Votes != 1 {
		t.Fatalf("tally %d, want 1", votes.events[1].Choices[1].Votes)
	}
	if len(ledger.byType("vote_reward")) != 1 {
		t.Fatal("reward must hit the ledger")
	}
}

func TestSubmitVoteOneBallotPerPlayer(t *testing.T) {
	p := domain.NewPlayer("warthog", "u-1", true, t0)
	players := newFakePlayers(p)
	s := newVotesAt(players, newFakeVotes(mascotEvent()), nil, t0)

	if _, err := s.SubmitVote(context.Background(), "u-1", 1, 0); err != nil {
		t.Fatalf("first ballot failed: %v", err)
	}
	if _, err := s.SubmitVote(context.Background(), "u-1", 1, 1); !errors.Is(err, domain.ErrAlreadyClaimed) {
		t.Fatalf("expected already claimed, got %v", err)
	}

	saved, _ := players.Load(context.Background(), "u-1")
	if saved.TapPoints != 1000 {
		t.Fatalf("duplicate ballot must not pay twice, got %d", saved.TapPoints)
	}
}

func TestSubmitVoteRejectsClosedAndOutOfRange(t *testing.T) {
	p := domain.NewPlayer("warthog", "u-1", true, t0)
	players := newFakePlayers(p)

	closed := mascotEvent()
	closed.EndDate = t0.Add(-time.Minute)
	s := newVotesAt(players, newFakeVotes(closed), nil, t0)
	if _, err := s.SubmitVote(context.Background(), "u-1", 1, 0); !errors.Is(err, domain.ErrNotEligible) {
		t.Fatalf("closed event: expected not eligible, got %v", err)
	}

	s = newVotesAt(players, newFakeVotes(mascotEvent()), nil, t0)
	if _, err := s.SubmitVote(context.Background(), "u-1", 1, 2); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("choice out of range: expected invalid argument, got %v", err)
	}
	if _, err := s.SubmitVote(context.Background(), "u-1", 1, -1); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("negative choice: expected invalid argument, got %v", err)
	}
}

func TestSubmitVoteDefaultReward(t *testing.T) {
	p := domain.NewPlayer("warthog", "u-1", true, t0)
	players := newFakePlayers(p)
	event := mascotEvent()
	event.RewardAmount = 0
	s := newVotesAt(players, newFakeVotes(event), nil, t0)

	res, err := s.SubmitVote(context.Background(), "u-1", 1, 0)
	if err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	if res.Reward != domain.DefaultVoteReward {
		t.Fatalf("reward %d, want default %d", res.Reward, domain.DefaultVoteReward)
	}
}

func TestListOpenForUserAnnotatesBallots(t *testing.T) {
	p := domain.NewPlayer("warthog", "u-1", true, t0)
	players := newFakePlayers(p)
	votes := newFakeVotes(mascotEvent())
	s := newVotesAt(players, votes, nil, t0)

	views, err := s.ListOpenForUser(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(views) != 1 || views[0].HasVoted {
		t.Fatalf("fresh event view wrong: %+v", views)
	}

	if _, err := s.SubmitVote(context.Background(), "u-1", 1, 0); err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	views, _ = s.ListOpenForUser(context.Background(), "u-1")
	if !views[0].HasVoted {
		t.Fatal("ballot not reflected in view")
	}
}

func TestEventResultsPercentages(t *testing.T) {
	event := mascotEvent()
	event.Choices[0].Votes = 3
	event.Choices[1].Votes = 1
	s := newVotesAt(newFakePlayers(), newFakeVotes(event), nil, t0)

	total, results, err := s.EventResults(context.Background(), 1)
	if err != nil {
		t.Fatalf("results failed: %v", err)
	}
	if total != 4 {
		t.Fatalf("total %d, want 4", total)
	}
	if results[0].Percentage != 75 || results[1].Percentage != 25 {
		t.Fatalf("percentages (%v, %v), want (75, 25)", results[0].Percentage, results[1].Percentage)
	}
}

func TestCreateEventValidates(t *testing.T) {
	votes := newFakeVotes()
	s := newVotesAt(newFakePlayers(), votes, nil, t0)

	event := &domain.VoteEvent{
		Title:   "Next mascot",
		EndDate: t0.Add(24 * time.Hour),
		Choices: []domain.VoteChoice{{Name: "A"}, {Name: "B"}},
	}
	if err := s.CreateEvent(context.Background(), event); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if event.RewardAmount != domain.DefaultVoteReward {
		t.Fatalf("reward defaulted to %d", event.RewardAmount)
	}
	if !event.StartDate.Equal(t0) || !event.IsActive {
		t.Fatal("start date and active flag must be set")
	}

	bad := &domain.VoteEvent{Title: "One option", EndDate: t0.Add(time.Hour), Choices: []domain.VoteChoice{{Name: "A"}}}
	if err := s.CreateEvent(context.Background(), bad); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}
