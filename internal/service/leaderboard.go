package service

import (
	"context"

	"warthug/internal/domain"
)

// Leaderboard kinds. Each maps to one ordering over the player projection.
const (
	BoardPoints    = "points"
	BoardHugPoints = "hugPoints"
	BoardReferrals = "referrals"
	BoardHourly    = "hourly"
	BoardStreak    = "streak"
)

// ValidBoard reports whether kind names a known leaderboard.
func ValidBoard(kind string) bool {
	switch kind {
	case BoardPoints, BoardHugPoints, BoardReferrals, BoardHourly, BoardStreak:
		return true
	}
	return false
}

// BoardEntry is one leaderboard row. Value carries the ranked quantity as a
// string so integer and decimal boards share a shape.
type BoardEntry struct {
	Rank     int    `json:"rank"`
	Username string `json:"username"`
	UserID   string `json:"userId"`
	Value    string `json:"value"`
	Level    int    `json:"level"`
}

// BoardStore is the read-only leaderboard projection over players.
type BoardStore interface {
	Top(ctx context.Context, kind string, limit int) ([]*BoardEntry, error)
	Position(ctx context.Context, kind, userID string) (*BoardEntry, error)
}

// Leaderboard serves ranked player projections.
type Leaderboard struct {
	boards BoardStore
}

func NewLeaderboard(boards BoardStore) *Leaderboard {
	return &Leaderboard{boards: boards}
}

// BoardResult is the top slice plus the caller's own row.
type BoardResult struct {
	Kind    string        `json:"kind"`
	Entries []*BoardEntry `json:"entries"`
	Me      *BoardEntry   `json:"me,omitempty"`
}

// Get returns the top rows for one board and, when userID is set, the
// caller's own position even if outside the slice.
func (s *Leaderboard) Get(ctx context.Context, kind, userID string, limit int) (*BoardResult, error) {
	if !ValidBoard(kind) {
		return nil, domain.ErrInvalidArgument
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	entries, err := s.boards.Top(ctx, kind, limit)
	if err != nil {
		return nil, err
	}
	res := &BoardResult{Kind: kind, Entries: entries}
	if userID != "" {
		me, err := s.boards.Position(ctx, kind, userID)
		if err == nil {
			res.Me = me
		}
	}
	return res, nil
}
