package domain

import "time"

// Transaction is one audited point movement. Amount is signed: credits
// positive, debits negative.
type Transaction struct {
	ID        int64          `json:"id"`
	UserID    string         `json:"userId"`
	Type      string         `json:"type"`
	Amount    int64          `json:"amount"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}
