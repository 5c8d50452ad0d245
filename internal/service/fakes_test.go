package service

import (
	"context"
	"fmt"
	"time"

	"warthug/internal/domain"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) clock {
	return func() time.Time { return t }
}

// fakePlayers is an in-memory PlayerStore with real compare-and-swap
// semantics plus an injectable number of artificial save conflicts.
type fakePlayers struct {
	store     map[string]*domain.Player
	ranks     map[string]int
	conflicts int // saves to reject before behaving normally
	saves     int
}

func newFakePlayers(players ...*domain.Player) *fakePlayers {
	f := &fakePlayers{store: make(map[string]*domain.Player), ranks: make(map[string]int)}
	for _, p := range players {
		cp := *p
		if cp.Version == 0 {
			cp.Version = 1
		}
		f.store[cp.UserID] = &cp
	}
	return f
}

func (f *fakePlayers) Load(_ context.Context, userID string) (*domain.Player, error) {
	p, ok := f.store[userID]
	if !ok {
		return nil, fmt.Errorf("player %s: %w", userID, domain.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (f *fakePlayers) LoadByUsername(_ context.Context, username string) (*domain.Player, error) {
	for _, p := range f.store {
		if p.Username == username {
			cp := *p
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("player %s: %w", username, domain.ErrNotFound)
}

func (f *fakePlayers) Create(_ context.Context, p *domain.Player) error {
	if _, ok := f.store[p.UserID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *p
	cp.Version = 1
	f.store[p.UserID] = &cp
	return nil
}

func (f *fakePlayers) Save(_ context.Context, p *domain.Player) error {
	f.saves++
	if f.conflicts > 0 {
		f.conflicts--
		return fmt.Errorf("save %s: %w", p.UserID, domain.ErrVersionConflict)
	}
	cur, ok := f.store[p.UserID]
	if !ok {
		return fmt.Errorf("player %s: %w", p.UserID, domain.ErrNotFound)
	}
	if cur.Version != p.Version {
		return fmt.Errorf("save %s: %w", p.UserID, domain.ErrVersionConflict)
	}
	cp := *p
	cp.Version = p.Version + 1
	f.store[p.UserID] = &cp
	p.Version++
	return nil
}

func (f *fakePlayers) ReferralRank(_ context.Context, userID string) (int, error) {
	if rank, ok := f.ranks[userID]; ok {
		return rank, nil
	}
	return 0, fmt.Errorf("player %s: %w", userID, domain.ErrNotFound)
}

// fakeLedger records every entry it is handed, or fails on demand.
type ledgerEntry struct {
	UserID string
	Type   string
	Amount int64
	Meta   map[string]any
}

type fakeLedger struct {
	entries []ledgerEntry
	fail    error
}

func (f *fakeLedger) Record(_ context.Context, userID, txType string, amount int64, meta map[string]any) error {
	if f.fail != nil {
		return f.fail
	}
	f.entries = append(f.entries, ledgerEntry{UserID: userID, Type: txType, Amount: amount, Meta: meta})
	return nil
}

func (f *fakeLedger) byType(txType string) []ledgerEntry {
	var out []ledgerEntry
	for _, e := range f.entries {
		if e.Type == txType {
			out = append(out, e)
		}
	}
	return out
}

// fakeTasks is an in-memory TaskStore.
type fakeTasks struct {
	tasks       map[int64]*domain.Task
	completions []*domain.TaskCompletion
	nextID      int64
}

func newFakeTasks(tasks ...*domain.Task) *fakeTasks {
	f := &fakeTasks{tasks: make(map[int64]*domain.Task), nextID: 1}
	for _, t := range tasks {
		if t.ID == 0 {
			t.ID = f.nextID
		}
		if t.ID >= f.nextID {
			f.nextID = t.ID + 1
		}
		f.tasks[t.ID] = t
	}
	return f
}

func (f *fakeTasks) ListActive(_ context.Context) ([]*domain.Task, error) {
	var out []*domain.Task
	for _, t := range f.tasks {
		if t.IsActive {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTasks) List(_ context.Context) ([]*domain.Task, error) {
	var out []*domain.Task
	for _, t := range f.tasks {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTasks) Get(_ context.Context, id int64) (*domain.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %d: %w", id, domain.ErrNotFound)
	}
	return t, nil
}

func (f *fakeTasks) Create(_ context.Context, t *domain.Task) error {
	t.ID = f.nextID
	f.nextID++
	f.tasks[t.ID] = t
	return nil
}

func (f *fakeTasks) Update(_ context.Context, t *domain.Task) error {
	if _, ok := f.tasks[t.ID]; !ok {
		return fmt.Errorf("task %d: %w", t.ID, domain.ErrNotFound)
	}
	f.tasks[t.ID] = t
	return nil
}

func (f *fakeTasks) Delete(_ context.Context, id int64) error {
	if _, ok := f.tasks[id]; !ok {
		return fmt.Errorf("task %d: %w", id, domain.ErrNotFound)
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeTasks) RecordCompletion(_ context.Context, c *domain.TaskCompletion, firstTime bool) error {
	f.completions = append(f.completions, c)
	if t, ok := f.tasks[c.TaskID]; ok {
		t.TotalCompletions++
		if firstTime {
			t.UniqueCompletions++
		}
	}
	return nil
}

func (f *fakeTasks) LastCompletion(_ context.Context, userID string, taskID int64) (*domain.TaskCompletion, error) {
	for i := len(f.completions) - 1; i >= 0; i-- {
		c := f.completions[i]
		if c.UserID == userID && c.TaskID == taskID {
			return c, nil
		}
	}
	return nil, fmt.Errorf("completion: %w", domain.ErrNotFound)
}

func (f *fakeTasks) ListCompletions(_ context.Context, userID string) ([]*domain.TaskCompletion, error) {
	var out []*domain.TaskCompletion
	for _, c := range f.completions {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

// fakeVotes is an in-memory VoteStore with one-ballot-per-player enforcement.
type fakeVotes struct {
	events  map[int64]*domain.VoteEvent
	ballots map[string]*domain.VoteBallot
}

func newFakeVotes(events ...*domain.VoteEvent) *fakeVotes {
	f := &fakeVotes{events: make(map[int64]*domain.VoteEvent), ballots: make(map[string]*domain.VoteBallot)}
	for _, e := range events {
		f.events[e.ID] = e
	}
	return f
}

func ballotKey(eventID int64, userID string) string {
	return fmt.Sprintf("%d/%s", eventID, userID)
}

func (f *fakeVotes) ListOpen(_ context.Context) ([]*domain.VoteEvent, error) {
	var out []*domain.VoteEvent
	for _, e := range f.events {
		if e.IsActive {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeVotes) Get(_ context.Context, id int64) (*domain.VoteEvent, error) {
	e, ok := f.events[id]
	if !ok {
		return nil, fmt.Errorf("vote event %d: %w", id, domain.ErrNotFound)
	}
	return e, nil
}

func (f *fakeVotes) Create(_ context.Context, e *domain.VoteEvent) error {
	e.ID = int64(len(f.events) + 1)
	f.events[e.ID] = e
	return nil
}

func (f *fakeVotes) RecordBallot(_ context.Context, b *domain.VoteBallot) error {
	key := ballotKey(b.EventID, b.UserID)
	if _, ok := f.ballots[key]; ok {
		return fmt.Errorf("ballot: %w", domain.ErrAlreadyClaimed)
	}
	f.ballots[key] = b
	f.events[b.EventID].Choices[b.ChoiceIndex].Votes++
	return nil
}

func (f *fakeVotes) HasVoted(_ context.Context, eventID int64, userID string) (bool, error) {
	_, ok := f.ballots[ballotKey(eventID, userID)]
	return ok, nil
}

// fakeCatalog serves a fixed template set.
type fakeCatalog struct {
	templates map[string][]*domain.CardTemplate
}

func (f *fakeCatalog) Templates(_ context.Context) (map[string][]*domain.CardTemplate, error) {
	return f.templates, nil
}

func (f *fakeCatalog) CreateEverywhere(_ context.Context, tpl *domain.CardTemplate) (int64, error) {
	f.templates[tpl.Section] = append(f.templates[tpl.Section], tpl)
	return 0, nil
}
