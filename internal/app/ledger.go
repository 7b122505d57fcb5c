package app

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/pscheid92/pollbot/internal/domain"
)

// Ledger serializes all writes to the poll store. It keeps the last known
// document in memory, applies each mutation to it and rewrites the whole
// document. A failed write leaves the mutation in memory, so the next
// successful write brings the store up to date again.
type Ledger struct {
	store domain.PollStore

	mu      sync.Mutex
	records map[string]*domain.Poll
	dirty   bool
}

func NewLedger(store domain.PollStore) *Ledger {
	return &Ledger{store: store, records: make(map[string]*domain.Poll)}
}

// Load reads the store and replaces the in-memory document. On error the
// decodable part of the store, possibly empty, is still returned. Votes for
// options a record does not have are discarded from both copies.
func (l *Ledger) Load(ctx context.Context) (map[string]*domain.Poll, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	polls, err := l.store.Load(ctx)
	if polls == nil {
		polls = make(map[string]*domain.Poll)
	}

	l.records = make(map[string]*domain.Poll, len(polls))
	out := make(map[string]*domain.Poll, len(polls))
	for id, p := range polls {
		if p == nil {
			continue
		}
		p.ID = id
		for _, voterID := range p.DropInvalidVotes() {
			slog.WarnContext(ctx, "Ignoring stored vote for unknown option", "poll_id", id, "user_id", voterID)
		}
		l.records[id] = p.Clone()
		out[id] = p.Clone()
	}
	return out, err
}

func (l *Ledger) Put(ctx context.Context, p *domain.Poll) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records[p.ID] = p.Clone()
	return l.flush(ctx)
}

// RecordVote adds a single vote to a stored poll.
func (l *Ledger) RecordVote(ctx context.Context, pollID, voterID string, option int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.records[pollID]
	if !ok {
		return domain.ErrPollNotFound
	}
	p.Votes[voterID] = option
	return l.flush(ctx)
}

func (l *Ledger) Delete(ctx context.Context, pollID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.records[pollID]; !ok {
		return domain.ErrPollNotFound
	}
	delete(l.records, pollID)
	return l.flush(ctx)
}

// Records returns a copy of the in-memory document.
func (l *Ledger) Records() map[string]*domain.Poll {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]*domain.Poll, len(l.records))
	for id, p := range l.records {
		out[id] = p.Clone()
	}
	return out
}

// Dirty reports whether the last write to the store failed.
func (l *Ledger) Dirty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dirty
}

// Sync rewrites the store from memory if the last write failed.
func (l *Ledger) Sync(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.dirty {
		return nil
	}
	return l.flush(ctx)
}

func (l *Ledger) flush(ctx context.Context) error {
	if err := l.store.Save(ctx, maps.Clone(l.records)); err != nil {
		l.dirty = true
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	l.dirty = false
	return nil
}
