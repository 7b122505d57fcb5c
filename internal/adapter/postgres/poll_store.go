package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/pollbot/internal/domain"
)

// PollStore keeps one row per poll. Save replaces the table contents in a
// single transaction, so the stored document is always a complete snapshot.
type PollStore struct {
	pool *pgxpool.Pool
}

func NewPollStore(pool *pgxpool.Pool) *PollStore {
	return &PollStore{pool: pool}
}

func (s *PollStore) Load(ctx context.Context) (map[string]*domain.Poll, error) {
	polls := make(map[string]*domain.Poll)

	rows, err := s.pool.Query(ctx, "SELECT id, document FROM polls")
	if err != nil {
		return polls, fmt.Errorf("failed to query polls: %w", err)
	}
	defer rows.Close()

	var errs []error
	for rows.Next() {
		var (
			id  string
			doc []byte
		)
		if err := rows.Scan(&id, &doc); err != nil {
			return polls, fmt.Errorf("failed to scan poll row: %w", err)
		}

		var p domain.Poll
		if err := json.Unmarshal(doc, &p); err != nil {
			errs = append(errs, fmt.Errorf("poll %s: %w", id, err))
			continue
		}
		p.ID = id
		polls[id] = &p
	}
	if err := rows.Err(); err != nil {
		return polls, fmt.Errorf("failed to read poll rows: %w", err)
	}

	if len(errs) > 0 {
		return polls, fmt.Errorf("%w: %w", domain.ErrStoreCorrupt, errors.Join(errs...))
	}
	return polls, nil
}

func (s *PollStore) Save(ctx context.Context, polls map[string]*domain.Poll) error {
	batch := &pgx.Batch{}
	batch.Queue("DELETE FROM polls")
	for id, p := range polls {
		doc, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to encode poll %s: %w", id, err)
		}
		batch.Queue("INSERT INTO polls (id, document, ends_at) VALUES ($1, $2, $3)", id, doc, p.EndsAt)
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to save polls: %w", err)
		}
		return nil
	})
}

// Ping is used as a readiness check.
func (s *PollStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
