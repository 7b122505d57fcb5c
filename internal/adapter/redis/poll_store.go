package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pscheid92/pollbot/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const defaultPollsKey = "polls"

// PollStore keeps the poll document in a Redis hash, one field per poll.
// Save replaces the whole hash in a MULTI/EXEC transaction.
type PollStore struct {
	rdb *goredis.Client
	key string
}

func NewPollStore(rdb *goredis.Client) *PollStore {
	return &PollStore{rdb: rdb, key: defaultPollsKey}
}

func (s *PollStore) Load(ctx context.Context) (map[string]*domain.Poll, error) {
	polls := make(map[string]*domain.Poll)

	fields, err := s.rdb.HGetAll(ctx, s.key).Result()
	if errors.Is(err, goredis.Nil) {
		return polls, nil
	}
	if err != nil {
		return polls, fmt.Errorf("failed to read polls: %w", err)
	}

	var errs []error
	for id, raw := range fields {
		var p domain.Poll
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			errs = append(errs, fmt.Errorf("poll %s: %w", id, err))
			continue
		}
		p.ID = id
		polls[id] = &p
	}
	if len(errs) > 0 {
		return polls, fmt.Errorf("%w: %w", domain.ErrStoreCorrupt, errors.Join(errs...))
	}
	return polls, nil
}

func (s *PollStore) Save(ctx context.Context, polls map[string]*domain.Poll) error {
	values := make(map[string]any, len(polls))
	for id, p := range polls {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to encode poll %s: %w", id, err)
		}
		values[id] = data
	}

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, s.key)
	if len(values) > 0 {
		pipe.HSet(ctx, s.key, values)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save polls pipeline failed: %w", err)
	}
	return nil
}

// Ping is used as a readiness check.
func (s *PollStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
