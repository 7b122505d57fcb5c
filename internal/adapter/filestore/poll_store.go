// Package filestore keeps the poll document in a single JSON file.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pscheid92/pollbot/internal/adapter/metrics"
	"github.com/pscheid92/pollbot/internal/domain"
)

const backend = "file"

// PollStore persists polls as a JSON object keyed by poll ID. Writes go to
// a temporary file that is renamed over the target, so readers never see a
// partially written document.
type PollStore struct {
	path    string
	metrics *metrics.StoreMetrics

	mu sync.Mutex
}

func NewPollStore(path string, m *metrics.StoreMetrics) *PollStore {
	return &PollStore{path: path, metrics: m}
}

func (s *PollStore) Load(ctx context.Context) (polls map[string]*domain.Poll, err error) {
	defer func(start time.Time) { s.metrics.Observe(backend, "load", start, err) }(time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.InfoContext(ctx, "Poll file not found, starting empty", "path", s.path)
		return map[string]*domain.Poll{}, nil
	}
	if err != nil {
		return map[string]*domain.Poll{}, fmt.Errorf("failed to read poll file: %w", err)
	}

	return decode(data)
}

// decode parses the document record by record so that one broken record
// does not hide the others.
func decode(data []byte) (map[string]*domain.Poll, error) {
	polls := make(map[string]*domain.Poll)
	if len(data) == 0 {
		return polls, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return polls, fmt.Errorf("%w: %w", domain.ErrStoreCorrupt, err)
	}

	var errs []error
	for id, msg := range raw {
		var p domain.Poll
		if err := json.Unmarshal(msg, &p); err != nil {
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

func (s *PollStore) Save(_ context.Context, polls map[string]*domain.Poll) (err error) {
	defer func(start time.Time) { s.metrics.Observe(backend, "save", start, err) }(time.Now())

	data, err := json.MarshalIndent(polls, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode polls: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return writeAtomic(s.path, data)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create poll directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write poll file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync poll file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close poll file: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace poll file: %w", err)
	}
	return nil
}
