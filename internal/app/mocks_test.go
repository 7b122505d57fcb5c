package app

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"sync/atomic"

	"github.com/pscheid92/pollbot/internal/domain"
)

var errStoreDown = errors.New("store down")

// --- Mock implementations ---

type memStore struct {
	mu      sync.Mutex
	polls   map[string]*domain.Poll
	loadErr error
	saveErr error
	saves   int
}

func newMemStore(polls ...*domain.Poll) *memStore {
	s := &memStore{polls: make(map[string]*domain.Poll)}
	for _, p := range polls {
		s.polls[p.ID] = p.Clone()
	}
	return s
}

func (s *memStore) Load(_ context.Context) (map[string]*domain.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]*domain.Poll, len(s.polls))
	for id, p := range s.polls {
		out[id] = p.Clone()
	}
	return out, s.loadErr
}

func (s *memStore) Save(_ context.Context, polls map[string]*domain.Poll) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.polls = make(map[string]*domain.Poll, len(polls))
	for id, p := range polls {
		s.polls[id] = p.Clone()
	}
	return nil
}

func (s *memStore) setSaveErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

func (s *memStore) get(id string) (*domain.Poll, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.polls[id]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

func (s *memStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.polls)
}

// gatedStore holds the next Save until release is closed.
type gatedStore struct {
	*memStore
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func newGatedStore(inner *memStore) *gatedStore {
	return &gatedStore{
		memStore: inner,
		entered:  make(chan struct{}, 1),
		release:  make(chan struct{}),
	}
}

func (s *gatedStore) Save(ctx context.Context, polls map[string]*domain.Poll) error {
	if s.armed.CompareAndSwap(true, false) {
		s.entered <- struct{}{}
		<-s.release
	}
	return s.memStore.Save(ctx, polls)
}

type conclusionCall struct {
	poll    *domain.Poll
	tally   domain.Tally
	winners []int
}

type mockRenderer struct {
	mu          sync.Mutex
	nextID      int
	rendered    []*domain.Poll
	attached    []string
	conclusions []conclusionCall

	renderErr     error
	attachErr     map[string]error
	conclusionErr error
}

func (r *mockRenderer) RenderPoll(_ context.Context, p *domain.Poll) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.renderErr != nil {
		return "", r.renderErr
	}
	r.nextID++
	r.rendered = append(r.rendered, p)
	return fmt.Sprintf("msg-%d", r.nextID), nil
}

func (r *mockRenderer) AttachPoll(_ context.Context, p *domain.Poll) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err, ok := r.attachErr[p.ID]; ok {
		return err
	}
	r.attached = append(r.attached, p.ID)
	return nil
}

func (r *mockRenderer) RenderConclusion(_ context.Context, p *domain.Poll, tally domain.Tally, winners []int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conclusions = append(r.conclusions, conclusionCall{poll: p, tally: tally, winners: winners})
	return r.conclusionErr
}

func (r *mockRenderer) concluded() []conclusionCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]conclusionCall(nil), r.conclusions...)
}

type mockRecorder struct {
	mu          sync.Mutex
	created     int
	concluded   map[string]int
	votes       map[string]int
	storeFailed map[string]int
	active      int
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{
		concluded:   make(map[string]int),
		votes:       make(map[string]int),
		storeFailed: make(map[string]int),
	}
}

func (m *mockRecorder) PollCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created++
}

func (m *mockRecorder) PollConcluded(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.concluded[reason]++
}

func (m *mockRecorder) VoteProcessed(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.votes[result]++
}

func (m *mockRecorder) StoreWriteFailed(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storeFailed[op]++
}

func (m *mockRecorder) SetActivePolls(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = n
}

func (m *mockRecorder) snapshot() (concluded, votes, storeFailed map[string]int, active int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.concluded), maps.Clone(m.votes), maps.Clone(m.storeFailed), m.active
}
