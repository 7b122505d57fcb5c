package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/pollbot/internal/domain"
)

var errManagerStopped = errors.New("poll manager stopped")

const (
	renderTimeout = 10 * time.Second
	storeTimeout  = 5 * time.Second
)

// CreateRequest describes a new poll as requested by a user.
type CreateRequest struct {
	ChannelID string
	Author    domain.Author
	Header    string
	Options   []string
	Duration  time.Duration
}

// RestoreReport summarizes what happened to each stored poll on startup.
type RestoreReport struct {
	Resumed   int
	Concluded int
	Dropped   int
	Skipped   int
}

type restoreOutcome int

const (
	restoreResumed restoreOutcome = iota
	restoreConcluded
	restoreDropped
	restoreSkipped
)

// Manager owns the registry of live poll sessions. It creates sessions,
// restores them from the store on startup and concludes them when their
// timers fire.
type Manager struct {
	ledger   *Ledger
	renderer domain.PollRenderer
	clock    clockwork.Clock
	recorder Recorder

	mu       sync.Mutex
	sessions map[string]*Session
	starting map[string]struct{}
	stopped  bool
	inflight sync.WaitGroup
}

// NewManager creates a poll manager. recorder may be nil.
func NewManager(ledger *Ledger, renderer domain.PollRenderer, clock clockwork.Clock, recorder Recorder) *Manager {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Manager{
		ledger:   ledger,
		renderer: renderer,
		clock:    clock,
		recorder: recorder,
		sessions: make(map[string]*Session),
		starting: make(map[string]struct{}),
	}
}

// Create validates the request, renders the poll, persists it and arms its timer.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*domain.Poll, error) {
	header, options, err := validateCreate(req)
	if err != nil {
		return nil, err
	}
	if m.isStopped() {
		return nil, errManagerStopped
	}

	now := m.clock.Now()
	poll := &domain.Poll{
		ChannelID:       req.ChannelID,
		AuthorID:        req.Author.ID,
		AuthorName:      req.Author.DisplayName,
		AuthorAvatarURL: req.Author.AvatarURL,
		Header:          header,
		Options:         options,
		CreatedAt:       now,
		EndsAt:          now.Add(req.Duration),
		Votes:           make(map[string]int),
	}

	renderCtx, cancel := context.WithTimeout(ctx, renderTimeout)
	pollID, err := m.renderer.RenderPoll(renderCtx, poll.Clone())
	cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to render poll: %w", err)
	}
	poll.ID = pollID

	// The message is visible before its first store write finishes.
	m.markStarting(pollID)
	defer m.clearStarting(pollID)

	m.persist(ctx, "create", pollID, func(ctx context.Context) error {
		return m.ledger.Put(ctx, poll)
	})

	if err := m.register(newSession(poll)); err != nil {
		return nil, err
	}

	m.recorder.PollCreated()
	slog.InfoContext(ctx, "Poll created",
		"poll_id", pollID,
		"channel_id", poll.ChannelID,
		"author_id", poll.AuthorID,
		"options", len(poll.Options),
		"ends_at", poll.EndsAt)

	return poll.Clone(), nil
}

func validateCreate(req CreateRequest) (string, []string, error) {
	header := strings.TrimSpace(req.Header)
	if header == "" {
		return "", nil, domain.NewValidationError("You must provide a poll header.")
	}

	options := make([]string, 0, len(req.Options))
	for _, opt := range req.Options {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			return "", nil, domain.NewValidationError("Poll options must not be empty.")
		}
		options = append(options, opt)
	}
	if len(options) < domain.MinOptions || len(options) > domain.MaxOptions {
		return "", nil, domain.NewValidationError(fmt.Sprintf("You must provide between %d and %d options.", domain.MinOptions, domain.MaxOptions))
	}

	if req.Duration <= 0 || req.Duration > domain.MaxPollDuration {
		return "", nil, domain.NewValidationError(invalidDurationMessage)
	}
	if req.ChannelID == "" {
		return "", nil, domain.NewValidationError("Polls channel is not configured.")
	}

	return header, options, nil
}

// Restore loads every stored poll and either resumes it or concludes it
// right away when its deadline passed while the process was down. Each
// record is handled independently.
func (m *Manager) Restore(ctx context.Context) RestoreReport {
	records, err := m.ledger.Load(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load poll store, continuing with recovered polls", "recovered", len(records), "error", err)
	}

	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var report RestoreReport
	for _, id := range ids {
		switch m.restoreOne(ctx, records[id]) {
		case restoreResumed:
			report.Resumed++
		case restoreConcluded:
			report.Concluded++
		case restoreDropped:
			report.Dropped++
		case restoreSkipped:
			report.Skipped++
		}
	}

	slog.InfoContext(ctx, "Poll restore finished",
		"resumed", report.Resumed,
		"concluded", report.Concluded,
		"dropped", report.Dropped,
		"skipped", report.Skipped)
	return report
}

func (m *Manager) restoreOne(ctx context.Context, poll *domain.Poll) restoreOutcome {
	if err := poll.Validate(); err != nil {
		slog.WarnContext(ctx, "Dropping invalid stored poll", "poll_id", poll.ID, "error", err)
		m.persist(ctx, "delete", poll.ID, func(ctx context.Context) error {
			return m.ledger.Delete(ctx, poll.ID)
		})
		return restoreDropped
	}

	if _, exists := m.lookup(poll.ID); exists {
		return restoreSkipped
	}

	session := newSession(poll)
	if poll.Expired(m.clock.Now()) {
		if !m.track() {
			return restoreSkipped
		}
		defer m.inflight.Done()
		m.conclude(ctx, session, "expired_offline")
		return restoreConcluded
	}

	attachCtx, cancel := context.WithTimeout(ctx, renderTimeout)
	err := m.renderer.AttachPoll(attachCtx, poll.Clone())
	cancel()
	if errors.Is(err, domain.ErrRenderUnavailable) {
		slog.WarnContext(ctx, "Dropping poll whose message is gone", "poll_id", poll.ID, "channel_id", poll.ChannelID, "error", err)
		m.persist(ctx, "delete", poll.ID, func(ctx context.Context) error {
			return m.ledger.Delete(ctx, poll.ID)
		})
		return restoreDropped
	}
	if err != nil {
		slog.ErrorContext(ctx, "Skipping poll restore", "poll_id", poll.ID, "channel_id", poll.ChannelID, "error", err)
		return restoreSkipped
	}

	if err := m.register(session); err != nil {
		slog.ErrorContext(ctx, "Failed to register restored poll", "poll_id", poll.ID, "error", err)
		return restoreSkipped
	}

	slog.InfoContext(ctx, "Poll resumed", "poll_id", poll.ID, "remaining", poll.EndsAt.Sub(m.clock.Now()).Round(time.Second))
	return restoreResumed
}

// Vote submits a voter's choice. Votes are final: a second vote from the
// same voter fails with domain.ErrAlreadyVoted.
func (m *Manager) Vote(ctx context.Context, pollID, voterID string, option int) (VoteReceipt, error) {
	session, err := m.find(pollID)
	if errors.Is(err, domain.ErrPollStarting) {
		m.recorder.VoteProcessed("starting")
		return VoteReceipt{}, err
	}
	if err != nil {
		m.recorder.VoteProcessed("not_found")
		return VoteReceipt{}, err
	}

	receipt, err := session.SubmitVote(voterID, option)
	switch {
	case errors.Is(err, domain.ErrAlreadyVoted):
		m.recorder.VoteProcessed("already_voted")
		slog.DebugContext(ctx, "Vote rejected, already voted", "poll_id", pollID, "user_id", voterID)
		return receipt, err
	case errors.Is(err, domain.ErrPollClosed):
		m.recorder.VoteProcessed("closed")
		return receipt, err
	case err != nil:
		m.recorder.VoteProcessed("invalid")
		return receipt, err
	}

	m.persist(ctx, "vote", pollID, func(ctx context.Context) error {
		return m.ledger.RecordVote(ctx, pollID, voterID, option)
	})

	m.recorder.VoteProcessed("accepted")
	slog.DebugContext(ctx, "Vote accepted", "poll_id", pollID, "user_id", voterID, "option", option)
	return receipt, nil
}

// Results returns the live tally of an open poll.
func (m *Manager) Results(pollID string) (Results, error) {
	session, err := m.find(pollID)
	if err != nil {
		return Results{}, err
	}
	return session.Results(), nil
}

// ActivePolls returns the live tallies of all open polls, soonest deadline first.
func (m *Manager) ActivePolls() []Results {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	out := make([]Results, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Results())
	}
	slices.SortFunc(out, func(a, b Results) int {
		if c := a.Poll.EndsAt.Compare(b.Poll.EndsAt); c != 0 {
			return c
		}
		return strings.Compare(a.Poll.ID, b.Poll.ID)
	})
	return out
}

// Session returns the live session for pollID.
func (m *Manager) Session(pollID string) (*Session, bool) {
	return m.lookup(pollID)
}

// ActiveCount is the number of registered sessions.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Stop disarms all timers without concluding any poll and waits for
// conclusions already in progress. Stored polls resume on the next start.
func (m *Manager) Stop() {
	m.mu.Lock()
	m.stopped = true
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.disarm()
	}
	m.inflight.Wait()
}

func (m *Manager) isStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

func (m *Manager) lookup(pollID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[pollID]
	return s, ok
}

// find resolves a live session. Polls still being created report
// domain.ErrPollStarting instead of domain.ErrPollNotFound.
func (m *Manager) find(pollID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[pollID]; ok {
		return s, nil
	}
	if _, ok := m.starting[pollID]; ok {
		return nil, domain.ErrPollStarting
	}
	return nil, domain.ErrPollNotFound
}

func (m *Manager) markStarting(pollID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starting[pollID] = struct{}{}
}

func (m *Manager) clearStarting(pollID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.starting, pollID)
}

func (m *Manager) register(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return errManagerStopped
	}
	if _, exists := m.sessions[s.ID()]; exists {
		return fmt.Errorf("poll %s is already registered", s.ID())
	}

	pollID := s.ID()
	delay := s.poll.EndsAt.Sub(m.clock.Now())
	s.arm(m.clock.AfterFunc(delay, func() { m.expire(pollID) }))
	m.sessions[pollID] = s
	m.recorder.SetActivePolls(len(m.sessions))
	return nil
}

func (m *Manager) unregister(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.sessions[s.ID()]; ok && current == s {
		delete(m.sessions, s.ID())
	}
	m.recorder.SetActivePolls(len(m.sessions))
}

// track registers an in-flight conclusion unless the manager is stopping.
func (m *Manager) track() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return false
	}
	m.inflight.Add(1)
	return true
}

// expire runs when a session timer fires. The session may already be gone.
func (m *Manager) expire(pollID string) {
	session, ok := m.lookup(pollID)
	if !ok {
		slog.Debug("Timer fired for unknown poll", "poll_id", pollID)
		return
	}
	if !m.track() {
		return
	}
	defer m.inflight.Done()
	m.conclude(context.Background(), session, "expired")
}

// conclude finalizes a session. Redundant calls are no-ops.
func (m *Manager) conclude(ctx context.Context, s *Session, reason string) {
	poll, first := s.markConcluded()
	if !first {
		return
	}
	m.unregister(s)

	results := resultsOf(poll)

	renderCtx, cancel := context.WithTimeout(ctx, renderTimeout)
	err := m.renderer.RenderConclusion(renderCtx, poll, results.Tally, results.Winners)
	cancel()
	if err != nil {
		slog.ErrorContext(ctx, "Failed to render poll conclusion", "poll_id", poll.ID, "channel_id", poll.ChannelID, "error", err)
	}

	m.persist(ctx, "delete", poll.ID, func(ctx context.Context) error {
		return m.ledger.Delete(ctx, poll.ID)
	})

	m.recorder.PollConcluded(reason)
	slog.InfoContext(ctx, "Poll concluded",
		"poll_id", poll.ID,
		"reason", reason,
		"votes", results.Tally.Total(),
		"summary", Summary(poll, results.Winners))
}

// persist runs a store write. Failures are logged and never reach the caller.
func (m *Manager) persist(ctx context.Context, op, pollID string, write func(context.Context) error) {
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()

	err := write(storeCtx)
	if err == nil || errors.Is(err, domain.ErrPollNotFound) {
		return
	}
	m.recorder.StoreWriteFailed(op)
	slog.ErrorContext(ctx, "Failed to persist poll state", "op", op, "poll_id", pollID, "error", err)
}
