package app

import (
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/pollbot/internal/domain"
)

// State is the lifecycle state of a poll session.
type State int

const (
	StateOpen State = iota
	StateConcluded
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateConcluded:
		return "concluded"
	default:
		return "unknown"
	}
}

// VoteReceipt acknowledges a vote. On ErrAlreadyVoted it names the
// option the voter picked earlier.
type VoteReceipt struct {
	PollID string
	Option int
	Label  string
}

// Session is the in-memory state machine of one poll. It moves from
// StateOpen to StateConcluded exactly once.
type Session struct {
	mu    sync.Mutex
	poll  *domain.Poll
	state State
	timer clockwork.Timer
}

func newSession(p *domain.Poll) *Session {
	return &Session{poll: p.Clone(), state: StateOpen}
}

func (s *Session) ID() string {
	return s.poll.ID
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns a copy of the current poll record.
func (s *Session) Snapshot() *domain.Poll {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.poll.Clone()
}

// SubmitVote records the voter's first choice. The vote is in memory when
// this returns, before any persistence happens.
func (s *Session) SubmitVote(voterID string, option int) (VoteReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateConcluded {
		return VoteReceipt{}, domain.ErrPollClosed
	}
	if prev, voted := s.poll.Votes[voterID]; voted {
		return s.receipt(prev), domain.ErrAlreadyVoted
	}
	if !s.poll.ValidOption(option) {
		return VoteReceipt{}, domain.ErrInvalidOption
	}

	s.poll.Votes[voterID] = option
	return s.receipt(option), nil
}

func (s *Session) receipt(option int) VoteReceipt {
	r := VoteReceipt{PollID: s.poll.ID, Option: option}
	if s.poll.ValidOption(option) {
		r.Label = s.poll.Options[option]
	}
	return r
}

// Results tallies the current votes. Valid in any state.
func (s *Session) Results() Results {
	return resultsOf(s.Snapshot())
}

func (s *Session) arm(t clockwork.Timer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = t
}

func (s *Session) disarm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// markConcluded performs the Open to Concluded transition. Only the first
// caller gets ok=true together with the final record.
func (s *Session) markConcluded() (*domain.Poll, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateConcluded {
		return nil, false
	}
	s.state = StateConcluded
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	return s.poll.Clone(), true
}
