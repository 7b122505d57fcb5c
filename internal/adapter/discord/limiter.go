package discord

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

const limiterExpiry = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// userLimiter gives every user a token bucket refilled at perMinute.
// Idle buckets are dropped after limiterExpiry.
type userLimiter struct {
	mu        sync.Mutex
	clock     clockwork.Clock
	limit     rate.Limit
	burst     int
	entries   map[string]*limiterEntry
	lastPrune time.Time
}

func newUserLimiter(perMinute int, clock clockwork.Clock) *userLimiter {
	return &userLimiter{
		clock:     clock,
		limit:     rate.Every(time.Minute / time.Duration(perMinute)),
		burst:     perMinute,
		entries:   make(map[string]*limiterEntry),
		lastPrune: clock.Now(),
	}
}

func (l *userLimiter) allow(userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if now.Sub(l.lastPrune) > limiterExpiry {
		l.prune(now)
	}

	e, ok := l.entries[userID]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[userID] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

func (l *userLimiter) prune(now time.Time) {
	for id, e := range l.entries {
		if now.Sub(e.lastSeen) > limiterExpiry {
			delete(l.entries, id)
		}
	}
	l.lastPrune = now
}
