package engine

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterStore hands out one rate.Limiter per conversation so typing signals
// emitted while the user hammers the keyboard collapse into a steady trickle
// on the wire. Entries idle for longer than limiterTTL are dropped.
type limiterStore struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	entries map[string]*limiterEntry
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const limiterTTL = 3 * time.Minute

func newLimiterStore(limit rate.Limit, burst int) *limiterStore {
	return &limiterStore{
		limit:   limit,
		burst:   burst,
		entries: make(map[string]*limiterEntry),
	}
}

// allow reports whether a signal for the given conversation may go out now.
func (s *limiterStore) allow(convID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	e, ok := s.entries[convID]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.entries[convID] = e
	}
	e.lastSeen = now

	for id, other := range s.entries {
		if now.Sub(other.lastSeen) > limiterTTL {
			delete(s.entries, id)
		}
	}
	return e.limiter.Allow()
}
