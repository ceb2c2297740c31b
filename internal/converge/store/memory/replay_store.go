package memory

import (
	"context"
	"sync"
	"time"
)

// ReplayStore is a thread-safe set of consumed capability nonces. An
// entry expires with its token's natural expiry, since expired tokens
// are rejected before the replay check runs; expired entries are
// dropped opportunistically on each MarkSeen to bound growth.
type ReplayStore struct {
	mu      sync.Mutex
	seen    map[string]time.Time
	now     func() time.Time
	counter int
}

func NewReplayStore() *ReplayStore {
	return &ReplayStore{
		seen: make(map[string]time.Time),
		now:  time.Now,
	}
}

func (s *ReplayStore) MarkSeen(_ context.Context, nonce string, expiresAt time.Time) (bool, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Sweep expired entries every so often.
	s.counter++
	if s.counter%64 == 0 {
		for n, exp := range s.seen {
			if !now.Before(exp) {
				delete(s.seen, n)
			}
		}
	}

	if exp, ok := s.seen[nonce]; ok && now.Before(exp) {
		return false, nil
	}
	s.seen[nonce] = expiresAt
	return true, nil
}

// Len returns the current number of tracked nonces. Test-only helper.
func (s *ReplayStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
