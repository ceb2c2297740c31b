package memory

import (
	"context"
	"sync"
	"time"

	"github.com/converge-access/converge/server/internal/converge/store"
)

type lastAccessEntry struct {
	record    store.LastAccessRecord
	expiresAt time.Time
}

// LastAccessStore keeps the latest access projection per principal,
// honoring TTLs at read time.
type LastAccessStore struct {
	mu      sync.RWMutex
	entries map[string]lastAccessEntry
	now     func() time.Time
}

func NewLastAccessStore() *LastAccessStore {
	return &LastAccessStore{
		entries: make(map[string]lastAccessEntry),
		now:     time.Now,
	}
}

func (s *LastAccessStore) Write(_ context.Context, principalID string, rec store.LastAccessRecord, ttl time.Duration) error {
	entry := lastAccessEntry{record: rec}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[principalID] = entry
	return nil
}

func (s *LastAccessStore) Fetch(_ context.Context, principalID string) (*store.LastAccessRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[principalID]
	if !ok {
		return nil, nil
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		return nil, nil
	}
	rec := entry.record
	return &rec, nil
}
