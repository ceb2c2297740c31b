package memory

import (
	"context"
	"strings"
	"sync"
	"time"
)

type ControllerStore struct {
	mu    sync.RWMutex
	known map[string]struct{}
	seen  map[string]time.Time
}

func NewControllerStore(knownControllers []string) *ControllerStore {
	k := make(map[string]struct{}, len(knownControllers))
	for _, id := range knownControllers {
		id = strings.TrimSpace(id)
		if id != "" {
			k[id] = struct{}{}
		}
	}
	return &ControllerStore{
		known: k,
		seen:  make(map[string]time.Time),
	}
}

func (s *ControllerStore) IsKnown(_ context.Context, controllerID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.known[controllerID]
	return ok, nil
}

func (s *ControllerStore) MarkSeen(_ context.Context, controllerID string, _ bool, t time.Time) error {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[controllerID] = t
	return nil
}
