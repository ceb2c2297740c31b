package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const replayKeyPrefix = "converge:replay:"

// ReplayStore tracks consumed capability nonces across server
// instances. SET NX makes first-use atomic; the entry's TTL tracks the
// token expiry so the set never outlives the tokens it guards.
type ReplayStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewReplayStore(client redis.UniversalClient) *ReplayStore {
	return &ReplayStore{client: client, now: time.Now}
}

func (s *ReplayStore) MarkSeen(ctx context.Context, nonce string, expiresAt time.Time) (bool, error) {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		ttl = time.Second
	}

	set, err := s.client.SetArgs(ctx, replayKeyPrefix+nonce, "1", redis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err == redis.Nil {
		// NX miss: the nonce was already consumed.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("replay mark %s: %w", nonce, err)
	}
	return set == "OK", nil
}
