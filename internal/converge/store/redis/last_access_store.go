// Package redis provides Redis-backed implementations of the store
// interfaces used for short-lived operational state.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/converge-access/converge/server/internal/converge/store"
)

const lastAccessKeyPrefix = "converge:last-access:"

// LastAccessStore keeps the latest access projection per principal in
// a Redis hash, expiring with the configured TTL.
type LastAccessStore struct {
	client redis.UniversalClient
}

func NewLastAccessStore(client redis.UniversalClient) *LastAccessStore {
	return &LastAccessStore{client: client}
}

func lastAccessKey(principalID string) string {
	return lastAccessKeyPrefix + principalID
}

func (s *LastAccessStore) Write(ctx context.Context, principalID string, rec store.LastAccessRecord, ttl time.Duration) error {
	key := lastAccessKey(principalID)

	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"door_id", rec.DoorID,
			"time_of_day", rec.TimeOfDay,
			"lat", strconv.FormatFloat(rec.Lat, 'f', -1, 64),
			"lon", strconv.FormatFloat(rec.Lon, 'f', -1, 64),
		)
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("last-access write %s: %w", principalID, err)
	}
	return nil
}

func (s *LastAccessStore) Fetch(ctx context.Context, principalID string) (*store.LastAccessRecord, error) {
	vals, err := s.client.HMGet(ctx, lastAccessKey(principalID),
		"door_id", "time_of_day", "lat", "lon").Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last-access fetch %s: %w", principalID, err)
	}

	// HMGet on a missing key returns all-nil values rather than
	// redis.Nil.
	if len(vals) != 4 || vals[0] == nil {
		return nil, nil
	}

	rec := &store.LastAccessRecord{}
	if v, ok := vals[0].(string); ok {
		rec.DoorID = v
	}
	if v, ok := vals[1].(string); ok {
		rec.TimeOfDay = v
	}
	if v, ok := vals[2].(string); ok {
		rec.Lat, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok := vals[3].(string); ok {
		rec.Lon, _ = strconv.ParseFloat(v, 64)
	}
	return rec, nil
}
