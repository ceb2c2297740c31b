package store

import (
	"context"
	"time"
)

// LastAccessRecord is an advisory projection of a principal's most
// recent allowed access. It is never read back to influence an
// authorization outcome.
type LastAccessRecord struct {
	DoorID    string
	TimeOfDay string // "HH:MM"
	Lat       float64
	Lon       float64
}

// LastAccessStore keeps one LastAccessRecord per principal with
// last-write-wins semantics. Fetch returns nil when no record exists.
type LastAccessStore interface {
	Write(ctx context.Context, principalID string, rec LastAccessRecord, ttl time.Duration) error
	Fetch(ctx context.Context, principalID string) (*LastAccessRecord, error)
}

// ReplayStore tracks consumed capability nonces. MarkSeen reports true
// when the nonce is seen for the first time; entries may be dropped
// once expiresAt has passed, since expired tokens are rejected by the
// verifier regardless.
type ReplayStore interface {
	MarkSeen(ctx context.Context, nonce string, expiresAt time.Time) (bool, error)
}
