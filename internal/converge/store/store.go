package store

import (
	"context"
	"time"

	"github.com/converge-access/converge/server/internal/converge/types"
)

type HeartbeatRecord struct {
	ReceivedAt time.Time
	Request    types.HeartbeatRequest
}

type HeartbeatStore interface {
	UpsertHeartbeat(ctx context.Context, controllerID string, rec HeartbeatRecord) error
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type ControllerStore interface {
	IsKnown(ctx context.Context, controllerID string) (bool, error)
	MarkSeen(ctx context.Context, controllerID string, known bool, t time.Time) error
}
