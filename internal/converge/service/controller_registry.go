package service

import (
	"context"
	"strings"
	"time"

	"github.com/converge-access/converge/server/internal/converge/store"
)

// ControllerRegistry answers whether an enforcement point is
// commissioned and tracks when it was last heard from.
type ControllerRegistry struct {
	store store.ControllerStore
}

func NewControllerRegistry(st store.ControllerStore) *ControllerRegistry {
	return &ControllerRegistry{store: st}
}

func (r *ControllerRegistry) IsKnown(ctx context.Context, controllerID string) (bool, error) {
	controllerID = strings.TrimSpace(controllerID)
	if controllerID == "" {
		return false, nil
	}
	return r.store.IsKnown(ctx, controllerID)
}

func (r *ControllerRegistry) NoteSeen(ctx context.Context, controllerID string, known bool) error {
	controllerID = strings.TrimSpace(controllerID)
	if controllerID == "" {
		return nil
	}
	return r.store.MarkSeen(ctx, controllerID, known, time.Now().UTC())
}
