package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/converge-access/converge/server/internal/converge/store"
	"github.com/converge-access/converge/server/internal/converge/types"
)

var (
	ErrInvalidControllerID = errors.New("controller_id is required")
)

type HeartbeatService struct {
	heartbeatStore store.HeartbeatStore
	registry       *ControllerRegistry
}

func NewHeartbeatService(hs store.HeartbeatStore, reg *ControllerRegistry) *HeartbeatService {
	return &HeartbeatService{heartbeatStore: hs, registry: reg}
}

func (s *HeartbeatService) Record(ctx context.Context, req types.HeartbeatRequest) (types.HeartbeatResponse, error) {
	controllerID := strings.TrimSpace(req.ControllerID)
	if controllerID == "" {
		return types.HeartbeatResponse{}, ErrInvalidControllerID
	}

	known, err := s.registry.IsKnown(ctx, controllerID)
	if err != nil {
		return types.HeartbeatResponse{}, err
	}
	_ = s.registry.NoteSeen(ctx, controllerID, known)

	rec := store.HeartbeatRecord{
		ReceivedAt: time.Now().UTC(),
		Request:    req,
	}

	if err := s.heartbeatStore.UpsertHeartbeat(ctx, controllerID, rec); err != nil {
		return types.HeartbeatResponse{}, err
	}

	return types.HeartbeatResponse{
		OK:           true,
		Known:        known,
		ControllerID: controllerID,
		ServerTime:   time.Now().UTC().Format(time.RFC3339Nano),
	}, nil
}
