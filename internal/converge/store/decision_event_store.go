package store

import (
	"context"
	"time"
)

// DecisionEventRecord captures a single decision for the audit log,
// whichever path produced it.
type DecisionEventRecord struct {
	PrincipalID string
	ResourceID  string
	AreaID      string
	Action      string
	Mode        string
	Allow       bool
	Reason      string
	DecidedAt   time.Time
}

// DecisionEventStore persists decisions as an append-only audit log.
// Writes are best-effort: a failed audit write never changes the
// decision handed back to the caller.
type DecisionEventStore interface {
	RecordDecision(ctx context.Context, rec DecisionEventRecord) error
}
