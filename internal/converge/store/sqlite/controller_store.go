package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/converge-access/converge/server/internal/db"
)

type ControllerStore struct {
	conn   *sql.DB
	writer *dbpkg.Worker
}

func NewControllerStore(conn *sql.DB, writer *dbpkg.Worker) *ControllerStore {
	return &ControllerStore{conn: conn, writer: writer}
}

// IsKnown treats "known" as commissioned, enabled, and not revoked.
// Commissioning is an admin action (or the dev seeder).
func (s *ControllerStore) IsKnown(ctx context.Context, controllerID string) (bool, error) {
	controllerID = strings.TrimSpace(controllerID)
	if controllerID == "" {
		return false, nil
	}

	var enabled int
	var commissioned sql.NullInt64
	var revoked sql.NullInt64

	err := s.conn.QueryRowContext(ctx, `
SELECT enabled, commissioned_at_ms, revoked_at_ms
FROM controllers
WHERE controller_id = ?;
`, controllerID).Scan(&enabled, &commissioned, &revoked)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("IsKnown query: %w", err)
	}

	return enabled == 1 && commissioned.Valid && !revoked.Valid, nil
}

// MarkSeen ensures a controllers row exists (even for unknown devices)
// and updates its last-seen timestamp.
func (s *ControllerStore) MarkSeen(ctx context.Context, controllerID string, _ bool, t time.Time) error {
	controllerID = strings.TrimSpace(controllerID)
	if controllerID == "" {
		return nil
	}
	if t.IsZero() {
		t = time.Now().UTC()
	}
	ms := t.UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := ensureController(ctx, tx, controllerID, ms); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
UPDATE controllers
SET last_seen_at_ms = ?,
    updated_at_ms   = ?
WHERE controller_id = ?;
`, ms, ms, controllerID); err != nil {
			return fmt.Errorf("MarkSeen update controller: %w", err)
		}

		return nil
	})
}
