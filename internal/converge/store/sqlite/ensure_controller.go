package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// ensureController guarantees a controllers row exists for the given id
// so foreign-key constraints from heartbeats are satisfied.
//
// New rows start disabled and uncommissioned; only an admin action (or
// the dev seeder) grants enabled=1 and a commissioned timestamp.
//
// Must be called inside an existing transaction.
func ensureController(ctx context.Context, tx *sql.Tx, controllerID string, nowMs int64) error {
	if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO controllers(
  controller_id, enabled, created_at_ms, updated_at_ms
) VALUES (?, 0, ?, ?);
`, controllerID, nowMs, nowMs); err != nil {
		return fmt.Errorf("ensureController %s: %w", controllerID, err)
	}
	return nil
}
