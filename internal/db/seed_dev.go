package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type SeedDevOptions struct {
	// KnownControllers are pre-commissioned in dev so a fresh checkout
	// can take decisions without an admin step.
	KnownControllers []string
}

func SeedDev(ctx context.Context, conn *sql.DB, opt SeedDevOptions) error {
	now := time.Now().UTC().UnixMilli()

	if _, err := conn.ExecContext(ctx, `
INSERT OR IGNORE INTO locks(lock_id, area_id, name, location, created_at_ms, updated_at_ms)
VALUES ('lock-7', 'area-3', 'Main Entrance', 'Dev', ?, ?);`, now, now); err != nil {
		return fmt.Errorf("seed locks: %w", err)
	}

	controllers := opt.KnownControllers
	if len(controllers) == 0 {
		controllers = []string{"lock-7"}
	}

	for _, id := range controllers {
		if _, err := conn.ExecContext(ctx, `
INSERT INTO controllers(
  controller_id, lock_id, display_name,
  enabled, commissioned_at_ms,
  created_at_ms, updated_at_ms
) VALUES (?, 'lock-7', ?, 1, ?, ?, ?)
ON CONFLICT(controller_id) DO UPDATE SET
  enabled = 1,
  commissioned_at_ms = COALESCE(controllers.commissioned_at_ms, excluded.commissioned_at_ms),
  updated_at_ms = excluded.updated_at_ms;
`, id, id, now, now, now); err != nil {
			return fmt.Errorf("seed controller %s: %w", id, err)
		}
	}

	return nil
}
