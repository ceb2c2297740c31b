package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/converge-access/converge/server/internal/db"
	"github.com/converge-access/converge/server/internal/converge/store"
)

type HeartbeatStore struct {
	conn   *sql.DB
	writer *dbpkg.Worker
}

func NewHeartbeatStore(conn *sql.DB, writer *dbpkg.Worker) *HeartbeatStore {
	return &HeartbeatStore{conn: conn, writer: writer}
}

func (s *HeartbeatStore) UpsertHeartbeat(ctx context.Context, controllerID string, rec store.HeartbeatRecord) error {
	controllerID = strings.TrimSpace(controllerID)
	if controllerID == "" {
		return nil
	}

	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = time.Now().UTC()
	}
	recvMs := rec.ReceivedAt.UTC().UnixMilli()

	fw := strings.TrimSpace(rec.Request.FirmwareVersion)
	ip := strings.TrimSpace(rec.Request.IP)

	var rssi any
	if rec.Request.RSSIDbm != nil {
		rssi = *rec.Request.RSSIDbm
	}

	var uptimeMs any
	if rec.Request.UptimeSeconds != 0 {
		uptimeMs = int64(rec.Request.UptimeSeconds) * 1000
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := ensureController(ctx, tx, controllerID, recvMs); err != nil {
			return err
		}

		// Append-only heartbeat event.
		if _, err := tx.ExecContext(ctx, `
INSERT INTO controller_heartbeats(
  controller_id, received_at_ms, uptime_ms, fw_version, wifi_rssi, ip
) VALUES (?, ?, ?, ?, ?, ?);
`, controllerID, recvMs, uptimeMs, fw, rssi, ip); err != nil {
			return fmt.Errorf("UpsertHeartbeat insert heartbeat: %w", err)
		}

		// Controller snapshot for fast current-status queries.
		if _, err := tx.ExecContext(ctx, `
UPDATE controllers
SET last_seen_at_ms = ?,
    last_ip = ?,
    last_fw_version = ?,
    last_wifi_rssi = ?,
    updated_at_ms = ?
WHERE controller_id = ?;
`, recvMs, ip, fw, rssi, recvMs, controllerID); err != nil {
			return fmt.Errorf("UpsertHeartbeat update controller snapshot: %w", err)
		}

		return nil
	})
}

// PruneOlderThan deletes heartbeat rows received before the cutoff and
// returns the number of rows deleted. Uses the idx_heartbeats_time
// index for an efficient range scan.
func (s *HeartbeatStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoffMs := cutoff.UTC().UnixMilli()

	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
DELETE FROM controller_heartbeats
WHERE received_at_ms < ?;
`, cutoffMs)
		if err != nil {
			return fmt.Errorf("PruneOlderThan: %w", err)
		}
		deleted, _ = res.RowsAffected()
		return nil
	})
	return deleted, err
}
