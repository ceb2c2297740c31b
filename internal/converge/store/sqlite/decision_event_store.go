package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/converge-access/converge/server/internal/db"
	"github.com/converge-access/converge/server/internal/converge/store"
)

type DecisionEventStore struct {
	conn   *sql.DB
	writer *dbpkg.Worker
}

func NewDecisionEventStore(conn *sql.DB, writer *dbpkg.Worker) *DecisionEventStore {
	return &DecisionEventStore{conn: conn, writer: writer}
}

func (s *DecisionEventStore) RecordDecision(ctx context.Context, rec store.DecisionEventRecord) error {
	if rec.DecidedAt.IsZero() {
		rec.DecidedAt = time.Now().UTC()
	}
	decidedMs := rec.DecidedAt.UTC().UnixMilli()

	var allow int
	if rec.Allow {
		allow = 1
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		// area_id falls back to the lock's registered area when the
		// request did not carry one.
		areaID := rec.AreaID
		if areaID == "" {
			var registered sql.NullString
			err := tx.QueryRowContext(ctx, `
SELECT area_id FROM locks WHERE lock_id = ?;
`, rec.ResourceID).Scan(&registered)
			if err != nil && err != sql.ErrNoRows {
				return fmt.Errorf("RecordDecision resolve area_id: %w", err)
			}
			if registered.Valid {
				areaID = registered.String
			}
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO decision_events(
  principal_id, resource_id, area_id, action, mode, allow, reason, decided_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?);
`,
			rec.PrincipalID, rec.ResourceID, areaID, rec.Action,
			rec.Mode, allow, rec.Reason, decidedMs,
		); err != nil {
			return fmt.Errorf("RecordDecision insert: %w", err)
		}

		return nil
	})
}
