// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package database

import (
	"context"
	"time"

	"github.com/tomtom215/vigil/internal/metrics"
	"github.com/tomtom215/vigil/internal/models"
)

const insertFindingSQL = `INSERT INTO findings (event_id, rule_name, severity, description, user_name, created_at)
	VALUES (?, ?, ?, ?, ?, ?) RETURNING id`

// ProcessEvent claims eventID and stores its findings in one transaction.
//
// The claim flips processed from false to true. If another writer got there
// first (zero rows affected or a DuckDB write conflict), ProcessEvent returns
// claimed=false with a nil error and stores nothing. On any other failure the
// transaction is rolled back and the event stays unprocessed.
//
// The returned findings carry their assigned ids and created_at.
func (db *DB) ProcessEvent(ctx context.Context, eventID int64, findings []models.Finding) (stored []models.Finding, claimed bool, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("PROCESS_EVENT", "source_events", time.Since(start), err) }()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, persistErr("begin process event", err)
	}
	committed := false
	defer func() {
		if !committed {
			rollback(tx, err)
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE source_events SET processed = true WHERE id = ? AND processed = false`, eventID)
	if err != nil {
		if isTransactionConflict(err) {
			return nil, false, nil
		}
		return nil, false, persistErr("claim event", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, persistErr("claim event", err)
	}
	if affected == 0 {
		return nil, false, nil
	}

	now := time.Now().UTC()
	stored = make([]models.Finding, 0, len(findings))
	for i := range findings {
		f := findings[i]
		f.EventID = eventID
		f.CreatedAt = now
		if err = tx.QueryRowContext(ctx, insertFindingSQL,
			f.EventID, f.RuleName, string(f.Severity), f.Description, f.User, f.CreatedAt,
		).Scan(&f.ID); err != nil {
			return nil, false, persistErr("insert finding", err)
		}
		stored = append(stored, f)
	}

	if err = tx.Commit(); err != nil {
		committed = true
		if isTransactionConflict(err) {
			err = nil
			return nil, false, nil
		}
		return nil, false, persistErr("commit process event", err)
	}
	committed = true
	return stored, true, nil
}
