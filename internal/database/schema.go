// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package database

import (
	"context"
	"fmt"
)

// findings.event_id is indexed but not declared as a FOREIGN KEY: DuckDB
// rejects UPDATEs on rows referenced by a foreign key, and source_events
// rows are updated when they are claimed.
var schemaStatements = []string{
	`CREATE SEQUENCE IF NOT EXISTS source_events_id_seq START 1`,
	`CREATE SEQUENCE IF NOT EXISTS findings_id_seq START 1`,
	`CREATE TABLE IF NOT EXISTS source_events (
		id BIGINT PRIMARY KEY DEFAULT nextval('source_events_id_seq'),
		event_type VARCHAR NOT NULL,
		user_name VARCHAR NOT NULL,
		raw_data VARCHAR,
		occurred_at TIMESTAMP NOT NULL,
		processed BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS findings (
		id BIGINT PRIMARY KEY DEFAULT nextval('findings_id_seq'),
		event_id BIGINT NOT NULL,
		rule_name VARCHAR NOT NULL,
		severity VARCHAR NOT NULL,
		description VARCHAR NOT NULL,
		user_name VARCHAR NOT NULL,
		created_at TIMESTAMP NOT NULL,
		risk_score DOUBLE,
		ai_explanation VARCHAR,
		enrichment_source VARCHAR
	)`,
	`CREATE INDEX IF NOT EXISTS idx_source_events_user_type_time ON source_events(user_name, event_type, occurred_at)`,
	`CREATE INDEX IF NOT EXISTS idx_findings_event_id ON findings(event_id)`,
}

func (db *DB) createSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
