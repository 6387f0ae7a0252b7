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

// Stats summarizes the store. FindingsBySeverity always carries all four
// severities, zero-filled.
func (db *DB) Stats(ctx context.Context) (stats *models.Stats, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("STATS", "findings", time.Since(start), err) }()

	stats = &models.Stats{
		FindingsBySeverity: make(map[models.Severity]int, len(models.Severities)),
		EventsByType:       make(map[string]int),
	}
	for _, s := range models.Severities {
		stats.FindingsBySeverity[s] = 0
	}

	if err = db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM source_events`).Scan(&stats.TotalEvents); err != nil {
		return nil, persistErr("count events", err)
	}
	if err = db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM findings`).Scan(&stats.TotalFindings); err != nil {
		return nil, persistErr("count findings", err)
	}

	if err = db.groupCounts(ctx, `SELECT severity, COUNT(*) FROM findings GROUP BY severity`, func(k string, n int) {
		stats.FindingsBySeverity[models.Severity(k)] = n
	}); err != nil {
		return nil, err
	}
	if err = db.groupCounts(ctx, `SELECT event_type, COUNT(*) FROM source_events GROUP BY event_type`, func(k string, n int) {
		stats.EventsByType[k] = n
	}); err != nil {
		return nil, err
	}
	return stats, nil
}

func (db *DB) groupCounts(ctx context.Context, query string, add func(key string, n int)) error {
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return persistErr("group counts", err)
	}
	defer closeRows(rows)

	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return persistErr("scan group count", err)
		}
		add(key, n)
	}
	if err := rows.Err(); err != nil {
		return persistErr("group counts", err)
	}
	return nil
}
