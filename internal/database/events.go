// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/vigil/internal/metrics"
	"github.com/tomtom215/vigil/internal/models"
)

const (
	defaultEventListLimit = 100
	maxEventListLimit     = 1000
)

const eventColumns = `id, event_type, user_name, raw_data, occurred_at, processed, created_at`

const insertEventSQL = `INSERT INTO source_events (event_type, user_name, raw_data, occurred_at, processed, created_at)
	VALUES (?, ?, ?, ?, false, ?) RETURNING id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (models.SourceEvent, error) {
	var (
		ev  models.SourceEvent
		typ string
		raw sql.NullString
	)
	if err := row.Scan(&ev.ID, &typ, &ev.User, &raw, &ev.Timestamp, &ev.Processed, &ev.CreatedAt); err != nil {
		return ev, err
	}
	ev.EventType = models.EventType(typ)
	if raw.Valid && raw.String != "" {
		ev.RawData = []byte(raw.String)
	}
	ev.Timestamp = ev.Timestamp.UTC()
	ev.CreatedAt = ev.CreatedAt.UTC()
	return ev, nil
}

func rawDataArg(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func eventTimestamp(ev *models.NewEvent, now time.Time) time.Time {
	if ev.Timestamp.IsZero() {
		return now
	}
	return ev.Timestamp.UTC()
}

// InsertEvent stores one event and returns its id.
func (db *DB) InsertEvent(ctx context.Context, ev *models.NewEvent) (id int64, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("INSERT", "source_events", time.Since(start), err) }()

	now := time.Now().UTC()
	err = db.conn.QueryRowContext(ctx, insertEventSQL,
		string(ev.EventType), ev.User, rawDataArg(ev.RawData), eventTimestamp(ev, now), now,
	).Scan(&id)
	if err != nil {
		return 0, persistErr("insert event", err)
	}
	return id, nil
}

// InsertEvents stores a batch in a single transaction and returns the ids
// in input order. Either every event is stored or none is.
func (db *DB) InsertEvents(ctx context.Context, events []models.NewEvent) (ids []int64, err error) {
	if len(events) == 0 {
		return []int64{}, nil
	}

	start := time.Now()
	defer func() { metrics.RecordDBQuery("INSERT_BATCH", "source_events", time.Since(start), err) }()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistErr("begin insert events", err)
	}
	defer func() {
		if err != nil {
			rollback(tx, err)
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertEventSQL)
	if err != nil {
		return nil, persistErr("prepare insert events", err)
	}
	defer closeQuietly(stmt)

	now := time.Now().UTC()
	ids = make([]int64, 0, len(events))
	for i := range events {
		var id int64
		if err = stmt.QueryRowContext(ctx,
			string(events[i].EventType), events[i].User, rawDataArg(events[i].RawData),
			eventTimestamp(&events[i], now), now,
		).Scan(&id); err != nil {
			return nil, persistErr("insert events", err)
		}
		ids = append(ids, id)
	}

	if err = tx.Commit(); err != nil {
		return nil, persistErr("commit insert events", err)
	}
	return ids, nil
}

// GetEvent returns the event with id, or an error wrapping models.ErrNotFound.
func (db *DB) GetEvent(ctx context.Context, id int64) (*models.SourceEvent, error) {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM source_events WHERE id = ?`, id)
	ev, err := scanEvent(row)
	metrics.RecordDBQuery("SELECT", "source_events", time.Since(start), ignoreNoRows(err))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, persistErr("get event", err)
	}
	return &ev, nil
}

// ListEvents returns events newest first.
func (db *DB) ListEvents(ctx context.Context, f models.EventFilter) (events []models.SourceEvent, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("SELECT", "source_events", time.Since(start), err) }()

	var (
		where []string
		args  []any
	)
	if f.EventType != "" {
		where = append(where, "event_type = ?")
		args = append(args, string(f.EventType))
	}
	if f.User != "" {
		where = append(where, "user_name = ?")
		args = append(args, f.User)
	}
	if f.From != nil {
		where = append(where, "occurred_at >= ?")
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		where = append(where, "occurred_at <= ?")
		args = append(args, f.To.UTC())
	}
	if f.Processed != nil {
		where = append(where, "processed = ?")
		args = append(args, *f.Processed)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultEventListLimit
	}
	if limit > maxEventListLimit {
		limit = maxEventListLimit
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + eventColumns + ` FROM source_events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY occurred_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistErr("list events", err)
	}
	defer closeRows(rows)

	events = []models.SourceEvent{}
	for rows.Next() {
		ev, scanErr := scanEvent(rows)
		if scanErr != nil {
			err = scanErr
			return nil, persistErr("scan event", err)
		}
		events = append(events, ev)
	}
	if err = rows.Err(); err != nil {
		return nil, persistErr("list events", err)
	}
	return events, nil
}

// FetchUnprocessedEvents returns every event with processed = false,
// oldest first with id as the tie-break.
func (db *DB) FetchUnprocessedEvents(ctx context.Context) (events []models.SourceEvent, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("SELECT_UNPROCESSED", "source_events", time.Since(start), err) }()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM source_events WHERE processed = false ORDER BY occurred_at ASC, id ASC`)
	if err != nil {
		return nil, persistErr("fetch unprocessed events", err)
	}
	defer closeRows(rows)

	for rows.Next() {
		ev, scanErr := scanEvent(rows)
		if scanErr != nil {
			err = scanErr
			return nil, persistErr("scan event", err)
		}
		events = append(events, ev)
	}
	if err = rows.Err(); err != nil {
		return nil, persistErr("fetch unprocessed events", err)
	}
	return events, nil
}

// CountEvents counts events matching q. Both time bounds are inclusive;
// empty User or EventType match any value. ThroughID breaks ties at Until.
func (db *DB) CountEvents(ctx context.Context, q models.CountQuery) (count int, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("COUNT", "source_events", time.Since(start), err) }()

	where := []string{"occurred_at >= ?"}
	args := []any{q.Since.UTC()}
	if !q.Until.IsZero() {
		until := q.Until.UTC()
		if q.ThroughID > 0 {
			where = append(where, "(occurred_at < ? OR (occurred_at = ? AND id <= ?))")
			args = append(args, until, until, q.ThroughID)
		} else {
			where = append(where, "occurred_at <= ?")
			args = append(args, until)
		}
	}
	if q.User != "" {
		where = append(where, "user_name = ?")
		args = append(args, q.User)
	}
	if q.EventType != "" {
		where = append(where, "event_type = ?")
		args = append(args, string(q.EventType))
	}

	query := "SELECT COUNT(*) FROM source_events WHERE " + strings.Join(where, " AND ")
	if err = db.conn.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, persistErr("count events", err)
	}
	return count, nil
}

func ignoreNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}
