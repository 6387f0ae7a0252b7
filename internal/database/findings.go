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

const findingColumns = `id, event_id, rule_name, severity, description, user_name, created_at,
	risk_score, ai_explanation, enrichment_source`

// The score is clamped in SQL as well so no write path can store a value
// outside [0,100].
const upsertFindingSQL = `UPDATE findings
	SET risk_score = LEAST(GREATEST(CAST(? AS DOUBLE), 0), 100), ai_explanation = ?, enrichment_source = ?
	WHERE id = ?`

func scanFinding(row rowScanner) (models.Finding, error) {
	var (
		f           models.Finding
		severity    string
		score       sql.NullFloat64
		explanation sql.NullString
		source      sql.NullString
	)
	if err := row.Scan(&f.ID, &f.EventID, &f.RuleName, &severity, &f.Description, &f.User,
		&f.CreatedAt, &score, &explanation, &source); err != nil {
		return f, err
	}
	f.Severity = models.Severity(severity)
	f.CreatedAt = f.CreatedAt.UTC()
	if score.Valid {
		v := score.Float64
		f.RiskScore = &v
	}
	if explanation.Valid {
		v := explanation.String
		f.AIExplanation = &v
	}
	if source.Valid {
		f.EnrichmentSource = models.EnrichmentSource(source.String)
	}
	return f, nil
}

func (db *DB) queryFindings(ctx context.Context, op, query string, args ...any) (findings []models.Finding, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery(op, "findings", time.Since(start), err) }()

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistErr("query findings", err)
	}
	defer closeRows(rows)

	findings = []models.Finding{}
	for rows.Next() {
		f, scanErr := scanFinding(rows)
		if scanErr != nil {
			err = scanErr
			return nil, persistErr("scan finding", err)
		}
		findings = append(findings, f)
	}
	if err = rows.Err(); err != nil {
		return nil, persistErr("query findings", err)
	}
	return findings, nil
}

// GetFinding returns the finding with id, or an error wrapping models.ErrNotFound.
func (db *DB) GetFinding(ctx context.Context, id int64) (*models.Finding, error) {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx, `SELECT `+findingColumns+` FROM findings WHERE id = ?`, id)
	f, err := scanFinding(row)
	metrics.RecordDBQuery("SELECT", "findings", time.Since(start), ignoreNoRows(err))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("finding %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, persistErr("get finding", err)
	}
	return &f, nil
}

// FindingsForEvent returns the findings created from one event, by id.
func (db *DB) FindingsForEvent(ctx context.Context, eventID int64) ([]models.Finding, error) {
	return db.queryFindings(ctx, "SELECT_BY_EVENT",
		`SELECT `+findingColumns+` FROM findings WHERE event_id = ? ORDER BY id ASC`, eventID)
}

// FetchFindingsMissingEnrichment returns up to limit findings lacking a score
// or an explanation, lowest id first.
func (db *DB) FetchFindingsMissingEnrichment(ctx context.Context, limit int) ([]models.Finding, error) {
	if limit <= 0 {
		return []models.Finding{}, nil
	}
	return db.queryFindings(ctx, "SELECT_MISSING_ENRICHMENT",
		`SELECT `+findingColumns+` FROM findings
		WHERE risk_score IS NULL OR ai_explanation IS NULL
		ORDER BY id ASC LIMIT ?`, limit)
}

func findingWhere(f models.FindingFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if f.Severity != "" {
		where = append(where, "severity = ?")
		args = append(args, string(f.Severity))
	}
	if f.User != "" {
		where = append(where, "user_name = ?")
		args = append(args, f.User)
	}
	if f.RuleName != "" {
		where = append(where, "rule_name = ?")
		args = append(args, f.RuleName)
	}
	if f.From != nil {
		where = append(where, "created_at >= ?")
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		where = append(where, "created_at <= ?")
		args = append(args, f.To.UTC())
	}
	if f.Enriched != nil {
		if *f.Enriched {
			where = append(where, "risk_score IS NOT NULL AND ai_explanation IS NOT NULL")
		} else {
			where = append(where, "(risk_score IS NULL OR ai_explanation IS NULL)")
		}
	}
	if len(where) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

// ListFindings returns one page of findings, newest first, with the total
// number of matches.
func (db *DB) ListFindings(ctx context.Context, f models.FindingFilter) (*models.FindingPage, error) {
	page, pageSize := f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	where, args := findingWhere(f)

	start := time.Now()
	var total int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM findings`+where, args...).Scan(&total)
	metrics.RecordDBQuery("COUNT", "findings", time.Since(start), err)
	if err != nil {
		return nil, persistErr("count findings", err)
	}

	pageArgs := append(append([]any{}, args...), pageSize, (page-1)*pageSize)
	items, err := db.queryFindings(ctx, "SELECT_PAGE",
		`SELECT `+findingColumns+` FROM findings`+where+
			` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, pageArgs...)
	if err != nil {
		return nil, err
	}

	return &models.FindingPage{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

func enrichmentArgs(f *models.Finding) (score, explanation, source any) {
	if f.RiskScore != nil {
		score = *f.RiskScore
	}
	if f.AIExplanation != nil {
		explanation = *f.AIExplanation
	}
	if f.EnrichmentSource != "" {
		source = string(f.EnrichmentSource)
	}
	return score, explanation, source
}

// UpsertFinding writes the enrichment columns of f. Nothing else on the row
// changes. A missing row is reported as models.ErrNotFound.
func (db *DB) UpsertFinding(ctx context.Context, f *models.Finding) (err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("UPDATE_ENRICHMENT", "findings", time.Since(start), ignoreNotFound(err)) }()

	score, explanation, source := enrichmentArgs(f)
	res, err := db.conn.ExecContext(ctx, upsertFindingSQL, score, explanation, source, f.ID)
	if err != nil {
		return persistErr("upsert finding", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return persistErr("upsert finding", err)
	}
	if affected == 0 {
		return fmt.Errorf("finding %d: %w", f.ID, models.ErrNotFound)
	}
	return nil
}

// UpsertFindings writes the enrichment columns of every finding in one
// transaction. A missing row aborts the batch.
func (db *DB) UpsertFindings(ctx context.Context, findings []models.Finding) (err error) {
	if len(findings) == 0 {
		return nil
	}

	start := time.Now()
	defer func() { metrics.RecordDBQuery("UPDATE_ENRICHMENT_BATCH", "findings", time.Since(start), err) }()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("begin upsert findings", err)
	}
	defer func() {
		if err != nil {
			rollback(tx, err)
		}
	}()

	stmt, err := tx.PrepareContext(ctx, upsertFindingSQL)
	if err != nil {
		return persistErr("prepare upsert findings", err)
	}
	defer closeQuietly(stmt)

	for i := range findings {
		score, explanation, source := enrichmentArgs(&findings[i])
		res, execErr := stmt.ExecContext(ctx, score, explanation, source, findings[i].ID)
		if execErr != nil {
			err = persistErr("upsert findings", execErr)
			return err
		}
		affected, raErr := res.RowsAffected()
		if raErr != nil {
			err = persistErr("upsert findings", raErr)
			return err
		}
		if affected == 0 {
			err = fmt.Errorf("finding %d: %w", findings[i].ID, models.ErrNotFound)
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return persistErr("commit upsert findings", err)
	}
	return nil
}

func ignoreNotFound(err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	return err
}
