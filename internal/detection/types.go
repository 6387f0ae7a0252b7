// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package detection

import (
	"context"

	"github.com/tomtom215/vigil/internal/models"
)

// EventSource supplies the events a sweep works on.
type EventSource interface {
	// FetchUnprocessedEvents returns events with processed = false in
	// ascending timestamp order, id breaking ties.
	FetchUnprocessedEvents(ctx context.Context) ([]models.SourceEvent, error)
}

// HistoryQuery counts stored events for windowed rules.
type HistoryQuery interface {
	// CountEvents counts events in [Since, Until]. Empty User or EventType
	// match any value.
	CountEvents(ctx context.Context, q models.CountQuery) (int, error)
}

// FindingSink commits the outcome of evaluating one event.
type FindingSink interface {
	// ProcessEvent claims the event and stores findings atomically.
	// claimed is false when another writer processed the event first; in
	// that case nothing is stored and err is nil.
	ProcessEvent(ctx context.Context, eventID int64, findings []models.Finding) (stored []models.Finding, claimed bool, err error)
}

// Store is the combined persistence surface a sweep needs.
type Store interface {
	EventSource
	HistoryQuery
	FindingSink
}

// FindingNotifier is told about findings after their event commits.
type FindingNotifier interface {
	NotifyFindings(ctx context.Context, findings []models.Finding) error
}

// SweepResult summarizes one detection sweep.
type SweepResult struct {
	EventsProcessed int `json:"events_processed"`
	FindingsCreated int `json:"findings_created"`
	// EventsSkipped counts events another writer claimed first.
	EventsSkipped int `json:"events_skipped"`
}
