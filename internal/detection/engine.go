// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package detection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/vigil/internal/logging"
	"github.com/tomtom215/vigil/internal/metrics"
	"github.com/tomtom215/vigil/internal/models"
)

// Engine runs detection sweeps over a Store.
type Engine struct {
	store    Store
	catalog  *Catalog
	interval time.Duration

	notifierMu sync.RWMutex
	notifier   FindingNotifier

	// sweepMu serializes sweeps so there is a single writer per process.
	sweepMu sync.Mutex
}

// NewEngine creates a detection engine.
func NewEngine(store Store, cfg Config) *Engine {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultConfig().Interval
	}
	return &Engine{
		store:    store,
		catalog:  NewCatalog(cfg),
		interval: interval,
	}
}

// SetNotifier registers the notifier told about committed findings.
// Passing nil removes it.
func (e *Engine) SetNotifier(n FindingNotifier) {
	e.notifierMu.Lock()
	defer e.notifierMu.Unlock()
	e.notifier = n
}

// RunDetectionSweep evaluates every unprocessed event and commits each one
// with its findings. It stops at the first store error and returns the
// partial result; committed events stay committed and the rest are picked
// up by the next sweep. Cancellation is checked between events.
func (e *Engine) RunDetectionSweep(ctx context.Context) (SweepResult, error) {
	e.sweepMu.Lock()
	defer e.sweepMu.Unlock()

	ctx = logging.ContextWithNewCorrelationID(ctx)
	logger := logging.Ctx(ctx)
	start := time.Now()

	var (
		result     SweepResult
		bySeverity = make(map[string]int)
	)

	events, err := e.store.FetchUnprocessedEvents(ctx)
	if err != nil {
		metrics.RecordDetectionSweep("error", time.Since(start), 0, 0, nil)
		return result, fmt.Errorf("fetch unprocessed events: %w", err)
	}
	if len(events) == 0 {
		metrics.RecordDetectionSweep("empty", time.Since(start), 0, 0, nil)
		logger.Debug().Msg("No unprocessed events")
		return result, nil
	}

	for i := range events {
		if err := ctx.Err(); err != nil {
			e.finishSweep(ctx, "canceled", start, result, bySeverity)
			return result, err
		}

		stored, claimed, err := e.processEvent(ctx, &events[i])
		if err != nil {
			e.finishSweep(ctx, "error", start, result, bySeverity)
			return result, err
		}
		if !claimed {
			result.EventsSkipped++
			logger.Debug().Int64("event_id", events[i].ID).Msg("Event already claimed, skipping")
			continue
		}

		result.EventsProcessed++
		result.FindingsCreated += len(stored)
		for _, f := range stored {
			bySeverity[string(f.Severity)]++
		}
		e.notify(ctx, stored)
	}

	e.finishSweep(ctx, "success", start, result, bySeverity)
	return result, nil
}

func (e *Engine) processEvent(ctx context.Context, ev *models.SourceEvent) ([]models.Finding, bool, error) {
	if ev.Payload == nil {
		payload, err := models.DecodePayload(ev.EventType, ev.RawData)
		if err != nil {
			logging.Ctx(ctx).Warn().
				Err(err).
				Int64("event_id", ev.ID).
				Str("event_type", string(ev.EventType)).
				Msg("Malformed event payload, evaluating with defaults")
		}
		ev.Payload = payload
	}

	findings, err := e.catalog.Detect(ctx, ev, e.store)
	if err != nil {
		return nil, false, fmt.Errorf("evaluate event %d: %w", ev.ID, err)
	}

	stored, claimed, err := e.store.ProcessEvent(ctx, ev.ID, findings)
	if err != nil {
		return nil, false, fmt.Errorf("process event %d: %w", ev.ID, err)
	}
	return stored, claimed, nil
}

func (e *Engine) notify(ctx context.Context, findings []models.Finding) {
	if len(findings) == 0 {
		return
	}
	e.notifierMu.RLock()
	n := e.notifier
	e.notifierMu.RUnlock()
	if n == nil {
		return
	}
	if err := n.NotifyFindings(ctx, findings); err != nil {
		logging.Ctx(ctx).Warn().
			Err(err).
			Int("findings", len(findings)).
			Msg("Failed to notify findings")
	}
}

func (e *Engine) finishSweep(ctx context.Context, outcome string, start time.Time, result SweepResult, bySeverity map[string]int) {
	duration := time.Since(start)
	metrics.RecordDetectionSweep(outcome, duration, result.EventsProcessed, result.EventsSkipped, bySeverity)

	logging.Ctx(ctx).Info().
		Str("outcome", outcome).
		Int("events_processed", result.EventsProcessed).
		Int("events_skipped", result.EventsSkipped).
		Int("findings_created", result.FindingsCreated).
		Dur("duration", duration).
		Msg("Detection sweep finished")
}

// RunWithContext sweeps immediately and then on every interval tick until
// ctx is canceled. Sweep errors are logged and the loop continues.
func (e *Engine) RunWithContext(ctx context.Context) error {
	logging.Info().Dur("interval", e.interval).Msg("Detection engine started")

	e.runScheduled(ctx)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Detection engine stopped")
			return ctx.Err()
		case <-ticker.C:
			e.runScheduled(ctx)
		}
	}
}

func (e *Engine) runScheduled(ctx context.Context) {
	if _, err := e.RunDetectionSweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Scheduled detection sweep failed")
	}
}
