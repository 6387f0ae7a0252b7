// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

// Package enrichment scores findings and attaches a short explanation.
//
// Each finding gets one AI completion attempt. Any failure (no key,
// transport, timeout, open breaker, malformed reply) falls back to a
// deterministic heuristic, so enrichment itself never fails because of
// the AI. Scores are clamped to [0,100] before they are written.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/vigil/internal/ai"
	"github.com/tomtom215/vigil/internal/config"
	"github.com/tomtom215/vigil/internal/logging"
	"github.com/tomtom215/vigil/internal/metrics"
	"github.com/tomtom215/vigil/internal/models"
)

// DefaultBatchSize is used when EnrichMissing is given a limit <= 0.
const DefaultBatchSize = 50

// FindingStore is the persistence the engine needs.
type FindingStore interface {
	GetFinding(ctx context.Context, id int64) (*models.Finding, error)
	FetchFindingsMissingEnrichment(ctx context.Context, limit int) ([]models.Finding, error)
	UpsertFinding(ctx context.Context, f *models.Finding) error
	UpsertFindings(ctx context.Context, findings []models.Finding) error
}

// Config controls batching and the scheduled sweep.
type Config struct {
	BatchSize int
	Interval  time.Duration
}

// DefaultConfig returns a batch size of 50 and a five minute interval.
func DefaultConfig() Config {
	return Config{
		BatchSize: DefaultBatchSize,
		Interval:  5 * time.Minute,
	}
}

// ConfigFrom converts the loaded enrichment section.
func ConfigFrom(cfg *config.EnrichmentConfig) Config {
	out := DefaultConfig()
	if cfg.BatchSize > 0 {
		out.BatchSize = cfg.BatchSize
	}
	if cfg.Interval > 0 {
		out.Interval = cfg.Interval
	}
	return out
}

// Engine enriches findings through an ai.Client.
type Engine struct {
	store  FindingStore
	client ai.Client
	cfg    Config

	// mu serializes EnrichMissing batches. EnrichOne does not take it: its
	// write touches one row and is safe to interleave with a batch.
	mu sync.Mutex
}

// NewEngine creates an enrichment engine. A nil client behaves like
// ai.Unconfigured.
func NewEngine(store FindingStore, client ai.Client, cfg Config) *Engine {
	if client == nil {
		client = ai.Unconfigured{}
	}
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	return &Engine{store: store, client: client, cfg: cfg}
}

// EnrichOne enriches and persists a single finding. A missing finding
// returns an error wrapping models.ErrNotFound.
func (e *Engine) EnrichOne(ctx context.Context, id int64) (*models.Finding, error) {
	f, err := e.store.GetFinding(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load finding %d: %w", id, err)
	}

	e.enrich(ctx, f)

	if err := e.store.UpsertFinding(ctx, f); err != nil {
		return nil, fmt.Errorf("save finding %d: %w", id, err)
	}
	return f, nil
}

// EnrichMissing enriches up to limit findings lacking a score or an
// explanation, in ascending id order, and persists them in one
// transaction. It returns an empty slice when nothing qualifies.
func (e *Engine) EnrichMissing(ctx context.Context, limit int) ([]models.Finding, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if limit <= 0 {
		limit = e.cfg.BatchSize
	}

	ctx = logging.ContextWithNewCorrelationID(ctx)
	start := time.Now()

	findings, err := e.store.FetchFindingsMissingEnrichment(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch findings missing enrichment: %w", err)
	}
	if len(findings) == 0 {
		return []models.Finding{}, nil
	}

	for i := range findings {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e.enrich(ctx, &findings[i])
	}

	if err := e.store.UpsertFindings(ctx, findings); err != nil {
		return nil, fmt.Errorf("save enriched findings: %w", err)
	}

	summary := Summarize(findings)
	logging.Ctx(ctx).Info().
		Int("findings", summary.Enriched).
		Int("ai", summary.BySource[models.EnrichmentAI]).
		Int("fallback", summary.BySource[models.EnrichmentFallback]).
		Dur("duration", time.Since(start)).
		Msg("Enrichment batch finished")
	return findings, nil
}

// Summarize counts enriched findings by source. Both sources are always
// present in BySource.
func Summarize(findings []models.Finding) models.EnrichmentSummary {
	if findings == nil {
		findings = []models.Finding{}
	}
	s := models.EnrichmentSummary{
		Enriched: len(findings),
		BySource: map[models.EnrichmentSource]int{
			models.EnrichmentAI:       0,
			models.EnrichmentFallback: 0,
		},
		Findings: findings,
	}
	for i := range findings {
		s.BySource[findings[i].EnrichmentSource]++
	}
	return s
}

// enrich sets the score, explanation and source on f. It never fails.
func (e *Engine) enrich(ctx context.Context, f *models.Finding) {
	start := time.Now()

	score, explanation, err := e.complete(ctx, f)
	source := models.EnrichmentAI
	if err != nil {
		logAIFailure(ctx, f.ID, err)
		score, explanation = Fallback(f)
		source = models.EnrichmentFallback
	}

	score = ClampScore(score)
	f.RiskScore = &score
	f.AIExplanation = &explanation
	f.EnrichmentSource = source

	metrics.RecordEnrichment(string(source), time.Since(start))
}

func (e *Engine) complete(ctx context.Context, f *models.Finding) (float64, string, error) {
	prompt, err := BuildPrompt(f)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %w", ai.ErrCallFailed, err)
	}
	content, err := e.client.Complete(ctx, prompt)
	if err != nil {
		return 0, "", err
	}
	return ParseResponse(content)
}

func logAIFailure(ctx context.Context, findingID int64, err error) {
	if errors.Is(err, ai.ErrNotConfigured) {
		logging.Ctx(ctx).Debug().Int64("finding_id", findingID).Msg("AI not configured, using fallback")
		return
	}
	logging.Ctx(ctx).Warn().
		Err(err).
		Int64("finding_id", findingID).
		Msg("AI enrichment failed, using fallback")
}

// RunWithContext enriches a batch immediately and then on every interval
// tick until ctx is canceled. Batch errors are logged and the loop
// continues.
func (e *Engine) RunWithContext(ctx context.Context) error {
	logging.Info().
		Dur("interval", e.cfg.Interval).
		Int("batch_size", e.cfg.BatchSize).
		Msg("Enrichment engine started")

	e.runScheduled(ctx)

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Enrichment engine stopped")
			return ctx.Err()
		case <-ticker.C:
			e.runScheduled(ctx)
		}
	}
}

func (e *Engine) runScheduled(ctx context.Context) {
	if _, err := e.EnrichMissing(ctx, 0); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Scheduled enrichment failed")
	}
}
