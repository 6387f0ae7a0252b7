// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

// Package api serves the Vigil REST API over a chi router.
//
// Every endpoint answers with a models.APIResponse envelope. Handlers depend
// on narrow interfaces (Store, Detector, Enricher) so tests can run against
// an in-memory DuckDB with fake engines.
package api

import (
	"context"
	"time"

	"github.com/tomtom215/vigil/internal/config"
	"github.com/tomtom215/vigil/internal/detection"
	"github.com/tomtom215/vigil/internal/models"
)

// Store is the persistence surface used by the handlers.
type Store interface {
	Ping(ctx context.Context) error
	InsertEvents(ctx context.Context, events []models.NewEvent) ([]int64, error)
	GetEvent(ctx context.Context, id int64) (*models.SourceEvent, error)
	ListEvents(ctx context.Context, f models.EventFilter) ([]models.SourceEvent, error)
	GetFinding(ctx context.Context, id int64) (*models.Finding, error)
	FindingsForEvent(ctx context.Context, eventID int64) ([]models.Finding, error)
	ListFindings(ctx context.Context, f models.FindingFilter) (*models.FindingPage, error)
	Stats(ctx context.Context) (*models.Stats, error)
}

// Detector runs an on-demand detection sweep.
type Detector interface {
	RunDetectionSweep(ctx context.Context) (detection.SweepResult, error)
}

// Enricher scores findings on demand.
type Enricher interface {
	EnrichOne(ctx context.Context, id int64) (*models.Finding, error)
	EnrichMissing(ctx context.Context, limit int) ([]models.Finding, error)
}

// HandlerConfig holds pagination limits and the feature flags reported by
// the health endpoint.
type HandlerConfig struct {
	DefaultPageSize int
	MaxPageSize     int
	AIConfigured    bool
	NATSEnabled     bool
}

// HandlerConfigFrom builds a HandlerConfig from the loaded configuration.
func HandlerConfigFrom(cfg *config.Config) HandlerConfig {
	return HandlerConfig{
		DefaultPageSize: cfg.API.DefaultPageSize,
		MaxPageSize:     cfg.API.MaxPageSize,
		AIConfigured:    cfg.AI.APIKey != "",
		NATSEnabled:     cfg.NATS.Enabled,
	}
}

// Handler holds the dependencies shared by all endpoints.
type Handler struct {
	store     Store
	detector  Detector
	enricher  Enricher
	cfg       HandlerConfig
	startTime time.Time
}

// NewHandler creates a Handler. Non-positive page sizes fall back to 20 and 100.
func NewHandler(store Store, detector Detector, enricher Enricher, cfg HandlerConfig) *Handler {
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 20
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 100
	}
	if cfg.DefaultPageSize > cfg.MaxPageSize {
		cfg.DefaultPageSize = cfg.MaxPageSize
	}
	return &Handler{
		store:     store,
		detector:  detector,
		enricher:  enricher,
		cfg:       cfg,
		startTime: time.Now(),
	}
}
