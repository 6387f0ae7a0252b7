// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package services

import (
	"context"
)

// SweepEngine runs a sweep immediately and then on its own interval until
// ctx is canceled. Satisfied by *detection.Engine and *enrichment.Engine.
type SweepEngine interface {
	RunWithContext(ctx context.Context) error
}

// DetectionService wraps the detection engine as a supervised service.
//
//	engine := detection.NewEngine(db, detection.ConfigFrom(&cfg.Detection))
//	tree.AddDataService(services.NewDetectionService(engine))
type DetectionService struct {
	engine SweepEngine
	name   string
}

// NewDetectionService creates a detection engine service wrapper.
func NewDetectionService(engine SweepEngine) *DetectionService {
	return &DetectionService{engine: engine, name: "detection-engine"}
}

// Serve implements suture.Service.
func (d *DetectionService) Serve(ctx context.Context) error {
	return d.engine.RunWithContext(ctx)
}

// String implements fmt.Stringer for logging.
func (d *DetectionService) String() string {
	return d.name
}

// EnrichmentService wraps the enrichment engine as a supervised service.
type EnrichmentService struct {
	engine SweepEngine
	name   string
}

// NewEnrichmentService creates an enrichment engine service wrapper.
func NewEnrichmentService(engine SweepEngine) *EnrichmentService {
	return &EnrichmentService{engine: engine, name: "enrichment-engine"}
}

// Serve implements suture.Service.
func (e *EnrichmentService) Serve(ctx context.Context) error {
	return e.engine.RunWithContext(ctx)
}

// String implements fmt.Stringer for logging.
func (e *EnrichmentService) String() string {
	return e.name
}
