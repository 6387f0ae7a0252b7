// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/vigil/internal/models"
)

const healthPingTimeout = 2 * time.Second

// Health reports database connectivity and enabled features. It always
// answers 200; Status is "degraded" when the database is unreachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()

	dbConnected := h.store != nil && h.store.Ping(ctx) == nil

	status := "healthy"
	if !dbConnected {
		status = "degraded"
	}

	respondSuccess(w, http.StatusOK, models.HealthStatus{
		Status:    status,
		Database:  dbConnected,
		AI:        h.cfg.AIConfigured,
		NATS:      h.cfg.NATSEnabled,
		Uptime:    time.Since(h.startTime).Seconds(),
		Timestamp: time.Now().UTC(),
	}, time.Time{})
}

// RunDetectionSweep runs one detection sweep and returns its counts.
func (h *Handler) RunDetectionSweep(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	result, err := h.detector.RunDetectionSweep(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeDetection, "Detection sweep failed", err)
		return
	}
	respondSuccess(w, http.StatusOK, result, start)
}

// StatsSummary returns event and finding totals.
func (h *Handler) StatsSummary(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	stats, err := h.store.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeDatabase, "Failed to load stats", err)
		return
	}
	respondSuccess(w, http.StatusOK, stats, start)
}
