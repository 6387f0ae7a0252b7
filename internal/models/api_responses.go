// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package models

import (
	"time"
)

// APIResponse is the envelope written by every HTTP endpoint.
//
// Status is "success" with Data set, or "error" with Error set.
//
//	{
//	  "status": "error",
//	  "error": {"code": "NOT_FOUND", "message": "finding 42 not found"},
//	  "metadata": {"timestamp": "2026-03-01T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response timing.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError is the machine-readable error body.
//
// Codes: VALIDATION_ERROR, INVALID_REQUEST, NOT_FOUND, DATABASE_ERROR,
// DETECTION_ERROR, ENRICHMENT_ERROR.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthStatus is returned by the health endpoint.
type HealthStatus struct {
	Status    string    `json:"status"`
	Database  bool      `json:"database_connected"`
	AI        bool      `json:"ai_configured"`
	NATS      bool      `json:"nats_enabled"`
	Uptime    float64   `json:"uptime_seconds"`
	Timestamp time.Time `json:"timestamp"`
}

// EnrichmentSummary is returned by the batch enrichment endpoint.
type EnrichmentSummary struct {
	Enriched int                      `json:"enriched"`
	BySource map[EnrichmentSource]int `json:"by_source"`
	Findings []Finding                `json:"findings"`
}

// IngestResult is returned by the event ingestion endpoint.
type IngestResult struct {
	IDs []int64 `json:"ids"`
}
