// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package models

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested event or finding does not exist.
var ErrNotFound = errors.New("not found")

// Severity ranks a finding.
type Severity string

// Severities in ascending order.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities lists every severity in ascending order.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Valid reports whether s is one of Severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// EnrichmentSource records which path produced a finding's risk score.
type EnrichmentSource string

const (
	EnrichmentAI       EnrichmentSource = "ai"
	EnrichmentFallback EnrichmentSource = "fallback"
)

// Finding is a severity-ranked observation derived from one SourceEvent.
//
// RiskScore, AIExplanation and EnrichmentSource are nil/empty until the
// enrichment sweep fills them. Every other field is write-once.
type Finding struct {
	ID               int64            `json:"id"`
	EventID          int64            `json:"event_id"`
	RuleName         string           `json:"rule_name"`
	Severity         Severity         `json:"severity"`
	Description      string           `json:"description"`
	User             string           `json:"user"`
	CreatedAt        time.Time        `json:"created_at"`
	RiskScore        *float64         `json:"risk_score"`
	AIExplanation    *string          `json:"ai_explanation"`
	EnrichmentSource EnrichmentSource `json:"enrichment_source,omitempty"`
}

// Enriched reports whether both enrichment fields are set.
func (f *Finding) Enriched() bool {
	return f.RiskScore != nil && f.AIExplanation != nil
}

// FindingFilter narrows ListFindings. Page is 1-based.
type FindingFilter struct {
	Page     int        `validate:"gte=1"`
	PageSize int        `validate:"gte=1,lte=100"`
	Severity Severity   `validate:"omitempty,oneof=low medium high critical"`
	User     string     `validate:"max=256"`
	RuleName string     `validate:"max=128"`
	From     *time.Time `validate:"-"`
	To       *time.Time `validate:"-"`
	Enriched *bool      `validate:"-"`
}

// FindingPage is one page of ListFindings.
type FindingPage struct {
	Items    []Finding `json:"items"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
}

// Stats summarizes the store for the dashboard endpoint.
// FindingsBySeverity always carries all four severities.
type Stats struct {
	TotalEvents        int              `json:"total_events"`
	TotalFindings      int              `json:"total_findings"`
	FindingsBySeverity map[Severity]int `json:"findings_by_severity"`
	EventsByType       map[string]int   `json:"events_by_type"`
}
