// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordDBQuery(t *testing.T) {
	before := testutil.ToFloat64(DBQueryErrors.WithLabelValues("SELECT", "findings", "boom"))

	RecordDBQuery("SELECT", "findings", 5*time.Millisecond, nil)
	RecordDBQuery("SELECT", "findings", 5*time.Millisecond, errors.New("boom"))

	after := testutil.ToFloat64(DBQueryErrors.WithLabelValues("SELECT", "findings", "boom"))
	if after-before != 1 {
		t.Errorf("expected one error recorded, got %v", after-before)
	}
}

func TestRecordDBQuery_TruncatesErrorLabel(t *testing.T) {
	long := strings.Repeat("x", 80)
	RecordDBQuery("UPDATE", "source_events", time.Millisecond, errors.New(long))

	if got := testutil.ToFloat64(DBQueryErrors.WithLabelValues("UPDATE", "source_events", long[:50])); got < 1 {
		t.Errorf("expected truncated label to be recorded, got %v", got)
	}
}

func TestRecordDetectionSweep(t *testing.T) {
	sweepsBefore := testutil.ToFloat64(DetectionSweepsTotal.WithLabelValues("success"))
	eventsBefore := testutil.ToFloat64(DetectionEventsProcessed)
	critBefore := testutil.ToFloat64(DetectionFindingsCreated.WithLabelValues("critical"))

	RecordDetectionSweep("success", 10*time.Millisecond, 4, 1, map[string]int{"critical": 2, "low": 1})

	if d := testutil.ToFloat64(DetectionSweepsTotal.WithLabelValues("success")) - sweepsBefore; d != 1 {
		t.Errorf("sweeps delta = %v, want 1", d)
	}
	if d := testutil.ToFloat64(DetectionEventsProcessed) - eventsBefore; d != 4 {
		t.Errorf("events delta = %v, want 4", d)
	}
	if d := testutil.ToFloat64(DetectionFindingsCreated.WithLabelValues("critical")) - critBefore; d != 2 {
		t.Errorf("critical findings delta = %v, want 2", d)
	}
}

func TestRecordEnrichmentAndAI(t *testing.T) {
	fbBefore := testutil.ToFloat64(EnrichmentFindingsTotal.WithLabelValues("fallback"))
	hitsBefore := testutil.ToFloat64(AICacheHits)
	missBefore := testutil.ToFloat64(AICacheMisses)

	RecordEnrichment("fallback", time.Millisecond)
	RecordAICache(true)
	RecordAICache(false)
	RecordAICache(false)

	if d := testutil.ToFloat64(EnrichmentFindingsTotal.WithLabelValues("fallback")) - fbBefore; d != 1 {
		t.Errorf("fallback delta = %v, want 1", d)
	}
	if d := testutil.ToFloat64(AICacheHits) - hitsBefore; d != 1 {
		t.Errorf("hits delta = %v, want 1", d)
	}
	if d := testutil.ToFloat64(AICacheMisses) - missBefore; d != 2 {
		t.Errorf("misses delta = %v, want 2", d)
	}
}

func TestRecordCircuitBreakerTransition(t *testing.T) {
	RecordCircuitBreakerTransition("ai-test", "closed", "open", 2)

	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("ai-test")); got != 2 {
		t.Errorf("state gauge = %v, want 2", got)
	}
	if got := testutil.ToFloat64(CircuitBreakerTransitions.WithLabelValues("ai-test", "closed", "open")); got < 1 {
		t.Errorf("transitions = %v, want >= 1", got)
	}
}
