// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package api

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/vigil/internal/detection"
	"github.com/tomtom215/vigil/internal/models"
)

func aliceEvents(base time.Time) []map[string]interface{} {
	var events []map[string]interface{}
	for i := 0; i < 3; i++ {
		events = append(events, map[string]interface{}{
			"event_type": "login_failed",
			"user":       "Alice",
			"timestamp":  base.Add(time.Duration(i) * time.Minute),
			"raw_data":   map[string]interface{}{"ip": "10.0.0.5", "location": "USA"},
		})
	}
	events = append(events, map[string]interface{}{
		"event_type": "login_success",
		"user":       "Alice",
		"timestamp":  base.Add(3 * time.Minute),
		"raw_data":   map[string]interface{}{"ip": "91.1.1.1", "location": "Russia"},
	})
	return events
}

func TestPipeline_IngestSweepEnrich(t *testing.T) {
	s := newTestServer(t)
	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)

	rec, env := s.do(t, http.MethodPost, "/api/v1/events", aliceEvents(base))
	if rec.Code != http.StatusCreated {
		t.Fatalf("ingest status = %d: %s", rec.Code, rec.Body.String())
	}
	var ingest models.IngestResult
	decodeData(t, env, &ingest)
	if len(ingest.IDs) != 4 {
		t.Fatalf("ids = %v, want 4", ingest.IDs)
	}

	rec, env = s.do(t, http.MethodPost, "/api/v1/detection/sweep", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("sweep status = %d: %s", rec.Code, rec.Body.String())
	}
	var sweep detection.SweepResult
	decodeData(t, env, &sweep)
	if sweep.EventsProcessed != 4 || sweep.FindingsCreated != 4 {
		t.Fatalf("sweep = %+v, want 4/4", sweep)
	}

	// A second sweep has nothing left to claim.
	_, env = s.do(t, http.MethodPost, "/api/v1/detection/sweep", nil)
	decodeData(t, env, &sweep)
	if sweep != (detection.SweepResult{}) {
		t.Errorf("second sweep = %+v, want zero", sweep)
	}

	rec, env = s.do(t, http.MethodPost, "/api/v1/findings/enrich?limit=3", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("enrich status = %d: %s", rec.Code, rec.Body.String())
	}
	var summary models.EnrichmentSummary
	decodeData(t, env, &summary)
	if summary.Enriched != 3 || summary.BySource[models.EnrichmentFallback] != 3 {
		t.Errorf("summary = %+v, want 3 fallback", summary)
	}
	for i := 1; i < len(summary.Findings); i++ {
		if summary.Findings[i-1].ID >= summary.Findings[i].ID {
			t.Errorf("findings not in ascending id order: %d then %d", summary.Findings[i-1].ID, summary.Findings[i].ID)
		}
	}

	_, env = s.do(t, http.MethodPost, "/api/v1/findings/enrich", nil)
	decodeData(t, env, &summary)
	if summary.Enriched != 1 {
		t.Errorf("remaining enriched = %d, want 1", summary.Enriched)
	}

	_, env = s.do(t, http.MethodPost, "/api/v1/findings/enrich", nil)
	decodeData(t, env, &summary)
	if summary.Enriched != 0 || summary.Findings == nil {
		t.Errorf("empty batch = %+v, want zero with empty list", summary)
	}

	rec, env = s.do(t, http.MethodGet, "/api/v1/stats/summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d", rec.Code)
	}
	var stats models.Stats
	decodeData(t, env, &stats)
	if stats.TotalEvents != 4 || stats.TotalFindings != 4 {
		t.Errorf("stats = %+v", stats)
	}
	if _, ok := stats.FindingsBySeverity[models.SeverityCritical]; !ok {
		t.Error("stats should carry every severity key")
	}
}

func TestCreateEvents_SingleObject(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodPost, "/api/v1/events",
		`{"event_type":"storage_bucket_created","user":"Admin","raw_data":{"bucket_name":"exports","public":true}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var ingest models.IngestResult
	decodeData(t, env, &ingest)
	if len(ingest.IDs) != 1 {
		t.Fatalf("ids = %v", ingest.IDs)
	}

	// No timestamp means "now".
	rec, env = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/events/%d", ingest.IDs[0]), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var detail models.EventWithFindings
	decodeData(t, env, &detail)
	if time.Since(detail.Event.Timestamp) > time.Minute {
		t.Errorf("timestamp = %v, want about now", detail.Event.Timestamp)
	}
	if detail.Findings == nil || len(detail.Findings) != 0 {
		t.Errorf("findings = %v, want empty list before a sweep", detail.Findings)
	}
}

func TestCreateEvents_Rejects(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
		code string
	}{
		{"empty body", ``, ErrCodeInvalidRequest},
		{"empty array", `[]`, ErrCodeInvalidRequest},
		{"malformed json", `{"event_type":`, ErrCodeInvalidRequest},
		{"missing user", `{"event_type":"login_failed"}`, ErrCodeValidation},
		{"bad ip", `{"event_type":"login_failed","user":"Bob","raw_data":{"ip":"nope"}}`, ErrCodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := s.do(t, http.MethodPost, "/api/v1/events", tt.body)
			expectError(t, rec, env, http.StatusBadRequest, tt.code)
		})
	}

	// One bad event rejects the whole batch.
	rec, env := s.do(t, http.MethodPost, "/api/v1/events",
		`[{"event_type":"login_failed","user":"Bob"},{"event_type":"login_failed"}]`)
	expectError(t, rec, env, http.StatusBadRequest, ErrCodeValidation)
	if idx, ok := env.Error.Details["index"].(float64); !ok || idx != 1 {
		t.Errorf("details.index = %v, want 1", env.Error.Details["index"])
	}

	_, env = s.do(t, http.MethodGet, "/api/v1/events", nil)
	var events []models.SourceEvent
	decodeData(t, env, &events)
	if len(events) != 0 {
		t.Errorf("stored %d events from rejected requests", len(events))
	}
}

func TestListEvents_Filters(t *testing.T) {
	s := newTestServer(t)
	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)

	if rec, _ := s.do(t, http.MethodPost, "/api/v1/events", aliceEvents(base)); rec.Code != http.StatusCreated {
		t.Fatalf("ingest status = %d", rec.Code)
	}

	_, env := s.do(t, http.MethodGet, "/api/v1/events?event_type=login_failed&limit=2", nil)
	var events []models.SourceEvent
	decodeData(t, env, &events)
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if !events[0].Timestamp.After(events[1].Timestamp) {
		t.Error("events should be newest first")
	}

	from := base.Add(150 * time.Second).Format(time.RFC3339)
	_, env = s.do(t, http.MethodGet, "/api/v1/events?from="+from, nil)
	decodeData(t, env, &events)
	if len(events) != 1 || events[0].EventType != models.EventLoginSuccess {
		t.Errorf("from filter = %+v", events)
	}

	_, env = s.do(t, http.MethodGet, "/api/v1/events?processed=true", nil)
	decodeData(t, env, &events)
	if len(events) != 0 {
		t.Errorf("processed events = %d before sweep", len(events))
	}

	rec, env := s.do(t, http.MethodGet, "/api/v1/events?from=yesterday", nil)
	expectError(t, rec, env, http.StatusBadRequest, ErrCodeInvalidRequest)

	rec, env = s.do(t, http.MethodGet, "/api/v1/events?processed=maybe", nil)
	expectError(t, rec, env, http.StatusBadRequest, ErrCodeInvalidRequest)
}

func TestFindings_ListGetAndEnrichOne(t *testing.T) {
	s := newTestServer(t)
	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)

	s.do(t, http.MethodPost, "/api/v1/events", aliceEvents(base))
	s.do(t, http.MethodPost, "/api/v1/events",
		`{"event_type":"storage_bucket_created","user":"Admin","raw_data":{"bucket_name":"exports","public":true}}`)
	s.do(t, http.MethodPost, "/api/v1/detection/sweep", nil)

	rec, env := s.do(t, http.MethodGet, "/api/v1/findings?page=1&page_size=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d: %s", rec.Code, rec.Body.String())
	}
	var page models.FindingPage
	decodeData(t, env, &page)
	if page.Total != 5 || len(page.Items) != 2 || page.Page != 1 || page.PageSize != 2 {
		t.Fatalf("page = total %d items %d page %d size %d", page.Total, len(page.Items), page.Page, page.PageSize)
	}

	_, env = s.do(t, http.MethodGet, "/api/v1/findings?severity=critical&user=Admin", nil)
	decodeData(t, env, &page)
	if page.Total != 1 || page.Items[0].RuleName != detection.RulePublicBucketDetected {
		t.Fatalf("critical admin findings = %+v", page.Items)
	}
	bucket := page.Items[0]
	if bucket.RiskScore != nil {
		t.Error("finding should not be enriched yet")
	}

	rec, env = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/findings/%d/enrich", bucket.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("enrich status = %d: %s", rec.Code, rec.Body.String())
	}
	var enriched models.Finding
	decodeData(t, env, &enriched)
	if enriched.RiskScore == nil || *enriched.RiskScore < 90 {
		t.Errorf("public bucket score = %v, want >= 90", enriched.RiskScore)
	}
	if enriched.EnrichmentSource != models.EnrichmentFallback {
		t.Errorf("source = %q, want fallback", enriched.EnrichmentSource)
	}

	_, env = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/findings/%d", bucket.ID), nil)
	var stored models.Finding
	decodeData(t, env, &stored)
	if stored.AIExplanation == nil || !strings.Contains(*stored.AIExplanation, "public_bucket_detected") {
		t.Errorf("stored explanation = %v", stored.AIExplanation)
	}

	_, env = s.do(t, http.MethodGet, "/api/v1/findings?enriched=true", nil)
	decodeData(t, env, &page)
	if page.Total != 1 {
		t.Errorf("enriched findings = %d, want 1", page.Total)
	}

	_, env = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/events/%d", bucket.EventID), nil)
	var detail models.EventWithFindings
	decodeData(t, env, &detail)
	if len(detail.Findings) != 1 || detail.Findings[0].ID != bucket.ID {
		t.Errorf("event findings = %+v", detail.Findings)
	}
}

func TestFindings_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		method string
		path   string
		status int
		code   string
	}{
		{http.MethodGet, "/api/v1/findings/9999", http.StatusNotFound, ErrCodeNotFound},
		{http.MethodPost, "/api/v1/findings/9999/enrich", http.StatusNotFound, ErrCodeNotFound},
		{http.MethodGet, "/api/v1/events/9999", http.StatusNotFound, ErrCodeNotFound},
		{http.MethodGet, "/api/v1/findings/abc", http.StatusBadRequest, ErrCodeInvalidRequest},
		{http.MethodGet, "/api/v1/findings/-1", http.StatusBadRequest, ErrCodeInvalidRequest},
		{http.MethodGet, "/api/v1/findings?page=0", http.StatusBadRequest, ErrCodeValidation},
		{http.MethodGet, "/api/v1/findings?page_size=500", http.StatusBadRequest, ErrCodeValidation},
		{http.MethodGet, "/api/v1/findings?severity=urgent", http.StatusBadRequest, ErrCodeValidation},
		{http.MethodGet, "/api/v1/findings?enriched=sometimes", http.StatusBadRequest, ErrCodeInvalidRequest},
		{http.MethodPost, "/api/v1/findings/enrich?limit=5000", http.StatusBadRequest, ErrCodeValidation},
		{http.MethodGet, "/api/v1/nope", http.StatusNotFound, ErrCodeNotFound},
		{http.MethodDelete, "/api/v1/findings/1", http.StatusMethodNotAllowed, ErrCodeInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec, env := s.do(t, tt.method, tt.path, nil)
			expectError(t, rec, env, tt.status, tt.code)
		})
	}
}

func TestFindings_PageSizeBoundedByConfig(t *testing.T) {
	s := newTestServer(t)
	rc := DefaultRouterConfig()
	rc.RateLimitDisabled = true
	h := NewRouter(NewHandler(s.db, nil, nil, HandlerConfig{DefaultPageSize: 5, MaxPageSize: 10}), rc)

	rec, env := doRequest(t, h, http.MethodGet, "/api/v1/findings?page_size=11", nil)
	expectError(t, rec, env, http.StatusBadRequest, ErrCodeValidation)

	rec, env = doRequest(t, h, http.MethodGet, "/api/v1/findings", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var page models.FindingPage
	decodeData(t, env, &page)
	if page.PageSize != 5 {
		t.Errorf("default page size = %d, want 5", page.PageSize)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var health models.HealthStatus
	decodeData(t, env, &health)
	if health.Status != "healthy" || !health.Database {
		t.Errorf("health = %+v", health)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
	if rec.Header().Get("ETag") == "" {
		t.Error("expected ETag header")
	}

	rec, env = doRequest(t, newBrokenServer(), http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("degraded status code = %d, want 200", rec.Code)
	}
	decodeData(t, env, &health)
	if health.Status != "degraded" || health.Database {
		t.Errorf("degraded health = %+v", health)
	}
}

func TestBrokenDependencies(t *testing.T) {
	h := newBrokenServer()

	tests := []struct {
		method string
		path   string
		body   interface{}
		code   string
	}{
		{http.MethodPost, "/api/v1/events", `{"event_type":"login_failed","user":"Bob"}`, ErrCodeDatabase},
		{http.MethodGet, "/api/v1/events", nil, ErrCodeDatabase},
		{http.MethodGet, "/api/v1/events/1", nil, ErrCodeDatabase},
		{http.MethodGet, "/api/v1/findings", nil, ErrCodeDatabase},
		{http.MethodGet, "/api/v1/findings/1", nil, ErrCodeDatabase},
		{http.MethodPost, "/api/v1/findings/1/enrich", nil, ErrCodeEnrichment},
		{http.MethodPost, "/api/v1/findings/enrich", nil, ErrCodeEnrichment},
		{http.MethodPost, "/api/v1/detection/sweep", nil, ErrCodeDetection},
		{http.MethodGet, "/api/v1/stats/summary", nil, ErrCodeDatabase},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec, env := doRequest(t, h, tt.method, tt.path, tt.body)
			expectError(t, rec, env, http.StatusInternalServerError, tt.code)
			if strings.Contains(rec.Body.String(), errStoreDown.Error()) {
				t.Error("internal error text leaked into response")
			}
		})
	}
}
