// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/vigil/internal/config"
)

func TestRouterConfigFrom(t *testing.T) {
	t.Parallel()

	rc := RouterConfigFrom(nil)
	if rc.RateLimitRequests != 100 || rc.RateLimitWindow != time.Minute {
		t.Errorf("nil security config = %+v", rc)
	}

	rc = RouterConfigFrom(&config.SecurityConfig{
		CORSOrigins:       []string{"https://console.example.com"},
		RateLimitReqs:     10,
		RateLimitWindow:   30 * time.Second,
		RateLimitDisabled: true,
	})
	if len(rc.CORSAllowedOrigins) != 1 || rc.RateLimitRequests != 10 ||
		rc.RateLimitWindow != 30*time.Second || !rc.RateLimitDisabled {
		t.Errorf("mapped config = %+v", rc)
	}
}

func TestRouter_RateLimit(t *testing.T) {
	rc := DefaultRouterConfig()
	rc.RateLimitRequests = 2
	rc.RateLimitWindow = time.Minute
	h := NewRouter(NewHandler(brokenStore{}, nil, nil, HandlerConfig{}), rc)

	for i := 0; i < 2; i++ {
		rec, _ := doRequest(t, h, http.MethodGet, "/api/v1/health", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
	rec, env := doRequest(t, h, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", rec.Code)
	}
	if env.Error == nil || !strings.Contains(env.Error.Message, "Rate limit") {
		t.Errorf("error = %+v", env.Error)
	}

	// /metrics sits outside the limited group.
	rec, _ = doRequest(t, h, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("/metrics status = %d", rec.Code)
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	rc := DefaultRouterConfig()
	rc.CORSAllowedOrigins = []string{"https://console.example.com"}
	rc.RateLimitDisabled = true
	h := NewRouter(NewHandler(brokenStore{}, nil, nil, HandlerConfig{}), rc)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/findings", nil)
	req.Header.Set("Origin", "https://console.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://console.example.com" {
		t.Errorf("allowed origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/findings", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected allowed origin %q", got)
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/api/v1/health", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `api_requests_total{endpoint="/api/v1/health"`) {
		t.Error("metrics output should include the health route")
	}
}

func TestSanitizeLogValue(t *testing.T) {
	t.Parallel()

	if got := sanitizeLogValue("a\nb\x7f"); got != `a\x0ab\x7f` {
		t.Errorf("sanitizeLogValue = %q", got)
	}
}

func TestDecodeEvents(t *testing.T) {
	t.Parallel()

	events, err := decodeEvents([]byte("  \n[{\"event_type\":\"login_failed\",\"user\":\"a\"},{\"event_type\":\"mfa_failed\",\"user\":\"b\"}]"))
	if err != nil || len(events) != 2 {
		t.Fatalf("array decode = %v, %v", events, err)
	}
	events, err = decodeEvents([]byte(`{"event_type":"login_failed","user":"a","timestamp":"2026-03-01T12:00:00+02:00"}`))
	if err != nil || len(events) != 1 {
		t.Fatalf("object decode = %v, %v", events, err)
	}
	if events[0].Timestamp.UTC().Hour() != 10 {
		t.Errorf("timestamp = %v", events[0].Timestamp)
	}
}
