// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/vigil/internal/config"
	"github.com/tomtom215/vigil/internal/database"
	"github.com/tomtom215/vigil/internal/detection"
	"github.com/tomtom215/vigil/internal/enrichment"
	"github.com/tomtom215/vigil/internal/models"
)

// envelope decodes an APIResponse while keeping Data raw.
type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

type testServer struct {
	db      *database.DB
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "512MB"})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	h := NewHandler(db,
		detection.NewEngine(db, detection.DefaultConfig()),
		enrichment.NewEngine(db, nil, enrichment.DefaultConfig()),
		HandlerConfig{DefaultPageSize: 20, MaxPageSize: 100},
	)
	rc := DefaultRouterConfig()
	rc.RateLimitDisabled = true
	return &testServer{db: db, handler: NewRouter(h, rc)}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	return doRequest(t, s.handler, method, path, body)
}

func doRequest(t *testing.T, h http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

func decodeData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, env envelope, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	if env.Status != "error" || env.Error == nil || env.Error.Code != code {
		t.Fatalf("error = %+v, want code %s", env.Error, code)
	}
}

var errStoreDown = errors.New("connection refused")

// brokenStore fails every call.
type brokenStore struct{}

func (brokenStore) Ping(context.Context) error { return errStoreDown }
func (brokenStore) InsertEvents(context.Context, []models.NewEvent) ([]int64, error) {
	return nil, errStoreDown
}
func (brokenStore) GetEvent(context.Context, int64) (*models.SourceEvent, error) {
	return nil, errStoreDown
}
func (brokenStore) ListEvents(context.Context, models.EventFilter) ([]models.SourceEvent, error) {
	return nil, errStoreDown
}
func (brokenStore) GetFinding(context.Context, int64) (*models.Finding, error) {
	return nil, errStoreDown
}
func (brokenStore) FindingsForEvent(context.Context, int64) ([]models.Finding, error) {
	return nil, errStoreDown
}
func (brokenStore) ListFindings(context.Context, models.FindingFilter) (*models.FindingPage, error) {
	return nil, errStoreDown
}
func (brokenStore) Stats(context.Context) (*models.Stats, error) { return nil, errStoreDown }

type failingDetector struct{}

func (failingDetector) RunDetectionSweep(context.Context) (detection.SweepResult, error) {
	return detection.SweepResult{}, errStoreDown
}

type failingEnricher struct{}

func (failingEnricher) EnrichOne(context.Context, int64) (*models.Finding, error) {
	return nil, errStoreDown
}
func (failingEnricher) EnrichMissing(context.Context, int) ([]models.Finding, error) {
	return nil, errStoreDown
}

func newBrokenServer() http.Handler {
	rc := DefaultRouterConfig()
	rc.RateLimitDisabled = true
	return NewRouter(NewHandler(brokenStore{}, failingDetector{}, failingEnricher{}, HandlerConfig{}), rc)
}
