// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package enrichment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/vigil/internal/config"
	"github.com/tomtom215/vigil/internal/database"
	"github.com/tomtom215/vigil/internal/models"
)

func TestEngine_DuckDB(t *testing.T) {
	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "512MB"})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()

	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ids, err := db.InsertEvents(ctx, []models.NewEvent{
		{EventType: models.EventStorageBucketCreated, User: "Admin", Timestamp: ts,
			RawData: []byte(`{"bucket_name":"exports","public":true}`)},
		{EventType: models.EventPermissionChanged, User: "Bob", Timestamp: ts.Add(time.Minute),
			RawData: []byte(`{"old_role":"developer","new_role":"admin"}`)},
	})
	if err != nil {
		t.Fatalf("insert events: %v", err)
	}
	for i, rule := range []string{"public_bucket_detected", "privilege_escalation_admin"} {
		_, claimed, err := db.ProcessEvent(ctx, ids[i], []models.Finding{{
			RuleName: rule, Severity: models.SeverityCritical, Description: rule, User: "Admin",
		}})
		if err != nil || !claimed {
			t.Fatalf("process event %d: claimed=%v err=%v", ids[i], claimed, err)
		}
	}

	client := &scriptedClient{byRule: map[string]string{
		"privilege_escalation_admin": `{"risk_score": 250, "explanation": "Admin granted."}`,
	}}
	engine := NewEngine(db, client, DefaultConfig())

	got, err := engine.EnrichMissing(ctx, 0)
	if err != nil {
		t.Fatalf("EnrichMissing: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("enriched %d findings, want 2", len(got))
	}

	bucket, err := db.GetFinding(ctx, got[0].ID)
	if err != nil {
		t.Fatalf("get finding: %v", err)
	}
	if bucket.EnrichmentSource != models.EnrichmentFallback || *bucket.RiskScore != 95 {
		t.Errorf("bucket finding = %s/%v, want fallback/95", bucket.EnrichmentSource, *bucket.RiskScore)
	}
	admin, err := db.GetFinding(ctx, got[1].ID)
	if err != nil {
		t.Fatalf("get finding: %v", err)
	}
	if admin.EnrichmentSource != models.EnrichmentAI || *admin.RiskScore != 100 {
		t.Errorf("admin finding = %s/%v, want ai/100", admin.EnrichmentSource, *admin.RiskScore)
	}

	again, err := engine.EnrichMissing(ctx, 0)
	if err != nil || len(again) != 0 {
		t.Errorf("second batch = %d findings, err %v; want none", len(again), err)
	}

	if _, err := engine.EnrichOne(ctx, 9999); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("EnrichOne(9999) err = %v, want ErrNotFound", err)
	}
}
