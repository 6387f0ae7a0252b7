// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/vigil/internal/ai"
	"github.com/tomtom215/vigil/internal/config"
	"github.com/tomtom215/vigil/internal/database"
	"github.com/tomtom215/vigil/internal/detection"
	"github.com/tomtom215/vigil/internal/enrichment"
	"github.com/tomtom215/vigil/internal/logging"
	"github.com/tomtom215/vigil/internal/models"
	"github.com/tomtom215/vigil/internal/supervisor/services"
)

func TestTree_DetectionThenEnrichment(t *testing.T) {
	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "512MB"})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	now := time.Now().UTC()
	if _, err := db.InsertEvents(ctx, []models.NewEvent{
		{EventType: models.EventPermissionChanged, User: "Bob", Timestamp: now.Add(-time.Minute),
			RawData: []byte(`{"old_role":"developer","new_role":"admin"}`)},
		{EventType: models.EventLoginFailed, User: "Carol", Timestamp: now},
	}); err != nil {
		t.Fatalf("insert events: %v", err)
	}

	detCfg := detection.DefaultConfig()
	detCfg.Interval = 20 * time.Millisecond
	detector := detection.NewEngine(db, detCfg)
	enricher := enrichment.NewEngine(db, ai.Unconfigured{}, enrichment.Config{Interval: 20 * time.Millisecond})

	tree, err := NewSupervisorTree(logging.NewSlogLogger(), TreeConfig{ShutdownTimeout: time.Second})
	if err != nil {
		t.Fatalf("NewSupervisorTree: %v", err)
	}
	tree.AddDataService(services.NewDetectionService(detector))
	tree.AddDataService(services.NewEnrichmentService(enricher))
	errCh := tree.ServeBackground(ctx)

	deadline := time.Now().Add(5 * time.Second)
	for {
		page, err := db.ListFindings(ctx, models.FindingFilter{Page: 1, PageSize: 10})
		if err != nil {
			t.Fatalf("list findings: %v", err)
		}
		done := page.Total == 2
		for _, f := range page.Items {
			done = done && f.Enriched()
		}
		if done {
			for _, f := range page.Items {
				if f.EnrichmentSource != models.EnrichmentFallback {
					t.Errorf("finding %d source = %s, want fallback", f.ID, f.EnrichmentSource)
				}
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("findings not detected and enriched in time: %+v", page)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	<-errCh
}
