// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/vigil/internal/ai"
	"github.com/tomtom215/vigil/internal/api"
	"github.com/tomtom215/vigil/internal/config"
	"github.com/tomtom215/vigil/internal/database"
	"github.com/tomtom215/vigil/internal/detection"
	"github.com/tomtom215/vigil/internal/enrichment"
	"github.com/tomtom215/vigil/internal/logging"
	"github.com/tomtom215/vigil/internal/supervisor"
	"github.com/tomtom215/vigil/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Bool("ai_configured", cfg.AI.APIKey != "").
		Bool("nats_enabled", cfg.NATS.Enabled).
		Msg("Starting Vigil with supervisor tree")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	aiClient, err := ai.New(&cfg.AI)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to initialize AI client, using fallback scoring only")
		aiClient = ai.Unconfigured{}
	}
	if closer, ok := aiClient.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing AI response cache")
			}
		}()
	}

	detectionEngine := detection.NewEngine(db, detection.ConfigFrom(&cfg.Detection))
	enrichmentEngine := enrichment.NewEngine(db, aiClient, enrichment.ConfigFrom(&cfg.Enrichment))

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// NATS is wired before the tree starts so the first sweep already publishes.
	natsComponents, err := InitNATS(ctx, cfg, db, detectionEngine, tree)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize NATS")
	}
	defer natsComponents.Close()

	if cfg.Detection.Enabled {
		tree.AddDataService(services.NewDetectionService(detectionEngine))
		logging.Info().Dur("interval", cfg.Detection.Interval).Msg("Detection engine added to supervisor tree")
	}
	if cfg.Enrichment.Enabled {
		tree.AddDataService(services.NewEnrichmentService(enrichmentEngine))
		logging.Info().Dur("interval", cfg.Enrichment.Interval).Msg("Enrichment engine added to supervisor tree")
	}

	handler := api.NewHandler(db, detectionEngine, enrichmentEngine, api.HandlerConfigFrom(cfg))
	server := newHTTPServer(cfg, api.NewRouter(handler, api.RouterConfigFrom(&cfg.Security)))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
		cancel()
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}

func newHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadTimeout:       cfg.Server.Timeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}
}
