// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

// Command vigilctl runs one-off operations against the Vigil database:
// seeding fake events, a detection sweep, or an enrichment batch.
//
// It reads the same configuration as the server. DuckDB allows one writer
// process per file, so stop the server first or point vigilctl at a copy.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/vigil/internal/ai"
	"github.com/tomtom215/vigil/internal/config"
	"github.com/tomtom215/vigil/internal/database"
	"github.com/tomtom215/vigil/internal/detection"
	"github.com/tomtom215/vigil/internal/enrichment"
	"github.com/tomtom215/vigil/internal/logging"
	"github.com/tomtom215/vigil/internal/models"
	"github.com/tomtom215/vigil/internal/seed"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	dbPath     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "vigilctl",
		Short:         "Operate on the Vigil event and finding store",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: CONFIG_PATH or ./config.yaml)")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "DuckDB path, overrides configuration")

	root.AddCommand(newSeedCmd(opts), newSweepCmd(opts), newEnrichCmd(opts))
	return root
}

// loadConfig loads configuration and initializes logging for a command.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	if o.configPath != "" {
		if err := os.Setenv(config.ConfigPathEnvVar, o.configPath); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if o.dbPath != "" {
		cfg.Database.Path = o.dbPath
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    "console",
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})
	return cfg, nil
}

// withStore runs fn against an open database, closing it afterwards.
func (o *rootOptions) withStore(fn func(ctx context.Context, cfg *config.Config, db *database.DB) error) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logging.Error().Err(cerr).Msg("Error closing database")
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return fn(ctx, cfg, db)
}

// EventInserter stores a batch of events atomically.
type EventInserter interface {
	InsertEvents(ctx context.Context, events []models.NewEvent) ([]int64, error)
}

func newSeedCmd(opts *rootOptions) *cobra.Command {
	var (
		count   int
		rngSeed uint64
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert fake events from the last two hours",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}
			return opts.withStore(func(ctx context.Context, _ *config.Config, db *database.DB) error {
				return runSeed(ctx, db, cmd.OutOrStdout(), count, rngSeed)
			})
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 100, "number of events to generate")
	cmd.Flags().Uint64Var(&rngSeed, "seed", uint64(time.Now().UnixNano()), "random seed")
	return cmd
}

func runSeed(ctx context.Context, store EventInserter, out io.Writer, count int, rngSeed uint64) error {
	events, err := seed.NewGenerator(rngSeed, nil).Generate(count)
	if err != nil {
		return err
	}
	ids, err := store.InsertEvents(ctx, events)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "Inserted %d fake events into the database.\n", len(ids))
	return err
}

// Sweeper runs one detection sweep.
type Sweeper interface {
	RunDetectionSweep(ctx context.Context) (detection.SweepResult, error)
}

func newSweepCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one detection sweep over unprocessed events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(func(ctx context.Context, cfg *config.Config, db *database.DB) error {
				engine := detection.NewEngine(db, detection.ConfigFrom(&cfg.Detection))
				return runSweep(ctx, engine, cmd.OutOrStdout())
			})
		},
	}
}

func runSweep(ctx context.Context, s Sweeper, out io.Writer) error {
	result, err := s.RunDetectionSweep(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "Processed %d new events, created %d findings.\n",
		result.EventsProcessed, result.FindingsCreated)
	return err
}

// BatchEnricher runs one enrichment batch.
type BatchEnricher interface {
	EnrichMissing(ctx context.Context, limit int) ([]models.Finding, error)
}

func newEnrichCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Score findings that have no risk score yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(func(ctx context.Context, cfg *config.Config, db *database.DB) error {
				client, err := ai.New(&cfg.AI)
				if err != nil {
					return err
				}
				if closer, ok := client.(io.Closer); ok {
					defer func() { _ = closer.Close() }()
				}
				engine := enrichment.NewEngine(db, client, enrichment.ConfigFrom(&cfg.Enrichment))
				return runEnrich(ctx, engine, cmd.OutOrStdout(), limit)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "maximum findings to enrich (0 = configured batch size)")
	return cmd
}

func runEnrich(ctx context.Context, e BatchEnricher, out io.Writer, limit int) error {
	findings, err := e.EnrichMissing(ctx, limit)
	if err != nil {
		return err
	}
	s := enrichment.Summarize(findings)
	_, err = fmt.Fprintf(out, "Enriched %d findings (ai: %d, fallback: %d).\n",
		s.Enriched, s.BySource[models.EnrichmentAI], s.BySource[models.EnrichmentFallback])
	return err
}
