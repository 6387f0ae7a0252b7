// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/vigil/internal/config"
	"github.com/tomtom215/vigil/internal/database"
	"github.com/tomtom215/vigil/internal/detection"
	"github.com/tomtom215/vigil/internal/eventprocessor"
	"github.com/tomtom215/vigil/internal/logging"
	"github.com/tomtom215/vigil/internal/supervisor"
	"github.com/tomtom215/vigil/internal/supervisor/services"
)

const (
	natsReadyTimeout    = 10 * time.Second
	natsHealthInterval  = 5 * time.Second
	natsShutdownTimeout = 10 * time.Second
	streamSetupTimeout  = 15 * time.Second
)

// NATSComponents holds the NATS resources owned by main. A nil
// *NATSComponents is valid and Close is a no-op.
type NATSComponents struct {
	server     *eventprocessor.EmbeddedServer
	publisher  *eventprocessor.FindingPublisher
	subscriber message.Subscriber
	ingest     *eventprocessor.IngestConsumer
	url        string
}

// InitNATS starts the messaging side when cfg.NATS.Enabled: the embedded
// server (optional), the stream, the finding publisher attached to the
// detection engine, and the ingest consumer (optional). Long-running parts
// are registered with tree.
func InitNATS(ctx context.Context, cfg *config.Config, db *database.DB, engine *detection.Engine, tree *supervisor.SupervisorTree) (*NATSComponents, error) {
	if !cfg.NATS.Enabled {
		logging.Info().Msg("NATS disabled")
		return nil, nil
	}

	c := &NATSComponents{url: cfg.NATS.URL}
	ok := false
	defer func() {
		if !ok {
			c.Close()
		}
	}()

	if cfg.NATS.EmbeddedServer {
		serverCfg := eventprocessor.ServerConfigFrom(&cfg.NATS)
		srv, err := eventprocessor.NewEmbeddedServer(&serverCfg, natsReadyTimeout)
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS server: %w", err)
		}
		c.server = srv
		c.url = srv.ClientURL()
		tree.AddMessagingService(services.NewNATSServerService(srv, natsHealthInterval, natsShutdownTimeout))
		logging.Info().Str("url", c.url).Msg("Embedded NATS server started")
	}

	if err := setupStream(ctx, c.url, &cfg.NATS); err != nil {
		return nil, err
	}

	wmLogger := eventprocessor.DefaultWatermillLogger()

	pub, err := eventprocessor.NewNATSPublisher(eventprocessor.DefaultPublisherConfig(c.url), wmLogger)
	if err != nil {
		return nil, err
	}
	c.publisher = eventprocessor.NewFindingPublisher(pub, cfg.NATS.FindingsTopic)
	engine.SetNotifier(c.publisher)
	logging.Info().Str("topic", cfg.NATS.FindingsTopic).Msg("Finding publisher attached to detection engine")

	if cfg.NATS.IngestEnabled {
		sub, err := eventprocessor.NewNATSSubscriber(eventprocessor.SubscriberConfigFrom(c.url, &cfg.NATS), wmLogger)
		if err != nil {
			return nil, err
		}
		c.subscriber = sub
		c.ingest = eventprocessor.NewIngestConsumer(sub, cfg.NATS.IngestTopic, db)
		tree.AddMessagingService(services.NewIngestService(c.ingest))
		logging.Info().Str("topic", cfg.NATS.IngestTopic).Msg("NATS ingest consumer added to supervisor tree")
	}

	ok = true
	return c, nil
}

// setupStream creates or updates the stream covering every configured topic.
func setupStream(ctx context.Context, url string, cfg *config.NATSConfig) error {
	nc, err := natsgo.Connect(url, natsgo.Name("vigil-stream-setup"))
	if err != nil {
		return fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, streamSetupTimeout)
	defer cancel()

	streamCfg := eventprocessor.StreamConfigFrom(cfg)
	if _, err := eventprocessor.EnsureStream(ctx, js, streamCfg); err != nil {
		return err
	}
	logging.Info().Str("stream", streamCfg.Name).Strs("subjects", streamCfg.Subjects).Msg("JetStream stream ready")
	return nil
}

// URL returns the NATS URL in use.
func (c *NATSComponents) URL() string {
	if c == nil {
		return ""
	}
	return c.url
}

// Close releases the publisher and subscriber. The embedded server is shut
// down by its supervisor service; Close only stops it when that service
// never ran.
func (c *NATSComponents) Close() {
	if c == nil {
		return
	}
	var errs []error
	if c.subscriber != nil {
		errs = append(errs, c.subscriber.Close())
	}
	if c.publisher != nil {
		errs = append(errs, c.publisher.Close())
	}
	if c.server != nil && c.server.IsRunning() {
		ctx, cancel := context.WithTimeout(context.Background(), natsShutdownTimeout)
		errs = append(errs, c.server.Shutdown(ctx))
		cancel()
	}
	if err := errors.Join(errs...); err != nil {
		logging.Warn().Err(err).Msg("Error closing NATS components")
	}
}
