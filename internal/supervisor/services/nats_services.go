// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package services

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// EmbeddedNATS is the lifecycle subset of *eventprocessor.EmbeddedServer.
type EmbeddedNATS interface {
	IsRunning() bool
	Shutdown(ctx context.Context) error
}

// NATSServerService owns an already started embedded NATS server. It
// reports a failure if the server stops on its own and shuts it down when
// ctx is canceled.
type NATSServerService struct {
	server          EmbeddedNATS
	checkInterval   time.Duration
	shutdownTimeout time.Duration
	name            string
}

// NewNATSServerService creates an embedded NATS server service wrapper.
func NewNATSServerService(server EmbeddedNATS, checkInterval, shutdownTimeout time.Duration) *NATSServerService {
	if checkInterval <= 0 {
		checkInterval = 5 * time.Second
	}
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &NATSServerService{
		server:          server,
		checkInterval:   checkInterval,
		shutdownTimeout: shutdownTimeout,
		name:            "nats-server",
	}
}

// ErrNATSServerStopped is returned by Serve when the server is found down.
var ErrNATSServerStopped = errors.New("embedded NATS server is not running")

// Serve implements suture.Service.
func (s *NATSServerService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		if !s.server.IsRunning() {
			return ErrNATSServerStopped
		}
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
			defer cancel()
			if err := s.server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("NATS server shutdown failed: %w", err)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// String implements fmt.Stringer for logging.
func (s *NATSServerService) String() string {
	return s.name
}

// IngestConsumer is satisfied by *eventprocessor.IngestConsumer.
type IngestConsumer interface {
	Run(ctx context.Context) error
}

// IngestService runs the NATS ingest consumer under supervision.
type IngestService struct {
	consumer IngestConsumer
	name     string
}

// NewIngestService creates an ingest consumer service wrapper.
func NewIngestService(consumer IngestConsumer) *IngestService {
	return &IngestService{consumer: consumer, name: "nats-ingest"}
}

// Serve implements suture.Service.
func (i *IngestService) Serve(ctx context.Context) error {
	return i.consumer.Run(ctx)
}

// String implements fmt.Stringer for logging.
func (i *IngestService) String() string {
	return i.name
}
