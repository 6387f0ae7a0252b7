// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package eventprocessor

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// maxIngestPayload matches the HTTP ingest body limit.
const maxIngestPayload = 1 << 20

// EmbeddedServer is an in-process NATS server with JetStream, used when
// nats.embedded_server is set so a single Vigil instance needs no broker.
type EmbeddedServer struct {
	ns *server.Server
}

// NewEmbeddedServer starts the server and waits up to readyTimeout for it
// to accept connections. Port -1 picks a random free port.
func NewEmbeddedServer(cfg *ServerConfig, readyTimeout time.Duration) (*EmbeddedServer, error) {
	ns, err := server.NewServer(&server.Options{
		ServerName:         "vigil",
		Host:               cfg.Host,
		Port:               cfg.Port,
		JetStream:          true,
		StoreDir:           cfg.StoreDir,
		JetStreamMaxMemory: cfg.JetStreamMaxMem,
		JetStreamMaxStore:  cfg.JetStreamMaxStore,
		NoSigs:             true,
		MaxPayload:         maxIngestPayload,
	})
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}

	go ns.Start()
	if !ns.ReadyForConnections(readyTimeout) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server not ready within %s", readyTimeout)
	}
	return &EmbeddedServer{ns: ns}, nil
}

// ClientURL is the nats:// URL publishers and subscribers connect to.
func (s *EmbeddedServer) ClientURL() string {
	return s.ns.ClientURL()
}

// IsRunning reports whether the server is still up.
func (s *EmbeddedServer) IsRunning() bool {
	return s.ns.Running()
}

// Shutdown stops the server, waiting for it to exit or for ctx.
func (s *EmbeddedServer) Shutdown(ctx context.Context) error {
	s.ns.Shutdown()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.ns.WaitForShutdown()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
