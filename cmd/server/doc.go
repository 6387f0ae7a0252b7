// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

/*
Package main is the entry point for the Vigil server.

Vigil stores activity events, raises severity-ranked findings from them with
a fixed rule catalog, and scores each finding with an AI model or a
deterministic fallback.

# Application Architecture

	RootSupervisor ("vigil")
	├── DataSupervisor ("data-layer")
	│   ├── detection-engine (scheduled sweeps)
	│   └── enrichment-engine (scheduled sweeps)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── nats-server (optional, embedded)
	│   └── nats-ingest (optional)
	└── APISupervisor ("api-layer")
	    └── http-server

Component initialization order:

 1. Configuration: koanf (defaults, config.yaml, environment)
 2. Logging: zerolog, JSON or console
 3. Database: DuckDB
 4. AI client: OpenAI-compatible, rate limited, circuit broken, cached in Badger
 5. Engines: detection and enrichment
 6. NATS (optional): embedded server, JetStream stream, finding publisher,
    ingest consumer
 7. Supervisor tree and HTTP server

# Configuration

	HTTP_PORT=8080
	DUCKDB_PATH=/data/vigil.duckdb
	OPENAI_API_KEY=...           # empty: fallback scoring only
	DETECTION_INTERVAL=1m
	ENRICHMENT_INTERVAL=5m
	NATS_ENABLED=true
	NATS_INGEST_ENABLED=true

SIGINT or SIGTERM cancels the root context; every service stops and the
database is checkpointed before exit.
*/
package main
