// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

// Package services adapts Vigil components to suture.Service.
//
// Each wrapper depends on a small interface rather than the concrete
// component so the packages below it never import the supervisor:
//
//	DetectionService   -> *detection.Engine       (data layer)
//	EnrichmentService  -> *enrichment.Engine      (data layer)
//	NATSServerService  -> *eventprocessor.EmbeddedServer (messaging layer)
//	IngestService      -> *eventprocessor.IngestConsumer (messaging layer)
//	HTTPServerService  -> *http.Server            (api layer)
//
// Serve returns ctx.Err() on normal shutdown. Any other return is treated
// by suture as a failure and the service is restarted with backoff.
package services
