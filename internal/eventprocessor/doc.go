// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

/*
Package eventprocessor connects Vigil to NATS JetStream through Watermill.

Two flows use it:

	detection sweep -> FindingPublisher -> vigil.findings.created
	vigil.events.ingest -> IngestConsumer -> source_events

FindingPublisher implements detection.FindingNotifier. It publishes each
committed finding as JSON with a deterministic Nats-Msg-Id, so a republish
of the same finding is dropped by the JetStream duplicate window. A
gobreaker circuit breaker stops publish attempts while NATS is down; the
findings themselves are already committed and are never lost.

IngestConsumer is the message-driven alternative to POST /api/v1/events.
Messages are acked once stored or when they can never be stored (bad JSON,
validation failure) and nacked on persistence errors so JetStream
redelivers them.

Both sides take plain watermill interfaces, so tests run against the
in-process gochannel pub/sub. In production NewNATSPublisher and
NewNATSSubscriber build JetStream-backed implementations, optionally
against an EmbeddedServer.
*/
package eventprocessor
