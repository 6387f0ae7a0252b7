// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

/*
Package models defines the data structures shared across Vigil.

Key Components:

  - SourceEvent: an immutable activity record from an auth, git, deployment
    or storage tool. Its raw_data is decoded into a typed Payload variant
    keyed by event type (see DecodePayload).
  - Finding: a severity-ranked observation produced by a detection rule for
    exactly one event, later enriched with a risk score and explanation.
  - CountQuery: the windowed history predicate used by count-based rules.
  - APIResponse: the envelope written by every HTTP endpoint.

Lifecycle:

	SourceEvent{Processed: false}
	    -> detection sweep: Finding{RiskScore: nil, AIExplanation: nil}, Processed = true
	    -> enrichment sweep: Finding{RiskScore: 0..100, AIExplanation: "...", EnrichmentSource: ai|fallback}

Processed only ever moves from false to true. Findings are write-once
except for the three enrichment fields.
*/
package models
