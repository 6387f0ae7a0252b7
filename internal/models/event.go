// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package models

import (
	"encoding/json"
	"time"
)

// EventType identifies the kind of activity a SourceEvent records.
// Unknown values are accepted and stored as-is.
type EventType string

// Known event types.
const (
	EventLoginSuccess                   EventType = "login_success"
	EventLoginFailed                    EventType = "login_failed"
	EventMFASuccess                     EventType = "mfa_success"
	EventMFAFailed                      EventType = "mfa_failed"
	EventPermissionChanged              EventType = "permission_changed"
	EventAPITokenCreated                EventType = "api_token_created"
	EventPullRequestOpened              EventType = "pull_request_opened"
	EventPullRequestMerged              EventType = "pull_request_merged"
	EventDeploymentSucceeded            EventType = "deployment_succeeded"
	EventDeploymentFailed               EventType = "deployment_failed"
	EventStorageBucketCreated           EventType = "storage_bucket_created"
	EventStorageBucketPermissionChanged EventType = "storage_bucket_permission_changed"
)

// KnownEventTypes lists every event type with a dedicated payload shape.
var KnownEventTypes = []EventType{
	EventLoginSuccess,
	EventLoginFailed,
	EventMFASuccess,
	EventMFAFailed,
	EventPermissionChanged,
	EventAPITokenCreated,
	EventPullRequestOpened,
	EventPullRequestMerged,
	EventDeploymentSucceeded,
	EventDeploymentFailed,
	EventStorageBucketCreated,
	EventStorageBucketPermissionChanged,
}

// IsKnown reports whether t is one of KnownEventTypes.
func (t EventType) IsKnown() bool {
	for _, k := range KnownEventTypes {
		if t == k {
			return true
		}
	}
	return false
}

// SourceEvent is a timestamped activity record.
//
// RawData is kept verbatim for storage and API output. Payload is the decoded
// variant for EventType; rules read Payload only.
type SourceEvent struct {
	ID        int64           `json:"id"`
	EventType EventType       `json:"event_type"`
	User      string          `json:"user"`
	RawData   json.RawMessage `json:"raw_data,omitempty"`
	Payload   Payload         `json:"-"`
	Timestamp time.Time       `json:"timestamp"`
	Processed bool            `json:"processed"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewEvent is the insert form of a SourceEvent. ID, Processed and CreatedAt
// are assigned by the store.
type NewEvent struct {
	EventType EventType       `json:"event_type" validate:"required,max=64,event_type"`
	User      string          `json:"user" validate:"required,max=256"`
	RawData   json.RawMessage `json:"raw_data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// CountQuery selects events for windowed counting.
// An empty User or EventType matches any value. A zero Until means no upper bound.
// Both bounds are inclusive. A non-zero ThroughID also excludes events at
// exactly Until whose id is greater, matching the sweep's (timestamp, id) order.
type CountQuery struct {
	User      string
	EventType EventType
	Since     time.Time
	Until     time.Time
	ThroughID int64
}

// EventFilter narrows ListEvents.
type EventFilter struct {
	EventType EventType
	User      string
	From      *time.Time
	To        *time.Time
	Processed *bool
	Limit     int
	Offset    int
}

// EventWithFindings is the detail view of one event.
type EventWithFindings struct {
	Event    SourceEvent `json:"event"`
	Findings []Finding   `json:"findings"`
}
