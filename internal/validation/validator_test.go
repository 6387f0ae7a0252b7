// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/vigil/internal/models"
)

func TestGetValidator_Singleton(t *testing.T) {
	t.Parallel()

	if GetValidator() != GetValidator() {
		t.Error("expected the same validator instance")
	}
}

func TestValidateEvent(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	tests := []struct {
		name       string
		event      models.NewEvent
		wantFields []string
	}{
		{
			name: "valid login",
			event: models.NewEvent{
				EventType: models.EventLoginFailed,
				User:      "Alice",
				RawData:   []byte(`{"ip":"192.168.1.10","location":"USA","success":false}`),
				Timestamp: now,
			},
		},
		{
			name:       "missing user and type",
			event:      models.NewEvent{Timestamp: now},
			wantFields: []string{"event_type", "user"},
		},
		{
			name: "bad event type format",
			event: models.NewEvent{
				EventType: "Login Failed",
				User:      "Bob",
			},
			wantFields: []string{"event_type"},
		},
		{
			name: "invalid ip in payload",
			event: models.NewEvent{
				EventType: models.EventLoginSuccess,
				User:      "Bob",
				RawData:   []byte(`{"ip":"not-an-ip"}`),
			},
			wantFields: []string{"raw_data.ip"},
		},
		{
			name: "negative lines changed",
			event: models.NewEvent{
				EventType: models.EventPullRequestMerged,
				User:      "Eve",
				RawData:   []byte(`{"repo":"mini-monitor","lines_changed":-4}`),
			},
			wantFields: []string{"raw_data.lines_changed"},
		},
		{
			name: "payload shape mismatch",
			event: models.NewEvent{
				EventType: models.EventStorageBucketCreated,
				User:      "Eve",
				RawData:   []byte(`{"public":"yes"}`),
			},
			wantFields: []string{"raw_data"},
		},
		{
			name: "unknown type with arbitrary object",
			event: models.NewEvent{
				EventType: "vpn_connected",
				User:      "Frank",
				RawData:   []byte(`{"gateway":"eu-1","anything":[1,2,3]}`),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ev := tt.event
			verr := ValidateEvent(&ev)
			if len(tt.wantFields) == 0 {
				if verr != nil {
					t.Fatalf("unexpected validation error: %v", verr)
				}
				return
			}
			if verr == nil {
				t.Fatalf("expected errors for %v", tt.wantFields)
			}
			got := make(map[string]bool)
			for _, e := range verr.Errors() {
				got[e.Field()] = true
			}
			for _, f := range tt.wantFields {
				if !got[f] {
					t.Errorf("expected error on %s, got %v", f, verr)
				}
			}
		})
	}
}

func TestValidateStruct_FindingFilter(t *testing.T) {
	t.Parallel()

	ok := models.FindingFilter{Page: 1, PageSize: 20, Severity: models.SeverityHigh}
	if verr := ValidateStruct(&ok); verr != nil {
		t.Fatalf("unexpected error: %v", verr)
	}

	bad := models.FindingFilter{Page: 0, PageSize: 500, Severity: "urgent"}
	verr := ValidateStruct(&bad)
	if verr == nil {
		t.Fatal("expected validation errors")
	}
	if n := len(verr.Errors()); n != 3 {
		t.Errorf("expected 3 errors, got %d: %v", n, verr)
	}

	apiErr := verr.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %s, want VALIDATION_ERROR", apiErr.Code)
	}
	if !strings.Contains(apiErr.Message, "Severity must be one of: low medium high critical") {
		t.Errorf("unexpected message: %s", apiErr.Message)
	}
	if _, ok := apiErr.Details["fields"]; !ok {
		t.Error("multi-error details should list fields")
	}
}

func TestToAPIError_Single(t *testing.T) {
	t.Parallel()

	verr := ValidateStruct(&models.FindingFilter{Page: 1, PageSize: 0})
	if verr == nil {
		t.Fatal("expected error")
	}
	apiErr := verr.ToAPIError()
	if apiErr.Message != "PageSize must be greater than or equal to 1" {
		t.Errorf("message = %q", apiErr.Message)
	}
	if apiErr.Details["field"] != "PageSize" {
		t.Errorf("field = %v", apiErr.Details["field"])
	}
}
