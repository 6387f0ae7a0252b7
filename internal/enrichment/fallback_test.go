// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package enrichment

import (
	"testing"

	"github.com/tomtom215/vigil/internal/models"
)

func TestFallback_Scores(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		f    models.Finding
		want float64
	}{
		{"low", finding(1, "small_pr_merged", models.SeverityLow, ""), 20},
		{"medium", finding(1, "medium_pr_merged", models.SeverityMedium, ""), 50},
		{"high", finding(1, "multiple_failed_logins", models.SeverityHigh, ""), 80},
		{"critical", finding(1, "too_many_failed_logins_critical", models.SeverityCritical, ""), 95},
		{"unknown severity", finding(1, "something", "urgent", ""), 40},
		{"severity case folded", finding(1, "something", "HIGH", ""), 80},
		{"public bucket raises low", finding(1, "public_bucket_detected", models.SeverityLow, ""), 90},
		{"public bucket keeps critical", finding(1, "public_bucket_detected", models.SeverityCritical, ""), 95},
		{"admin", finding(1, "privilege_escalation_admin", models.SeverityMedium, ""), 90},
		{"privilege", finding(1, "Privilege_Change", models.SeverityLow, ""), 90},
		{"admin token", finding(1, "api_token_admin_scope", models.SeverityHigh, ""), 92},
		{"deploy to prod", finding(1, "deployment_failed", models.SeverityMedium, "Deployment to PROD failed"), 85},
		{"deploy to staging", finding(1, "deployment_failed", models.SeverityMedium, "Deployment to staging failed"), 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := tt.f
			got, _ := Fallback(&f)
			if got != tt.want {
				t.Errorf("Fallback() score = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFallback_Explanation(t *testing.T) {
	t.Parallel()

	f := finding(7, "public_bucket_detected", models.SeverityCritical, "Public bucket created: exports")
	_, got := Fallback(&f)
	want := "Risk is estimated at 95/100 based on severity='critical' and rule_name='public_bucket_detected'. " +
		"This is a heuristic fallback explanation generated without an AI model."
	if got != want {
		t.Errorf("explanation:\n got %q\nwant %q", got, want)
	}
}
