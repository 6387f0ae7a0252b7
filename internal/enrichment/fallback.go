// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package enrichment

import (
	"fmt"
	"strings"

	"github.com/tomtom215/vigil/internal/models"
)

// FallbackMarker ends every heuristic explanation.
const FallbackMarker = "This is a heuristic fallback explanation generated without an AI model."

var baseScores = map[string]int{
	"low":      20,
	"medium":   50,
	"high":     80,
	"critical": 95,
}

// Fallback scores f deterministically from its severity and rule name.
func Fallback(f *models.Finding) (float64, string) {
	score, ok := baseScores[strings.ToLower(string(f.Severity))]
	if !ok {
		score = 40
	}

	rule := strings.ToLower(f.RuleName)
	if strings.Contains(rule, "public_bucket") {
		score = max(score, 90)
	}
	if strings.Contains(rule, "admin") || strings.Contains(rule, "privilege") {
		score = max(score, 90)
	}
	if strings.Contains(rule, "api_token_admin_scope") {
		score = max(score, 92)
	}
	if strings.Contains(rule, "deployment_failed") && strings.Contains(strings.ToLower(f.Description), "prod") {
		score = max(score, 85)
	}

	explanation := fmt.Sprintf("Risk is estimated at %d/100 based on severity='%s' and rule_name='%s'. %s",
		score, f.Severity, f.RuleName, FallbackMarker)
	return float64(score), explanation
}
