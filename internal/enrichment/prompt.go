// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package enrichment

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/vigil/internal/ai"
	"github.com/tomtom215/vigil/internal/models"
)

// SystemMessage is sent as the system role of every enrichment prompt.
const SystemMessage = "You are a helpful security assistant."

const analystInstructions = "You are a security and compliance risk analyst.\n" +
	"You receive a finding from a GRC/log monitoring system.\n" +
	"You must:\n" +
	"1) Evaluate its risk on a scale of 0–100 (integer).\n" +
	"2) Provide a short explanation (2–3 sentences) in simple English.\n\n" +
	"Return ONLY valid JSON with the following shape:\n" +
	`{ "risk_score": <int from 0 to 100>, "explanation": "<text>" }` + "\n\n"

// promptFinding is the subset of a finding shown to the model.
type promptFinding struct {
	ID          int64           `json:"id"`
	RuleName    string          `json:"rule_name"`
	Severity    models.Severity `json:"severity"`
	Description string          `json:"description"`
	User        string          `json:"user"`
}

// BuildPrompt renders the enrichment prompt for f.
func BuildPrompt(f *models.Finding) (ai.Prompt, error) {
	body, err := json.MarshalIndent(promptFinding{
		ID:          f.ID,
		RuleName:    f.RuleName,
		Severity:    f.Severity,
		Description: f.Description,
		User:        f.User,
	}, "", "  ")
	if err != nil {
		return ai.Prompt{}, fmt.Errorf("marshal finding %d: %w", f.ID, err)
	}
	return ai.Prompt{
		System: SystemMessage,
		User:   analystInstructions + "Finding JSON:\n" + string(body),
	}, nil
}
