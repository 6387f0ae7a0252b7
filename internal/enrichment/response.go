// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package enrichment

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/vigil/internal/ai"
)

type aiVerdict struct {
	RiskScore   *riskScore `json:"risk_score"`
	Explanation *string    `json:"explanation"`
}

// riskScore accepts a JSON number or a numeric string such as "85".
type riskScore float64

func (s *riskScore) UnmarshalJSON(b []byte) error {
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*s = riskScore(n)
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return fmt.Errorf("risk_score must be a number, got %s", b)
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
	if err != nil {
		return fmt.Errorf("risk_score %q is not numeric", str)
	}
	*s = riskScore(n)
	return nil
}

// ParseResponse extracts the score and explanation from a completion.
// A finite score outside [0,100] is clamped. Anything else that does not
// fit the expected shape is an error wrapping ai.ErrCallFailed.
func ParseResponse(content string) (float64, string, error) {
	body := stripCodeFence(content)

	var v aiVerdict
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return 0, "", fmt.Errorf("%w: invalid JSON in completion: %w", ai.ErrCallFailed, err)
	}
	if v.RiskScore == nil {
		return 0, "", fmt.Errorf("%w: risk_score missing", ai.ErrCallFailed)
	}
	score := float64(*v.RiskScore)
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, "", fmt.Errorf("%w: risk_score not finite", ai.ErrCallFailed)
	}
	if v.Explanation == nil || strings.TrimSpace(*v.Explanation) == "" {
		return 0, "", fmt.Errorf("%w: explanation missing", ai.ErrCallFailed)
	}
	return ClampScore(score), strings.TrimSpace(*v.Explanation), nil
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ClampScore bounds a score to [0,100].
func ClampScore(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
