// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

// Package seed generates plausible fake activity for demos and local testing.
package seed

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/vigil/internal/models"
)

// Users are the identities fake events are attributed to.
var Users = []string{
	"Alice", "Bob", "Charlie", "David", "Eve", "Frank",
	"George", "Hannah", "Isaac", "James", "Admin",
}

// EventTypes are the event types the generator produces.
var EventTypes = []models.EventType{
	models.EventLoginSuccess,
	models.EventLoginFailed,
	models.EventPullRequestOpened,
	models.EventPullRequestMerged,
	models.EventPermissionChanged,
}

// Window is how far back generated timestamps may fall.
const Window = 120 * time.Minute

var (
	userAgents = []string{"Chrome", "Firefox", "Safari", "Edge", "Opera", "Internet Explorer"}
	locations  = []string{
		"USA", "Canada", "UK", "Australia", "Germany", "France", "Italy", "Spain",
		"Brazil", "India", "China", "Japan", "Korea", "Russia", "Turkey", "Other",
	}
	repos    = []string{"mini-monitor", "backend-service", "frontend-service"}
	branches = []string{"main", "develop", "feature/rule-engine"}
)

// Generator produces fake events. It is not safe for concurrent use.
type Generator struct {
	rng *rand.Rand
	now func() time.Time
}

// NewGenerator returns a generator seeded with seed. The same seed and clock
// give the same events.
func NewGenerator(seed uint64, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now: now,
	}
}

// Generate returns n events with timestamps in [now-Window, now], minute
// resolution.
func (g *Generator) Generate(n int) ([]models.NewEvent, error) {
	events := make([]models.NewEvent, 0, max(n, 0))
	now := g.now().UTC()
	for i := 0; i < n; i++ {
		ev, err := g.event(now)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func (g *Generator) event(now time.Time) (models.NewEvent, error) {
	typ := pick(g.rng, EventTypes)

	var payload any
	switch typ {
	case models.EventLoginSuccess, models.EventLoginFailed:
		success := typ == models.EventLoginSuccess
		payload = models.LoginPayload{
			IP:        g.ip(),
			UserAgent: pick(g.rng, userAgents),
			Location:  pick(g.rng, locations),
			Success:   &success,
		}
	case models.EventPullRequestOpened, models.EventPullRequestMerged:
		payload = models.PullRequestPayload{
			Repo:         pick(g.rng, repos),
			Branch:       pick(g.rng, branches),
			LinesChanged: 5 + g.rng.IntN(496),
		}
	default:
		payload = models.PermissionPayload{
			OldRole:    pick(g.rng, []string{"viewer", "developer"}),
			NewRole:    pick(g.rng, []string{"developer", "admin"}),
			ApprovedBy: pick(g.rng, Users),
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return models.NewEvent{}, fmt.Errorf("marshal %s payload: %w", typ, err)
	}

	return models.NewEvent{
		EventType: typ,
		User:      pick(g.rng, Users),
		RawData:   raw,
		Timestamp: now.Add(-time.Duration(g.rng.IntN(int(Window/time.Minute)+1)) * time.Minute),
	}, nil
}

func (g *Generator) ip() string {
	parts := make([]string, 4)
	for i := range parts {
		parts[i] = fmt.Sprint(1 + g.rng.IntN(254))
	}
	return strings.Join(parts, ".")
}

func pick[T any](rng *rand.Rand, items []T) T {
	return items[rng.IntN(len(items))]
}
