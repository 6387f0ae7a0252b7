// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package enrichment

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tomtom215/vigil/internal/ai"
	"github.com/tomtom215/vigil/internal/models"
)

// memFindings implements FindingStore in memory.
type memFindings struct {
	mu       sync.Mutex
	findings map[int64]models.Finding

	upsertErr   error
	batchWrites int
}

func newMemFindings(fs ...models.Finding) *memFindings {
	m := &memFindings{findings: make(map[int64]models.Finding)}
	for _, f := range fs {
		m.findings[f.ID] = f
	}
	return m
}

func (m *memFindings) GetFinding(_ context.Context, id int64) (*models.Finding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.findings[id]
	if !ok {
		return nil, fmt.Errorf("finding %d: %w", id, models.ErrNotFound)
	}
	return &f, nil
}

func (m *memFindings) FetchFindingsMissingEnrichment(_ context.Context, limit int) ([]models.Finding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Finding{}
	for _, f := range m.findings {
		if !f.Enriched() {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memFindings) UpsertFinding(_ context.Context, f *models.Finding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	if _, ok := m.findings[f.ID]; !ok {
		return fmt.Errorf("finding %d: %w", f.ID, models.ErrNotFound)
	}
	m.findings[f.ID] = *f
	return nil
}

func (m *memFindings) UpsertFindings(_ context.Context, fs []models.Finding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	for _, f := range fs {
		if _, ok := m.findings[f.ID]; !ok {
			return fmt.Errorf("finding %d: %w", f.ID, models.ErrNotFound)
		}
	}
	for _, f := range fs {
		m.findings[f.ID] = f
	}
	m.batchWrites++
	return nil
}

func (m *memFindings) get(id int64) models.Finding {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findings[id]
}

// scriptedClient returns reply (or err) and records every prompt.
type scriptedClient struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []ai.Prompt
	// byRule overrides reply when the prompt mentions the rule name.
	byRule map[string]string
}

func (c *scriptedClient) Complete(_ context.Context, p ai.Prompt) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, p)
	if c.err != nil {
		return "", c.err
	}
	for rule, reply := range c.byRule {
		if strings.Contains(p.User, `"rule_name": "`+rule+`"`) {
			return reply, nil
		}
	}
	return c.reply, nil
}

func (c *scriptedClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prompts)
}

func finding(id int64, rule string, sev models.Severity, desc string) models.Finding {
	return models.Finding{
		ID:          id,
		EventID:     id * 10,
		RuleName:    rule,
		Severity:    sev,
		Description: desc,
		User:        "Alice",
	}
}

func (m *memFindings) add(f models.Finding) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findings[f.ID] = f
}
