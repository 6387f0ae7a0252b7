// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package detection

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/vigil/internal/models"
)

// memStore implements Store in memory with the same window semantics as the
// DuckDB store.
type memStore struct {
	mu       sync.Mutex
	events   []models.SourceEvent
	findings []models.Finding
	nextID   int64

	fetchErr   error
	countErr   error
	processErr error
	// stealIDs are claimed by "another writer" before ProcessEvent runs.
	stealIDs map[int64]bool
}

func newMemStore() *memStore {
	return &memStore{stealIDs: make(map[int64]bool)}
}

func (m *memStore) add(typ models.EventType, user string, ts time.Time, raw string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	ev := models.SourceEvent{ID: m.nextID, EventType: typ, User: user, Timestamp: ts.UTC()}
	if raw != "" {
		ev.RawData = []byte(raw)
	}
	m.events = append(m.events, ev)
	return ev.ID
}

func (m *memStore) FetchUnprocessedEvents(ctx context.Context) ([]models.SourceEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	var out []models.SourceEvent
	for _, ev := range m.events {
		if !ev.Processed {
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (m *memStore) CountEvents(ctx context.Context, q models.CountQuery) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.countErr != nil {
		return 0, m.countErr
	}
	n := 0
	for _, ev := range m.events {
		if q.User != "" && ev.User != q.User {
			continue
		}
		if q.EventType != "" && ev.EventType != q.EventType {
			continue
		}
		if ev.Timestamp.Before(q.Since) {
			continue
		}
		if !q.Until.IsZero() && ev.Timestamp.After(q.Until) {
			continue
		}
		if q.ThroughID > 0 && ev.Timestamp.Equal(q.Until) && ev.ID > q.ThroughID {
			continue
		}
		n++
	}
	return n, nil
}

func (m *memStore) ProcessEvent(ctx context.Context, eventID int64, findings []models.Finding) ([]models.Finding, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processErr != nil {
		return nil, false, m.processErr
	}
	for i := range m.events {
		if m.events[i].ID != eventID {
			continue
		}
		if m.stealIDs[eventID] {
			m.events[i].Processed = true
		}
		if m.events[i].Processed {
			return nil, false, nil
		}
		m.events[i].Processed = true
		stored := make([]models.Finding, 0, len(findings))
		for _, f := range findings {
			f.ID = int64(len(m.findings) + 1)
			f.EventID = eventID
			f.CreatedAt = time.Now().UTC()
			m.findings = append(m.findings, f)
			stored = append(stored, f)
		}
		return stored, true, nil
	}
	return nil, false, nil
}

func (m *memStore) allFindings() []models.Finding {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Finding, len(m.findings))
	copy(out, m.findings)
	return out
}

func (m *memStore) ruleNames() []string {
	var names []string
	for _, f := range m.allFindings() {
		names = append(names, f.RuleName)
	}
	return names
}

// recordingNotifier captures notified findings.
type recordingNotifier struct {
	mu       sync.Mutex
	findings []models.Finding
	err      error
}

func (r *recordingNotifier) NotifyFindings(ctx context.Context, findings []models.Finding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findings = append(r.findings, findings...)
	return r.err
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.findings)
}
