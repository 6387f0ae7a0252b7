// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/vigil/internal/logging"
	"github.com/tomtom215/vigil/internal/metrics"
	"github.com/tomtom215/vigil/internal/models"
)

// findingNamespace seeds the deterministic message UUIDs of findings.
var findingNamespace = uuid.MustParse("6f0c1a3e-6f0b-4d62-9a53-4a1f6d1a0c11")

// ErrPublisherClosed is returned by NotifyFindings after Close.
var ErrPublisherClosed = errors.New("finding publisher is closed")

// FindingPublisher publishes committed findings to a topic.
// It implements detection.FindingNotifier.
type FindingPublisher struct {
	publisher message.Publisher
	topic     string
	breaker   *gobreaker.CircuitBreaker[any]

	mu     sync.RWMutex
	closed bool
}

// NewFindingPublisher publishes to topic through pub, guarded by a
// circuit breaker.
func NewFindingPublisher(pub message.Publisher, topic string) *FindingPublisher {
	return &FindingPublisher{
		publisher: pub,
		topic:     topic,
		breaker:   NewCircuitBreaker(DefaultCircuitBreakerConfig("nats-findings")),
	}
}

// FindingMessageID returns the message UUID used for a finding. It is
// stable, so JetStream drops republished copies.
func FindingMessageID(findingID int64) string {
	return uuid.NewSHA1(findingNamespace, []byte("finding:"+strconv.FormatInt(findingID, 10))).String()
}

// NotifyFindings publishes every finding. A failure does not stop the
// remaining publishes; all failures are returned joined.
func (p *FindingPublisher) NotifyFindings(ctx context.Context, findings []models.Finding) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}

	var errs []error
	for i := range findings {
		if err := p.publish(ctx, &findings[i]); err != nil {
			errs = append(errs, fmt.Errorf("publish finding %d: %w", findings[i].ID, err))
		}
	}
	return errors.Join(errs...)
}

func (p *FindingPublisher) publish(ctx context.Context, f *models.Finding) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal finding: %w", err)
	}

	msg := message.NewMessage(FindingMessageID(f.ID), data)
	msg.SetContext(ctx)
	msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	msg.Metadata.Set("rule_name", f.RuleName)
	msg.Metadata.Set("severity", string(f.Severity))
	msg.Metadata.Set("event_id", strconv.FormatInt(f.EventID, 10))
	if cid := logging.CorrelationIDFromContext(ctx); cid != "" {
		msg.Metadata.Set("correlation_id", cid)
	}

	_, err = p.breaker.Execute(func() (any, error) {
		return nil, p.publisher.Publish(p.topic, msg)
	})
	if err != nil {
		return err
	}
	metrics.RecordNATSPublish()
	return nil
}

// BreakerState returns the publish circuit breaker state.
func (p *FindingPublisher) BreakerState() gobreaker.State {
	return p.breaker.State()
}

// Close closes the underlying publisher. It is safe to call twice.
func (p *FindingPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}
