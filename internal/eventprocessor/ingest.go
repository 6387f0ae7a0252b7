// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/vigil/internal/logging"
	"github.com/tomtom215/vigil/internal/metrics"
	"github.com/tomtom215/vigil/internal/models"
	"github.com/tomtom215/vigil/internal/validation"
)

// Ingest outcomes, also used as metric labels.
const (
	IngestAccepted = "accepted"
	IngestRejected = "rejected"
	IngestFailed   = "error"
)

// IngestMessage is the JSON body of an ingest message. A missing
// timestamp means "now".
type IngestMessage struct {
	EventType models.EventType `json:"event_type"`
	User      string           `json:"user"`
	Timestamp *time.Time       `json:"timestamp,omitempty"`
	RawData   json.RawMessage  `json:"raw_data,omitempty"`
}

// NewEvent converts the message to an insert request.
func (m *IngestMessage) NewEvent() models.NewEvent {
	ev := models.NewEvent{
		EventType: m.EventType,
		User:      m.User,
		RawData:   []byte(m.RawData),
	}
	if m.Timestamp != nil {
		ev.Timestamp = m.Timestamp.UTC()
	}
	return ev
}

// EventWriter stores ingested events.
type EventWriter interface {
	InsertEvent(ctx context.Context, ev *models.NewEvent) (int64, error)
}

// errRejected marks input that can never be stored.
var errRejected = errors.New("ingest message rejected")

// IngestConsumer stores events received on a topic.
type IngestConsumer struct {
	subscriber message.Subscriber
	topic      string
	writer     EventWriter
}

// NewIngestConsumer consumes topic from sub and writes through w.
func NewIngestConsumer(sub message.Subscriber, topic string, w EventWriter) *IngestConsumer {
	return &IngestConsumer{subscriber: sub, topic: topic, writer: w}
}

// Run consumes until ctx is canceled or the subscription channel closes.
func (c *IngestConsumer) Run(ctx context.Context) error {
	messages, err := c.subscriber.Subscribe(ctx, c.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", c.topic, err)
	}
	logging.Info().Str("topic", c.topic).Msg("Ingest consumer started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("subscription to %s closed", c.topic)
			}
			c.handle(ctx, msg)
		}
	}
}

// handle acks stored and permanently invalid messages and nacks the rest.
func (c *IngestConsumer) handle(ctx context.Context, msg *message.Message) {
	id, err := c.process(ctx, msg)
	logger := logging.Ctx(ctx).With().Str("message_uuid", msg.UUID).Logger()

	switch {
	case err == nil:
		metrics.RecordNATSIngest(IngestAccepted)
		logger.Debug().Int64("event_id", id).Msg("Ingested event")
		msg.Ack()
	case errors.Is(err, errRejected):
		metrics.RecordNATSIngest(IngestRejected)
		logger.Warn().Err(err).Msg("Rejected ingest message")
		msg.Ack()
	default:
		metrics.RecordNATSIngest(IngestFailed)
		logger.Error().Err(err).Msg("Failed to store ingested event")
		msg.Nack()
	}
}

func (c *IngestConsumer) process(ctx context.Context, msg *message.Message) (int64, error) {
	var in IngestMessage
	if err := json.Unmarshal(msg.Payload, &in); err != nil {
		return 0, fmt.Errorf("%w: decode: %w", errRejected, err)
	}

	ev := in.NewEvent()
	if verr := validation.ValidateEvent(&ev); verr != nil {
		return 0, fmt.Errorf("%w: %w", errRejected, verr)
	}

	id, err := c.writer.InsertEvent(ctx, &ev)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	return id, nil
}
