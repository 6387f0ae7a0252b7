// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package eventprocessor

import (
	"time"

	"github.com/tomtom215/vigil/internal/config"
)

// ServerConfig holds embedded NATS server configuration.
type ServerConfig struct {
	Host              string
	Port              int // -1 picks a random free port
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
}

// ServerConfigFrom converts the loaded nats section.
func ServerConfigFrom(cfg *config.NATSConfig) ServerConfig {
	return ServerConfig{
		Host:              cfg.Host,
		Port:              cfg.Port,
		StoreDir:          cfg.StoreDir,
		JetStreamMaxMem:   cfg.MaxMemory,
		JetStreamMaxStore: cfg.MaxStore,
	}
}

// PublisherConfig holds publisher configuration.
type PublisherConfig struct {
	URL              string
	MaxReconnects    int
	ReconnectWait    time.Duration
	ReconnectBuffer  int
	EnableTrackMsgID bool // nolint:revive // ID is correct per Go conventions
}

// DefaultPublisherConfig returns production defaults for publisher.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:              url,
		MaxReconnects:    -1, // Unlimited
		ReconnectWait:    2 * time.Second,
		ReconnectBuffer:  8 * 1024 * 1024,
		EnableTrackMsgID: true,
	}
}

// SubscriberConfig holds subscriber configuration.
type SubscriberConfig struct {
	URL              string
	DurableName      string
	QueueGroup       string
	SubscribersCount int
	AckWaitTimeout   time.Duration
	MaxDeliver       int
	MaxAckPending    int
	CloseTimeout     time.Duration
	MaxReconnects    int
	ReconnectWait    time.Duration
	// StreamName binds the consumer to an existing stream instead of
	// provisioning one named after the topic.
	StreamName string
}

// DefaultSubscriberConfig returns production defaults for the ingest subscriber.
func DefaultSubscriberConfig(url string) SubscriberConfig {
	return SubscriberConfig{
		URL:              url,
		DurableName:      "vigil-ingest",
		QueueGroup:       "vigil-ingesters",
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		MaxDeliver:       5,
		MaxAckPending:    1000,
		CloseTimeout:     30 * time.Second,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
		StreamName:       DefaultStreamName,
	}
}

// SubscriberConfigFrom applies the nats section to the subscriber defaults.
func SubscriberConfigFrom(url string, cfg *config.NATSConfig) SubscriberConfig {
	out := DefaultSubscriberConfig(url)
	if cfg.DurableName != "" {
		out.DurableName = cfg.DurableName
	}
	if cfg.QueueGroup != "" {
		out.QueueGroup = cfg.QueueGroup
	}
	return out
}

// DefaultStreamName is the JetStream stream holding every Vigil subject.
const DefaultStreamName = "VIGIL"

// StreamConfig defines the JetStream stream settings.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	MaxBytes        int64
	DuplicateWindow time.Duration
}

// DefaultStreamConfig returns a stream over vigil.> kept for a week.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Name:            DefaultStreamName,
		Subjects:        []string{"vigil.>"},
		MaxAge:          7 * 24 * time.Hour,
		MaxBytes:        -1,
		DuplicateWindow: 2 * time.Minute,
	}
}

// StreamConfigFrom returns the default stream extended with any configured
// topic that falls outside vigil.>.
func StreamConfigFrom(cfg *config.NATSConfig) StreamConfig {
	out := DefaultStreamConfig()
	for _, topic := range []string{cfg.FindingsTopic, cfg.IngestTopic} {
		if topic == "" || subjectCovered(out.Subjects, topic) {
			continue
		}
		out.Subjects = append(out.Subjects, topic)
	}
	return out
}

// subjectCovered reports whether subject is matched by one of the patterns.
// Only literal subjects and trailing ">" wildcards are considered.
func subjectCovered(patterns []string, subject string) bool {
	for _, p := range patterns {
		if p == subject {
			return true
		}
		if n := len(p); n >= 2 && p[n-1] == '>' && p[n-2] == '.' {
			prefix := p[:n-1]
			if len(subject) > len(prefix) && subject[:len(prefix)] == prefix {
				return true
			}
		}
	}
	return false
}

// CircuitBreakerConfig configures the publish circuit breaker.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultCircuitBreakerConfig returns production defaults for the named breaker.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}
