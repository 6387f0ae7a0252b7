// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package ai

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/vigil/internal/config"
	"github.com/tomtom215/vigil/internal/logging"
	"github.com/tomtom215/vigil/internal/metrics"
)

// ResilientConfig bounds calls to the wrapped client.
type ResilientConfig struct {
	Name string

	// Timeout applies per call and includes the rate limiter wait.
	Timeout time.Duration

	RatePerSecond float64
	Burst         int

	// The breaker opens after FailureThreshold consecutive failures and
	// probes again after OpenTimeout.
	FailureThreshold uint32
	OpenTimeout      time.Duration
	HalfOpenRequests uint32
}

// DefaultResilientConfig returns the stock limits.
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		Name:             "ai-completions",
		Timeout:          20 * time.Second,
		RatePerSecond:    2,
		Burst:            4,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
		HalfOpenRequests: 1,
	}
}

// ResilientConfigFrom applies the ai config section over the defaults.
func ResilientConfigFrom(cfg *config.AIConfig) ResilientConfig {
	rc := DefaultResilientConfig()
	if cfg.Timeout > 0 {
		rc.Timeout = cfg.Timeout
	}
	if cfg.RateLimitPerSecond > 0 {
		rc.RatePerSecond = cfg.RateLimitPerSecond
	}
	if cfg.RateLimitBurst > 0 {
		rc.Burst = cfg.RateLimitBurst
	}
	return rc
}

// ResilientClient adds a rate limit, a per-call timeout and a circuit
// breaker to another Client. It never retries.
type ResilientClient struct {
	next    Client
	name    string
	timeout time.Duration
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[string]
}

// NewResilientClient wraps next.
func NewResilientClient(next Client, cfg ResilientConfig) *ResilientClient {
	def := DefaultResilientConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.HalfOpenRequests == 0 {
		cfg.HalfOpenRequests = def.HalfOpenRequests
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}

	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(0)

	threshold := cfg.FailureThreshold
	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			// The caller giving up says nothing about the upstream.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("[CIRCUIT BREAKER] State transition")
			metrics.RecordCircuitBreakerTransition(name, from.String(), to.String(), stateToFloat(to))
		},
	})

	return &ResilientClient{
		next:    next,
		name:    cfg.Name,
		timeout: cfg.Timeout,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		cb:      cb,
	}
}

// Complete waits for a rate token and calls the wrapped client through the
// breaker, all within the configured timeout.
func (r *ResilientClient) Complete(ctx context.Context, p Prompt) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	if err := r.limiter.Wait(ctx); err != nil {
		metrics.RecordAIRequest("rate_limited")
		return "", callFailed("rate limiter", err)
	}

	out, err := r.cb.Execute(func() (string, error) {
		return r.next.Complete(ctx, p)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordCircuitBreakerRequest(r.name, "rejected")
			metrics.RecordAIRequest("rejected")
			return "", callFailed("circuit open", err)
		}
		metrics.RecordCircuitBreakerRequest(r.name, "failure")
		if errors.Is(err, context.DeadlineExceeded) {
			metrics.RecordAIRequest("timeout")
		} else {
			metrics.RecordAIRequest("error")
		}
		if errors.Is(err, ErrCallFailed) {
			return "", err
		}
		return "", callFailed("completion", err)
	}

	metrics.RecordCircuitBreakerRequest(r.name, "success")
	metrics.RecordAIRequest("success")
	return out, nil
}

// State reports the breaker state.
func (r *ResilientClient) State() gobreaker.State {
	return r.cb.State()
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
