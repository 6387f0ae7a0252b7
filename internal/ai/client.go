// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

// Package ai provides the chat-completion client used to score findings.
//
// The production client is a stack of decorators:
//
//	CachedClient -> ResilientClient -> OpenAIClient
//
// Every failure, whatever its cause, is reported as an error wrapping
// ErrCallFailed so callers need a single check to fall back.
package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/vigil/internal/config"
	"github.com/tomtom215/vigil/internal/logging"
)

var (
	// ErrCallFailed wraps every AI client failure.
	ErrCallFailed = errors.New("ai call failed")

	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = fmt.Errorf("%w: no API key configured", ErrCallFailed)
)

// Prompt is one chat completion request.
type Prompt struct {
	System string
	User   string
}

// Client completes prompts.
type Client interface {
	// Complete returns the assistant message content. Errors wrap ErrCallFailed.
	Complete(ctx context.Context, p Prompt) (string, error)
}

// Unconfigured is the client used when AI is disabled.
type Unconfigured struct{}

// Complete always fails with ErrNotConfigured.
func (Unconfigured) Complete(context.Context, Prompt) (string, error) {
	return "", ErrNotConfigured
}

// callFailed wraps cause with ErrCallFailed.
func callFailed(op string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", ErrCallFailed, op)
	}
	return fmt.Errorf("%w: %s: %w", ErrCallFailed, op, cause)
}

// New builds the client stack for cfg. Without an API key it returns
// Unconfigured. The returned client implements io.Closer when it owns a
// response cache.
func New(cfg *config.AIConfig) (Client, error) {
	if cfg.APIKey == "" {
		logging.Info().Msg("AI API key not set, enrichment will use the fallback heuristic")
		return Unconfigured{}, nil
	}

	var client Client = NewResilientClient(NewOpenAIClient(cfg), ResilientConfigFrom(cfg))

	if cfg.CacheEnabled {
		cached, err := NewCachedClient(client, CacheConfig{
			Model: cfg.Model,
			Path:  cfg.CachePath,
			TTL:   cfg.CacheTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open AI response cache: %w", err)
		}
		client = cached
	}

	logging.Info().
		Str("model", cfg.Model).
		Str("base_url", cfg.BaseURL).
		Bool("cache", cfg.CacheEnabled).
		Msg("AI client configured")
	return client, nil
}
