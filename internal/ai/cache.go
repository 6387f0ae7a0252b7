// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/vigil/internal/logging"
	"github.com/tomtom215/vigil/internal/metrics"
)

const cacheKeyPrefix = "ai_completion:"

// CacheConfig configures CachedClient.
type CacheConfig struct {
	// Model is part of the key so switching models never serves stale text.
	Model string
	// Path empty keeps the cache in memory.
	Path string
	TTL  time.Duration
}

// CachedClient memoizes successful completions in BadgerDB.
// Cache failures degrade to a direct call.
type CachedClient struct {
	next  Client
	db    *badger.DB
	model string
	ttl   time.Duration
}

// NewCachedClient opens the cache and wraps next.
func NewCachedClient(next Client, cfg CacheConfig) (*CachedClient, error) {
	var opts badger.Options
	if cfg.Path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return newCachedClient(next, db, cfg), nil
}

func newCachedClient(next Client, db *badger.DB, cfg CacheConfig) *CachedClient {
	return &CachedClient{next: next, db: db, model: cfg.Model, ttl: cfg.TTL}
}

func (c *CachedClient) key(p Prompt) []byte {
	h := sha256.New()
	h.Write([]byte(c.model))
	h.Write([]byte{0})
	h.Write([]byte(p.System))
	h.Write([]byte{0})
	h.Write([]byte(p.User))
	return []byte(cacheKeyPrefix + hex.EncodeToString(h.Sum(nil)))
}

// Complete serves a cached completion or calls the wrapped client and
// caches its successful answer.
func (c *CachedClient) Complete(ctx context.Context, p Prompt) (string, error) {
	key := c.key(p)

	if cached, ok := c.get(key); ok {
		metrics.RecordAICache(true)
		return cached, nil
	}
	metrics.RecordAICache(false)

	out, err := c.next.Complete(ctx, p)
	if err != nil {
		return "", err
	}
	c.set(key, out)
	return out, nil
}

func (c *CachedClient) get(key []byte) (string, bool) {
	var val []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false
	}
	if err != nil {
		logging.Warn().Err(err).Msg("AI cache read failed")
		return "", false
	}
	return string(val), true
}

func (c *CachedClient) set(key []byte, val string) {
	err := c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key, []byte(val))
		if c.ttl > 0 {
			entry = entry.WithTTL(c.ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		logging.Warn().Err(err).Msg("AI cache write failed")
	}
}

// Close closes the cache.
func (c *CachedClient) Close() error {
	return c.db.Close()
}
