// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

// Package config loads Vigil configuration from defaults, an optional YAML
// file and environment variables, in that order of precedence (last wins).
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Environment variables use flat legacy names (DUCKDB_PATH, HTTP_PORT,
// OPENAI_API_KEY, ...) that envTransformFunc maps onto the nested koanf
// paths. Unmapped variables are ignored.
package config

import (
	"time"
)

// Config is the root configuration.
type Config struct {
	Database   DatabaseConfig   `koanf:"database"`
	Server     ServerConfig     `koanf:"server"`
	API        APIConfig        `koanf:"api"`
	Security   SecurityConfig   `koanf:"security"`
	Logging    LoggingConfig    `koanf:"logging"`
	Detection  DetectionConfig  `koanf:"detection"`
	Enrichment EnrichmentConfig `koanf:"enrichment"`
	AI         AIConfig         `koanf:"ai"`
	NATS       NATSConfig       `koanf:"nats"`
}

// DatabaseConfig holds DuckDB settings. Path ":memory:" opens an in-memory database.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = runtime.NumCPU()
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port    int           `koanf:"port"`
	Host    string        `koanf:"host"`
	Timeout time.Duration `koanf:"timeout"`
}

// APIConfig holds pagination limits for list endpoints.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// SecurityConfig holds CORS and rate limiting settings.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// DetectionConfig holds the detection sweep schedule and rule thresholds.
type DetectionConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Interval time.Duration `koanf:"interval"`

	FailedLoginWindow   time.Duration `koanf:"failed_login_window"`
	FailedLoginCritical int           `koanf:"failed_login_critical"`
	FailedLoginHigh     int           `koanf:"failed_login_high"`
	FailedLoginMedium   int           `koanf:"failed_login_medium"`

	SuspiciousLoginWindow   time.Duration `koanf:"suspicious_login_window"`
	SuspiciousLoginFailures int           `koanf:"suspicious_login_failures"`
	UnusualLocations        []string      `koanf:"unusual_locations"`

	MFAWindow         time.Duration `koanf:"mfa_window"`
	MFAFailuresHigh   int           `koanf:"mfa_failures_high"`
	MFAFailuresMedium int           `koanf:"mfa_failures_medium"`

	AdminScope string `koanf:"admin_scope"`

	LargePRLines  int `koanf:"large_pr_lines"`
	MediumPRLines int `koanf:"medium_pr_lines"`

	MaxEventsPerHour     int           `koanf:"max_events_per_hour"`
	GlobalLoadMultiplier int           `koanf:"global_load_multiplier"`
	GlobalLoadWindow     time.Duration `koanf:"global_load_window"`
}

// EnrichmentConfig holds the enrichment sweep schedule.
type EnrichmentConfig struct {
	Enabled   bool          `koanf:"enabled"`
	Interval  time.Duration `koanf:"interval"`
	BatchSize int           `koanf:"batch_size"`
}

// AIConfig configures the OpenAI-compatible chat completions client.
// An empty APIKey disables AI; every finding then takes the fallback path.
type AIConfig struct {
	APIKey      string        `koanf:"api_key"`
	Model       string        `koanf:"model"`
	BaseURL     string        `koanf:"base_url"`
	Timeout     time.Duration `koanf:"timeout"`
	Temperature float64       `koanf:"temperature"`
	MaxTokens   int           `koanf:"max_tokens"`

	RateLimitPerSecond float64 `koanf:"rate_limit_per_second"`
	RateLimitBurst     int     `koanf:"rate_limit_burst"`

	// CachePath empty keeps the response cache in memory.
	CacheEnabled bool          `koanf:"cache_enabled"`
	CachePath    string        `koanf:"cache_path"`
	CacheTTL     time.Duration `koanf:"cache_ttl"`
}

// NATSConfig holds messaging settings.
type NATSConfig struct {
	Enabled        bool   `koanf:"enabled"`
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	Host           string `koanf:"host"`
	Port           int    `koanf:"port"`
	StoreDir       string `koanf:"store_dir"`
	MaxMemory      int64  `koanf:"max_memory"`
	MaxStore       int64  `koanf:"max_store"`

	FindingsTopic string `koanf:"findings_topic"`

	IngestEnabled bool   `koanf:"ingest_enabled"`
	IngestTopic   string `koanf:"ingest_topic"`
	DurableName   string `koanf:"durable_name"`
	QueueGroup    string `koanf:"queue_group"`
}

// Load loads configuration. See LoadWithKoanf.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
