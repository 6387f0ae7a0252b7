// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/vigil/config.yaml",
	"/etc/vigil/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:      "/data/vigil.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Server: ServerConfig{
			Port:    8088,
			Host:    "0.0.0.0",
			Timeout: 30 * time.Second,
		},
		API: APIConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Detection: DetectionConfig{
			Enabled:  true,
			Interval: time.Minute,

			FailedLoginWindow:   time.Hour,
			FailedLoginCritical: 8,
			FailedLoginHigh:     5,
			FailedLoginMedium:   3,

			SuspiciousLoginWindow:   30 * time.Minute,
			SuspiciousLoginFailures: 3,
			UnusualLocations:        []string{"Russia", "China", "Other"},

			MFAWindow:         10 * time.Minute,
			MFAFailuresHigh:   5,
			MFAFailuresMedium: 3,

			AdminScope: "admin:*",

			LargePRLines:  400,
			MediumPRLines: 150,

			MaxEventsPerHour:     30,
			GlobalLoadMultiplier: 10,
			GlobalLoadWindow:     time.Hour,
		},
		Enrichment: EnrichmentConfig{
			Enabled:   true,
			Interval:  2 * time.Minute,
			BatchSize: 50,
		},
		AI: AIConfig{
			APIKey:             "", // unset = fallback heuristic only
			Model:              "gpt-4o-mini",
			BaseURL:            "https://api.openai.com/v1",
			Timeout:            20 * time.Second,
			Temperature:        0.2,
			MaxTokens:          300,
			RateLimitPerSecond: 2,
			RateLimitBurst:     4,
			CacheEnabled:       true,
			CachePath:          "",
			CacheTTL:           24 * time.Hour,
		},
		NATS: NATSConfig{
			Enabled:        false,
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: true,
			Host:           "127.0.0.1",
			Port:           4222,
			StoreDir:       "/data/nats/jetstream",
			MaxMemory:      256 << 20, // 256MB
			MaxStore:       1 << 30,   // 1GB
			FindingsTopic:  "vigil.findings.created",
			IngestEnabled:  false,
			IngestTopic:    "vigil.events.ingest",
			DurableName:    "vigil-ingest",
			QueueGroup:     "vigil-ingesters",
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// DUCKDB_PATH -> database.path, OPENAI_API_KEY -> ai.api_key
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "" if none.
// CONFIG_PATH takes precedence over DefaultConfigPaths.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
	"detection.unusual_locations",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings; YAML lists are left alone.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
var envMappings = map[string]string{
	// Database
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	// Server
	"http_port":    "server.port",
	"http_host":    "server.host",
	"http_timeout": "server.timeout",

	// API
	"api_default_page_size": "api.default_page_size",
	"api_max_page_size":     "api.max_page_size",

	// Security
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Detection
	"detection_enabled":                 "detection.enabled",
	"detection_interval":                "detection.interval",
	"detection_failed_login_window":     "detection.failed_login_window",
	"detection_failed_login_critical":   "detection.failed_login_critical",
	"detection_failed_login_high":       "detection.failed_login_high",
	"detection_failed_login_medium":     "detection.failed_login_medium",
	"detection_suspicious_login_window": "detection.suspicious_login_window",
	"detection_suspicious_failures":     "detection.suspicious_login_failures",
	"detection_unusual_locations":       "detection.unusual_locations",
	"detection_mfa_window":              "detection.mfa_window",
	"detection_mfa_failures_high":       "detection.mfa_failures_high",
	"detection_mfa_failures_medium":     "detection.mfa_failures_medium",
	"detection_admin_scope":             "detection.admin_scope",
	"detection_large_pr_lines":          "detection.large_pr_lines",
	"detection_medium_pr_lines":         "detection.medium_pr_lines",
	"max_events_per_hour":               "detection.max_events_per_hour",
	"detection_global_load_multiplier":  "detection.global_load_multiplier",
	"detection_global_load_window":      "detection.global_load_window",

	// Enrichment
	"enrichment_enabled":    "enrichment.enabled",
	"enrichment_interval":   "enrichment.interval",
	"enrichment_batch_size": "enrichment.batch_size",

	// AI
	"openai_api_key":      "ai.api_key",
	"openai_model":        "ai.model",
	"openai_base_url":     "ai.base_url",
	"ai_timeout":          "ai.timeout",
	"ai_temperature":      "ai.temperature",
	"ai_max_tokens":       "ai.max_tokens",
	"ai_rate_limit":       "ai.rate_limit_per_second",
	"ai_rate_limit_burst": "ai.rate_limit_burst",
	"ai_cache_enabled":    "ai.cache_enabled",
	"ai_cache_path":       "ai.cache_path",
	"ai_cache_ttl":        "ai.cache_ttl",

	// NATS
	"nats_enabled":        "nats.enabled",
	"nats_url":            "nats.url",
	"nats_embedded":       "nats.embedded_server",
	"nats_host":           "nats.host",
	"nats_port":           "nats.port",
	"nats_store_dir":      "nats.store_dir",
	"nats_max_memory":     "nats.max_memory",
	"nats_max_store":      "nats.max_store",
	"nats_findings_topic": "nats.findings_topic",
	"nats_ingest_enabled": "nats.ingest_enabled",
	"nats_ingest_topic":   "nats.ingest_topic",
	"nats_durable_name":   "nats.durable_name",
	"nats_queue_group":    "nats.queue_group",
}

// envTransformFunc maps an environment variable name to a koanf path.
// Returning "" tells koanf to skip the variable.
//
// Examples:
//   - DUCKDB_PATH -> database.path
//   - HTTP_PORT -> server.port
//   - OPENAI_API_KEY -> ai.api_key
func envTransformFunc(key string) string {
	if path, ok := envMappings[strings.ToLower(key)]; ok {
		return path
	}
	return ""
}
