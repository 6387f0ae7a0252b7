// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package config

import (
	"fmt"
	"strings"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateAPI(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	if err := c.validateDetection(); err != nil {
		return err
	}

	if err := c.validateEnrichment(); err != nil {
		return err
	}

	if err := c.validateAI(); err != nil {
		return err
	}

	if err := c.validateNATS(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH must not be empty")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must be >= 0, got %d", c.Database.Threads)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %v", c.Server.Timeout)
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.DefaultPageSize < 1 {
		return fmt.Errorf("API_DEFAULT_PAGE_SIZE must be at least 1, got %d", c.API.DefaultPageSize)
	}
	if c.API.MaxPageSize < c.API.DefaultPageSize {
		return fmt.Errorf("API_MAX_PAGE_SIZE (%d) must be >= API_DEFAULT_PAGE_SIZE (%d)",
			c.API.MaxPageSize, c.API.DefaultPageSize)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1, got %d", c.Security.RateLimitReqs)
	}
	if c.Security.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %v", c.Security.RateLimitWindow)
	}
	return nil
}

// validateDetection checks the sweep interval and that each threshold ladder
// is ordered critical >= high >= medium >= 1.
func (c *Config) validateDetection() error {
	d := &c.Detection
	if d.Enabled && d.Interval <= 0 {
		return fmt.Errorf("DETECTION_INTERVAL must be positive when detection is enabled, got %v", d.Interval)
	}

	if d.FailedLoginMedium < 1 || d.FailedLoginHigh < d.FailedLoginMedium || d.FailedLoginCritical < d.FailedLoginHigh {
		return fmt.Errorf("failed login thresholds must satisfy critical >= high >= medium >= 1, got %d/%d/%d",
			d.FailedLoginCritical, d.FailedLoginHigh, d.FailedLoginMedium)
	}
	if d.MFAFailuresMedium < 1 || d.MFAFailuresHigh < d.MFAFailuresMedium {
		return fmt.Errorf("MFA thresholds must satisfy high >= medium >= 1, got %d/%d",
			d.MFAFailuresHigh, d.MFAFailuresMedium)
	}
	if d.SuspiciousLoginFailures < 1 {
		return fmt.Errorf("DETECTION_SUSPICIOUS_FAILURES must be at least 1, got %d", d.SuspiciousLoginFailures)
	}
	if d.MediumPRLines < 0 || d.LargePRLines < d.MediumPRLines {
		return fmt.Errorf("PR line thresholds must satisfy large >= medium >= 0, got %d/%d",
			d.LargePRLines, d.MediumPRLines)
	}
	if d.MaxEventsPerHour < 1 || d.GlobalLoadMultiplier < 1 {
		return fmt.Errorf("MAX_EVENTS_PER_HOUR and DETECTION_GLOBAL_LOAD_MULTIPLIER must be at least 1")
	}
	for name, w := range map[string]int64{
		"failed_login_window":     int64(d.FailedLoginWindow),
		"suspicious_login_window": int64(d.SuspiciousLoginWindow),
		"mfa_window":              int64(d.MFAWindow),
		"global_load_window":      int64(d.GlobalLoadWindow),
	} {
		if w <= 0 {
			return fmt.Errorf("detection.%s must be positive", name)
		}
	}
	if d.AdminScope == "" {
		return fmt.Errorf("DETECTION_ADMIN_SCOPE must not be empty")
	}
	return nil
}

func (c *Config) validateEnrichment() error {
	if c.Enrichment.Enabled && c.Enrichment.Interval <= 0 {
		return fmt.Errorf("ENRICHMENT_INTERVAL must be positive when enrichment is enabled, got %v", c.Enrichment.Interval)
	}
	if c.Enrichment.BatchSize < 1 {
		return fmt.Errorf("ENRICHMENT_BATCH_SIZE must be at least 1, got %d", c.Enrichment.BatchSize)
	}
	return nil
}

func (c *Config) validateAI() error {
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		return fmt.Errorf("AI_TEMPERATURE must be between 0 and 2, got %v", c.AI.Temperature)
	}
	if c.AI.APIKey == "" {
		return nil // fallback-only mode
	}
	if c.AI.Model == "" {
		return fmt.Errorf("OPENAI_MODEL is required when OPENAI_API_KEY is set")
	}
	if !strings.HasPrefix(c.AI.BaseURL, "http://") && !strings.HasPrefix(c.AI.BaseURL, "https://") {
		return fmt.Errorf("OPENAI_BASE_URL must start with http:// or https://, got %q", c.AI.BaseURL)
	}
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI_TIMEOUT must be positive, got %v", c.AI.Timeout)
	}
	if c.AI.RateLimitPerSecond <= 0 || c.AI.RateLimitBurst < 1 {
		return fmt.Errorf("AI_RATE_LIMIT must be positive and AI_RATE_LIMIT_BURST at least 1")
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if c.NATS.URL == "" {
		return fmt.Errorf("NATS_URL is required when NATS_ENABLED=true")
	}
	if c.NATS.EmbeddedServer && (c.NATS.Port < 1 || c.NATS.Port > 65535) {
		return fmt.Errorf("NATS_PORT must be between 1 and 65535, got %d", c.NATS.Port)
	}
	if c.NATS.FindingsTopic == "" {
		return fmt.Errorf("NATS_FINDINGS_TOPIC must not be empty")
	}
	if c.NATS.IngestEnabled && c.NATS.IngestTopic == "" {
		return fmt.Errorf("NATS_INGEST_TOPIC is required when NATS_INGEST_ENABLED=true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error; got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
