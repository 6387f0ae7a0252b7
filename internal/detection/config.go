// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package detection

import (
	"time"

	"github.com/tomtom215/vigil/internal/config"
)

// Config holds every threshold, window and location set the rules use.
type Config struct {
	// Interval between scheduled sweeps.
	Interval time.Duration

	FailedLoginWindow   time.Duration
	FailedLoginCritical int
	FailedLoginHigh     int
	FailedLoginMedium   int

	SuspiciousLoginWindow   time.Duration
	SuspiciousLoginFailures int
	UnusualLocations        []string

	MFAWindow         time.Duration
	MFAFailuresHigh   int
	MFAFailuresMedium int

	// AdminScope is the token scope that marks an admin token.
	AdminScope string

	LargePRLines  int
	MediumPRLines int

	MaxEventsPerHour     int
	GlobalLoadMultiplier int
	GlobalLoadWindow     time.Duration
}

// DefaultConfig returns the stock rule thresholds.
func DefaultConfig() Config {
	return Config{
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
	}
}

// ConfigFrom converts the loaded configuration section.
func ConfigFrom(c *config.DetectionConfig) Config {
	locations := make([]string, len(c.UnusualLocations))
	copy(locations, c.UnusualLocations)
	return Config{
		Interval:                c.Interval,
		FailedLoginWindow:       c.FailedLoginWindow,
		FailedLoginCritical:     c.FailedLoginCritical,
		FailedLoginHigh:         c.FailedLoginHigh,
		FailedLoginMedium:       c.FailedLoginMedium,
		SuspiciousLoginWindow:   c.SuspiciousLoginWindow,
		SuspiciousLoginFailures: c.SuspiciousLoginFailures,
		UnusualLocations:        locations,
		MFAWindow:               c.MFAWindow,
		MFAFailuresHigh:         c.MFAFailuresHigh,
		MFAFailuresMedium:       c.MFAFailuresMedium,
		AdminScope:              c.AdminScope,
		LargePRLines:            c.LargePRLines,
		MediumPRLines:           c.MediumPRLines,
		MaxEventsPerHour:        c.MaxEventsPerHour,
		GlobalLoadMultiplier:    c.GlobalLoadMultiplier,
		GlobalLoadWindow:        c.GlobalLoadWindow,
	}
}
