// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/vigil/internal/config"
	"github.com/tomtom215/vigil/internal/middleware"
)

// RouterConfig holds CORS and rate limiting settings for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	CORSMaxAge         int // seconds

	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitDisabled bool
}

// DefaultRouterConfig allows no cross-origin callers and 100 requests per
// minute per client IP.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CORSAllowedOrigins: []string{},
		CORSMaxAge:         86400,
		RateLimitRequests:  100,
		RateLimitWindow:    time.Minute,
	}
}

// RouterConfigFrom maps the security section of the configuration.
func RouterConfigFrom(sec *config.SecurityConfig) RouterConfig {
	rc := DefaultRouterConfig()
	if sec == nil {
		return rc
	}
	if sec.CORSOrigins != nil {
		rc.CORSAllowedOrigins = sec.CORSOrigins
	}
	if sec.RateLimitReqs > 0 {
		rc.RateLimitRequests = sec.RateLimitReqs
	}
	if sec.RateLimitWindow > 0 {
		rc.RateLimitWindow = sec.RateLimitWindow
	}
	rc.RateLimitDisabled = sec.RateLimitDisabled
	return rc
}

func (rc RouterConfig) corsHandler() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: rc.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         rc.CORSMaxAge,
	})
}

func (rc RouterConfig) rateLimit() func(http.Handler) http.Handler {
	if rc.RateLimitDisabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		rc.RateLimitRequests,
		rc.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			respondError(w, http.StatusTooManyRequests, ErrCodeInvalidRequest, "Rate limit exceeded", nil)
		}),
	)
}

// NewRouter builds the HTTP handler for h.
func NewRouter(h *Handler, rc RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(rc.corsHandler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, ErrCodeInvalidRequest, "Method not allowed", nil)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rc.rateLimit())
		r.Use(middleware.PrometheusMetrics)

		r.Get("/health", h.Health)

		r.Route("/events", func(r chi.Router) {
			r.Post("/", h.CreateEvents)
			r.Get("/", h.ListEvents)
			r.Get("/{id}", h.GetEvent)
		})

		r.Route("/findings", func(r chi.Router) {
			r.Get("/", h.ListFindings)
			r.Post("/enrich", h.EnrichMissing)
			r.Get("/{id}", h.GetFinding)
			r.Post("/{id}/enrich", h.EnrichFinding)
		})

		r.Post("/detection/sweep", h.RunDetectionSweep)
		r.Get("/stats/summary", h.StatsSummary)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
