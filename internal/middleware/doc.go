// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

/*
Package middleware provides HTTP middleware shared by the Vigil API.

Key Components:

  - RequestID: accepts or generates an X-Request-ID and seeds the logging
    context with request and correlation ids
  - PrometheusMetrics: request counts, durations and in-flight gauge

Both are chi-compatible (func(http.Handler) http.Handler):

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Route("/api/v1", func(r chi.Router) {
	    r.Use(middleware.PrometheusMetrics)
	    r.Get("/findings", h.ListFindings)
	})

The endpoint label on API metrics is the chi route pattern
("/api/v1/findings/{id}"), not the raw path, so ids do not create new series.
*/
package middleware
