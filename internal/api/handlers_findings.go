// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/vigil/internal/enrichment"
	"github.com/tomtom215/vigil/internal/models"
)

// maxEnrichLimit bounds one on-demand enrichment batch.
const maxEnrichLimit = 1000

// ListFindings returns one page of findings, newest first.
func (h *Handler) ListFindings(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	from, err := getTimeParam(r, "from")
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error(), nil)
		return
	}
	to, err := getTimeParam(r, "to")
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error(), nil)
		return
	}
	enriched, err := getBoolParam(r, "enriched")
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error(), nil)
		return
	}

	filter := models.FindingFilter{
		Page:     getIntParam(r, "page", 1),
		PageSize: getIntParam(r, "page_size", h.cfg.DefaultPageSize),
		Severity: models.Severity(r.URL.Query().Get("severity")),
		User:     r.URL.Query().Get("user"),
		RuleName: r.URL.Query().Get("rule_name"),
		From:     from,
		To:       to,
		Enriched: enriched,
	}
	if apiErr := validateRequest(&filter); apiErr != nil {
		respondErrorDetails(w, http.StatusBadRequest, apiErr, nil)
		return
	}
	if filter.PageSize > h.cfg.MaxPageSize {
		respondError(w, http.StatusBadRequest, ErrCodeValidation,
			fmt.Sprintf("page_size must be at most %d", h.cfg.MaxPageSize), nil)
		return
	}

	page, err := h.store.ListFindings(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeDatabase, "Failed to list findings", err)
		return
	}
	respondSuccess(w, http.StatusOK, page, start)
}

// GetFinding returns one finding.
func (h *Handler) GetFinding(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, err := idParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error(), nil)
		return
	}

	f, err := h.store.GetFinding(r.Context(), id)
	if err != nil {
		respondLookupError(w, ErrCodeDatabase, fmt.Sprintf("finding %d", id), err)
		return
	}
	respondSuccess(w, http.StatusOK, f, start)
}

// EnrichFinding scores one finding now, overwriting any previous enrichment.
func (h *Handler) EnrichFinding(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, err := idParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error(), nil)
		return
	}

	f, err := h.enricher.EnrichOne(r.Context(), id)
	if err != nil {
		respondLookupError(w, ErrCodeEnrichment, fmt.Sprintf("finding %d", id), err)
		return
	}
	respondSuccess(w, http.StatusOK, f, start)
}

// EnrichMissing scores up to ?limit findings that have no score yet.
// A missing or non-positive limit uses the engine's batch size.
func (h *Handler) EnrichMissing(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	limit := getIntParam(r, "limit", 0)
	if limit > maxEnrichLimit {
		respondError(w, http.StatusBadRequest, ErrCodeValidation,
			fmt.Sprintf("limit must be at most %d", maxEnrichLimit), nil)
		return
	}

	findings, err := h.enricher.EnrichMissing(r.Context(), limit)
	if err != nil {
		if r.Context().Err() != nil {
			respondError(w, http.StatusServiceUnavailable, ErrCodeEnrichment, "Enrichment cancelled", err)
			return
		}
		respondError(w, http.StatusInternalServerError, ErrCodeEnrichment, "Enrichment failed", err)
		return
	}
	respondSuccess(w, http.StatusOK, enrichment.Summarize(findings), start)
}
