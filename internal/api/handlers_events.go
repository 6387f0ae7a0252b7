// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/vigil/internal/logging"
	"github.com/tomtom215/vigil/internal/models"
	"github.com/tomtom215/vigil/internal/validation"
)

const (
	maxEventBodyBytes = 1 << 20
	maxEventsPerBatch = 1000
)

// decodeEvents accepts a single event object or a JSON array of events.
func decodeEvents(body []byte) ([]models.NewEvent, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("request body is empty")
	}

	if body[0] == '[' {
		var events []models.NewEvent
		if err := json.Unmarshal(body, &events); err != nil {
			return nil, fmt.Errorf("invalid JSON array: %w", err)
		}
		if len(events) == 0 {
			return nil, fmt.Errorf("event array is empty")
		}
		return events, nil
	}

	var ev models.NewEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("invalid JSON object: %w", err)
	}
	return []models.NewEvent{ev}, nil
}

// CreateEvents stores one event or a batch. The batch is validated as a
// whole and inserted atomically; a single invalid event rejects the request.
func (h *Handler) CreateEvents(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBodyBytes))
	if err != nil {
		respondError(w, http.StatusRequestEntityTooLarge, ErrCodeInvalidRequest, "Request body too large", nil)
		return
	}

	events, err := decodeEvents(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error(), nil)
		return
	}
	if len(events) > maxEventsPerBatch {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest,
			fmt.Sprintf("at most %d events per request", maxEventsPerBatch), nil)
		return
	}

	for i := range events {
		if verr := validation.ValidateEvent(&events[i]); verr != nil {
			apiErr := verr.ToAPIError()
			details := apiErr.Details
			if details == nil {
				details = map[string]interface{}{}
			}
			details["index"] = i
			respondErrorDetails(w, http.StatusBadRequest, &models.APIError{
				Code:    apiErr.Code,
				Message: apiErr.Message,
				Details: details,
			}, nil)
			return
		}
	}

	ids, err := h.store.InsertEvents(r.Context(), events)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeDatabase, "Failed to store events", err)
		return
	}

	logging.Ctx(r.Context()).Debug().Int("events", len(ids)).Msg("Events ingested")
	respondSuccess(w, http.StatusCreated, models.IngestResult{IDs: ids}, start)
}

// ListEvents returns events newest first.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
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
	processed, err := getBoolParam(r, "processed")
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error(), nil)
		return
	}

	filter := models.EventFilter{
		EventType: models.EventType(r.URL.Query().Get("event_type")),
		User:      r.URL.Query().Get("user"),
		From:      from,
		To:        to,
		Processed: processed,
		Limit:     getIntParam(r, "limit", 100),
		Offset:    getIntParam(r, "offset", 0),
	}

	events, err := h.store.ListEvents(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeDatabase, "Failed to list events", err)
		return
	}
	respondSuccess(w, http.StatusOK, events, start)
}

// GetEvent returns one event with the findings raised for it.
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, err := idParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error(), nil)
		return
	}

	ev, err := h.store.GetEvent(r.Context(), id)
	if err != nil {
		respondLookupError(w, ErrCodeDatabase, fmt.Sprintf("event %d", id), err)
		return
	}

	findings, err := h.store.FindingsForEvent(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeDatabase, "Failed to load findings", err)
		return
	}
	if findings == nil {
		findings = []models.Finding{}
	}

	respondSuccess(w, http.StatusOK, models.EventWithFindings{Event: *ev, Findings: findings}, start)
}
