// Quota Ledger - Event-Sourced Usage Accounting Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quotaledger

package api

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/quotaledger/internal/logging"
	"github.com/tomtom215/quotaledger/internal/validation"
)

// writeJSON marshals v and writes it with status, matching the literal
// response shapes the HTTP contract specifies rather than a generic
// envelope.
func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(v)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("failed to marshal response body")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("failed to write response body")
	}
}

// errorResponse is the body written for every non-2xx response. Code
// and Details are only populated for structured validation failures;
// every other error writes a bare {"error": "..."} body.
type errorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	writeJSON(ctx, w, status, errorResponse{Error: message})
}

// writeValidationError writes verr as a structured VALIDATION_ERROR
// body, so a caller can distinguish a rejected field from a generic
// 400.
func writeValidationError(ctx context.Context, w http.ResponseWriter, verr *validation.RequestValidationError) {
	apiErr := verr.ToAPIError()
	writeJSON(ctx, w, http.StatusBadRequest, errorResponse{
		Error:   apiErr.Message,
		Code:    apiErr.Code,
		Details: apiErr.Details,
	})
}
