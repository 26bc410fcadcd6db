// Quota Ledger - Event-Sourced Usage Accounting Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quotaledger

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/quotaledger/internal/accountservice"
	"github.com/tomtom215/quotaledger/internal/domain"
	"github.com/tomtom215/quotaledger/internal/eventstore"
	"github.com/tomtom215/quotaledger/internal/projection"
	"github.com/tomtom215/quotaledger/internal/validation"
)

// Handler implements the quota ledger's HTTP operations against a
// Service. It has no state of its own beyond that dependency.
type Handler struct {
	service *accountservice.Service
}

// NewHandler returns a Handler backed by service.
func NewHandler(service *accountservice.Service) *Handler {
	return &Handler{service: service}
}

// decodeJSON reads and decodes the request body into dst, then
// validates it. It writes a 400 response and returns false if either
// step fails; callers should return immediately in that case.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	ctx := r.Context()

	defer func() { _ = r.Body.Close() }()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return false
	}

	if verr := validation.ValidateStruct(dst); verr != nil {
		writeValidationError(ctx, w, verr)
		return false
	}
	return true
}

// accountStateResponse is the literal shape of GET /v1/accounts/{id}.
type accountStateResponse struct {
	AccountID     string                 `json:"account_id"`
	Exists        bool                   `json:"exists"`
	Status        domain.AccountStatus   `json:"status"`
	PlanID        string                 `json:"plan_id"`
	Period        string                 `json:"period"`
	Used          map[domain.Meter]int64 `json:"used"`
	StreamVersion int64                  `json:"stream_version"`
	Source        projection.Source      `json:"source"`
}

func newAccountStateResponse(s projection.Snapshot) accountStateResponse {
	used := s.State.Used
	if used == nil {
		used = map[domain.Meter]int64{}
	}
	return accountStateResponse{
		AccountID:     s.AccountID,
		Exists:        s.State.Exists,
		Status:        s.State.Status,
		PlanID:        s.State.PlanID,
		Period:        s.State.Period,
		Used:          used,
		StreamVersion: s.StreamVersion,
		Source:        s.Source,
	}
}

// streamVersionResponse is the literal shape returned by every
// command operation: the account it touched and the stream version
// that resulted.
type streamVersionResponse struct {
	AccountID     string `json:"account_id"`
	StreamVersion int64  `json:"stream_version"`
}

// eventView is one entry of GET /v1/accounts/{id}/events.
type eventView struct {
	Type           domain.EventType `json:"type"`
	SchemaVersion  int              `json:"schema_version"`
	OccurredAt     string           `json:"occurred_at"`
	IdempotencyKey string           `json:"idempotency_key,omitempty"`
	Payload        domain.Event     `json:"payload"`
}

type listEventsResponse struct {
	AccountID string      `json:"account_id"`
	Events    []eventView `json:"events"`
}

// CreateAccount handles POST /v1/accounts.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	version, err := h.service.CreateAccount(r.Context(), domain.CreateAccount{
		AccountID:     req.AccountID,
		InitialPlanID: req.InitialPlanID,
		Period:        req.Period,
	})
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}

	writeJSON(r.Context(), w, http.StatusCreated, streamVersionResponse{
		AccountID:     req.AccountID,
		StreamVersion: version,
	})
}

// GetAccount handles GET /v1/accounts/{id}.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")

	snapshot, err := h.service.GetState(r.Context(), accountID)
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}

	writeJSON(r.Context(), w, http.StatusOK, newAccountStateResponse(snapshot))
}

// ListEvents handles GET /v1/accounts/{id}/events.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")

	records, err := h.service.ListEvents(r.Context(), accountID)
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}

	events := make([]eventView, len(records))
	for i, rec := range records {
		events[i] = eventView{
			Type:           rec.Type,
			SchemaVersion:  rec.SchemaVersion,
			OccurredAt:     eventstore.FormatOccurredAt(rec.OccurredAt),
			IdempotencyKey: rec.IdempotencyKey,
			Payload:        rec.Payload,
		}
	}

	writeJSON(r.Context(), w, http.StatusOK, listEventsResponse{
		AccountID: accountID,
		Events:    events,
	})
}

// RecordUsage handles POST /v1/accounts/{id}/usage. The Idempotency-Key
// header is mandatory; without it a retried request could double-count
// usage, so a missing header is rejected before the body is even
// decoded.
func (h *Handler) RecordUsage(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")

	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "missing Idempotency-Key header")
		return
	}

	var req recordUsageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	version, err := h.service.RecordUsage(r.Context(), domain.RecordUsage{
		AccountID:      accountID,
		Meter:          domain.Meter(req.Meter),
		Units:          req.Units,
		OccurredAt:     req.OccurredAt,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}

	writeJSON(r.Context(), w, http.StatusOK, streamVersionResponse{
		AccountID:     accountID,
		StreamVersion: version,
	})
}

// SuspendAccount handles POST /v1/accounts/{id}/suspend.
func (h *Handler) SuspendAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")

	var req suspendAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	version, err := h.service.SuspendAccount(r.Context(), domain.SuspendAccount{
		AccountID: accountID,
		Reason:    req.Reason,
	})
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}

	writeJSON(r.Context(), w, http.StatusOK, streamVersionResponse{
		AccountID:     accountID,
		StreamVersion: version,
	})
}

// ReinstateAccount handles POST /v1/accounts/{id}/reinstate.
func (h *Handler) ReinstateAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")

	version, err := h.service.ReinstateAccount(r.Context(), domain.ReinstateAccount{AccountID: accountID})
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}

	writeJSON(r.Context(), w, http.StatusOK, streamVersionResponse{
		AccountID:     accountID,
		StreamVersion: version,
	})
}
