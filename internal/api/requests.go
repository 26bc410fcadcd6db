// Quota Ledger - Event-Sourced Usage Accounting Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quotaledger

package api

// createAccountRequest is the body of POST /v1/accounts.
type createAccountRequest struct {
	AccountID     string `json:"account_id" validate:"required"`
	InitialPlanID string `json:"initial_plan_id" validate:"required"`
	Period        string `json:"period" validate:"required,period"`
}

// recordUsageRequest is the body of POST /v1/accounts/{id}/usage. The
// Idempotency-Key header, not this body, carries the idempotency key.
// Units is intentionally unconstrained here beyond its type: zero and
// negative values are rejected by the aggregate's own invariant (409),
// not by request validation (400), so both arrive through one path.
type recordUsageRequest struct {
	Meter      string `json:"meter" validate:"required,oneof=api_calls storage_mb"`
	Units      int64  `json:"units"`
	OccurredAt string `json:"occurred_at" validate:"required"`
}

// suspendAccountRequest is the body of POST /v1/accounts/{id}/suspend.
type suspendAccountRequest struct {
	Reason string `json:"reason" validate:"required"`
}
