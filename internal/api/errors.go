// Quota Ledger - Event-Sourced Usage Accounting Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quotaledger

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/quotaledger/internal/domain"
	"github.com/tomtom215/quotaledger/internal/logging"
)

// writeDomainError maps the three domain error kinds to their HTTP
// status and writes the error response. A ConcurrencyConflict reaching
// this point means the service layer's single retry already failed, so
// it is surfaced as 409 rather than retried again here. Anything else
// is an infrastructure or programmer error and becomes a 500; it is
// logged with full detail since the response body never carries it.
func writeDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	var notFound *domain.NotFound
	if errors.As(err, &notFound) {
		writeError(ctx, w, http.StatusNotFound, notFound.Error())
		return
	}

	var invariant *domain.InvariantViolation
	if errors.As(err, &invariant) {
		writeError(ctx, w, http.StatusConflict, invariant.Error())
		return
	}

	var conflict *domain.ConcurrencyConflict
	if errors.As(err, &conflict) {
		writeError(ctx, w, http.StatusConflict, conflict.Error())
		return
	}

	logging.Ctx(ctx).Error().Err(err).Msg("unhandled error from account service")
	writeError(ctx, w, http.StatusInternalServerError, "internal error")
}
