// Quota Ledger - Event-Sourced Usage Accounting Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quotaledger

package eventstore

import (
	"io"
	"strings"

	"github.com/tomtom215/quotaledger/internal/logging"
)

// isTransactionConflict reports whether err is DuckDB's native MVCC
// write-write conflict, raised when two transactions race to modify
// overlapping rows.
func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "Transaction conflict") ||
		strings.Contains(errStr, "Conflict on update") ||
		strings.Contains(errStr, "cannot update a table that has been altered")
}

// isStreamVersionViolation reports whether err is a UNIQUE(stream_id,
// stream_version) constraint violation: two appends raced to claim the
// same version.
func isStreamVersionViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "uq_events_stream_version")
}

// isIdempotencyKeyViolation reports whether err is a UNIQUE(stream_id,
// idempotency_key) constraint violation: a concurrent append already
// claimed this idempotency key.
func isIdempotencyKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "uq_events_idempotency")
}

// closeQuietly closes a resource and explicitly discards any error, for
// best-effort cleanup on error paths.
func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}

// rollbackQuietly rolls back a transaction and logs a warning if the
// rollback itself fails for a reason other than the transaction already
// being closed.
func rollbackQuietly(tx interface{ Rollback() error }) {
	if err := tx.Rollback(); err != nil && !strings.Contains(err.Error(), "transaction has already been committed or rolled back") {
		logging.Warn().Err(err).Msg("failed to roll back event store transaction")
	}
}
