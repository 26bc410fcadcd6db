// Quota Ledger - Event-Sourced Usage Accounting Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quotaledger

package eventstore

import (
	"fmt"
	"time"
)

// parseOccurredAt resolves the occurred_at value accepted on a usage
// record: the literal string "now", a Z-suffixed ISO8601 timestamp, an
// ISO8601 timestamp carrying an explicit offset, or a naive timestamp
// (no offset), which is treated as UTC.
func parseOccurredAt(raw string) (time.Time, error) {
	if raw == "" || raw == "now" {
		return time.Now().UTC(), nil
	}

	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}

	const naiveLayout = "2006-01-02T15:04:05"
	if t, err := time.Parse(naiveLayout, raw); err == nil {
		return t.UTC(), nil
	}
	const naiveLayoutMicros = "2006-01-02T15:04:05.999999"
	if t, err := time.Parse(naiveLayoutMicros, raw); err == nil {
		return t.UTC(), nil
	}

	return time.Time{}, fmt.Errorf("occurred_at %q is not a recognized timestamp", raw)
}

// FormatOccurredAt renders t as a Z-suffixed ISO8601 timestamp, the wire
// format emitted on every event read back out of the store.
func FormatOccurredAt(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000Z")
}
