// Quota Ledger - Event-Sourced Usage Accounting Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quotaledger

package eventstore

const createEventsTableSQL = `
CREATE TABLE IF NOT EXISTS events (
	event_id             TEXT PRIMARY KEY,
	stream_id            TEXT NOT NULL,
	stream_version       BIGINT NOT NULL,
	event_type           TEXT NOT NULL,
	event_schema_version INTEGER NOT NULL,
	occurred_at          TIMESTAMP NOT NULL,
	idempotency_key       TEXT,
	payload              JSON NOT NULL,
	metadata             JSON NOT NULL,
	CONSTRAINT uq_events_stream_version UNIQUE (stream_id, stream_version),
	CONSTRAINT uq_events_idempotency UNIQUE (stream_id, idempotency_key)
)`

const createEventsStreamIndexSQL = `
CREATE INDEX IF NOT EXISTS idx_events_stream_id ON events (stream_id)`

const createAccountCurrentTableSQL = `
CREATE TABLE IF NOT EXISTS account_current (
	account_id     TEXT PRIMARY KEY,
	stream_version BIGINT NOT NULL,
	status         TEXT NOT NULL,
	plan_id        TEXT,
	period         TEXT,
	used           JSON NOT NULL
)`

// createTables creates the baseline schema. All historical changes to
// this shape are consolidated here; see migrations.go for how later
// changes would be layered on top without rewriting this baseline.
func (s *Store) createTables() error {
	statements := []string{
		createEventsTableSQL,
		createEventsStreamIndexSQL,
		createAccountCurrentTableSQL,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
