// Quota Ledger - Event-Sourced Usage Accounting Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quotaledger

// Package eventstore is the DuckDB-backed, append-only event store for
// account streams. It owns the schema, optimistic concurrency control,
// idempotent-append detection, and the account_current read-model
// projection kept in lockstep with every append.
package eventstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/quotaledger/internal/config"
	"github.com/tomtom215/quotaledger/internal/domain"
	"github.com/tomtom215/quotaledger/internal/logging"
)

// Store wraps a DuckDB connection pool and exposes the event-sourced
// operations the account service composes: append, load, and a
// projection read optimized around account_current.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the DuckDB database at cfg.Path, applies the
// baseline schema and any pending migrations, and returns a ready Store.
func New(cfg *config.DatabaseConfig) (*Store, error) {
	db, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening duckdb at %q: %w", cfg.Path, err)
	}

	configureConnectionPool(db, cfg)

	s := &Store{db: db}
	if err := s.initialize(cfg); err != nil {
		closeQuietly(db)
		return nil, err
	}
	return s, nil
}

func configureConnectionPool(db *sql.DB, cfg *config.DatabaseConfig) {
	maxConns := cfg.Threads
	if maxConns <= 0 {
		maxConns = runtime.NumCPU()
	}
	db.SetMaxOpenConns(maxConns)
	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(5 * time.Minute)
}

func (s *Store) initialize(cfg *config.DatabaseConfig) error {
	if cfg.MaxMemory != "" {
		if _, err := s.db.Exec(fmt.Sprintf("SET memory_limit='%s'", cfg.MaxMemory)); err != nil {
			return fmt.Errorf("setting memory_limit: %w", err)
		}
	}

	if err := s.createTables(); err != nil {
		return fmt.Errorf("creating baseline schema: %w", err)
	}
	if err := s.runVersionedMigrations(); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	// DuckDB replays the WAL on startup before any new writes land; a
	// checkpoint here collapses it so a crash immediately after init
	// does not force a replay of schema-creation statements.
	if err := s.Checkpoint(); err != nil {
		logging.Warn().Err(err).Msg("checkpoint after schema init failed")
	}

	return nil
}

// Checkpoint forces DuckDB to flush its WAL into the main database file.
func (s *Store) Checkpoint() error {
	_, err := s.db.Exec("CHECKPOINT")
	return err
}

// Close checkpoints and closes the underlying connection pool. Always
// checkpointing before close avoids a WAL replay on the next open.
func (s *Store) Close() error {
	if err := s.Checkpoint(); err != nil {
		logging.Warn().Err(err).Msg("checkpoint before close failed")
	}
	return s.db.Close()
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Append writes envelopes to streamID, enforcing that expectedVersion
// matches the stream's current version. On success it returns the new
// stream version.
//
// If the first envelope carries an idempotency key already recorded for
// this stream, Append does not write anything and returns the stream's
// current version instead, treating the call as an already-applied
// retry rather than an error. A losing race on either the stream version
// or the idempotency key is reported as *domain.ConcurrencyConflict,
// except a losing idempotency-key race, which resolves the same way an
// up-front hit would: the current version, no error.
func (s *Store) Append(ctx context.Context, streamID string, expectedVersion int64, envelopes []domain.Envelope) (int64, error) {
	if len(envelopes) == 0 {
		return expectedVersion, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning append transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			rollbackQuietly(tx)
		}
	}()

	currentVersion, err := s.streamVersionTx(ctx, tx, streamID)
	if err != nil {
		return 0, fmt.Errorf("reading stream version: %w", err)
	}

	first := envelopes[0]
	if first.IdempotencyKey != "" {
		var existing int64
		row := tx.QueryRowContext(ctx,
			`SELECT stream_version FROM events WHERE stream_id = ? AND idempotency_key = ?`,
			streamID, first.IdempotencyKey)
		switch err := row.Scan(&existing); {
		case err == nil:
			return currentVersion, nil
		case errors.Is(err, sql.ErrNoRows):
			// not yet recorded, proceed with the append
		default:
			return 0, fmt.Errorf("checking idempotency key: %w", err)
		}
	}

	if currentVersion != expectedVersion {
		return 0, &domain.ConcurrencyConflict{
			StreamID:        streamID,
			ExpectedVersion: expectedVersion,
			ActualVersion:   currentVersion,
		}
	}

	next := currentVersion
	for _, env := range envelopes {
		next++
		if err := s.insertEventTx(ctx, tx, streamID, next, env); err != nil {
			if isIdempotencyKeyViolation(err) {
				winner, werr := s.streamVersion(ctx, streamID)
				if werr != nil {
					return 0, fmt.Errorf("resolving idempotency race: %w", werr)
				}
				return winner, nil
			}
			if isStreamVersionViolation(err) || isTransactionConflict(err) {
				return 0, &domain.ConcurrencyConflict{
					StreamID:        streamID,
					ExpectedVersion: expectedVersion,
					ActualVersion:   next - 1,
				}
			}
			return 0, fmt.Errorf("inserting event at version %d: %w", next, err)
		}
	}

	events, err := s.loadStreamTx(ctx, tx, streamID, 0)
	if err != nil {
		return 0, fmt.Errorf("replaying stream for projection: %w", err)
	}
	state := domain.FoldAll(events)
	if err := s.upsertProjectionTx(ctx, tx, streamID, next, state); err != nil {
		return 0, fmt.Errorf("updating projection: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isTransactionConflict(err) {
			return 0, &domain.ConcurrencyConflict{
				StreamID:        streamID,
				ExpectedVersion: expectedVersion,
				ActualVersion:   currentVersion,
			}
		}
		return 0, fmt.Errorf("committing append: %w", err)
	}
	committed = true

	return next, nil
}

func (s *Store) insertEventTx(ctx context.Context, tx *sql.Tx, streamID string, version int64, env domain.Envelope) error {
	occurredAt, err := parseOccurredAt(env.OccurredAt)
	if err != nil {
		return fmt.Errorf("parsing occurred_at: %w", err)
	}

	payload, err := encodePayload(env.Event)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	var idempotencyKey interface{}
	if env.IdempotencyKey != "" {
		idempotencyKey = env.IdempotencyKey
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO events (event_id, stream_id, stream_version, event_type, event_schema_version, occurred_at, idempotency_key, payload, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), streamID, version, string(env.Event.Type()), env.Event.SchemaVersion(),
		occurredAt, idempotencyKey, string(payload), "{}",
	)
	return err
}

func (s *Store) streamVersionTx(ctx context.Context, tx *sql.Tx, streamID string) (int64, error) {
	var version int64
	row := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(stream_version), 0) FROM events WHERE stream_id = ?`, streamID)
	return version, row.Scan(&version)
}

func (s *Store) streamVersion(ctx context.Context, streamID string) (int64, error) {
	var version int64
	row := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(stream_version), 0) FROM events WHERE stream_id = ?`, streamID)
	return version, row.Scan(&version)
}

// LoadStream returns every event recorded for streamID, in version
// order, with each payload normalized to its current schema version.
func (s *Store) LoadStream(ctx context.Context, streamID string) ([]domain.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_type, event_schema_version, payload
		FROM events
		WHERE stream_id = ?
		ORDER BY stream_version ASC`, streamID)
	if err != nil {
		return nil, fmt.Errorf("loading stream %q: %w", streamID, err)
	}
	defer closeQuietly(rows)
	return scanEvents(rows)
}

// LoadStreamSince returns events recorded after sinceVersion, in version
// order, upcast to their current schema version.
func (s *Store) LoadStreamSince(ctx context.Context, streamID string, sinceVersion int64) ([]domain.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_type, event_schema_version, payload
		FROM events
		WHERE stream_id = ? AND stream_version > ?
		ORDER BY stream_version ASC`, streamID, sinceVersion)
	if err != nil {
		return nil, fmt.Errorf("loading stream %q since version %d: %w", streamID, sinceVersion, err)
	}
	defer closeQuietly(rows)
	return scanEvents(rows)
}

// Record is one persisted event together with the envelope metadata the
// store captured at append time, for callers (the events API) that need
// more than the decoded payload.
type Record struct {
	Type           domain.EventType
	SchemaVersion  int
	OccurredAt     time.Time
	IdempotencyKey string
	Payload        domain.Event
}

// LoadRecords returns every event recorded for streamID, in version
// order, together with its envelope metadata. Unlike LoadStream, payloads
// are returned at their stored schema version rather than upcast, since
// callers surfacing the raw history should see what was actually written.
func (s *Store) LoadRecords(ctx context.Context, streamID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_type, event_schema_version, occurred_at, idempotency_key, payload
		FROM events
		WHERE stream_id = ?
		ORDER BY stream_version ASC`, streamID)
	if err != nil {
		return nil, fmt.Errorf("loading records for stream %q: %w", streamID, err)
	}
	defer closeQuietly(rows)

	var records []Record
	for rows.Next() {
		var eventType string
		var schemaVersion int
		var occurredAt time.Time
		var idempotencyKey sql.NullString
		var payload string
		if err := rows.Scan(&eventType, &schemaVersion, &occurredAt, &idempotencyKey, &payload); err != nil {
			return nil, fmt.Errorf("scanning event record: %w", err)
		}
		e, err := decodePayload(domain.EventType(eventType), schemaVersion, []byte(payload))
		if err != nil {
			return nil, fmt.Errorf("decoding event payload: %w", err)
		}
		records = append(records, Record{
			Type:           domain.EventType(eventType),
			SchemaVersion:  schemaVersion,
			OccurredAt:     occurredAt,
			IdempotencyKey: idempotencyKey.String,
			Payload:        e,
		})
	}
	return records, rows.Err()
}

// SampleAccountIDs returns up to limit account IDs from the projection
// table, used by the background invariant auditor to spot-check
// projection drift without replaying every stream on every tick.
func (s *Store) SampleAccountIDs(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT account_id FROM account_current ORDER BY random() LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sampling account ids: %w", err)
	}
	defer closeQuietly(rows)

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning account id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) loadStreamTx(ctx context.Context, tx *sql.Tx, streamID string, sinceVersion int64) ([]domain.Event, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT event_type, event_schema_version, payload
		FROM events
		WHERE stream_id = ? AND stream_version > ?
		ORDER BY stream_version ASC`, streamID, sinceVersion)
	if err != nil {
		return nil, err
	}
	defer closeQuietly(rows)
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]domain.Event, error) {
	var events []domain.Event
	for rows.Next() {
		var eventType string
		var schemaVersion int
		var payload string
		if err := rows.Scan(&eventType, &schemaVersion, &payload); err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}
		e, err := decodePayload(domain.EventType(eventType), schemaVersion, []byte(payload))
		if err != nil {
			return nil, fmt.Errorf("decoding event payload: %w", err)
		}
		events = append(events, domain.Upcast(e))
	}
	return events, rows.Err()
}

// Projection is the denormalized read model kept alongside the event
// log: the folded state of a stream as of its last appended version.
type Projection struct {
	StreamVersion int64
	State         domain.AccountState
}

// LoadProjection reads the account_current row for accountID. The
// second return value is false if no row exists for this account.
func (s *Store) LoadProjection(ctx context.Context, accountID string) (Projection, bool, error) {
	var (
		version  int64
		status   string
		planID   sql.NullString
		period   sql.NullString
		usedJSON string
	)
	row := s.db.QueryRowContext(ctx, `
		SELECT stream_version, status, plan_id, period, used
		FROM account_current WHERE account_id = ?`, accountID)
	switch err := row.Scan(&version, &status, &planID, &period, &usedJSON); {
	case errors.Is(err, sql.ErrNoRows):
		return Projection{}, false, nil
	case err != nil:
		return Projection{}, false, fmt.Errorf("loading projection for %q: %w", accountID, err)
	}

	used := map[domain.Meter]int64{}
	if err := json.Unmarshal([]byte(usedJSON), &used); err != nil {
		return Projection{}, false, fmt.Errorf("decoding projection usage for %q: %w", accountID, err)
	}

	return Projection{
		StreamVersion: version,
		State: domain.AccountState{
			Exists: true,
			Status: domain.AccountStatus(status),
			PlanID: planID.String,
			Period: period.String,
			Used:   used,
		},
	}, true, nil
}

func (s *Store) upsertProjectionTx(ctx context.Context, tx *sql.Tx, accountID string, version int64, state domain.AccountState) error {
	usedJSON, err := json.Marshal(state.Used)
	if err != nil {
		return fmt.Errorf("encoding usage: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO account_current (account_id, stream_version, status, plan_id, period, used)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (account_id) DO UPDATE SET
			stream_version = excluded.stream_version,
			status         = excluded.status,
			plan_id        = excluded.plan_id,
			period         = excluded.period,
			used           = excluded.used`,
		accountID, version, string(state.Status), state.PlanID, state.Period, string(usedJSON),
	)
	return err
}
