// Quota Ledger - Event-Sourced Usage Accounting Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quotaledger

package eventstore

import (
	"fmt"
	"time"
)

// Migration describes a single versioned schema change applied on top
// of the baseline created by createTables.
type Migration struct {
	Version     int
	Name        string
	Description string
	SQL         string
	AppliedAt   time.Time
}

const schemaMigrationsTableSQL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version     INTEGER PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL,
	applied_at  TIMESTAMP NOT NULL
)`

// getMigrations returns the migrations to apply on top of the baseline
// schema, in ascending version order. Every change so far is folded
// into the baseline in schema.go, so this is empty; it exists so a
// future schema change has somewhere to go without rewriting history.
func getMigrations() []Migration {
	return []Migration{}
}

func (s *Store) createMigrationsTable() error {
	_, err := s.db.Exec(schemaMigrationsTableSQL)
	return err
}

func (s *Store) getAppliedMigrations() (map[int]bool, error) {
	applied := make(map[int]bool)
	rows, err := s.db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer closeQuietly(rows)

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

// runVersionedMigrations applies every migration not yet recorded in
// schema_migrations, in order, each in its own transaction.
func (s *Store) runVersionedMigrations() error {
	if err := s.createMigrationsTable(); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("reading applied migrations: %w", err)
	}

	for _, m := range getMigrations() {
		if applied[m.Version] {
			continue
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("migration %d: beginning transaction: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			rollbackQuietly(tx)
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}

		if _, err := tx.Exec(
			`INSERT INTO schema_migrations (version, name, description, applied_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)`,
			m.Version, m.Name, m.Description,
		); err != nil {
			rollbackQuietly(tx)
			return fmt.Errorf("migration %d: recording applied version: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: committing: %w", m.Version, err)
		}
	}

	return nil
}

// GetCurrentSchemaVersion returns the highest applied migration version,
// or 0 if none have run beyond the baseline.
func (s *Store) GetCurrentSchemaVersion() (int, error) {
	var version int
	row := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`)
	if err := row.Scan(&version); err != nil {
		return 0, err
	}
	return version, nil
}
