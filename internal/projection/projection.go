// Quota Ledger - Event-Sourced Usage Accounting Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quotaledger

// Package projection reads an account's current state, preferring the
// denormalized account_current row kept in lockstep by every append and
// falling back to a full stream replay when that row is missing. A row
// that exists is returned as stored; staleness is not checked on reads.
package projection

import (
	"context"
	"fmt"

	"github.com/tomtom215/quotaledger/internal/domain"
	"github.com/tomtom215/quotaledger/internal/eventstore"
)

// Source names where a Snapshot's state came from, surfaced to callers
// so drift between the two paths is observable rather than silent.
type Source string

const (
	SourceProjection Source = "projection"
	SourceReplay     Source = "replay"
)

// Snapshot is the current state of one account stream, along with where
// it was read from.
type Snapshot struct {
	AccountID     string
	State         domain.AccountState
	StreamVersion int64
	Source        Source
}

// Reader resolves account state from an event store.
type Reader struct {
	store *eventstore.Store
}

// NewReader returns a Reader backed by store.
func NewReader(store *eventstore.Store) *Reader {
	return &Reader{store: store}
}

// GetState returns accountID's current state. It prefers the
// account_current projection row; if no row exists, it falls back to
// replaying the full stream, which also covers an account whose
// projection write has not yet landed.
func (r *Reader) GetState(ctx context.Context, accountID string) (Snapshot, error) {
	proj, found, err := r.store.LoadProjection(ctx, accountID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("loading projection for %q: %w", accountID, err)
	}
	if found {
		return Snapshot{
			AccountID:     accountID,
			State:         proj.State,
			StreamVersion: proj.StreamVersion,
			Source:        SourceProjection,
		}, nil
	}

	events, err := r.store.LoadStream(ctx, accountID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("loading stream for %q: %w", accountID, err)
	}
	state := domain.FoldAll(events)
	if !state.Exists {
		return Snapshot{}, &domain.NotFound{Message: fmt.Sprintf("account %q does not exist", accountID)}
	}

	return Snapshot{
		AccountID:     accountID,
		State:         state,
		StreamVersion: int64(len(events)),
		Source:        SourceReplay,
	}, nil
}

// Audit compares the projection row against a fresh replay for
// accountID and reports whether they agree. It is the primitive the
// background invariant auditor polls across a sample of accounts.
func (r *Reader) Audit(ctx context.Context, accountID string) (drifted bool, err error) {
	proj, found, err := r.store.LoadProjection(ctx, accountID)
	if err != nil {
		return false, fmt.Errorf("loading projection for %q: %w", accountID, err)
	}
	if !found {
		return false, nil
	}

	events, err := r.store.LoadStream(ctx, accountID)
	if err != nil {
		return false, fmt.Errorf("loading stream for %q: %w", accountID, err)
	}
	replayed := domain.FoldAll(events)

	if proj.StreamVersion != int64(len(events)) {
		return true, nil
	}
	if proj.State.Status != replayed.Status || proj.State.PlanID != replayed.PlanID || proj.State.Period != replayed.Period {
		return true, nil
	}
	if len(proj.State.Used) != len(replayed.Used) {
		return true, nil
	}
	for meter, units := range replayed.Used {
		if proj.State.Used[meter] != units {
			return true, nil
		}
	}

	return false, nil
}
