// Quota Ledger - Event-Sourced Usage Accounting Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quotaledger

// Package accountservice orchestrates the load-fold-decide-append cycle
// against an account stream: it is the only place commands are turned
// into events. Each command method corresponds to one command type;
// GetState and ListEvents are the read methods.
package accountservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/quotaledger/internal/domain"
	"github.com/tomtom215/quotaledger/internal/eventstore"
	"github.com/tomtom215/quotaledger/internal/logging"
	"github.com/tomtom215/quotaledger/internal/metrics"
	"github.com/tomtom215/quotaledger/internal/projection"
)

// Service is the write-side orchestrator: load the stream, fold it,
// decide the command against the resulting state, and append whatever
// Decide produces.
type Service struct {
	store   *eventstore.Store
	reader  *projection.Reader
	breaker *gobreaker.CircuitBreaker[appendResult]
}

// New returns a Service backed by store, with a circuit breaker guarding
// the append path under cfg.
func New(store *eventstore.Store, cfg CircuitBreakerConfig) *Service {
	return &Service{
		store:   store,
		reader:  projection.NewReader(store),
		breaker: newCircuitBreaker(cfg),
	}
}

type appendResult struct {
	streamVersion int64
}

// CreateAccount decides and appends an AccountCreated event.
func (s *Service) CreateAccount(ctx context.Context, cmd domain.CreateAccount) (int64, error) {
	return s.decideAndAppend(ctx, cmd.AccountID, cmd)
}

// ChangePlan decides and appends a PlanChanged event.
func (s *Service) ChangePlan(ctx context.Context, cmd domain.ChangePlan) (int64, error) {
	return s.decideAndAppend(ctx, cmd.AccountID, cmd)
}

// RecordUsage decides and appends a UsageRecorded event.
func (s *Service) RecordUsage(ctx context.Context, cmd domain.RecordUsage) (int64, error) {
	return s.decideAndAppend(ctx, cmd.AccountID, cmd)
}

// ResetPeriod decides and appends a PeriodReset event.
func (s *Service) ResetPeriod(ctx context.Context, cmd domain.ResetPeriod) (int64, error) {
	return s.decideAndAppend(ctx, cmd.AccountID, cmd)
}

// SuspendAccount decides and appends an AccountSuspended event.
func (s *Service) SuspendAccount(ctx context.Context, cmd domain.SuspendAccount) (int64, error) {
	return s.decideAndAppend(ctx, cmd.AccountID, cmd)
}

// ReinstateAccount decides and appends an AccountReinstated event.
func (s *Service) ReinstateAccount(ctx context.Context, cmd domain.ReinstateAccount) (int64, error) {
	return s.decideAndAppend(ctx, cmd.AccountID, cmd)
}

// decideAndAppend runs the load-fold-decide-append cycle once, and on a
// ConcurrencyConflict runs it exactly once more: the conflict means
// another writer committed between the load and the append, so a
// fresh load picks up their result and the decision is re-evaluated
// against current state rather than blindly resubmitted.
func (s *Service) decideAndAppend(ctx context.Context, accountID string, cmd domain.Command) (int64, error) {
	version, err := s.attempt(ctx, accountID, cmd)
	if err == nil {
		return version, nil
	}

	var conflict *domain.ConcurrencyConflict
	if !errors.As(err, &conflict) {
		return 0, err
	}

	logging.Ctx(ctx).Warn().
		Str("account_id", accountID).
		Int64("expected_version", conflict.ExpectedVersion).
		Int64("actual_version", conflict.ActualVersion).
		Msg("concurrency conflict, retrying once")

	version, err = s.attempt(ctx, accountID, cmd)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func (s *Service) attempt(ctx context.Context, accountID string, cmd domain.Command) (int64, error) {
	history, err := s.store.LoadStream(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("loading stream for %q: %w", accountID, err)
	}
	state := domain.FoldAll(history)

	envelopes, err := domain.Decide(state, cmd)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	result, err := s.breaker.Execute(func() (appendResult, error) {
		v, err := s.store.Append(ctx, accountID, int64(len(history)), envelopes)
		if err != nil {
			return appendResult{}, err
		}
		return appendResult{streamVersion: v}, nil
	})
	metrics.RecordAppend(appendOutcome(envelopes, int64(len(history)), result.streamVersion, err), time.Since(start))
	if err != nil {
		return 0, err
	}
	metrics.RecordStreamVersion(result.streamVersion)
	return result.streamVersion, nil
}

// appendOutcome labels an append attempt for metrics: "conflict" on a
// concurrency loss, "error" on any other failure, "idempotent_replay"
// when the returned version predates this call's own write, "committed"
// otherwise.
func appendOutcome(envelopes []domain.Envelope, expectedVersion, resultVersion int64, err error) string {
	if err != nil {
		var conflict *domain.ConcurrencyConflict
		if errors.As(err, &conflict) {
			return "conflict"
		}
		return "error"
	}
	if len(envelopes) > 0 && resultVersion <= expectedVersion {
		return "idempotent_replay"
	}
	return "committed"
}

// GetState returns accountID's current state via the projection reader.
func (s *Service) GetState(ctx context.Context, accountID string) (projection.Snapshot, error) {
	return s.reader.GetState(ctx, accountID)
}

// ListEvents returns every event recorded for accountID, in order,
// together with the envelope metadata (occurred_at, idempotency_key)
// the events API surfaces alongside each payload. An account with no
// events yields an empty slice, not a NotFound error: the caller didn't
// ask whether the account exists, only for its event history.
func (s *Service) ListEvents(ctx context.Context, accountID string) ([]eventstore.Record, error) {
	records, err := s.store.LoadRecords(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("loading records for %q: %w", accountID, err)
	}
	return records, nil
}
