package accountservice

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/quotaledger/internal/config"
	"github.com/tomtom215/quotaledger/internal/domain"
	"github.com/tomtom215/quotaledger/internal/eventstore"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := eventstore.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "512MB"})
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return New(store, DefaultCircuitBreakerConfig("test"))
}

func TestCreateAccountThenGetState(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	v, err := svc.CreateAccount(ctx, domain.CreateAccount{AccountID: "acct-1", InitialPlanID: "basic", Period: "2026-01"})
	if err != nil {
		t.Fatalf("creating account: %v", err)
	}
	if v != 1 {
		t.Fatalf("expected version 1, got %d", v)
	}

	snap, err := svc.GetState(ctx, "acct-1")
	if err != nil {
		t.Fatalf("getting state: %v", err)
	}
	if snap.State.PlanID != "basic" {
		t.Fatalf("expected plan 'basic', got %q", snap.State.PlanID)
	}
}

func TestCreateAccountTwiceIsInvariantViolation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	cmd := domain.CreateAccount{AccountID: "acct-2", InitialPlanID: "basic", Period: "2026-01"}

	if _, err := svc.CreateAccount(ctx, cmd); err != nil {
		t.Fatalf("first create: %v", err)
	}

	_, err := svc.CreateAccount(ctx, cmd)
	var invariant *domain.InvariantViolation
	if !errors.As(err, &invariant) {
		t.Fatalf("expected InvariantViolation, got %v", err)
	}
}

func TestRecordUsageAccumulatesAndReflectsInState(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	if _, err := svc.CreateAccount(ctx, domain.CreateAccount{AccountID: "acct-3", InitialPlanID: "basic", Period: "2026-01"}); err != nil {
		t.Fatalf("creating account: %v", err)
	}

	if _, err := svc.RecordUsage(ctx, domain.RecordUsage{AccountID: "acct-3", Meter: domain.MeterAPICalls, Units: 3, OccurredAt: "now"}); err != nil {
		t.Fatalf("recording usage: %v", err)
	}
	if _, err := svc.RecordUsage(ctx, domain.RecordUsage{AccountID: "acct-3", Meter: domain.MeterAPICalls, Units: 2, OccurredAt: "now"}); err != nil {
		t.Fatalf("recording usage: %v", err)
	}

	snap, err := svc.GetState(ctx, "acct-3")
	if err != nil {
		t.Fatalf("getting state: %v", err)
	}
	if snap.State.Used[domain.MeterAPICalls] != 5 {
		t.Fatalf("expected 5 api_calls used, got %d", snap.State.Used[domain.MeterAPICalls])
	}
}

func TestRecordUsageIdempotentRetrySameVersion(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	if _, err := svc.CreateAccount(ctx, domain.CreateAccount{AccountID: "acct-4", InitialPlanID: "basic", Period: "2026-01"}); err != nil {
		t.Fatalf("creating account: %v", err)
	}

	cmd := domain.RecordUsage{AccountID: "acct-4", Meter: domain.MeterAPICalls, Units: 3, OccurredAt: "now", IdempotencyKey: "tok-1"}
	v1, err := svc.RecordUsage(ctx, cmd)
	if err != nil {
		t.Fatalf("first record: %v", err)
	}

	v2, err := svc.RecordUsage(ctx, cmd)
	if err != nil {
		t.Fatalf("idempotent retry should not error: %v", err)
	}
	if v1 != v2 {
		t.Fatalf("expected idempotent retry to return same version, got %d vs %d", v1, v2)
	}

	snap, err := svc.GetState(ctx, "acct-4")
	if err != nil {
		t.Fatalf("getting state: %v", err)
	}
	if snap.State.Used[domain.MeterAPICalls] != 3 {
		t.Fatalf("expected usage applied exactly once (3), got %d", snap.State.Used[domain.MeterAPICalls])
	}
}

func TestRecordUsageOnSuspendedAccountIsInvariantViolation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	if _, err := svc.CreateAccount(ctx, domain.CreateAccount{AccountID: "acct-5", InitialPlanID: "basic", Period: "2026-01"}); err != nil {
		t.Fatalf("creating account: %v", err)
	}
	if _, err := svc.SuspendAccount(ctx, domain.SuspendAccount{AccountID: "acct-5", Reason: "nonpayment"}); err != nil {
		t.Fatalf("suspending: %v", err)
	}

	_, err := svc.RecordUsage(ctx, domain.RecordUsage{AccountID: "acct-5", Meter: domain.MeterAPICalls, Units: 1, OccurredAt: "now"})
	var invariant *domain.InvariantViolation
	if !errors.As(err, &invariant) {
		t.Fatalf("expected InvariantViolation, got %v", err)
	}
}

func TestRecordUsageOnMissingAccountIsNotFound(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.RecordUsage(ctx, domain.RecordUsage{AccountID: "ghost", Meter: domain.MeterAPICalls, Units: 1, OccurredAt: "now"})
	var notFound *domain.NotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestListEventsReturnsFullHistory(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	if _, err := svc.CreateAccount(ctx, domain.CreateAccount{AccountID: "acct-6", InitialPlanID: "basic", Period: "2026-01"}); err != nil {
		t.Fatalf("creating account: %v", err)
	}
	if _, err := svc.RecordUsage(ctx, domain.RecordUsage{AccountID: "acct-6", Meter: domain.MeterAPICalls, Units: 1, OccurredAt: "now"}); err != nil {
		t.Fatalf("recording usage: %v", err)
	}

	events, err := svc.ListEvents(ctx, "acct-6")
	if err != nil {
		t.Fatalf("listing events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
}

func TestListEventsOnMissingAccountReturnsEmptySlice(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	events, err := svc.ListEvents(ctx, "ghost")
	if err != nil {
		t.Fatalf("expected no error for missing account, got %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected 0 events, got %d", len(events))
	}
}
