package domain

import (
	"errors"
	"testing"
)

func TestDecideCreateAccount(t *testing.T) {
	state := NewAccountState()
	envs, err := Decide(state, CreateAccount{AccountID: "a1", InitialPlanID: "basic", Period: "2026-01"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(envs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(envs))
	}
	created, ok := envs[0].Event.(AccountCreatedPayload)
	if !ok {
		t.Fatalf("expected AccountCreatedPayload, got %T", envs[0].Event)
	}
	if created.PlanID != "basic" || created.Period != "2026-01" {
		t.Fatalf("unexpected payload: %+v", created)
	}
}

func TestDecideCreateAccountAlreadyExists(t *testing.T) {
	state := Fold(NewAccountState(), AccountCreatedPayload{PlanID: "basic", Period: "2026-01"})
	_, err := Decide(state, CreateAccount{AccountID: "a1", InitialPlanID: "basic", Period: "2026-01"})
	var iv *InvariantViolation
	if !errors.As(err, &iv) {
		t.Fatalf("expected InvariantViolation, got %v", err)
	}
}

func TestDecideOnMissingAccount(t *testing.T) {
	state := NewAccountState()
	_, err := Decide(state, SuspendAccount{AccountID: "ghost", Reason: "fraud"})
	var nf *NotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestRecordUsageAccumulates(t *testing.T) {
	state := Fold(NewAccountState(), AccountCreatedPayload{PlanID: "basic", Period: "2026-01"})
	envs, err := Decide(state, RecordUsage{AccountID: "a1", Meter: MeterAPICalls, Units: 3, OccurredAt: "2026-01-28T01:30:00Z", IdempotencyKey: "k1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state = Fold(state, envs[0].Event)
	if state.Used[MeterAPICalls] != 3 {
		t.Fatalf("expected used=3, got %d", state.Used[MeterAPICalls])
	}

	envs, err = Decide(state, RecordUsage{AccountID: "a1", Meter: MeterAPICalls, Units: 2, OccurredAt: "2026-01-28T02:00:00Z", IdempotencyKey: "k2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state = Fold(state, envs[0].Event)
	if state.Used[MeterAPICalls] != 5 {
		t.Fatalf("expected used=5, got %d", state.Used[MeterAPICalls])
	}
}

func TestRecordUsageRejectsNonPositiveUnits(t *testing.T) {
	state := Fold(NewAccountState(), AccountCreatedPayload{PlanID: "basic", Period: "2026-01"})
	for _, units := range []int64{0, -1} {
		_, err := Decide(state, RecordUsage{AccountID: "a1", Meter: MeterAPICalls, Units: units, OccurredAt: "now", IdempotencyKey: "k"})
		var iv *InvariantViolation
		if !errors.As(err, &iv) {
			t.Fatalf("units=%d: expected InvariantViolation, got %v", units, err)
		}
	}
}

func TestRecordUsageRejectedWhenSuspended(t *testing.T) {
	state := Fold(NewAccountState(), AccountCreatedPayload{PlanID: "basic", Period: "2026-01"})
	state = Fold(state, AccountSuspendedPayload{Reason: "fraud"})
	_, err := Decide(state, RecordUsage{AccountID: "a1", Meter: MeterAPICalls, Units: 1, OccurredAt: "now", IdempotencyKey: "k"})
	var iv *InvariantViolation
	if !errors.As(err, &iv) {
		t.Fatalf("expected InvariantViolation, got %v", err)
	}
}

func TestSuspendReinstateRoundTrip(t *testing.T) {
	state := Fold(NewAccountState(), AccountCreatedPayload{PlanID: "basic", Period: "2026-01"})

	if _, err := Decide(state, ReinstateAccount{AccountID: "a1"}); err == nil {
		t.Fatalf("expected error reinstating an already-active account")
	}

	envs, err := Decide(state, SuspendAccount{AccountID: "a1", Reason: "fraud"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state = Fold(state, envs[0].Event)
	if state.Status != StatusSuspended {
		t.Fatalf("expected suspended status")
	}

	if _, err := Decide(state, SuspendAccount{AccountID: "a1", Reason: "fraud"}); err == nil {
		t.Fatalf("expected error suspending an already-suspended account")
	}

	envs, err = Decide(state, ReinstateAccount{AccountID: "a1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state = Fold(state, envs[0].Event)
	if state.Status != StatusActive {
		t.Fatalf("expected active status")
	}
}

func TestResetPeriodForwardOnly(t *testing.T) {
	state := Fold(NewAccountState(), AccountCreatedPayload{PlanID: "basic", Period: "2026-01"})

	if _, err := Decide(state, ResetPeriod{AccountID: "a1", NewPeriod: "2026-01"}); err == nil {
		t.Fatalf("expected error resetting to the same period")
	}
	if _, err := Decide(state, ResetPeriod{AccountID: "a1", NewPeriod: "2025-12"}); err == nil {
		t.Fatalf("expected error resetting to an earlier period")
	}

	envs, err := Decide(state, ResetPeriod{AccountID: "a1", NewPeriod: "2026-02"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state = Fold(state, envs[0].Event)
	if state.Period != "2026-02" {
		t.Fatalf("expected period 2026-02, got %s", state.Period)
	}
}

func TestResetPeriodAllowsAnyPeriodWhenUnset(t *testing.T) {
	state := NewAccountState()
	state.Exists = true
	if _, err := Decide(state, ResetPeriod{AccountID: "a1", NewPeriod: "2020-01"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpcastIdentity(t *testing.T) {
	v1 := UsageRecordedPayloadV1{Meter: MeterAPICalls, Units: 5}
	once := Upcast(v1)
	twice := Upcast(once)
	if once != twice {
		t.Fatalf("upcast not idempotent: %+v vs %+v", once, twice)
	}
	v2, ok := once.(UsageRecordedPayload)
	if !ok {
		t.Fatalf("expected UsageRecordedPayload after upcast, got %T", once)
	}
	if v2.Source != "unknown" {
		t.Fatalf("expected source=unknown, got %q", v2.Source)
	}
}
