package domain

// Fold applies a single event to state and returns the resulting state.
// It never returns an error: applying an event to a stream that already
// produced it is always well-defined, since events are facts, not
// requests. Fold ignores events other than AccountCreated when the
// account does not yet exist, matching the invariant that AccountCreated
// is always the first event of a stream.
func Fold(state AccountState, e Event) AccountState {
	switch p := e.(type) {
	case AccountCreatedPayload:
		return AccountState{
			Exists: true,
			Status: StatusActive,
			PlanID: p.PlanID,
			Period: p.Period,
			Used:   map[Meter]int64{},
		}
	}

	if !state.Exists {
		return state
	}

	switch p := e.(type) {
	case PlanChangedPayload:
		state.PlanID = p.PlanID
		return state

	case UsageRecordedPayload:
		used := cloneUsed(state.Used)
		used[p.Meter] += p.Units
		state.Used = used
		return state

	case UsageRecordedPayloadV1:
		used := cloneUsed(state.Used)
		used[p.Meter] += p.Units
		state.Used = used
		return state

	case PeriodResetPayload:
		state.Period = p.Period
		state.Used = map[Meter]int64{}
		return state

	case AccountSuspendedPayload:
		state.Status = StatusSuspended
		return state

	case AccountReinstatedPayload:
		state.Status = StatusActive
		return state
	}

	return state
}

// FoldAll folds a sequence of events onto the empty state, in order.
func FoldAll(events []Event) AccountState {
	state := NewAccountState()
	for _, e := range events {
		state = Fold(state, e)
	}
	return state
}

// Decide evaluates a command against the current state and returns the
// events it produces, or an error if a precondition fails. Decide never
// performs I/O; timestamps that need "now" are resolved by the caller
// (eventstore) at persistence time, not here.
func Decide(state AccountState, cmd Command) ([]Envelope, error) {
	switch c := cmd.(type) {
	case CreateAccount:
		if state.Exists {
			return nil, newInvariantViolation("account already exists")
		}
		return []Envelope{{
			Event:      AccountCreatedPayload{PlanID: c.InitialPlanID, Period: c.Period},
			OccurredAt: "now",
		}}, nil
	}

	if !state.Exists {
		return nil, &NotFound{Message: "account does not exist"}
	}

	switch c := cmd.(type) {
	case ChangePlan:
		if state.Status != StatusActive {
			return nil, newInvariantViolation("cannot change plan when account is suspended")
		}
		return []Envelope{{
			Event:      PlanChangedPayload{PlanID: c.NewPlanID},
			OccurredAt: "now",
		}}, nil

	case RecordUsage:
		if c.Units <= 0 {
			return nil, newInvariantViolation("usage units must be > 0")
		}
		if state.Status != StatusActive {
			return nil, newInvariantViolation("cannot record usage when account is suspended")
		}
		return []Envelope{{
			Event:          UsageRecordedPayload{Meter: c.Meter, Units: c.Units, Source: "api"},
			OccurredAt:     c.OccurredAt,
			IdempotencyKey: c.IdempotencyKey,
		}}, nil

	case ResetPeriod:
		if state.Period != "" && c.NewPeriod <= state.Period {
			return nil, newInvariantViolation("period must move forward")
		}
		return []Envelope{{
			Event:      PeriodResetPayload{Period: c.NewPeriod},
			OccurredAt: "now",
		}}, nil

	case SuspendAccount:
		if state.Status == StatusSuspended {
			return nil, newInvariantViolation("already suspended")
		}
		return []Envelope{{
			Event:      AccountSuspendedPayload{Reason: c.Reason},
			OccurredAt: "now",
		}}, nil

	case ReinstateAccount:
		if state.Status == StatusActive {
			return nil, newInvariantViolation("already active")
		}
		return []Envelope{{
			Event:      AccountReinstatedPayload{},
			OccurredAt: "now",
		}}, nil
	}

	return nil, newInvariantViolation("unknown command: %T", cmd)
}
