package domain

// Command is implemented by every command type accepted by Decide. It
// carries no behavior of its own; Decide switches exhaustively over the
// concrete types.
type Command interface {
	isCommand()
}

// CreateAccount opens a new stream for account_id with an initial plan
// and billing period.
type CreateAccount struct {
	AccountID      string
	InitialPlanID  string
	Period         string
}

func (CreateAccount) isCommand() {}

// ChangePlan switches an existing account to a new plan.
type ChangePlan struct {
	AccountID string
	NewPlanID string
}

func (ChangePlan) isCommand() {}

// RecordUsage adds units of a meter to the account's current period.
// OccurredAt is a timestamp string understood by eventstore's timestamp
// parser ("now", or ISO8601 with or without an offset). IdempotencyKey
// makes repeating the exact call a no-op past the first application.
type RecordUsage struct {
	AccountID      string
	Meter          Meter
	Units          int64
	OccurredAt     string
	IdempotencyKey string
}

func (RecordUsage) isCommand() {}

// ResetPeriod advances the account to a new billing period, zeroing used.
type ResetPeriod struct {
	AccountID string
	NewPeriod string
}

func (ResetPeriod) isCommand() {}

// SuspendAccount stops an active account from accepting usage.
type SuspendAccount struct {
	AccountID string
	Reason    string
}

func (SuspendAccount) isCommand() {}

// ReinstateAccount resumes a suspended account.
type ReinstateAccount struct {
	AccountID string
}

func (ReinstateAccount) isCommand() {}
