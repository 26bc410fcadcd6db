package domain

// EventType names one of the six closed event variants as persisted in
// the event_type column.
type EventType string

const (
	EventAccountCreated    EventType = "AccountCreated"
	EventPlanChanged       EventType = "PlanChanged"
	EventUsageRecorded     EventType = "UsageRecorded"
	EventPeriodReset       EventType = "PeriodReset"
	EventAccountSuspended  EventType = "AccountSuspended"
	EventAccountReinstated EventType = "AccountReinstated"
)

// Event is implemented by every event payload type. Type returns the
// persisted event_type and SchemaVersion the persisted schema version;
// the store serializes the concrete type to the payload column.
type Event interface {
	Type() EventType
	SchemaVersion() int
}

// AccountCreatedPayload is schema version 1.
type AccountCreatedPayload struct {
	PlanID string `json:"plan_id"`
	Period string `json:"period"`
}

func (AccountCreatedPayload) Type() EventType { return EventAccountCreated }
func (AccountCreatedPayload) SchemaVersion() int { return 1 }

// PlanChangedPayload is schema version 1.
type PlanChangedPayload struct {
	PlanID string `json:"plan_id"`
}

func (PlanChangedPayload) Type() EventType { return EventPlanChanged }
func (PlanChangedPayload) SchemaVersion() int { return 1 }

// UsageRecordedPayloadV1 is the original schema: meter and units only.
type UsageRecordedPayloadV1 struct {
	Meter Meter `json:"meter"`
	Units int64 `json:"units"`
}

func (UsageRecordedPayloadV1) Type() EventType { return EventUsageRecorded }
func (UsageRecordedPayloadV1) SchemaVersion() int { return 1 }

// UsageRecordedPayload is schema version 2: adds Source, the attribution
// of who recorded the usage. Newly decided commands always produce this
// version; v1 rows on disk are normalized to it by Upcast.
type UsageRecordedPayload struct {
	Meter  Meter  `json:"meter"`
	Units  int64  `json:"units"`
	Source string `json:"source"`
}

func (UsageRecordedPayload) Type() EventType { return EventUsageRecorded }
func (UsageRecordedPayload) SchemaVersion() int { return 2 }

// PeriodResetPayload is schema version 1.
type PeriodResetPayload struct {
	Period string `json:"period"`
}

func (PeriodResetPayload) Type() EventType { return EventPeriodReset }
func (PeriodResetPayload) SchemaVersion() int { return 1 }

// AccountSuspendedPayload is schema version 1.
type AccountSuspendedPayload struct {
	Reason string `json:"reason"`
}

func (AccountSuspendedPayload) Type() EventType { return EventAccountSuspended }
func (AccountSuspendedPayload) SchemaVersion() int { return 1 }

// AccountReinstatedPayload is schema version 1 and carries no fields.
type AccountReinstatedPayload struct{}

func (AccountReinstatedPayload) Type() EventType { return EventAccountReinstated }
func (AccountReinstatedPayload) SchemaVersion() int { return 1 }

// Envelope is an event together with the metadata the store persists
// alongside the payload. OccurredAt carries the sentinel "now" until the
// store resolves it at the persistence boundary (see internal/eventstore).
type Envelope struct {
	Event          Event
	OccurredAt     string
	IdempotencyKey string
}
