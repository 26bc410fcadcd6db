package domain

// Meter identifies a metered quantity tracked against an account's plan.
type Meter string

const (
	MeterAPICalls Meter = "api_calls"
	MeterStorageMB Meter = "storage_mb"
)

// Plan is a named bundle of per-meter limits. Limit enforcement against
// used quota is out of scope here; Plan exists so a future authorization
// layer has somewhere to hang the numbers.
type Plan struct {
	PlanID string
	Limits map[Meter]int64
}

// AccountStatus is the lifecycle status of an account.
type AccountStatus string

const (
	StatusActive    AccountStatus = "active"
	StatusSuspended AccountStatus = "suspended"
)

// AccountState is the folded aggregate state for one account stream.
// NewAccountState returns the state of a stream with no events: Exists is
// false and Status is "active" to match the source's default, though it is
// never observed externally until Exists is true. The zero value has an
// empty Status.
type AccountState struct {
	Exists  bool
	Status  AccountStatus
	PlanID  string
	Period  string
	Used    map[Meter]int64
}

// NewAccountState returns the empty aggregate state, the fold's identity
// element.
func NewAccountState() AccountState {
	return AccountState{Status: StatusActive}
}

// cloneUsed returns a shallow copy of m so callers can mutate the result
// without aliasing the state they folded from.
func cloneUsed(m map[Meter]int64) map[Meter]int64 {
	out := make(map[Meter]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
