package domain

// Upcast normalizes a stored event to its latest in-memory schema
// version at read time. It is a pure, total function: events already at
// the latest version pass through unchanged, which is what makes
// Upcast(Upcast(e)) == Upcast(e).
//
// The only upcast rule so far: UsageRecorded v1 gains a Source field,
// defaulted to "unknown" since the original caller is no longer known.
func Upcast(e Event) Event {
	if v1, ok := e.(UsageRecordedPayloadV1); ok {
		return UsageRecordedPayload{
			Meter:  v1.Meter,
			Units:  v1.Units,
			Source: "unknown",
		}
	}
	return e
}
