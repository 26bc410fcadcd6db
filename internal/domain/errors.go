// Package domain holds the pure event-sourced quota ledger aggregate: the
// event and command types, the fold and decide functions, and the upcaster.
// Nothing in this package performs I/O.
package domain

import "fmt"

// NotFound is returned when an operation requires an account that has not
// been created.
type NotFound struct {
	Message string
}

func (e *NotFound) Error() string { return e.Message }

// InvariantViolation is returned when a command is rejected by the
// aggregate's preconditions.
type InvariantViolation struct {
	Message string
}

func (e *InvariantViolation) Error() string { return e.Message }

// ConcurrencyConflict is returned when an append loses the optimistic
// concurrency race, or hits an integrity-constraint violation the caller
// must resolve by reloading and retrying.
type ConcurrencyConflict struct {
	StreamID        string
	ExpectedVersion int64
	ActualVersion   int64
}

func (e *ConcurrencyConflict) Error() string {
	return fmt.Sprintf("concurrency conflict for stream %q: expected %d, found %d", e.StreamID, e.ExpectedVersion, e.ActualVersion)
}

func newInvariantViolation(format string, args ...interface{}) *InvariantViolation {
	return &InvariantViolation{Message: fmt.Sprintf(format, args...)}
}
