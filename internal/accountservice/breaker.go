// Quota Ledger - Event-Sourced Usage Accounting Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quotaledger

package accountservice

import (
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/quotaledger/internal/domain"
)

// CircuitBreakerConfig holds circuit breaker settings for the append path.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultCircuitBreakerConfig returns production defaults: five
// consecutive append failures trip the breaker open for ten seconds.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}

func newCircuitBreaker(cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[appendResult] {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// Domain validation errors (NotFound, InvariantViolation) are
		// expected traffic, not infrastructure failure, and don't count
		// against the breaker. ConcurrencyConflict does count: a single
		// conflict is a normal retry, but a storm of them means the
		// append path is contended or wedged, and the breaker should trip
		// open the same as it would for a storage failure.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var notFound *domain.NotFound
			var invariant *domain.InvariantViolation
			return errors.As(err, &notFound) || errors.As(err, &invariant)
		},
	}
	return gobreaker.NewCircuitBreaker[appendResult](settings)
}
