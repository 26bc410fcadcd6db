// Quota Ledger - Event-Sourced Usage Accounting Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quotaledger

package supervisor

import (
	"context"
	"time"

	"github.com/tomtom215/quotaledger/internal/logging"
	"github.com/tomtom215/quotaledger/internal/metrics"
)

// AccountSampler lists a sample of account IDs to audit.
type AccountSampler interface {
	SampleAccountIDs(ctx context.Context, limit int) ([]string, error)
}

// DriftAuditor compares one account's projection row against a replay
// of its full stream.
type DriftAuditor interface {
	Audit(ctx context.Context, accountID string) (drifted bool, err error)
}

// AuditorService periodically samples a handful of accounts and
// compares their account_current projection row against a fresh stream
// replay, surfacing any drift through metrics.ProjectionDriftTotal.
// The projection must never diverge from the event log; this is the
// background check that catches it if it ever does.
type AuditorService struct {
	sampler    AccountSampler
	auditor    DriftAuditor
	interval   time.Duration
	sampleSize int
}

// NewAuditorService returns an auditor that checks sampleSize accounts
// every interval.
func NewAuditorService(sampler AccountSampler, auditor DriftAuditor, interval time.Duration, sampleSize int) *AuditorService {
	return &AuditorService{sampler: sampler, auditor: auditor, interval: interval, sampleSize: sampleSize}
}

// Serve implements suture.Service.
func (s *AuditorService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *AuditorService) runOnce(ctx context.Context) {
	ids, err := s.sampler.SampleAccountIDs(ctx, s.sampleSize)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("invariant auditor failed to sample accounts")
		return
	}

	for _, id := range ids {
		drifted, err := s.auditor.Audit(ctx, id)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("account_id", id).Msg("invariant auditor failed to check account")
			continue
		}
		if drifted {
			metrics.RecordProjectionDrift()
			logging.Ctx(ctx).Error().Str("account_id", id).Msg("projection drift detected: account_current disagrees with replay")
		}
	}
}

// String implements fmt.Stringer; suture uses it to identify the
// service in log messages.
func (s *AuditorService) String() string {
	return "invariant-auditor"
}
