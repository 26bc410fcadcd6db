// Quota Ledger - Event-Sourced Usage Accounting Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quotaledger

package supervisor

import (
	"context"
	"time"

	"github.com/tomtom215/quotaledger/internal/logging"
)

// Checkpointer forces DuckDB to flush its WAL into the main database file.
type Checkpointer interface {
	Checkpoint() error
}

// CheckpointService periodically checkpoints the event store so a crash
// replays a short WAL tail instead of the database's whole history.
type CheckpointService struct {
	store    Checkpointer
	interval time.Duration
}

// NewCheckpointService returns a service that checkpoints store every interval.
func NewCheckpointService(store Checkpointer, interval time.Duration) *CheckpointService {
	return &CheckpointService{store: store, interval: interval}
}

// Serve implements suture.Service.
func (s *CheckpointService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.store.Checkpoint(); err != nil {
				logging.Ctx(ctx).Warn().Err(err).Msg("periodic checkpoint failed")
			}
		}
	}
}

// String implements fmt.Stringer; suture uses it to identify the
// service in log messages.
func (s *CheckpointService) String() string {
	return "checkpoint-ticker"
}
