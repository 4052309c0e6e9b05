// Package scheduler drives reconciliation cycles at a fixed interval.
package scheduler

import (
	"context"
	"sync"
	"time"

	"dealflow/internal/reconciler"
	"dealflow/pkg/logging"
)

// CycleRunner runs one reconciliation cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) (reconciler.CycleReport, error)
}

// Scheduler drives the reconciliation loop at a fixed interval.
//
// Ticks never overlap: if a cycle is still running when the next tick
// fires, that tick is skipped with a warning rather than queued. A failed
// cycle is logged and the loop continues; only context cancellation stops
// it.
type Scheduler struct {
	runner   CycleRunner
	interval time.Duration

	// running guards against overlapping cycles when a tick fires while
	// the previous cycle is still in flight.
	running sync.Mutex
}

// New creates a scheduler that runs the given runner every interval.
func New(runner CycleRunner, interval time.Duration) *Scheduler {
	return &Scheduler{runner: runner, interval: interval}
}

// Run executes cycles until the context is cancelled. The first cycle runs
// immediately; subsequent cycles follow the ticker. Returns the context's
// error on cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	logging.Info("Scheduler", "Starting reconciliation loop, interval %s", s.interval)

	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info("Scheduler", "Reconciliation loop stopped")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs one cycle unless one is already in flight.
func (s *Scheduler) tick(ctx context.Context) {
	if !s.running.TryLock() {
		logging.Warn("Scheduler", "Previous cycle still running, skipping tick")
		return
	}
	defer s.running.Unlock()

	if _, err := s.runner.RunCycle(ctx); err != nil && ctx.Err() == nil {
		logging.Error("Scheduler", err, "Cycle failed")
	}
}
