package scheduler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealflow/internal/reconciler"
)

type countingRunner struct {
	mu     sync.Mutex
	cycles int
	block  chan struct{}
	err    error
}

func (r *countingRunner) RunCycle(ctx context.Context) (reconciler.CycleReport, error) {
	r.mu.Lock()
	r.cycles++
	block := r.block
	r.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return reconciler.CycleReport{}, ctx.Err()
		}
	}
	return reconciler.CycleReport{}, r.err
}

func (r *countingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cycles
}

func TestScheduler_RunsImmediatelyAndOnTicks(t *testing.T) {
	runner := &countingRunner{}
	s := New(runner, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()

	err := s.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// One immediate cycle plus at least one tick within the window.
	assert.GreaterOrEqual(t, runner.count(), 2)
}

func TestScheduler_ContinuesAfterCycleError(t *testing.T) {
	runner := &countingRunner{err: fmt.Errorf("boom")}
	s := New(runner, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, s.Run(ctx), context.DeadlineExceeded)
	assert.GreaterOrEqual(t, runner.count(), 2)
}

func TestScheduler_SkipsOverlappingTicks(t *testing.T) {
	runner := &countingRunner{block: make(chan struct{})}
	s := New(runner, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// The first cycle blocks across many tick intervals; every tick in
	// that window must be skipped, not queued.
	time.Sleep(60 * time.Millisecond)
	cancel()
	close(runner.block)
	require.Error(t, <-done)

	assert.Equal(t, 1, runner.count())
}
