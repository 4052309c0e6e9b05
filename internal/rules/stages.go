package rules

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dealflow/internal/crm"
	"dealflow/pkg/logging"
)

// StageIndex pre-resolves the stage set once per cycle instead of
// re-querying per entity. Won/active lookups during a cycle hit the cached
// sets; the dispatcher refreshes the index as a cycle preparer, so stage
// changes in the CRM are picked up at the next cycle boundary.
type StageIndex struct {
	mu sync.RWMutex

	gateway crm.Gateway

	activeIDs   map[int64]struct{}
	wonIDs      map[int64]struct{}
	refreshedAt time.Time
}

// NewStageIndex creates an empty index. Refresh must run before the first
// lookup; the dispatcher guarantees that by running preparers before each
// batch.
func NewStageIndex(gateway crm.Gateway) *StageIndex {
	return &StageIndex{
		gateway:   gateway,
		activeIDs: map[int64]struct{}{},
		wonIDs:    map[int64]struct{}{},
	}
}

// PrepareCycle implements reconciler.CyclePreparer.
func (s *StageIndex) PrepareCycle(ctx context.Context) error {
	return s.Refresh(ctx)
}

// Refresh re-reads all stages from the gateway and rebuilds the lookup
// sets atomically.
func (s *StageIndex) Refresh(ctx context.Context) error {
	stages, err := s.gateway.ListStages(ctx, crm.StageFilter{})
	if err != nil {
		return fmt.Errorf("refresh stage index: %w", err)
	}

	activeIDs := make(map[int64]struct{})
	wonIDs := make(map[int64]struct{})
	for _, stage := range stages {
		if stage.Active {
			activeIDs[stage.ID] = struct{}{}
		}
		if stage.Category == crm.StageCategoryWon {
			wonIDs[stage.ID] = struct{}{}
		}
	}

	s.mu.Lock()
	s.activeIDs = activeIDs
	s.wonIDs = wonIDs
	s.refreshedAt = time.Now()
	s.mu.Unlock()

	logging.Debug("StageIndex", "Refreshed: %d stages, %d active, %d won",
		len(stages), len(activeIDs), len(wonIDs))
	return nil
}

// IsActive reports whether deals in the given stage count as in progress.
func (s *StageIndex) IsActive(stageID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.activeIDs[stageID]
	return ok
}

// IsWon reports whether the given stage carries the won category.
func (s *StageIndex) IsWon(stageID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.wonIDs[stageID]
	return ok
}

// RefreshedAt returns when the index was last rebuilt, zero if never.
func (s *StageIndex) RefreshedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshedAt
}
