package reconciler

import (
	"sync"
	"time"

	"dealflow/internal/crm"
)

// Metrics tracks reconciliation counters for observability.
//
// Counters are tracked per entity type plus cycle-level totals. Snapshots
// are logged at cycle end and surfaced by the once/check commands; there is
// no external metrics transport.
type Metrics struct {
	mu sync.RWMutex

	entityMetrics map[crm.EntityType]*entityTypeMetrics

	totalCycles      int64
	totalCycleErrors int64
	lastCycleAt      time.Time
}

// entityTypeMetrics holds counters for a single entity type.
type entityTypeMetrics struct {
	Attempts      int64
	Successes     int64
	Failures      int64
	Skips         int64
	LastAttemptAt time.Time
	LastFailureAt time.Time
}

// EntityTypeSnapshot is a read-only copy of one entity type's counters.
type EntityTypeSnapshot struct {
	EntityType    crm.EntityType
	Attempts      int64
	Successes     int64
	Failures      int64
	Skips         int64
	LastAttemptAt time.Time
	LastFailureAt time.Time
}

// Snapshot is a read-only copy of all counters.
type Snapshot struct {
	Cycles      int64
	CycleErrors int64
	LastCycleAt time.Time
	EntityTypes []EntityTypeSnapshot
}

// NewMetrics creates an empty Metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{
		entityMetrics: make(map[crm.EntityType]*entityTypeMetrics),
	}
}

func (m *Metrics) getOrCreate(entityType crm.EntityType) *entityTypeMetrics {
	if metrics, exists := m.entityMetrics[entityType]; exists {
		return metrics
	}
	metrics := &entityTypeMetrics{}
	m.entityMetrics[entityType] = metrics
	return metrics
}

// RecordAttempt records a handler invocation for an entity type.
func (m *Metrics) RecordAttempt(entityType crm.EntityType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	metrics := m.getOrCreate(entityType)
	metrics.Attempts++
	metrics.LastAttemptAt = time.Now()
}

// RecordSuccess records a successful handler invocation.
func (m *Metrics) RecordSuccess(entityType crm.EntityType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getOrCreate(entityType).Successes++
}

// RecordFailure records a failed handler invocation.
func (m *Metrics) RecordFailure(entityType crm.EntityType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	metrics := m.getOrCreate(entityType)
	metrics.Failures++
	metrics.LastFailureAt = time.Now()
}

// RecordSkip records an acknowledged no-op event.
func (m *Metrics) RecordSkip(entityType crm.EntityType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getOrCreate(entityType).Skips++
}

// RecordCycle records a completed cycle.
func (m *Metrics) RecordCycle(report CycleReport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalCycles++
	m.lastCycleAt = report.Finished
}

// RecordCycleError records a cycle that aborted before completing.
func (m *Metrics) RecordCycleError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalCycleErrors++
}

// Snapshot returns a copy of all counters.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := Snapshot{
		Cycles:      m.totalCycles,
		CycleErrors: m.totalCycleErrors,
		LastCycleAt: m.lastCycleAt,
	}
	for entityType, metrics := range m.entityMetrics {
		snapshot.EntityTypes = append(snapshot.EntityTypes, EntityTypeSnapshot{
			EntityType:    entityType,
			Attempts:      metrics.Attempts,
			Successes:     metrics.Successes,
			Failures:      metrics.Failures,
			Skips:         metrics.Skips,
			LastAttemptAt: metrics.LastAttemptAt,
			LastFailureAt: metrics.LastFailureAt,
		})
	}
	return snapshot
}
