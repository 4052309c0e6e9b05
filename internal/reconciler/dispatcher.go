package reconciler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"dealflow/internal/crm"
	"dealflow/pkg/logging"
)

// Dispatcher drives one polling cycle over the CRM's incremental sync feed.
//
// Entities in a batch are processed sequentially, in arrival order. A
// failure while processing one entity is isolated: it is logged with the
// entity identifier, recorded as a failed outcome, and processing
// continues. The cursor advances only after the whole batch completes, and
// it advances regardless of per-entity failures (at-least-once semantics: a
// crash mid-batch causes full-batch redelivery, so handlers must tolerate
// duplicate evaluation).
type Dispatcher struct {
	mu sync.Mutex

	gateway   crm.Gateway
	handlers  map[crm.EntityType]Handler
	preparers []CyclePreparer
	metrics   *Metrics

	// cursor is the in-memory sync position. There is no durable
	// checkpoint: a restart resumes from the gateway's last acked
	// position.
	cursor string
}

// NewDispatcher creates a dispatcher over the given gateway.
func NewDispatcher(gateway crm.Gateway) *Dispatcher {
	return &Dispatcher{
		gateway:  gateway,
		handlers: make(map[crm.EntityType]Handler),
		metrics:  NewMetrics(),
	}
}

// Register adds a handler to the entity-type routing table.
func (d *Dispatcher) Register(handler Handler) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	entityType := handler.EntityType()
	if _, exists := d.handlers[entityType]; exists {
		return fmt.Errorf("handler for %s already registered", entityType)
	}
	d.handlers[entityType] = handler
	logging.Info("Dispatcher", "Registered handler for %s", entityType)
	return nil
}

// AddPreparer registers a per-cycle setup step (e.g. the stage index
// refresh). Preparers run before each batch in registration order.
func (d *Dispatcher) AddPreparer(preparer CyclePreparer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.preparers = append(d.preparers, preparer)
}

// Metrics returns the dispatcher's counters.
func (d *Dispatcher) Metrics() *Metrics {
	return d.metrics
}

// Cursor returns the current in-memory sync cursor.
func (d *Dispatcher) Cursor() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cursor
}

// RunCycle fetches one batch of changed entities and processes it. A
// cycle-level error (preparer failure, fetch failure) aborts the cycle
// without advancing the cursor and propagates to the caller; per-entity
// errors never do.
func (d *Dispatcher) RunCycle(ctx context.Context) (CycleReport, error) {
	d.mu.Lock()
	startCursor := d.cursor
	preparers := append([]CyclePreparer(nil), d.preparers...)
	d.mu.Unlock()

	report := CycleReport{
		CycleID:     uuid.NewString(),
		StartCursor: startCursor,
		Started:     time.Now(),
	}

	logging.Debug("Dispatcher", "Starting cycle %s (cursor=%q)", report.CycleID, startCursor)

	for _, preparer := range preparers {
		if err := preparer.PrepareCycle(ctx); err != nil {
			return report, fmt.Errorf("prepare cycle: %w", err)
		}
	}

	events, nextCursor, err := d.gateway.FetchChanges(ctx, startCursor)
	if err != nil {
		d.metrics.RecordCycleError()
		return report, fmt.Errorf("fetch changes: %w", err)
	}

	for _, event := range events {
		outcome := d.processEvent(ctx, report.CycleID, event)
		report.Outcomes = append(report.Outcomes, outcome)
	}

	// Advance the cursor for the whole batch, failed entities included.
	d.mu.Lock()
	d.cursor = nextCursor
	d.mu.Unlock()
	report.NextCursor = nextCursor

	if len(events) > 0 && nextCursor != startCursor {
		if err := d.gateway.AckChanges(ctx, nextCursor); err != nil {
			// The batch was processed; a failed ack only means redelivery.
			logging.Warn("Dispatcher", "Cycle %s: ack failed, batch may be redelivered: %v", report.CycleID, err)
		}
	}

	report.Finished = time.Now()
	d.metrics.RecordCycle(report)

	succeeded, failed, skipped := report.Counts()
	logging.Info("Dispatcher", "Cycle %s done: %d succeeded, %d failed, %d skipped (%.3fs)",
		report.CycleID, succeeded, failed, skipped, report.Finished.Sub(report.Started).Seconds())

	return report, nil
}

// processEvent routes one change event and isolates its failure.
func (d *Dispatcher) processEvent(ctx context.Context, cycleID string, event crm.ChangeEvent) Outcome {
	outcome := Outcome{
		EntityType: event.EntityType,
		EventType:  event.EventType,
		EntityID:   event.EntityID,
	}

	d.mu.Lock()
	handler, registered := d.handlers[event.EntityType]
	d.mu.Unlock()

	// No-op acknowledgement: irrelevant entity types and lifecycle events
	// still count toward the batch so the cursor can advance past them.
	if !registered {
		outcome.Status = StatusSkipped
		d.metrics.RecordSkip(event.EntityType)
		logging.Debug("Dispatcher", "Cycle %s: ignoring %s event for unhandled type %s (id=%d)",
			cycleID, event.EventType, event.EntityType, event.EntityID)
		return outcome
	}
	if event.EventType != crm.EventTypeCreated && event.EventType != crm.EventTypeUpdated {
		outcome.Status = StatusSkipped
		d.metrics.RecordSkip(event.EntityType)
		logging.Debug("Dispatcher", "Cycle %s: ignoring %s event for %s (id=%d)",
			cycleID, event.EventType, event.EntityType, event.EntityID)
		return outcome
	}

	d.metrics.RecordAttempt(event.EntityType)
	if err := d.invokeHandler(ctx, handler, event); err != nil {
		outcome.Status = StatusFailed
		outcome.Error = err.Error()
		d.metrics.RecordFailure(event.EntityType)
		logging.Error("Dispatcher", err, "Cycle %s: cannot process %s (id=%d)",
			cycleID, event.EntityType, event.EntityID)
		return outcome
	}

	outcome.Status = StatusSucceeded
	d.metrics.RecordSuccess(event.EntityType)
	return outcome
}

// invokeHandler calls the handler, converting a panic into an error so one
// bad entity cannot take down the batch.
func (d *Dispatcher) invokeHandler(ctx context.Context, handler Handler, event crm.ChangeEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler.Handle(ctx, event)
}
