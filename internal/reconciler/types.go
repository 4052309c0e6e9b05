package reconciler

import (
	"context"
	"time"

	"dealflow/internal/crm"
)

// Handler is the interface entity-type rule evaluators implement.
//
// The dispatcher routes created/updated change events for a handler's entity
// type to Handle. A handler must be safe to invoke repeatedly with the same
// event: the sync feed is at-least-once and a failed batch may be
// redelivered.
type Handler interface {
	// EntityType returns the entity type this handler processes.
	EntityType() crm.EntityType

	// Handle evaluates and applies the handler's rule for one change event.
	// An error marks that single entity as failed; it never aborts the
	// batch.
	Handle(ctx context.Context, event crm.ChangeEvent) error
}

// CyclePreparer is an optional per-cycle setup step. The dispatcher runs
// every registered preparer before processing a batch; a preparer error
// aborts the cycle without advancing the cursor.
type CyclePreparer interface {
	PrepareCycle(ctx context.Context) error
}

// OutcomeStatus classifies the result of processing one change event.
type OutcomeStatus string

const (
	// StatusSucceeded means the handler completed without error.
	StatusSucceeded OutcomeStatus = "succeeded"

	// StatusFailed means the handler (or payload decoding) returned an
	// error; the entity may be re-evaluated if the feed redelivers it.
	StatusFailed OutcomeStatus = "failed"

	// StatusSkipped means the event was acknowledged without evaluation:
	// an entity type with no registered handler, or an event type outside
	// created/updated.
	StatusSkipped OutcomeStatus = "skipped"
)

// Outcome is the per-entity processing result reported to the caller.
type Outcome struct {
	EntityType crm.EntityType
	EventType  crm.EventType
	EntityID   int64
	Status     OutcomeStatus
	Error      string
}

// CycleReport summarizes one reconciliation cycle.
type CycleReport struct {
	// CycleID correlates all log lines of one cycle.
	CycleID string

	// StartCursor and NextCursor bracket the batch in the sync feed.
	StartCursor string
	NextCursor  string

	Started  time.Time
	Finished time.Time

	Outcomes []Outcome
}

// Counts tallies the report's outcomes by status.
func (r CycleReport) Counts() (succeeded, failed, skipped int) {
	for _, outcome := range r.Outcomes {
		switch outcome.Status {
		case StatusSucceeded:
			succeeded++
		case StatusFailed:
			failed++
		case StatusSkipped:
			skipped++
		}
	}
	return succeeded, failed, skipped
}
