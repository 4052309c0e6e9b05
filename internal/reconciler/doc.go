// Package reconciler drives the periodic reconciliation of CRM state
// against the configured business rules.
//
// # Overview
//
// One reconciliation cycle fetches a batch of changed entities from the
// CRM's incremental sync feed and routes each entity, in arrival order,
// through a lookup table of entity type to Handler. Entity types without a
// registered handler, and lifecycle events other than created/updated, are
// acknowledged as no-ops so the feed cursor can advance past them.
//
// # Failure isolation
//
// A handler error (or panic) marks that single entity as failed and is
// logged with the entity identifier; the remaining entities in the batch
// are unaffected. The cursor advances once per batch, after all entities
// are processed, regardless of per-entity failures. Cycle-level failures
// (stage index refresh, feed fetch) abort the cycle without advancing the
// cursor and propagate to the scheduler, which retries on the next tick.
//
// # Delivery semantics
//
// The feed is at-least-once: a crash between processing and acknowledging
// a batch causes full-batch redelivery on restart. Handlers are therefore
// written so that re-evaluating an already-applied rule is a no-op.
package reconciler
