// Package rules holds the two business rules the reconciliation engine
// applies: auto-creating a deal for new prospective-customer contacts
// (ContactRule) and reassigning ownership of won deals' contacts to the
// on-duty account manager (DealRule). Both implement reconciler.Handler.
//
// Rules are decide-then-act and intentionally idempotent: re-evaluating an
// entity whose rule has already been applied is a no-op. Evaluation and
// action are not transactional; the known races are documented on the
// individual rules.
package rules
