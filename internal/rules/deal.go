package rules

import (
	"context"
	"encoding/json"
	"fmt"

	"dealflow/internal/crm"
	"dealflow/internal/directory"
	"dealflow/pkg/logging"
)

// DealRule reassigns ownership of won deals' contacts.
//
// When a deal reaches a stage with the won category, the contact it is
// attached to should be owned by an account manager. If the contact's
// current owner is not classified as one, ownership moves to the
// configured on-duty account manager. The mutation is a single attribute
// update on the contact; the deal itself is never modified.
type DealRule struct {
	gateway        crm.Gateway
	resolver       *directory.Resolver
	accountManager directory.RoleClassifier
	stages         *StageIndex
	onDuty         directory.OnDutyIdentity
}

// NewDealRule wires the deal rule evaluator.
func NewDealRule(
	gateway crm.Gateway,
	resolver *directory.Resolver,
	accountManager directory.RoleClassifier,
	stages *StageIndex,
	onDuty directory.OnDutyIdentity,
) *DealRule {
	return &DealRule{
		gateway:        gateway,
		resolver:       resolver,
		accountManager: accountManager,
		stages:         stages,
		onDuty:         onDuty,
	}
}

// EntityType implements reconciler.Handler.
func (r *DealRule) EntityType() crm.EntityType {
	return crm.EntityTypeDeal
}

// Handle implements reconciler.Handler.
func (r *DealRule) Handle(ctx context.Context, event crm.ChangeEvent) error {
	var deal crm.Deal
	if err := json.Unmarshal(event.Payload, &deal); err != nil {
		return fmt.Errorf("decode deal payload: %w", err)
	}

	if !r.IsWon(deal) {
		logging.Debug("DealRule", "Deal %d is not in a won stage, skipping", deal.ID)
		return nil
	}
	return r.ReassignOwner(ctx, deal)
}

// IsWon reports whether the deal's stage carries the won category.
func (r *DealRule) IsWon(deal crm.Deal) bool {
	return r.stages.IsWon(deal.StageID)
}

// ReassignOwner moves the deal's contact to the on-duty account manager
// unless the contact is already owned by an account manager. Re-running
// against an already-reassigned contact is a no-op.
func (r *DealRule) ReassignOwner(ctx context.Context, deal crm.Deal) error {
	contact, err := r.gateway.GetContact(ctx, deal.ContactID)
	if err != nil {
		return fmt.Errorf("deal %d: fetch contact %d: %w", deal.ID, deal.ContactID, err)
	}

	owner, err := r.resolver.ResolveOwner(ctx, contact.OwnerID)
	if err != nil {
		return fmt.Errorf("deal %d: %w", deal.ID, err)
	}
	if r.accountManager.Matches(owner) {
		logging.Debug("DealRule", "Contact %d already owned by an account manager, skipping", contact.ID)
		return nil
	}

	manager, err := r.resolver.ResolveOnDuty(ctx, r.onDuty)
	if err != nil {
		return fmt.Errorf("deal %d: resolve on-duty account manager: %w", deal.ID, err)
	}

	if _, err := r.gateway.UpdateContactOwner(ctx, contact.ID, manager.ID); err != nil {
		return fmt.Errorf("deal %d: reassign contact %d to user %d: %w", deal.ID, contact.ID, manager.ID, err)
	}
	logging.Info("DealRule", "Reassigned contact %d from user %d to on-duty account manager %d (deal %d won)",
		contact.ID, owner.ID, manager.ID, deal.ID)
	return nil
}
