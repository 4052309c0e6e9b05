package rules

import (
	"context"
	"encoding/json"
	"fmt"

	"dealflow/internal/crm"
	"dealflow/internal/directory"
	"dealflow/pkg/logging"
)

// ContactRule auto-creates a deal for prospective-customer contacts.
//
// A new deal is warranted iff the contact is an organization, its owner is
// classified as a sales representative, and no deal attached to the contact
// currently sits in an active stage. The created deal is owned by the
// contact's current owner and named by the DealNamer.
type ContactRule struct {
	gateway  crm.Gateway
	resolver *directory.Resolver
	salesRep directory.RoleClassifier
	stages   *StageIndex
	namer    *DealNamer
}

// NewContactRule wires the contact rule evaluator.
func NewContactRule(
	gateway crm.Gateway,
	resolver *directory.Resolver,
	salesRep directory.RoleClassifier,
	stages *StageIndex,
	namer *DealNamer,
) *ContactRule {
	return &ContactRule{
		gateway:  gateway,
		resolver: resolver,
		salesRep: salesRep,
		stages:   stages,
		namer:    namer,
	}
}

// EntityType implements reconciler.Handler.
func (r *ContactRule) EntityType() crm.EntityType {
	return crm.EntityTypeContact
}

// Handle implements reconciler.Handler.
func (r *ContactRule) Handle(ctx context.Context, event crm.ChangeEvent) error {
	var contact crm.Contact
	if err := json.Unmarshal(event.Payload, &contact); err != nil {
		return fmt.Errorf("decode contact payload: %w", err)
	}

	create, err := r.ShouldCreateDeal(ctx, contact)
	if err != nil {
		return err
	}
	if !create {
		return nil
	}
	return r.CreateDeal(ctx, contact)
}

// ShouldCreateDeal evaluates the guard conditions for contact.
func (r *ContactRule) ShouldCreateDeal(ctx context.Context, contact crm.Contact) (bool, error) {
	if !contact.IsOrganization {
		logging.Debug("ContactRule", "Contact %d is not an organization, skipping", contact.ID)
		return false, nil
	}

	owner, err := r.resolver.ResolveOwner(ctx, contact.OwnerID)
	if err != nil {
		return false, fmt.Errorf("contact %d: %w", contact.ID, err)
	}
	if !r.salesRep.Matches(owner) {
		logging.Debug("ContactRule", "Contact %d owner %d is not a sales representative, skipping",
			contact.ID, owner.ID)
		return false, nil
	}

	noActive, err := r.noActiveDeals(ctx, contact.ID)
	if err != nil {
		return false, err
	}
	if !noActive {
		logging.Debug("ContactRule", "Contact %d already has a deal in an active stage, skipping", contact.ID)
	}
	return noActive, nil
}

// CreateDeal creates the new deal for contact. It re-checks the active-deal
// guard immediately before creating to narrow the decide-then-act window;
// overlapping cycles can still race, which is accepted.
func (r *ContactRule) CreateDeal(ctx context.Context, contact crm.Contact) error {
	noActive, err := r.noActiveDeals(ctx, contact.ID)
	if err != nil {
		return err
	}
	if !noActive {
		logging.Info("ContactRule", "Contact %d gained an active deal since evaluation, not creating", contact.ID)
		return nil
	}

	attrs := crm.NewDeal{
		Name:      r.namer.Name(contact),
		ContactID: contact.ID,
		OwnerID:   contact.OwnerID,
	}
	deal, err := r.gateway.CreateDeal(ctx, attrs)
	if err != nil {
		return fmt.Errorf("create deal for contact %d: %w", contact.ID, err)
	}
	logging.Info("ContactRule", "Created deal %d %q for contact %d", deal.ID, deal.Name, contact.ID)
	return nil
}

// noActiveDeals reports whether none of the contact's deals sit in an
// active stage.
func (r *ContactRule) noActiveDeals(ctx context.Context, contactID int64) (bool, error) {
	deals, err := r.gateway.ListDeals(ctx, crm.DealFilter{ContactID: contactID})
	if err != nil {
		return false, fmt.Errorf("list deals for contact %d: %w", contactID, err)
	}
	for _, deal := range deals {
		if r.stages.IsActive(deal.StageID) {
			return false, nil
		}
	}
	return true, nil
}
