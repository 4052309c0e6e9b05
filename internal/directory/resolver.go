package directory

import (
	"context"
	"fmt"
	"strings"

	"dealflow/internal/crm"
)

// Resolver is a stateless lookup facade over the CRM's user directory.
type Resolver struct {
	gateway crm.Gateway
}

// NewResolver creates a resolver backed by the given gateway.
func NewResolver(gateway crm.Gateway) *Resolver {
	return &Resolver{gateway: gateway}
}

// ResolveOwner fetches the user that owns a contact or deal.
func (r *Resolver) ResolveOwner(ctx context.Context, ownerID int64) (crm.User, error) {
	user, err := r.gateway.GetUser(ctx, ownerID)
	if err != nil {
		return crm.User{}, fmt.Errorf("resolve owner %d: %w", ownerID, err)
	}
	return user, nil
}

// FindByEmail returns the user with the given email, or crm.ErrNotFound.
func (r *Resolver) FindByEmail(ctx context.Context, email string) (crm.User, error) {
	email = strings.TrimSpace(email)
	users, err := r.gateway.ListUsers(ctx, crm.UserFilter{Email: email})
	if err != nil {
		return crm.User{}, fmt.Errorf("find user by email: %w", err)
	}
	if len(users) == 0 {
		return crm.User{}, fmt.Errorf("find user by email %s: %w", email, crm.ErrNotFound)
	}
	return users[0], nil
}

// FindByName returns the user with the given display name, or crm.ErrNotFound.
func (r *Resolver) FindByName(ctx context.Context, name string) (crm.User, error) {
	name = strings.TrimSpace(name)
	users, err := r.gateway.ListUsers(ctx, crm.UserFilter{Name: name})
	if err != nil {
		return crm.User{}, fmt.Errorf("find user by name: %w", err)
	}
	if len(users) == 0 {
		return crm.User{}, fmt.Errorf("find user by name %s: %w", name, crm.ErrNotFound)
	}
	return users[0], nil
}

// OnDutyIdentity names the configured on-duty account manager, by email or
// by display name. Exactly one field should be set.
type OnDutyIdentity struct {
	Email string
	Name  string
}

// ResolveOnDuty resolves the on-duty account manager to a concrete user.
// Failing to find a match is an error; the caller treats it as a per-entity
// failure, not a fatal one.
func (r *Resolver) ResolveOnDuty(ctx context.Context, identity OnDutyIdentity) (crm.User, error) {
	switch {
	case strings.TrimSpace(identity.Email) != "":
		return r.FindByEmail(ctx, identity.Email)
	case strings.TrimSpace(identity.Name) != "":
		return r.FindByName(ctx, identity.Name)
	default:
		return crm.User{}, fmt.Errorf("directory: on-duty account manager identity is empty")
	}
}
