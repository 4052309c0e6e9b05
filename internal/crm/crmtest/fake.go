// Package crmtest provides a configurable in-memory Gateway for tests.
package crmtest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"dealflow/internal/crm"
)

// FakeGateway implements crm.Gateway against in-memory fixtures. Every
// mutation is recorded so tests can assert on gateway side effects. Any
// method can be overridden with a func field to inject failures.
type FakeGateway struct {
	mu sync.Mutex

	Contacts map[int64]crm.Contact
	Deals    map[int64]crm.Deal
	Stages   []crm.Stage
	Users    map[int64]crm.User

	// Batches holds the change batches FetchChanges serves, in order. Each
	// call consumes one batch; when exhausted, FetchChanges returns an
	// empty batch.
	Batches []Batch

	// CreatedDeals records every CreateDeal call.
	CreatedDeals []crm.NewDeal

	// OwnerUpdates records every UpdateContactOwner call as contactID ->
	// ownerID pairs in call order.
	OwnerUpdates []OwnerUpdate

	// AckedCursors records every AckChanges call.
	AckedCursors []string

	// nextDealID seeds ids for created deals.
	nextDealID int64

	FetchChangesFunc       func(ctx context.Context, cursor string) ([]crm.ChangeEvent, string, error)
	AckChangesFunc         func(ctx context.Context, cursor string) error
	GetContactFunc         func(ctx context.Context, id int64) (crm.Contact, error)
	UpdateContactOwnerFunc func(ctx context.Context, id, ownerID int64) (crm.Contact, error)
	CreateDealFunc         func(ctx context.Context, attrs crm.NewDeal) (crm.Deal, error)
	ListStagesFunc         func(ctx context.Context, filter crm.StageFilter) ([]crm.Stage, error)
	ListDealsFunc          func(ctx context.Context, filter crm.DealFilter) ([]crm.Deal, error)
	GetUserFunc            func(ctx context.Context, id int64) (crm.User, error)
	ListUsersFunc          func(ctx context.Context, filter crm.UserFilter) ([]crm.User, error)
}

// Batch is one FetchChanges response.
type Batch struct {
	Events     []crm.ChangeEvent
	NextCursor string
}

// OwnerUpdate is one recorded UpdateContactOwner call.
type OwnerUpdate struct {
	ContactID int64
	OwnerID   int64
}

// NewFakeGateway returns an empty fake ready for fixtures.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		Contacts:   map[int64]crm.Contact{},
		Deals:      map[int64]crm.Deal{},
		Users:      map[int64]crm.User{},
		nextDealID: 1000,
	}
}

func (f *FakeGateway) FetchChanges(ctx context.Context, cursor string) ([]crm.ChangeEvent, string, error) {
	if f.FetchChangesFunc != nil {
		return f.FetchChangesFunc(ctx, cursor)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Batches) == 0 {
		return nil, cursor, nil
	}
	batch := f.Batches[0]
	f.Batches = f.Batches[1:]
	next := batch.NextCursor
	if next == "" {
		next = cursor
	}
	return batch.Events, next, nil
}

func (f *FakeGateway) AckChanges(ctx context.Context, cursor string) error {
	if f.AckChangesFunc != nil {
		return f.AckChangesFunc(ctx, cursor)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AckedCursors = append(f.AckedCursors, cursor)
	return nil
}

func (f *FakeGateway) GetContact(ctx context.Context, id int64) (crm.Contact, error) {
	if f.GetContactFunc != nil {
		return f.GetContactFunc(ctx, id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	contact, ok := f.Contacts[id]
	if !ok {
		return crm.Contact{}, fmt.Errorf("contact %d: %w", id, crm.ErrNotFound)
	}
	return contact, nil
}

func (f *FakeGateway) UpdateContactOwner(ctx context.Context, id, ownerID int64) (crm.Contact, error) {
	if f.UpdateContactOwnerFunc != nil {
		return f.UpdateContactOwnerFunc(ctx, id, ownerID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	contact, ok := f.Contacts[id]
	if !ok {
		return crm.Contact{}, fmt.Errorf("contact %d: %w", id, crm.ErrNotFound)
	}
	contact.OwnerID = ownerID
	f.Contacts[id] = contact
	f.OwnerUpdates = append(f.OwnerUpdates, OwnerUpdate{ContactID: id, OwnerID: ownerID})
	return contact, nil
}

func (f *FakeGateway) CreateDeal(ctx context.Context, attrs crm.NewDeal) (crm.Deal, error) {
	if f.CreateDealFunc != nil {
		return f.CreateDealFunc(ctx, attrs)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextDealID++
	deal := crm.Deal{
		ID:        f.nextDealID,
		Name:      attrs.Name,
		ContactID: attrs.ContactID,
		OwnerID:   attrs.OwnerID,
		StageID:   attrs.StageID,
	}
	f.Deals[deal.ID] = deal
	f.CreatedDeals = append(f.CreatedDeals, attrs)
	return deal, nil
}

func (f *FakeGateway) ListStages(ctx context.Context, filter crm.StageFilter) ([]crm.Stage, error) {
	if f.ListStagesFunc != nil {
		return f.ListStagesFunc(ctx, filter)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var results []crm.Stage
	for _, stage := range f.Stages {
		if filter.Active != nil && stage.Active != *filter.Active {
			continue
		}
		if filter.Category != "" && stage.Category != filter.Category {
			continue
		}
		if filter.Name != "" && stage.Name != filter.Name {
			continue
		}
		results = append(results, stage)
	}
	return results, nil
}

func (f *FakeGateway) ListDeals(ctx context.Context, filter crm.DealFilter) ([]crm.Deal, error) {
	if f.ListDealsFunc != nil {
		return f.ListDealsFunc(ctx, filter)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var results []crm.Deal
	for _, deal := range f.Deals {
		if filter.ContactID != 0 && deal.ContactID != filter.ContactID {
			continue
		}
		results = append(results, deal)
	}
	return results, nil
}

func (f *FakeGateway) GetUser(ctx context.Context, id int64) (crm.User, error) {
	if f.GetUserFunc != nil {
		return f.GetUserFunc(ctx, id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.Users[id]
	if !ok {
		return crm.User{}, fmt.Errorf("user %d: %w", id, crm.ErrNotFound)
	}
	return user, nil
}

func (f *FakeGateway) ListUsers(ctx context.Context, filter crm.UserFilter) ([]crm.User, error) {
	if f.ListUsersFunc != nil {
		return f.ListUsersFunc(ctx, filter)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var results []crm.User
	for _, user := range f.Users {
		if filter.Email != "" && !strings.EqualFold(user.Email, filter.Email) {
			continue
		}
		if filter.Name != "" && !strings.EqualFold(user.Name, filter.Name) {
			continue
		}
		results = append(results, user)
	}
	return results, nil
}
