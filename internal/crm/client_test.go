package crm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientOptions{
		BaseURL:     server.URL,
		TokenSource: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"}),
		DeviceUUID:  "device-1234",
		HTTPClient:  server.Client(),
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	})
	require.NoError(t, err)
	return client, server
}

func TestNewClient_RequiredOptions(t *testing.T) {
	_, err := NewClient(ClientOptions{DeviceUUID: "d"})
	assert.Error(t, err)

	_, err = NewClient(ClientOptions{
		TokenSource: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "t"}),
	})
	assert.Error(t, err)
}

func TestFetchChanges_DecodesBatchAndCursor(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/sync/queues/main", r.URL.Path)
		assert.Equal(t, "cur-1", r.URL.Query().Get("cursor"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "device-1234", r.Header.Get("X-Device-UUID"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"items": [
				{"data": {"id": 1, "name": "Acme Corp", "is_organization": true, "owner_id": 10},
				 "meta": {"type": "contact", "sync": {"event_type": "created"}}},
				{"data": {"id": 5, "contact_id": 1, "stage_id": 7},
				 "meta": {"type": "deal", "sync": {"event_type": "updated"}}},
				{"data": {"id": 99},
				 "meta": {"type": "note", "sync": {"event_type": "created"}}}
			],
			"meta": {"links": {"next_cursor": "cur-2"}}
		}`))
	}))

	events, next, err := client.FetchChanges(context.Background(), "cur-1")
	require.NoError(t, err)
	assert.Equal(t, "cur-2", next)
	require.Len(t, events, 3)

	assert.Equal(t, EntityTypeContact, events[0].EntityType)
	assert.Equal(t, EventTypeCreated, events[0].EventType)
	assert.Equal(t, int64(1), events[0].EntityID)

	assert.Equal(t, EntityTypeDeal, events[1].EntityType)
	assert.Equal(t, EventTypeUpdated, events[1].EventType)
	assert.Equal(t, int64(5), events[1].EntityID)

	// Irrelevant types still come through; routing is the dispatcher's job.
	assert.Equal(t, EntityType("note"), events[2].EntityType)
}

func TestFetchChanges_EmptyFeed(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	events, next, err := client.FetchChanges(context.Background(), "cur-9")
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, "cur-9", next)
}

func TestDoJSON_RetriesOnServerError(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": {"id": 3, "name": "Jane", "email": "jane@example.com"}}`))
	}))

	user, err := client.GetUser(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), user.ID)
	assert.Equal(t, "jane@example.com", user.Email)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestDoJSON_NotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errors": [{"code": "resource_not_found", "message": "no such contact"}]}`))
	}))

	_, err := client.GetContact(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Equal(t, "resource_not_found", httpErr.Code)
}

func TestUpdateContactOwner_SendsSingleAttribute(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/v2/contacts/1", r.URL.Path)

		var body struct {
			Data map[string]any `json:"data"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"owner_id": float64(20)}, body.Data)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": {"id": 1, "name": "Acme Corp", "is_organization": true, "owner_id": 20}}`))
	}))

	contact, err := client.UpdateContactOwner(context.Background(), 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(20), contact.OwnerID)
}

func TestCreateDeal_RoundTrip(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/deals", r.URL.Path)

		var body struct {
			Data NewDeal `json:"data"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Acme Corp 2024-01-15", body.Data.Name)
		assert.Equal(t, int64(1), body.Data.ContactID)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data": {"id": 77, "name": "Acme Corp 2024-01-15", "contact_id": 1, "owner_id": 10}}`))
	}))

	deal, err := client.CreateDeal(context.Background(), NewDeal{
		Name:      "Acme Corp 2024-01-15",
		ContactID: 1,
		OwnerID:   10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(77), deal.ID)
}

func TestListStages_Filter(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/stages", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("active"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items": [
			{"data": {"id": 7, "name": "Won", "category": "won", "active": false}},
			{"data": {"id": 2, "name": "Qualified", "category": "incoming", "active": true}}
		]}`))
	}))

	active := true
	stages, err := client.ListStages(context.Background(), StageFilter{Active: &active})
	require.NoError(t, err)
	require.Len(t, stages, 2)
	assert.Equal(t, "won", stages[0].Category)
}

func TestAckChanges_NoopOnEmptyCursor(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty cursor")
	}))

	assert.NoError(t, client.AckChanges(context.Background(), ""))
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 2*time.Second, parseRetryAfter("2"))
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
	assert.Equal(t, time.Duration(0), parseRetryAfter("garbage"))
}
