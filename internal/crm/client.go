package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"dealflow/pkg/logging"
)

// ClientOptions configures the HTTP gateway client.
type ClientOptions struct {
	BaseURL     string
	TokenSource oauth2.TokenSource
	DeviceUUID  string
	HTTPClient  *http.Client
	UserAgent   string
	MaxRetries  int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Client is the HTTP implementation of Gateway against a Base-shaped CRM
// REST API (v2). Requests authenticate with a bearer token from the
// configured token source; sync endpoints additionally carry the device
// UUID header that scopes the server-side feed position.
type Client struct {
	baseURL     string
	tokenSource oauth2.TokenSource
	deviceUUID  string
	httpClient  *http.Client
	userAgent   string
	maxRetries  int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

// NewClient creates a gateway client. Zero option fields get defaults.
func NewClient(opts ClientOptions) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.getbase.com"
	}
	if opts.TokenSource == nil {
		return nil, fmt.Errorf("crm: token source is required")
	}
	deviceUUID := strings.TrimSpace(opts.DeviceUUID)
	if deviceUUID == "" {
		return nil, fmt.Errorf("crm: device uuid is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}
	maxDelay := opts.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 2 * time.Second
	}
	return &Client{
		baseURL:     baseURL,
		tokenSource: opts.TokenSource,
		deviceUUID:  deviceUUID,
		httpClient:  httpClient,
		userAgent:   strings.TrimSpace(opts.UserAgent),
		maxRetries:  maxRetries,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
	}, nil
}

// envelope is the single-resource wrapper used by the API.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// listEnvelope is the collection wrapper used by the API.
type listEnvelope struct {
	Items []envelope `json:"items"`
}

// syncItem is one entry of the sync queue response.
type syncItem struct {
	Data json.RawMessage `json:"data"`
	Meta struct {
		Type string `json:"type"`
		Sync struct {
			EventType string `json:"event_type"`
		} `json:"sync"`
	} `json:"meta"`
}

type syncQueueResponse struct {
	Items []syncItem `json:"items"`
	Meta  struct {
		Links struct {
			NextCursor string `json:"next_cursor"`
		} `json:"links"`
	} `json:"meta"`
}

// entityID extracts the numeric id from a raw entity payload without
// committing to a full decode.
func entityID(payload json.RawMessage) int64 {
	var probe struct {
		ID int64 `json:"id"`
	}
	_ = json.Unmarshal(payload, &probe)
	return probe.ID
}

func (c *Client) FetchChanges(ctx context.Context, cursor string) ([]ChangeEvent, string, error) {
	q := url.Values{}
	if strings.TrimSpace(cursor) != "" {
		q.Set("cursor", strings.TrimSpace(cursor))
	}
	requestPath := "/v2/sync/queues/main"
	if encoded := q.Encode(); encoded != "" {
		requestPath += "?" + encoded
	}

	var out syncQueueResponse
	status, err := c.doJSON(ctx, http.MethodGet, requestPath, nil, &out)
	if err != nil {
		return nil, cursor, err
	}
	// 204 means the feed has nothing new for this device.
	if status == http.StatusNoContent {
		return nil, cursor, nil
	}

	events := make([]ChangeEvent, 0, len(out.Items))
	for _, item := range out.Items {
		events = append(events, ChangeEvent{
			EntityType: EntityType(strings.ToLower(strings.TrimSpace(item.Meta.Type))),
			EventType:  EventType(strings.ToLower(strings.TrimSpace(item.Meta.Sync.EventType))),
			EntityID:   entityID(item.Data),
			Payload:    item.Data,
		})
	}
	nextCursor := strings.TrimSpace(out.Meta.Links.NextCursor)
	if nextCursor == "" {
		nextCursor = cursor
	}
	return events, nextCursor, nil
}

func (c *Client) AckChanges(ctx context.Context, cursor string) error {
	cursor = strings.TrimSpace(cursor)
	if cursor == "" {
		return nil
	}
	body := map[string]any{"cursor": cursor}
	_, err := c.doJSON(ctx, http.MethodPost, "/v2/sync/ack", body, nil)
	return err
}

func (c *Client) GetContact(ctx context.Context, id int64) (Contact, error) {
	var out envelope
	if _, err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/v2/contacts/%d", id), nil, &out); err != nil {
		return Contact{}, err
	}
	var contact Contact
	if err := json.Unmarshal(out.Data, &contact); err != nil {
		return Contact{}, fmt.Errorf("crm: decode contact %d: %w", id, err)
	}
	return contact, nil
}

func (c *Client) UpdateContactOwner(ctx context.Context, id, ownerID int64) (Contact, error) {
	body := map[string]any{
		"data": map[string]any{"owner_id": ownerID},
	}
	var out envelope
	if _, err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/v2/contacts/%d", id), body, &out); err != nil {
		return Contact{}, err
	}
	var contact Contact
	if err := json.Unmarshal(out.Data, &contact); err != nil {
		return Contact{}, fmt.Errorf("crm: decode contact %d: %w", id, err)
	}
	return contact, nil
}

func (c *Client) CreateDeal(ctx context.Context, attrs NewDeal) (Deal, error) {
	body := map[string]any{"data": attrs}
	var out envelope
	if _, err := c.doJSON(ctx, http.MethodPost, "/v2/deals", body, &out); err != nil {
		return Deal{}, err
	}
	var deal Deal
	if err := json.Unmarshal(out.Data, &deal); err != nil {
		return Deal{}, fmt.Errorf("crm: decode created deal: %w", err)
	}
	return deal, nil
}

func (c *Client) ListStages(ctx context.Context, filter StageFilter) ([]Stage, error) {
	q := url.Values{}
	if filter.Active != nil {
		q.Set("active", strconv.FormatBool(*filter.Active))
	}
	if filter.Category != "" {
		q.Set("category", filter.Category)
	}
	if filter.Name != "" {
		q.Set("name", filter.Name)
	}
	return listResources[Stage](ctx, c, "/v2/stages", q)
}

func (c *Client) ListDeals(ctx context.Context, filter DealFilter) ([]Deal, error) {
	q := url.Values{}
	if filter.ContactID != 0 {
		q.Set("contact_id", strconv.FormatInt(filter.ContactID, 10))
	}
	return listResources[Deal](ctx, c, "/v2/deals", q)
}

func (c *Client) GetUser(ctx context.Context, id int64) (User, error) {
	var out envelope
	if _, err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/v2/users/%d", id), nil, &out); err != nil {
		return User{}, err
	}
	var user User
	if err := json.Unmarshal(out.Data, &user); err != nil {
		return User{}, fmt.Errorf("crm: decode user %d: %w", id, err)
	}
	return user, nil
}

func (c *Client) ListUsers(ctx context.Context, filter UserFilter) ([]User, error) {
	q := url.Values{}
	if filter.Email != "" {
		q.Set("email", filter.Email)
	}
	if filter.Name != "" {
		q.Set("name", filter.Name)
	}
	return listResources[User](ctx, c, "/v2/users", q)
}

// listResources fetches a collection endpoint and unwraps the item envelopes.
func listResources[T any](ctx context.Context, c *Client, path string, q url.Values) ([]T, error) {
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var out listEnvelope
	if _, err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	results := make([]T, 0, len(out.Items))
	for _, item := range out.Items {
		var resource T
		if err := json.Unmarshal(item.Data, &resource); err != nil {
			return nil, fmt.Errorf("crm: decode %s item: %w", path, err)
		}
		results = append(results, resource)
	}
	return results, nil
}

// doJSON performs one API request with bounded retries. 429 and 5xx
// responses retry with exponential backoff, honoring Retry-After.
func (c *Client) doJSON(ctx context.Context, method, requestPath string, body, out any) (int, error) {
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return 0, err
		}
	}

	token, err := c.tokenSource.Token()
	if err != nil {
		return 0, fmt.Errorf("crm: obtain access token: %w", err)
	}

	for attempt := 0; ; attempt++ {
		var bodyReader io.Reader
		if bodyBytes != nil {
			bodyReader = bytes.NewReader(bodyBytes)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+requestPath, bodyReader)
		if err != nil {
			return 0, err
		}
		req.Header.Set("Authorization", "Bearer "+token.AccessToken)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Device-UUID", c.deviceUUID)
		if bodyBytes != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if attempt < c.maxRetries {
				if waitErr := sleepContext(ctx, c.retryDelay(attempt+1, "")); waitErr != nil {
					return 0, waitErr
				}
				continue
			}
			return 0, err
		}
		payloadBytes, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return resp.StatusCode, readErr
		}

		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			if out == nil || len(payloadBytes) == 0 {
				return resp.StatusCode, nil
			}
			return resp.StatusCode, json.Unmarshal(payloadBytes, out)
		}

		if (resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599)) && attempt < c.maxRetries {
			logging.Debug("CRMClient", "Retrying %s %s after status %d (attempt %d)", method, requestPath, resp.StatusCode, attempt+1)
			if waitErr := sleepContext(ctx, c.retryDelay(attempt+1, resp.Header.Get("Retry-After"))); waitErr != nil {
				return resp.StatusCode, waitErr
			}
			continue
		}

		var errPayload struct {
			Errors []struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"errors"`
		}
		_ = json.Unmarshal(payloadBytes, &errPayload)
		httpErr := &HTTPError{StatusCode: resp.StatusCode}
		if len(errPayload.Errors) > 0 {
			httpErr.Code = errPayload.Errors[0].Code
			httpErr.Message = errPayload.Errors[0].Message
		} else {
			httpErr.Message = strings.TrimSpace(string(payloadBytes))
		}
		return resp.StatusCode, httpErr
	}
}

func (c *Client) retryDelay(attempt int, retryAfterHeader string) time.Duration {
	if retryAfter := parseRetryAfter(retryAfterHeader); retryAfter > 0 {
		if retryAfter > c.maxDelay {
			return c.maxDelay
		}
		return retryAfter
	}
	delay := c.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.maxDelay {
			return c.maxDelay
		}
	}
	if delay > c.maxDelay {
		return c.maxDelay
	}
	return delay
}

func parseRetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	if ts, err := time.Parse(time.RFC1123, header); err == nil {
		if delta := time.Until(ts); delta > 0 {
			return delta
		}
	}
	return 0
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
