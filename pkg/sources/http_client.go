package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	journey "github.com/salescope/go-journey/components/journey"
)

// HTTPConfig configures the HTTP sources client.
type HTTPConfig struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// HTTPClient talks to the sync service that mirrors Close, Calendly, and
// Typeform data. The engine never calls the platforms directly.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPClient builds a client capable of hitting the live sync API.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("sources: base url is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  httpClient,
	}, nil
}

var _ Client = (*HTTPClient)(nil)

// ListContactIDs implements CloseClient via the contacts endpoint.
func (c *HTTPClient) ListContactIDs(ctx context.Context, scope journey.Scope) ([]string, error) {
	var resp contactListResponse
	if err := c.do(ctx, http.MethodPost, "/close/contacts/query", scopeRequest{Scope: scope}, &resp); err != nil {
		return nil, err
	}
	return resp.ContactIDs, nil
}

// FetchActivities implements CloseClient via the activities endpoint.
func (c *HTTPClient) FetchActivities(ctx context.Context, contactID string, scope journey.Scope) ([]journey.RawRecord, error) {
	var resp recordsResponse
	if err := c.do(ctx, http.MethodPost, "/close/activities/query", contactRequest{ContactID: contactID, Scope: scope}, &resp); err != nil {
		return nil, err
	}
	return resp.toRecords(journey.SourceClose), nil
}

// FetchDeals implements CloseClient via the opportunities endpoint.
func (c *HTTPClient) FetchDeals(ctx context.Context, contactID string, scope journey.Scope) ([]journey.Deal, error) {
	var resp dealsResponse
	if err := c.do(ctx, http.MethodPost, "/close/opportunities/query", contactRequest{ContactID: contactID, Scope: scope}, &resp); err != nil {
		return nil, err
	}
	return resp.toDeals(), nil
}

// FetchCalls implements CloseClient via the calls endpoint.
func (c *HTTPClient) FetchCalls(ctx context.Context, contactID string, scope journey.Scope) ([]journey.Call, error) {
	var resp callsResponse
	if err := c.do(ctx, http.MethodPost, "/close/calls/query", contactRequest{ContactID: contactID, Scope: scope}, &resp); err != nil {
		return nil, err
	}
	return resp.toCalls(), nil
}

// FetchStatusChanges implements CloseClient via the lead status endpoint.
func (c *HTTPClient) FetchStatusChanges(ctx context.Context, contactID string, scope journey.Scope) ([]journey.StatusChange, error) {
	var resp statusResponse
	if err := c.do(ctx, http.MethodPost, "/close/statuses/query", contactRequest{ContactID: contactID, Scope: scope}, &resp); err != nil {
		return nil, err
	}
	return resp.toChanges()
}

// FetchAdminTasks implements CloseClient via the tasks endpoint.
func (c *HTTPClient) FetchAdminTasks(ctx context.Context, contactID string, scope journey.Scope) ([]journey.AdminTask, error) {
	var resp tasksResponse
	if err := c.do(ctx, http.MethodPost, "/close/tasks/query", contactRequest{ContactID: contactID, Scope: scope}, &resp); err != nil {
		return nil, err
	}
	return resp.toTasks(), nil
}

// FetchMeetings implements CalendlyClient via the events endpoint.
func (c *HTTPClient) FetchMeetings(ctx context.Context, contactID string, scope journey.Scope) ([]journey.Meeting, error) {
	var resp meetingsResponse
	if err := c.do(ctx, http.MethodPost, "/calendly/events/query", contactRequest{ContactID: contactID, Scope: scope}, &resp); err != nil {
		return nil, err
	}
	return resp.toMeetings()
}

// FetchFormResponses implements TypeformClient via the responses endpoint.
func (c *HTTPClient) FetchFormResponses(ctx context.Context, contactID string, scope journey.Scope) ([]journey.RawRecord, error) {
	var resp recordsResponse
	if err := c.do(ctx, http.MethodPost, "/typeform/responses/query", contactRequest{ContactID: contactID, Scope: scope}, &resp); err != nil {
		return nil, err
	}
	return resp.toRecords(journey.SourceTypeform), nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, payload any, target any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("sources: encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sources: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("sources: http request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		return fmt.Errorf("sources: remote error %d: %s", resp.StatusCode, buf.String())
	}
	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("sources: decode response: %w", err)
	}
	return nil
}

type scopeRequest struct {
	Scope journey.Scope `json:"scope"`
}

type contactRequest struct {
	ContactID string        `json:"contact_id"`
	Scope     journey.Scope `json:"scope"`
}

type contactListResponse struct {
	ContactIDs []string `json:"contact_ids"`
}

type rawRecord struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Timestamp string         `json:"timestamp"`
	UserID    string         `json:"user_id"`
	UserName  string         `json:"user_name"`
	Fields    map[string]any `json:"fields"`
}

type recordsResponse struct {
	Records []rawRecord `json:"records"`
}

// toRecords tags each record with the platform. Timestamps stay strings so
// the engine's normalizer owns parsing and rejection.
func (r recordsResponse) toRecords(source journey.Source) []journey.RawRecord {
	records := make([]journey.RawRecord, len(r.Records))
	for i, rec := range r.Records {
		records[i] = journey.RawRecord{
			ID:        rec.ID,
			Source:    source,
			Kind:      rec.Kind,
			Title:     rec.Title,
			Body:      rec.Body,
			Timestamp: rec.Timestamp,
			UserID:    rec.UserID,
			UserName:  rec.UserName,
			Fields:    rec.Fields,
		}
	}
	return records
}

type dealRow struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Status    string     `json:"status"`
	Value     float64    `json:"value"`
	CreatedAt time.Time  `json:"created_at"`
	WonAt     *time.Time `json:"won_at"`
}

type dealsResponse struct {
	Deals []dealRow `json:"deals"`
}

func (r dealsResponse) toDeals() []journey.Deal {
	deals := make([]journey.Deal, len(r.Deals))
	for i, row := range r.Deals {
		deals[i] = journey.Deal{
			ID:        row.ID,
			Name:      row.Name,
			Status:    row.Status,
			Value:     row.Value,
			Source:    journey.SourceClose,
			CreatedAt: row.CreatedAt,
			WonAt:     row.WonAt,
		}
	}
	return deals
}

type callRow struct {
	ID        string    `json:"id"`
	Direction string    `json:"direction"`
	Answered  bool      `json:"answered"`
	At        time.Time `json:"at"`
	UserID    string    `json:"user_id"`
}

type callsResponse struct {
	Calls []callRow `json:"calls"`
}

func (r callsResponse) toCalls() []journey.Call {
	calls := make([]journey.Call, len(r.Calls))
	for i, row := range r.Calls {
		calls[i] = journey.Call{
			ID:        row.ID,
			Direction: row.Direction,
			Answered:  row.Answered,
			At:        row.At,
			UserID:    row.UserID,
		}
	}
	return calls
}

type statusRow struct {
	Status string `json:"status"`
	At     string `json:"at"`
}

type statusResponse struct {
	Changes []statusRow `json:"changes"`
}

func (r statusResponse) toChanges() ([]journey.StatusChange, error) {
	changes := make([]journey.StatusChange, len(r.Changes))
	for i, row := range r.Changes {
		at, err := time.Parse(time.RFC3339, row.At)
		if err != nil {
			return nil, fmt.Errorf("sources: parse status change time %q: %w", row.At, err)
		}
		changes[i] = journey.StatusChange{Status: row.Status, At: at.UTC()}
	}
	return changes, nil
}

type taskRow struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Completed bool      `json:"completed"`
	Due       time.Time `json:"due"`
}

type tasksResponse struct {
	Tasks []taskRow `json:"tasks"`
}

func (r tasksResponse) toTasks() []journey.AdminTask {
	tasks := make([]journey.AdminTask, len(r.Tasks))
	for i, row := range r.Tasks {
		tasks[i] = journey.AdminTask{
			ID:        row.ID,
			Name:      row.Name,
			Completed: row.Completed,
			Due:       row.Due,
		}
	}
	return tasks
}

type meetingRow struct {
	ID       string `json:"id"`
	Subtype  string `json:"subtype"`
	StartAt  string `json:"start_at"`
	Attended bool   `json:"attended"`
	Canceled bool   `json:"canceled"`
	UserID   string `json:"user_id"`
}

type meetingsResponse struct {
	Meetings []meetingRow `json:"meetings"`
}

func (r meetingsResponse) toMeetings() ([]journey.Meeting, error) {
	meetings := make([]journey.Meeting, len(r.Meetings))
	for i, row := range r.Meetings {
		startAt, err := time.Parse(time.RFC3339, row.StartAt)
		if err != nil {
			return nil, fmt.Errorf("sources: parse meeting start %q: %w", row.StartAt, err)
		}
		meetings[i] = journey.Meeting{
			ID:       row.ID,
			Subtype:  row.Subtype,
			StartAt:  startAt.UTC(),
			Attended: row.Attended,
			Canceled: row.Canceled,
			UserID:   row.UserID,
		}
	}
	return meetings, nil
}
