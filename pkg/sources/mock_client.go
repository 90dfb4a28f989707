package sources

import (
	"context"
	"sync"

	journey "github.com/salescope/go-journey/components/journey"
)

// MockData seeds deterministic per-contact responses for tests or local demos.
type MockData struct {
	Records       map[string][]journey.RawRecord
	Deals         map[string][]journey.Deal
	Calls         map[string][]journey.Call
	StatusChanges map[string][]journey.StatusChange
	AdminTasks    map[string][]journey.AdminTask
	Meetings      map[string][]journey.Meeting
	Forms         map[string][]journey.RawRecord
	ContactIDs    []string
}

// MockClient implements Client using in-memory fixtures.
type MockClient struct {
	data MockData
	mu   sync.RWMutex
}

// NewMockClient builds a mock sources client from the provided fixtures.
func NewMockClient(data MockData) *MockClient {
	return &MockClient{data: data}
}

var _ Client = (*MockClient)(nil)

// ListContactIDs returns the configured contact ids ignoring scope filters.
func (c *MockClient) ListContactIDs(context.Context, journey.Scope) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.data.ContactIDs...), nil
}

// FetchActivities returns the configured CRM records for the contact.
func (c *MockClient) FetchActivities(_ context.Context, contactID string, _ journey.Scope) ([]journey.RawRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]journey.RawRecord(nil), c.data.Records[contactID]...), nil
}

// FetchDeals returns the configured deals for the contact.
func (c *MockClient) FetchDeals(_ context.Context, contactID string, _ journey.Scope) ([]journey.Deal, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]journey.Deal(nil), c.data.Deals[contactID]...), nil
}

// FetchCalls returns the configured dials for the contact.
func (c *MockClient) FetchCalls(_ context.Context, contactID string, _ journey.Scope) ([]journey.Call, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]journey.Call(nil), c.data.Calls[contactID]...), nil
}

// FetchStatusChanges returns the configured lead statuses for the contact.
func (c *MockClient) FetchStatusChanges(_ context.Context, contactID string, _ journey.Scope) ([]journey.StatusChange, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]journey.StatusChange(nil), c.data.StatusChanges[contactID]...), nil
}

// FetchAdminTasks returns the configured hygiene tasks for the contact.
func (c *MockClient) FetchAdminTasks(_ context.Context, contactID string, _ journey.Scope) ([]journey.AdminTask, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]journey.AdminTask(nil), c.data.AdminTasks[contactID]...), nil
}

// FetchMeetings returns the configured meetings for the contact.
func (c *MockClient) FetchMeetings(_ context.Context, contactID string, _ journey.Scope) ([]journey.Meeting, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]journey.Meeting(nil), c.data.Meetings[contactID]...), nil
}

// FetchFormResponses returns the configured submissions for the contact.
func (c *MockClient) FetchFormResponses(_ context.Context, contactID string, _ journey.Scope) ([]journey.RawRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]journey.RawRecord(nil), c.data.Forms[contactID]...), nil
}
