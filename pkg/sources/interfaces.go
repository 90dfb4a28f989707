package sources

import (
	"context"

	journey "github.com/salescope/go-journey/components/journey"
)

// CloseClient fetches CRM data from the sync service's Close endpoints.
type CloseClient interface {
	ListContactIDs(ctx context.Context, scope journey.Scope) ([]string, error)
	FetchActivities(ctx context.Context, contactID string, scope journey.Scope) ([]journey.RawRecord, error)
	FetchDeals(ctx context.Context, contactID string, scope journey.Scope) ([]journey.Deal, error)
	FetchCalls(ctx context.Context, contactID string, scope journey.Scope) ([]journey.Call, error)
	FetchStatusChanges(ctx context.Context, contactID string, scope journey.Scope) ([]journey.StatusChange, error)
	FetchAdminTasks(ctx context.Context, contactID string, scope journey.Scope) ([]journey.AdminTask, error)
}

// CalendlyClient fetches scheduled meetings.
type CalendlyClient interface {
	FetchMeetings(ctx context.Context, contactID string, scope journey.Scope) ([]journey.Meeting, error)
}

// TypeformClient fetches form submissions as raw records.
type TypeformClient interface {
	FetchFormResponses(ctx context.Context, contactID string, scope journey.Scope) ([]journey.RawRecord, error)
}

// Client is a convenience union for services implementing every platform call.
type Client interface {
	CloseClient
	CalendlyClient
	TypeformClient
}
