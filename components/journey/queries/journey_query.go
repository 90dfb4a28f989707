package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	journey "github.com/salescope/go-journey/components/journey"
)

type journeyBuilder interface {
	BuildJourney(ctx context.Context, bundle journey.ContactBundle, scope journey.Scope) (journey.CustomerJourney, error)
}

// JourneyRequest identifies the contact and the scope to aggregate.
type JourneyRequest struct {
	ContactID string        `json:"contactId"`
	Scope     journey.Scope `json:"scope,omitempty"`
}

// JourneyQuery fetches a contact bundle from the sync layer and folds it into
// a journey aggregate. Read-only: nothing is persisted.
type JourneyQuery struct {
	source  journey.BundleSource
	builder journeyBuilder
}

// NewJourneyQuery builds the query.
func NewJourneyQuery(source journey.BundleSource, builder journeyBuilder) *JourneyQuery {
	return &JourneyQuery{source: source, builder: builder}
}

var _ gocommand.Querier[JourneyRequest, journey.CustomerJourney] = (*JourneyQuery)(nil)

// Query resolves the journey for one contact.
func (q *JourneyQuery) Query(ctx context.Context, req JourneyRequest) (journey.CustomerJourney, error) {
	bundle, err := q.source.FetchContactBundle(ctx, req.ContactID, req.Scope)
	if err != nil {
		return journey.CustomerJourney{}, err
	}
	return q.builder.BuildJourney(ctx, bundle, req.Scope)
}
