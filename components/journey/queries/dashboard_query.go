package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	journey "github.com/salescope/go-journey/components/journey"
)

type dashboardBuilder interface {
	BuildDashboard(ctx context.Context, bundles []journey.ContactBundle, scope journey.Scope) (journey.DashboardData, error)
}

// DashboardQuery lists contacts in scope, fetches every bundle, and folds the
// lot into one team-level aggregate. Contacts whose fetch fails are skipped
// and surfaced through the dashboard's quality section.
type DashboardQuery struct {
	source  journey.BundleSource
	builder dashboardBuilder
}

// NewDashboardQuery builds the query.
func NewDashboardQuery(source journey.BundleSource, builder dashboardBuilder) *DashboardQuery {
	return &DashboardQuery{source: source, builder: builder}
}

var _ gocommand.Querier[journey.Scope, journey.DashboardData] = (*DashboardQuery)(nil)

// Query aggregates every contact within the scope.
func (q *DashboardQuery) Query(ctx context.Context, scope journey.Scope) (journey.DashboardData, error) {
	ids, err := q.source.ListContactIDs(ctx, scope)
	if err != nil {
		return journey.DashboardData{}, err
	}

	bundles := make([]journey.ContactBundle, 0, len(ids))
	fetchErrors := map[string]string{}
	for _, id := range ids {
		bundle, err := q.source.FetchContactBundle(ctx, id, scope)
		if err != nil {
			fetchErrors[id] = err.Error()
			continue
		}
		bundles = append(bundles, bundle)
	}

	data, err := q.builder.BuildDashboard(ctx, bundles, scope)
	if err != nil {
		return journey.DashboardData{}, err
	}
	for id, msg := range fetchErrors {
		if data.Quality.ContactErrors == nil {
			data.Quality.ContactErrors = map[string]string{}
		}
		data.Quality.ContactErrors[id] = msg
	}
	return data, nil
}
