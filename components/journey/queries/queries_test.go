package queries

import (
	"context"
	"errors"
	"testing"
	"time"

	journey "github.com/salescope/go-journey/components/journey"
)

type fakeSource struct {
	ids     []string
	bundles map[string]journey.ContactBundle
	fail    map[string]error
	listErr error
}

func (f *fakeSource) ListContactIDs(_ context.Context, _ journey.Scope) ([]string, error) {
	return f.ids, f.listErr
}

func (f *fakeSource) FetchContactBundle(_ context.Context, contactID string, _ journey.Scope) (journey.ContactBundle, error) {
	if err := f.fail[contactID]; err != nil {
		return journey.ContactBundle{}, err
	}
	bundle, ok := f.bundles[contactID]
	if !ok {
		return journey.ContactBundle{}, errors.New("no such contact")
	}
	return bundle, nil
}

func bundleFor(contactID string) journey.ContactBundle {
	return journey.ContactBundle{
		ContactID: contactID,
		Records: []journey.RawRecord{
			{ID: contactID + "-call", Source: journey.SourceClose, Kind: "call", Timestamp: "2026-03-01T10:00:00Z"},
		},
	}
}

func TestJourneyQuery(t *testing.T) {
	source := &fakeSource{bundles: map[string]journey.ContactBundle{"cont_1": bundleFor("cont_1")}}
	query := NewJourneyQuery(source, journey.NewService(journey.Options{}))

	built, err := query.Query(context.Background(), JourneyRequest{ContactID: "cont_1"})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if built.ContactID != "cont_1" || built.TotalTouchpoints != 1 {
		t.Fatalf("unexpected journey: %+v", built)
	}
}

func TestJourneyQueryFetchError(t *testing.T) {
	source := &fakeSource{fail: map[string]error{"cont_1": errors.New("close: 503")}}
	query := NewJourneyQuery(source, journey.NewService(journey.Options{}))

	if _, err := query.Query(context.Background(), JourneyRequest{ContactID: "cont_1"}); err == nil {
		t.Fatal("expected fetch error to propagate")
	}
}

func TestJourneyQueryScopeIsForwarded(t *testing.T) {
	source := &fakeSource{bundles: map[string]journey.ContactBundle{"cont_1": bundleFor("cont_1")}}
	query := NewJourneyQuery(source, journey.NewService(journey.Options{}))

	scope := journey.Scope{Range: journey.DateRange{
		From: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC),
	}}
	built, err := query.Query(context.Background(), JourneyRequest{ContactID: "cont_1", Scope: scope})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if built.TotalTouchpoints != 0 {
		t.Fatalf("expected the march record filtered out, got %d touchpoints", built.TotalTouchpoints)
	}
}

func TestDashboardQueryAggregatesAndRecordsFetchErrors(t *testing.T) {
	source := &fakeSource{
		ids: []string{"cont_1", "cont_2", "cont_3"},
		bundles: map[string]journey.ContactBundle{
			"cont_1": bundleFor("cont_1"),
			"cont_2": bundleFor("cont_2"),
		},
		fail: map[string]error{"cont_3": errors.New("close: timeout")},
	}
	query := NewDashboardQuery(source, journey.NewService(journey.Options{}))

	data, err := query.Query(context.Background(), journey.Scope{})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if data.Contacts != 2 {
		t.Fatalf("expected 2 aggregated contacts, got %d", data.Contacts)
	}
	if msg, ok := data.Quality.ContactErrors["cont_3"]; !ok || msg != "close: timeout" {
		t.Fatalf("expected fetch error surfaced, got %#v", data.Quality.ContactErrors)
	}
}

func TestDashboardQueryListError(t *testing.T) {
	source := &fakeSource{listErr: errors.New("close: unauthorized")}
	query := NewDashboardQuery(source, journey.NewService(journey.Options{}))

	if _, err := query.Query(context.Background(), journey.Scope{}); err == nil {
		t.Fatal("expected listing error to propagate")
	}
}

func TestKPIQuery(t *testing.T) {
	query := NewKPIQuery(journey.NewService(journey.Options{}))

	result, err := query.Query(context.Background(), journey.EvaluateKPIRequest{
		FormulaID: "kpi.close_rate",
		Bindings: journey.BindingsFromDashboard(journey.DashboardData{
			DealsWon: 1,
			Journeys: []journey.CustomerJourney{{CallMetrics: journey.CallMetrics{TriageSits: 2}}},
		}),
	})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if result.Value == nil || *result.Value != 50 {
		t.Fatalf("expected 50, got %v", result.Value)
	}

	undefined, err := query.Query(context.Background(), journey.EvaluateKPIRequest{FormulaID: "kpi.close_rate"})
	if err != nil {
		t.Fatalf("undefined KPI must not error: %v", err)
	}
	if undefined.Value != nil {
		t.Fatalf("expected nil value, got %v", undefined.Value)
	}
}
