package journey

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func summaryJourney() *CustomerJourney {
	first := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	last := time.Date(2026, 3, 6, 9, 0, 0, 0, time.UTC)
	speed := 45.0
	return &CustomerJourney{
		ContactID:        "cont_1",
		FirstTouch:       &first,
		LastTouch:        &last,
		TotalTouchpoints: 6,
		Sources:          map[Source]int{SourceClose: 4, SourceCalendly: 2},
		CallMetrics:      CallMetrics{SpeedToLeadMinutes: &speed, PickUpRate: 0.5, TotalDials: 4},
		SalesMetrics:     SalesMetrics{DealsWon: 1, Revenue: 9000},
		LeadMetrics:      LeadMetrics{CurrentStage: "closed-won"},
		JourneyMetrics:   JourneyMetrics{EngagementScore: 80, HasConversion: true},
	}
}

func TestJourneySummaryProvider(t *testing.T) {
	provider := NewJourneySummaryProvider()
	data, err := provider.Fetch(context.Background(), CardContext{Journey: summaryJourney()})
	require.NoError(t, err)

	assert.Equal(t, "cont_1", data["contact_id"])
	assert.Equal(t, 6, data["total_touchpoints"])
	assert.Equal(t, "closed-won", data["current_stage"])
	assert.Equal(t, "2026-03-01T09:00:00Z", data["first_touch"])
	assert.Equal(t, true, data["speed_to_lead_on_target"])

	_, err = provider.Fetch(context.Background(), CardContext{})
	require.Error(t, err)
}

func TestJourneySummaryProviderKeepsNilMetrics(t *testing.T) {
	provider := NewJourneySummaryProvider()
	data, err := provider.Fetch(context.Background(), CardContext{Journey: &CustomerJourney{ContactID: "cont_2"}})
	require.NoError(t, err)

	assert.Nil(t, data["speed_to_lead"])
	assert.Nil(t, data["cost_per_close"])
	assert.NotContains(t, data, "first_touch")
	assert.NotContains(t, data, "speed_to_lead_on_target")
}

func TestEngagementBreakdownProvider(t *testing.T) {
	j := summaryJourney()
	clock := func() time.Time { return j.LastTouch.Add(12 * time.Hour) }
	provider := NewEngagementBreakdownProvider(clock)

	data, err := provider.Fetch(context.Background(), CardContext{Journey: j})
	require.NoError(t, err)

	assert.Equal(t, 25, data["recency"], "half a day since last touch")
	assert.Equal(t, 20, data["frequency"], "six touchpoints")
	assert.Equal(t, 20, data["cross_platform"], "two platforms")
	assert.Equal(t, 25, data["conversion"], "conversion signal carried on the aggregate")
	assert.Equal(t, 80, data["score"])
}

func TestEngagementBreakdownProviderInboundOnlyConversion(t *testing.T) {
	// Inbound-only contacts have zero dials but still converted; the card must
	// read the persisted signal, not re-derive it from dial counts, so the
	// sub-scores keep summing to the composite.
	j := summaryJourney()
	j.CallMetrics.TotalDials = 0
	clock := func() time.Time { return j.LastTouch.Add(12 * time.Hour) }
	provider := NewEngagementBreakdownProvider(clock)

	data, err := provider.Fetch(context.Background(), CardContext{Journey: j})
	require.NoError(t, err)
	assert.Equal(t, 25, data["conversion"])
}

func TestFunnelProvider(t *testing.T) {
	provider := NewFunnelProvider()
	data, err := provider.Fetch(context.Background(), CardContext{Dashboard: &DashboardData{
		Contacts:    5,
		DealsWon:    2,
		StageCounts: map[string]int{"qualified": 3, "closed-won": 2},
	}})
	require.NoError(t, err)

	steps, ok := data["steps"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, steps, 2)
	assert.Equal(t, "closed-won", steps[0]["stage"], "steps sorted by stage name")
	assert.Equal(t, 2, steps[0]["count"])
	assert.Equal(t, "qualified", steps[1]["stage"])

	_, err = provider.Fetch(context.Background(), CardContext{Journey: summaryJourney()})
	require.Error(t, err, "funnel card needs the dashboard aggregate")
}

func TestKPICardProvider(t *testing.T) {
	svc := NewService(Options{})
	provider := NewKPICardProvider(svc)
	dashboard := &DashboardData{
		DealsWon: 2,
		Journeys: []CustomerJourney{{CallMetrics: CallMetrics{TriageSits: 4}}},
	}

	data, err := provider.Fetch(context.Background(), CardContext{
		Dashboard: dashboard,
		Config:    map[string]any{"formula_id": "kpi.close_rate"},
	})
	require.NoError(t, err)
	assert.Equal(t, "kpi.close_rate", data["formula_id"])
	assert.Equal(t, "Close Rate", data["name"])
	assert.Equal(t, true, data["defined"])
	require.NotNil(t, data["value"])
	assert.Equal(t, 50.0, *data["value"].(*float64))
}

func TestKPICardProviderUndefinedValue(t *testing.T) {
	svc := NewService(Options{})
	provider := NewKPICardProvider(svc)

	data, err := provider.Fetch(context.Background(), CardContext{
		Dashboard: &DashboardData{},
		Config:    map[string]any{"formula_id": "kpi.close_rate"},
	})
	require.NoError(t, err, "an undefined KPI is not a card failure")
	assert.Equal(t, false, data["defined"])
	assert.Nil(t, data["value"].(*float64))
}

func TestKPICardProviderBindingOverrides(t *testing.T) {
	svc := NewService(Options{})
	provider := NewKPICardProvider(svc)

	data, err := provider.Fetch(context.Background(), CardContext{
		Dashboard: &DashboardData{DealsWon: 4},
		Config: map[string]any{
			"formula_id": "kpi.cost_per_close",
			"bindings":   map[string]any{"ad_spend": 1000},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, data["value"])
	assert.Equal(t, 250.0, *data["value"].(*float64))
}

func TestKPICardProviderConfigErrors(t *testing.T) {
	svc := NewService(Options{})
	provider := NewKPICardProvider(svc)

	_, err := provider.Fetch(context.Background(), CardContext{Dashboard: &DashboardData{}})
	require.Error(t, err, "formula_id is mandatory")

	_, err = provider.Fetch(context.Background(), CardContext{
		Dashboard: &DashboardData{},
		Config:    map[string]any{"formula_id": "kpi.missing"},
	})
	require.Error(t, err)
}

func trendDashboard() *DashboardData {
	day := func(d, h int) time.Time { return time.Date(2026, 3, d, h, 0, 0, 0, time.UTC) }
	return &DashboardData{
		SourceTotals: map[Source]int{SourceTypeform: 1, SourceClose: 3},
		Journeys: []CustomerJourney{
			{TimelineEvents: []TimelineEvent{
				{Timestamp: day(1, 9)},
				{Timestamp: day(1, 17)},
				{Timestamp: day(2, 10)},
			}},
			{TimelineEvents: []TimelineEvent{
				{Timestamp: day(3, 8)},
			}},
		},
	}
}

func TestSourceMixProvider(t *testing.T) {
	provider := NewSourceMixProvider(NewChartRenderer("pie", WithChartCache(nil)))
	data, err := provider.Fetch(context.Background(), CardContext{Dashboard: trendDashboard()})
	require.NoError(t, err)

	assert.Equal(t, "pie", data["chart_type"])
	assert.NotEmpty(t, data["chart_html"])

	points, ok := data["points"].([]ChartPoint)
	require.True(t, ok)
	require.Len(t, points, 2)
	assert.Equal(t, string(SourceClose), points[0].Label, "points sorted by source")
	assert.Equal(t, 3.0, points[0].Value)
}

func TestTouchpointTrendProvider(t *testing.T) {
	provider := NewTouchpointTrendProvider(NewChartRenderer("line", WithChartCache(nil)))
	data, err := provider.Fetch(context.Background(), CardContext{Dashboard: trendDashboard()})
	require.NoError(t, err)

	points, ok := data["points"].([]ChartPoint)
	require.True(t, ok)
	require.Len(t, points, 3)
	assert.Equal(t, "2026-03-01", points[0].Label)
	assert.Equal(t, 2.0, points[0].Value)
	assert.Equal(t, "2026-03-03", points[2].Label)
}

func TestTouchpointTrendProviderDayLimit(t *testing.T) {
	provider := NewTouchpointTrendProvider(NewChartRenderer("line", WithChartCache(nil)))
	data, err := provider.Fetch(context.Background(), CardContext{
		Dashboard: trendDashboard(),
		Config:    map[string]any{"days": 2},
	})
	require.NoError(t, err)

	points := data["points"].([]ChartPoint)
	require.Len(t, points, 2)
	assert.Equal(t, "2026-03-02", points[0].Label, "limit keeps the most recent days")
}

func TestChartRendererMemoizes(t *testing.T) {
	cache := NewChartCache(time.Minute)
	renderer := NewChartRenderer("bar", WithChartCache(cache))
	points := []ChartPoint{{Label: "a", Value: 1}}

	first, err := renderer.Render("Dials", "", points, map[string]any{"days": 7})
	require.NoError(t, err)
	second, err := renderer.Render("Dials", "", nil, map[string]any{"days": 7})
	require.NoError(t, err)
	assert.Equal(t, first, second, "same title and config hit the cache")

	third, err := renderer.Render("Dials", "", nil, map[string]any{"days": 30})
	require.NoError(t, err)
	assert.NotEqual(t, first, third, "different config renders fresh")
}

func TestChartRendererRejectsUnknownType(t *testing.T) {
	renderer := NewChartRenderer("radar", WithChartCache(nil))
	_, err := renderer.Render("X", "", nil, nil)
	require.Error(t, err)
}
