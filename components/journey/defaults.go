package journey

var defaultFields = []Field{
	{ID: "deals_won", Name: "Deals Won", FieldType: "number", Source: SourceClose, FieldPath: "opportunities.won"},
	{ID: "deals_total", Name: "Total Deals", FieldType: "number", Source: SourceClose, FieldPath: "opportunities.count"},
	{ID: "revenue", Name: "Revenue", FieldType: "currency", Source: SourceClose, FieldPath: "opportunities.value_won"},
	{ID: "ad_spend", Name: "Ad Spend", FieldType: "currency", Source: SourceCustom},
	{ID: "calls_total", Name: "Total Dials", FieldType: "number", Source: SourceClose, FieldPath: "activities.calls"},
	{ID: "calls_answered", Name: "Answered Calls", FieldType: "number", Source: SourceClose, FieldPath: "activities.calls_answered"},
	{ID: "meetings_booked", Name: "Meetings Booked", FieldType: "number", Source: SourceCalendly, FieldPath: "events.created"},
	{ID: "meetings_completed", Name: "Meetings Completed", FieldType: "number", Source: SourceCalendly, FieldPath: "events.completed"},
	{ID: "forms_submitted", Name: "Forms Submitted", FieldType: "number", Source: SourceTypeform, FieldPath: "responses.count"},
	{ID: "touchpoints", Name: "Total Touchpoints", FieldType: "number", Source: SourceCustom},
	{ID: "contacts", Name: "Contacts", FieldType: "number", Source: SourceCustom},
}

var defaultFormulas = []KpiFormula{
	{
		ID:             "kpi.close_rate",
		Name:           "Close Rate",
		Formula:        "(deals_won / meetings_completed) * 100",
		Category:       "sales",
		DashboardTypes: []string{"team", "rep"},
		Enabled:        true,
	},
	{
		ID:             "kpi.booking_rate",
		Name:           "Booking Rate",
		Formula:        "(meetings_booked / forms_submitted) * 100",
		Category:       "marketing",
		DashboardTypes: []string{"team"},
		Enabled:        true,
	},
	{
		ID:             "kpi.pickup_rate",
		Name:           "Pick-Up Rate",
		Formula:        "(calls_answered / calls_total) * 100",
		Category:       "calls",
		DashboardTypes: []string{"team", "rep"},
		Enabled:        true,
	},
	{
		ID:             "kpi.cost_per_close",
		Name:           "Cost per Closed Won",
		Formula:        "ad_spend / deals_won",
		Category:       "sales",
		DashboardTypes: []string{"team"},
		Enabled:        true,
		Customizable:   true,
		ParamsSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"currency": map[string]any{"type": "string", "enum": []string{"usd", "eur", "gbp"}},
			},
		},
	},
	{
		ID:             "kpi.avg_deal_size",
		Name:           "Average Deal Size",
		Formula:        "SUM(revenue) / COUNT(deals_won)",
		Category:       "sales",
		DashboardTypes: []string{"team", "rep"},
		Enabled:        true,
	},
}

// DefaultFields enumerates the queryable attributes seeded for the three
// platforms plus the custom aggregates.
func DefaultFields() []Field {
	out := make([]Field, len(defaultFields))
	copy(out, defaultFields)
	return out
}

// DefaultFormulas enumerates the KPI formulas every new registry starts with.
func DefaultFormulas() []KpiFormula {
	out := make([]KpiFormula, len(defaultFormulas))
	copy(out, defaultFormulas)
	return out
}
