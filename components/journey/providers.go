package journey

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/salescope/go-journey/components/journey/kpi"
)

// errMissingCardInput flags a provider fed the wrong aggregate level.
func errMissingCardInput(card string, want string) error {
	return fmt.Errorf("journey: %s card requires a %s context", card, want)
}

// NewJourneySummaryProvider builds the contact-level header card: touch
// boundaries, counts, and the nullable call/sales metrics already shaped for
// display (nil stays nil so the UI renders N/A).
func NewJourneySummaryProvider() Provider {
	return ProviderFunc(func(_ context.Context, card CardContext) (CardData, error) {
		j := card.Journey
		if j == nil {
			return nil, errMissingCardInput("journey summary", "journey")
		}
		data := CardData{
			"contact_id":        j.ContactID,
			"total_touchpoints": j.TotalTouchpoints,
			"engagement_score":  j.JourneyMetrics.EngagementScore,
			"current_stage":     j.LeadMetrics.CurrentStage,
			"assigned_users":    j.AssignedUsers,
			"rejected_records":  j.RejectedRecords,
			"speed_to_lead":     j.CallMetrics.SpeedToLeadMinutes,
			"pick_up_rate":      j.CallMetrics.PickUpRate,
			"deals_won":         j.SalesMetrics.DealsWon,
			"revenue":           j.SalesMetrics.Revenue,
			"cost_per_close":    j.SalesMetrics.CostPerClosedWon,
		}
		if j.FirstTouch != nil {
			data["first_touch"] = j.FirstTouch.Format(time.RFC3339)
		}
		if j.LastTouch != nil {
			data["last_touch"] = j.LastTouch.Format(time.RFC3339)
		}
		if j.CallMetrics.SpeedToLeadMinutes != nil {
			data["speed_to_lead_on_target"] = *j.CallMetrics.SpeedToLeadMinutes <= SpeedToLeadBenchmarkMinutes
		}
		return data, nil
	})
}

// NewEngagementBreakdownProvider exposes the engagement sub-scores so the UI
// can explain the composite.
func NewEngagementBreakdownProvider(clock func() time.Time) Provider {
	if clock == nil {
		clock = time.Now
	}
	return ProviderFunc(func(_ context.Context, card CardContext) (CardData, error) {
		j := card.Journey
		if j == nil {
			return nil, errMissingCardInput("engagement breakdown", "journey")
		}
		gap := float64(recencySevenDayMins)
		if j.LastTouch != nil {
			gap = clock().Sub(*j.LastTouch).Minutes()
		}
		return CardData{
			"score":          j.JourneyMetrics.EngagementScore,
			"recency":        recencyScore(gap),
			"frequency":      frequencyScore(j.TotalTouchpoints),
			"cross_platform": crossPlatformScore(len(j.Sources)),
			"conversion":     conversionScore(j.JourneyMetrics.HasConversion),
		}, nil
	})
}

// NewFunnelProvider builds the team-level funnel card from stage counts.
func NewFunnelProvider() Provider {
	return ProviderFunc(func(_ context.Context, card CardContext) (CardData, error) {
		d := card.Dashboard
		if d == nil {
			return nil, errMissingCardInput("funnel", "dashboard")
		}
		stages := make([]string, 0, len(d.StageCounts))
		for stage := range d.StageCounts {
			stages = append(stages, stage)
		}
		sort.Strings(stages)
		steps := make([]map[string]any, 0, len(stages))
		for _, stage := range stages {
			steps = append(steps, map[string]any{
				"stage": stage,
				"count": d.StageCounts[stage],
			})
		}
		return CardData{
			"contacts":  d.Contacts,
			"deals_won": d.DealsWon,
			"steps":     steps,
		}, nil
	})
}

// NewKPICardProvider evaluates one registered formula against the dashboard
// aggregate. A nil value survives to the payload so the card renders N/A.
func NewKPICardProvider(svc *Service) Provider {
	return ProviderFunc(func(ctx context.Context, card CardContext) (CardData, error) {
		d := card.Dashboard
		if d == nil {
			return nil, errMissingCardInput("kpi", "dashboard")
		}
		formulaID := stringOr(card.Config["formula_id"], "")
		if formulaID == "" {
			return nil, fmt.Errorf("journey: kpi card requires a formula_id")
		}
		def, ok := svc.Fields().Formula(formulaID)
		if !ok {
			return nil, fmt.Errorf("journey: kpi card: unknown formula %s", formulaID)
		}
		bindings := BindingsFromDashboard(*d)
		applyBindingOverrides(bindings, card.Config["bindings"])
		result, err := svc.EvaluateKPI(ctx, EvaluateKPIRequest{
			FormulaID: formulaID,
			Bindings:  bindings,
			Params:    mapOr(card.Config["params"]),
		})
		if err != nil {
			return nil, err
		}
		return CardData{
			"formula_id": result.FormulaID,
			"name":       def.Name,
			"category":   def.Category,
			"value":      result.Value,
			"defined":    result.Value != nil,
		}, nil
	})
}

// applyBindingOverrides lets card config pin fields (e.g. ad_spend pulled
// from a budget sheet) over the derived dashboard bindings.
func applyBindingOverrides(b kpi.Bindings, raw any) {
	overrides, ok := raw.(map[string]any)
	if !ok {
		return
	}
	for field, value := range overrides {
		b[field] = kpi.Number(floatOr(value))
	}
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}

func floatOr(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return f
		}
	}
	return 0
}

func intOr(v any, fallback int) int {
	switch val := v.(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		return int(val)
	}
	return fallback
}

func mapOr(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return nil
}
