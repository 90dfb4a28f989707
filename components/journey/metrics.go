package journey

import (
	"math"
	"time"
)

// SpeedToLeadBenchmarkMinutes is the response-time target the dashboards
// compare against. The value was inherited from the product UI; treat changes
// as product decisions.
const SpeedToLeadBenchmarkMinutes = 60

// solutionCallsPerClose is the provisional solution-calls-per-close divisor
// behind costPerSolutionCall. Inherited business logic, unconfirmed.
const solutionCallsPerClose = 4

// ratio guards a division: nil when the denominator is zero (or the result is
// not finite), so callers render N/A instead of a fake 0.
func ratio(num, den float64) *float64 {
	if den == 0 {
		return nil
	}
	v := num / den
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// fraction is like ratio but collapses the undefined case to 0, for rates the
// dashboards treat as "0 of 0".
func fraction(num, den float64) float64 {
	if r := ratio(num, den); r != nil {
		return *r
	}
	return 0
}

// CalculateCallMetrics derives dial and meeting performance from the timeline
// plus the raw call/meeting records.
func CalculateCallMetrics(t Timeline, meetings []Meeting, calls []Call) CallMetrics {
	var m CallMetrics

	var firstOutboundCall *time.Time
	for _, call := range calls {
		if call.Direction == CallOutbound {
			m.TotalDials++
			if call.Answered {
				m.AnsweredCalls++
			}
			if firstOutboundCall == nil || call.At.Before(*firstOutboundCall) {
				at := call.At
				firstOutboundCall = &at
			}
		}
	}
	// 0, not nil, when there were no dials: "no attempts" is real data.
	m.PickUpRate = fraction(float64(m.AnsweredCalls), float64(m.TotalDials))

	for _, meeting := range meetings {
		if meeting.Canceled {
			continue
		}
		switch meeting.Subtype {
		case MeetingSolution:
			m.SolutionBooked++
			if meeting.Attended {
				m.SolutionSits++
			}
		default:
			m.TriageBooked++
			if meeting.Attended {
				m.TriageSits++
			}
		}
	}
	m.TotalCalls = m.TriageBooked + m.SolutionBooked
	m.TriageShowRate = fraction(float64(m.TriageSits), float64(m.TriageBooked))
	m.SolutionShowRate = fraction(float64(m.SolutionSits), float64(m.SolutionBooked))

	// The baseline is the first inbound touch. Dial activities mirrored into
	// the CRM feed are skipped, otherwise a pre-lead dial would collapse the
	// metric to zero. Negative speed-to-lead is valid: it marks outreach that
	// predates the first recorded inbound touch.
	if firstInbound := firstInboundTouch(t); firstInbound != nil && firstOutboundCall != nil {
		minutes := firstOutboundCall.Sub(*firstInbound).Minutes()
		m.SpeedToLeadMinutes = &minutes
	}

	return m
}

func firstInboundTouch(t Timeline) *time.Time {
	for _, event := range t.Events {
		if event.Source == SourceClose && event.Subtype == "call" {
			continue
		}
		ts := event.Timestamp
		return &ts
	}
	return nil
}

// CalculateSalesMetrics derives deal outcomes and spend ratios. An empty
// closedWon list falls back to the default terminal statuses.
func CalculateSalesMetrics(deals []Deal, callMetrics CallMetrics, adSpend float64, closedWon []string) SalesMetrics {
	m := SalesMetrics{AdSpend: adSpend}
	for _, deal := range deals {
		if deal.WonWith(closedWon) {
			m.DealsWon++
			m.Revenue += deal.Value
		}
	}
	m.CostPerClosedWon = ratio(adSpend, float64(m.DealsWon))
	if m.CostPerClosedWon != nil {
		perCall := *m.CostPerClosedWon / solutionCallsPerClose
		m.CostPerSolutionCall = &perCall
	}
	m.ProfitPerSolutionCall = ratio(m.Revenue-adSpend, float64(callMetrics.SolutionSits))
	return m
}

// CalculateAdminMetrics derives the CRM hygiene completion rate.
func CalculateAdminMetrics(tasks []AdminTask) AdminMetrics {
	var m AdminMetrics
	for _, task := range tasks {
		if task.Completed {
			m.CompletedTasks++
		} else {
			m.MissingTasks++
		}
	}
	m.MissingPercentage = ratio(float64(m.MissingTasks), float64(m.MissingTasks+m.CompletedTasks))
	return m
}
