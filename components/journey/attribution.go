package journey

import (
	"fmt"
	"time"
)

// AttributionModel selects how conversion credit is split across sources.
type AttributionModel string

// Supported attribution models.
const (
	ModelFirstTouch AttributionModel = "first-touch"
	ModelLastTouch  AttributionModel = "last-touch"
	ModelLinear     AttributionModel = "linear"
)

// AttributionResult maps each source to its share of the credit. Linear
// weights sum to 1.0; first/last-touch carry a single 1.0 entry.
type AttributionResult struct {
	Model   AttributionModel   `json:"model"`
	Weights map[Source]float64 `json:"weights"`
}

// Attribute computes source weights for the timeline under one model. An
// empty timeline yields empty weights, not an error.
func Attribute(t Timeline, model AttributionModel) (AttributionResult, error) {
	result := AttributionResult{Model: model, Weights: map[Source]float64{}}
	if t.TotalTouchpoints == 0 {
		return result, nil
	}
	switch model {
	case ModelFirstTouch:
		result.Weights[t.Events[0].Source] = 1.0
	case ModelLastTouch:
		result.Weights[t.Events[len(t.Events)-1].Source] = 1.0
	case ModelLinear:
		for source, count := range t.Sources {
			result.Weights[source] = float64(count) / float64(t.TotalTouchpoints)
		}
	default:
		return AttributionResult{}, fmt.Errorf("journey: unknown attribution model %q", model)
	}
	return result, nil
}

// AttributeAll runs every supported model.
func AttributeAll(t Timeline) map[AttributionModel]AttributionResult {
	results := make(map[AttributionModel]AttributionResult, 3)
	for _, model := range []AttributionModel{ModelFirstTouch, ModelLastTouch, ModelLinear} {
		result, _ := Attribute(t, model)
		results[model] = result
	}
	return results
}

// Engagement-score breakpoints. These are design constants carried over for
// behavioral parity with the shipped dashboards; changing any of them is a
// product decision, not a bug fix.
const (
	maxSubScore = 25

	recencyDayMinutes   = 1440  // <1 day  -> 25
	recencyThreeDayMins = 4320  // <3 days -> 15
	recencySevenDayMins = 10080 // <7 days -> 10
)

// EngagementInput carries the facts the engagement score is built from.
type EngagementInput struct {
	LastActivityGapMinutes float64
	TotalTouchpoints       int
	SourceCount            int
	HasConversion          bool
}

// EngagementScore composes four capped sub-scores (recency, frequency,
// cross-platform reach, conversion signal) into a 0-100 composite.
func EngagementScore(in EngagementInput) int {
	score := recencyScore(in.LastActivityGapMinutes) +
		frequencyScore(in.TotalTouchpoints) +
		crossPlatformScore(in.SourceCount) +
		conversionScore(in.HasConversion)
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func recencyScore(gapMinutes float64) int {
	switch {
	case gapMinutes < recencyDayMinutes:
		return maxSubScore
	case gapMinutes < recencyThreeDayMins:
		return 15
	case gapMinutes < recencySevenDayMins:
		return 10
	default:
		return 5
	}
}

func frequencyScore(touchpoints int) int {
	switch {
	case touchpoints > 10:
		return maxSubScore
	case touchpoints > 5:
		return 20
	case touchpoints > 2:
		return 15
	default:
		return 10
	}
}

func crossPlatformScore(sources int) int {
	switch {
	case sources > 2:
		return maxSubScore
	case sources == 2:
		return 20
	default:
		return 10
	}
}

func conversionScore(hasConversion bool) int {
	if hasConversion {
		return maxSubScore
	}
	return 0
}

// engagementInput derives the score inputs from a timeline and the raw
// call/deal records, relative to now.
func engagementInput(t Timeline, calls []Call, deals []Deal, now time.Time, closedWon []string) EngagementInput {
	in := EngagementInput{
		TotalTouchpoints: t.TotalTouchpoints,
		SourceCount:      len(t.Sources),
	}
	if t.LastTouch != nil {
		in.LastActivityGapMinutes = now.Sub(*t.LastTouch).Minutes()
	} else {
		in.LastActivityGapMinutes = recencySevenDayMins // cold with no activity
	}
	if len(calls) > 0 {
		in.HasConversion = true
	}
	for _, deal := range deals {
		if deal.WonWith(closedWon) {
			in.HasConversion = true
			break
		}
	}
	return in
}
