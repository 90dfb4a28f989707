package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	journey "github.com/salescope/go-journey/components/journey"
)

type kpiEvaluator interface {
	EvaluateKPI(ctx context.Context, req journey.EvaluateKPIRequest) (journey.KPIResult, error)
}

// KPIQuery evaluates a formula against caller-supplied bindings.
type KPIQuery struct {
	evaluator kpiEvaluator
}

// NewKPIQuery builds the query.
func NewKPIQuery(evaluator kpiEvaluator) *KPIQuery {
	return &KPIQuery{evaluator: evaluator}
}

var _ gocommand.Querier[journey.EvaluateKPIRequest, journey.KPIResult] = (*KPIQuery)(nil)

// Query resolves the formula. A nil result value means the KPI is undefined
// for the bindings, not that evaluation failed.
func (q *KPIQuery) Query(ctx context.Context, req journey.EvaluateKPIRequest) (journey.KPIResult, error) {
	return q.evaluator.EvaluateKPI(ctx, req)
}
