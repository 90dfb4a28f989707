package journey

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/salescope/go-journey/components/journey/kpi"
)

// Options configures a Service. Zero values fall back to safe defaults so the
// minimal construction is NewService(Options{}).
type Options struct {
	// Fields supplies the field/formula registry. Defaults to NewRegistry().
	Fields *Registry
	// Validator checks evaluation parameters against formula schemas.
	// Defaults to a no-op validator; pass NewJSONSchemaValidator() to enforce.
	Validator ParamsValidator
	// Telemetry records engine events. Defaults to a no-op recorder.
	Telemetry Telemetry
	// RefreshHook is notified when journeys are recomputed.
	RefreshHook RefreshHook
	// Clock supplies "now" for recency scoring. Defaults to time.Now.
	Clock func() time.Time
	// ClosedWonStatuses overrides the statuses that terminate the sales cycle.
	ClosedWonStatuses []string
	// ChartCache memoizes rendered chart cards. Optional.
	ChartCache *ChartCache
}

// Service is the aggregation engine: it folds contact bundles into journeys,
// journeys into dashboards, and evaluates KPI formulas over either.
type Service struct {
	fields    *Registry
	validator ParamsValidator
	telemetry Telemetry
	refresh   RefreshHook
	clock     func() time.Time
	closedWon []string
	charts    *ChartCache
}

type noopRefreshHook struct{}

func (noopRefreshHook) JourneyUpdated(context.Context, JourneyEvent) error { return nil }

// NewService builds a Service, filling in defaults for any unset option.
func NewService(opts Options) *Service {
	svc := &Service{
		fields:    opts.Fields,
		validator: opts.Validator,
		telemetry: normalizeTelemetry(opts.Telemetry),
		refresh:   opts.RefreshHook,
		clock:     opts.Clock,
		closedWon: opts.ClosedWonStatuses,
		charts:    opts.ChartCache,
	}
	if svc.fields == nil {
		svc.fields = NewRegistry()
	}
	if svc.validator == nil {
		svc.validator = noopParamsValidator{}
	}
	if svc.refresh == nil {
		svc.refresh = noopRefreshHook{}
	}
	if svc.clock == nil {
		svc.clock = time.Now
	}
	return svc
}

// Fields exposes the registry for transports that list or register
// fields and formulas.
func (s *Service) Fields() *Registry { return s.fields }

// BuildJourney folds one contact bundle into its journey aggregate. Data
// quality problems never fail the build: malformed records are dropped and
// counted, and stage-tracking errors become warnings with the funnel section
// left empty. The only hard failure is a bundle without a contact id.
func (s *Service) BuildJourney(ctx context.Context, bundle ContactBundle, scope Scope) (CustomerJourney, error) {
	if bundle.ContactID == "" {
		return CustomerJourney{}, errMissingContactID
	}

	events, stats := NormalizeBatch(bundle.Records)
	events = FilterEvents(events, scope)
	timeline := BuildTimeline(events)

	journey := CustomerJourney{
		ContactID:        bundle.ContactID,
		FirstTouch:       timeline.FirstTouch,
		LastTouch:        timeline.LastTouch,
		TotalTouchpoints: timeline.TotalTouchpoints,
		TimelineEvents:   timeline.Events,
		Sources:          timeline.Sources,
		AssignedUsers:    timeline.AssignedUsers(),
		Deals:            bundle.Deals,
		RejectedRecords:  stats.Rejected,
	}

	journey.CallMetrics = CalculateCallMetrics(timeline, bundle.Meetings, bundle.Calls)
	journey.SalesMetrics = CalculateSalesMetrics(bundle.Deals, journey.CallMetrics, bundle.AdSpend, s.closedWon)
	journey.AdminMetrics = CalculateAdminMetrics(bundle.AdminTasks)

	transitions, salesCycleDays, err := TrackStages(bundle.ContactID, timeline.FirstTouch, bundle.StatusChanges, s.closedWon)
	if err != nil {
		journey.Warnings = append(journey.Warnings, err.Error())
	} else {
		journey.LeadMetrics = LeadMetrics{
			CurrentStage:   CurrentStage(transitions),
			Transitions:    transitions,
			SalesCycleDays: salesCycleDays,
		}
	}

	engagement := engagementInput(timeline, bundle.Calls, bundle.Deals, s.clock(), s.closedWon)
	journey.JourneyMetrics = JourneyMetrics{
		LengthDays:            timeline.JourneyLengthDays(),
		AvgDaysBetweenTouches: timeline.AvgDaysBetweenTouches(),
		EngagementScore:       EngagementScore(engagement),
		HasConversion:         engagement.HasConversion,
	}
	journey.Attribution = AttributeAll(timeline)

	s.telemetry.Record(ctx, "journey.built", map[string]any{
		"contact_id":  bundle.ContactID,
		"touchpoints": journey.TotalTouchpoints,
		"rejected":    stats.Rejected,
	})
	return journey, nil
}

// BuildDashboard folds many contact bundles into one team-level aggregate.
// Contacts that fail to build are recorded in Quality.ContactErrors and
// skipped; the dashboard itself only fails when no scope can be computed.
func (s *Service) BuildDashboard(ctx context.Context, bundles []ContactBundle, scope Scope) (DashboardData, error) {
	data := DashboardData{
		Scope:        scope,
		SourceTotals: map[Source]int{},
		StageCounts:  map[string]int{},
	}

	var engagementSum int
	for _, bundle := range bundles {
		journey, err := s.BuildJourney(ctx, bundle, scope)
		if err != nil {
			if data.Quality.ContactErrors == nil {
				data.Quality.ContactErrors = map[string]string{}
			}
			key := bundle.ContactID
			if key == "" {
				key = fmt.Sprintf("bundle[%d]", data.Contacts+len(data.Quality.ContactErrors))
			}
			data.Quality.ContactErrors[key] = err.Error()
			continue
		}
		data.Contacts++
		data.TotalTouchpoints += journey.TotalTouchpoints
		data.DealsWon += journey.SalesMetrics.DealsWon
		data.Revenue += journey.SalesMetrics.Revenue
		data.AdSpend += journey.SalesMetrics.AdSpend
		data.Quality.RejectedRecords += journey.RejectedRecords
		engagementSum += journey.JourneyMetrics.EngagementScore
		for source, count := range journey.Sources {
			data.SourceTotals[source] += count
		}
		if stage := journey.LeadMetrics.CurrentStage; stage != "" {
			data.StageCounts[stage]++
		}
		data.Journeys = append(data.Journeys, journey)
	}

	if data.Contacts > 0 {
		data.AverageEngagement = float64(engagementSum) / float64(data.Contacts)
	}
	sort.Slice(data.Journeys, func(i, j int) bool {
		return data.Journeys[i].ContactID < data.Journeys[j].ContactID
	})

	s.telemetry.Record(ctx, "dashboard.built", map[string]any{
		"contacts":    data.Contacts,
		"touchpoints": data.TotalTouchpoints,
		"errors":      len(data.Quality.ContactErrors),
	})
	return data, nil
}

// EvaluateKPIRequest names either a registered formula (by id) or an ad-hoc
// expression, plus the field bindings and optional parameters to check against
// the formula's schema.
type EvaluateKPIRequest struct {
	FormulaID string         `json:"formulaId,omitempty"`
	Formula   string         `json:"formula,omitempty"`
	Bindings  kpi.Bindings   `json:"-"`
	Params    map[string]any `json:"params,omitempty"`
}

// EvaluateKPI resolves a formula against the bindings. Division by zero is not
// an error: the result carries a nil Value and renders as N/A. Unknown fields,
// disabled formulas, and schema violations are errors.
func (s *Service) EvaluateKPI(ctx context.Context, req EvaluateKPIRequest) (KPIResult, error) {
	var compiled *kpi.Formula
	result := KPIResult{FormulaID: req.FormulaID}

	switch {
	case req.FormulaID != "":
		def, ok := s.fields.Formula(req.FormulaID)
		if !ok {
			return KPIResult{}, fmt.Errorf("journey: formula %s: %w", req.FormulaID, errMissingFormula)
		}
		if !def.Enabled {
			return KPIResult{}, fmt.Errorf("journey: formula %s: %w", req.FormulaID, errFormulaDisabled)
		}
		if err := s.validator.Validate(def, req.Params); err != nil {
			return KPIResult{}, err
		}
		compiled, _ = s.fields.Compiled(req.FormulaID)
		if compiled == nil {
			return KPIResult{}, fmt.Errorf("journey: formula %s was never compiled", req.FormulaID)
		}
	case req.Formula != "":
		parsed, err := kpi.Parse(req.Formula)
		if err != nil {
			return KPIResult{}, err
		}
		compiled = parsed
	default:
		return KPIResult{}, errMissingFormula
	}

	value, err := compiled.Eval(req.Bindings)
	if err != nil {
		if errors.Is(err, kpi.ErrDivisionByZero) {
			s.telemetry.Record(ctx, "kpi.undefined", map[string]any{"formula_id": req.FormulaID})
			return result, nil
		}
		return KPIResult{}, err
	}
	result.Value = value

	s.telemetry.Record(ctx, "kpi.evaluated", map[string]any{"formula_id": req.FormulaID})
	return result, nil
}

// RegisterFormula adds a formula to the registry and notifies transports so
// open dashboards can refresh their KPI cards.
func (s *Service) RegisterFormula(ctx context.Context, formula KpiFormula) error {
	if err := s.fields.RegisterFormula(formula); err != nil {
		return err
	}
	s.telemetry.Record(ctx, "formula.registered", map[string]any{"formula_id": formula.ID})
	return s.NotifyJourneyUpdated(ctx, JourneyEvent{Reason: "formula-registered"})
}

// NotifyJourneyUpdated invalidates cached renders and fans the event out to
// the configured refresh hook.
func (s *Service) NotifyJourneyUpdated(ctx context.Context, event JourneyEvent) error {
	s.charts.Flush()
	if err := s.refresh.JourneyUpdated(ctx, event); err != nil {
		return fmt.Errorf("journey: refresh hook: %w", err)
	}
	return nil
}

// BindingsFromDashboard projects a dashboard aggregate onto the default field
// ids so registered formulas can evaluate against it.
func BindingsFromDashboard(data DashboardData) kpi.Bindings {
	b := kpi.Bindings{
		"deals_won":   kpi.Number(float64(data.DealsWon)),
		"revenue":     kpi.Number(data.Revenue),
		"ad_spend":    kpi.Number(data.AdSpend),
		"touchpoints": kpi.Number(float64(data.TotalTouchpoints)),
		"contacts":    kpi.Number(float64(data.Contacts)),
	}

	var dealsTotal, callsTotal, callsAnswered int
	var booked, completed int
	for _, journey := range data.Journeys {
		dealsTotal += len(journey.Deals)
		callsTotal += journey.CallMetrics.TotalDials
		callsAnswered += journey.CallMetrics.AnsweredCalls
		booked += journey.CallMetrics.TriageBooked + journey.CallMetrics.SolutionBooked
		completed += journey.CallMetrics.TriageSits + journey.CallMetrics.SolutionSits
	}
	b["deals_total"] = kpi.Number(float64(dealsTotal))
	b["calls_total"] = kpi.Number(float64(callsTotal))
	b["calls_answered"] = kpi.Number(float64(callsAnswered))
	b["meetings_booked"] = kpi.Number(float64(booked))
	b["meetings_completed"] = kpi.Number(float64(completed))
	b["forms_submitted"] = kpi.Number(float64(data.SourceTotals[SourceTypeform]))
	return b
}
