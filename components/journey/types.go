package journey

import (
	"context"
	"time"
)

// Source identifies the platform a record was synced from.
type Source string

// Supported source platforms.
const (
	SourceClose    Source = "close"
	SourceCalendly Source = "calendly"
	SourceTypeform Source = "typeform"
)

// Known reports whether the source is one of the supported platforms.
func (s Source) Known() bool {
	switch s {
	case SourceClose, SourceCalendly, SourceTypeform:
		return true
	}
	return false
}

// EventType classifies a normalized timeline event.
type EventType string

// Timeline event types.
const (
	EventMeeting  EventType = "meeting"
	EventActivity EventType = "activity"
	EventDeal     EventType = "deal"
	EventForm     EventType = "form"
	EventNote     EventType = "note"
)

// RawRecord is the shape the sync layer hands over for any platform. The
// timestamp stays a string until a source adapter parses it; records without a
// parseable timestamp are rejected, never silently defaulted.
type RawRecord struct {
	ID        string         `json:"id"`
	Source    Source         `json:"source"`
	Kind      string         `json:"kind"`
	Title     string         `json:"title"`
	Body      string         `json:"body,omitempty"`
	Timestamp string         `json:"timestamp"`
	UserID    string         `json:"user_id,omitempty"`
	UserName  string         `json:"user_name,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// TimelineEvent is the canonical, immutable representation of one touchpoint.
// Ordering key is Timestamp with ID as the deterministic tie-breaker.
type TimelineEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Subtype     string    `json:"subtype,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Source      Source    `json:"source"`
	SourceID    string    `json:"sourceId,omitempty"`
	UserID      string    `json:"userId,omitempty"`
	UserName    string    `json:"userName,omitempty"`
	Score       float64   `json:"score,omitempty"`
}

// DateRange bounds a dashboard scope. Zero-valued boundaries are open.
type DateRange struct {
	From time.Time `json:"from,omitempty"`
	To   time.Time `json:"to,omitempty"`
}

// Contains reports whether t falls within the range.
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// Scope carries the explicit filters every aggregation receives. There is no
// ambient dashboard state: callers pass the scope on every request.
type Scope struct {
	Range  DateRange `json:"range,omitempty"`
	UserID string    `json:"userId,omitempty"`
}

// StatusChange is one lead-status assignment synced from the CRM, already
// ordered by the sync layer.
type StatusChange struct {
	Status string    `json:"status"`
	At     time.Time `json:"at"`
}

// Deal is a CRM opportunity associated with a contact.
type Deal struct {
	ID        string     `json:"id"`
	Name      string     `json:"name,omitempty"`
	Status    string     `json:"status"`
	Value     float64    `json:"value"`
	Source    Source     `json:"source,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	WonAt     *time.Time `json:"wonAt,omitempty"`
}

// Won reports whether the deal reached a closed-won state under the default
// terminal statuses.
func (d Deal) Won() bool {
	return d.WonWith(nil)
}

// WonWith is Won with an overridden terminal status list, for pipelines that
// rename their closed-won stage.
func (d Deal) WonWith(closedWon []string) bool {
	return d.WonAt != nil || isClosedWonStatus(d.Status, closedWon)
}

// Meeting is a scheduled call synced from the scheduling platform. Every
// non-canceled meeting counts as booked; Attended marks a sit.
type Meeting struct {
	ID       string    `json:"id"`
	Subtype  string    `json:"subtype"`
	StartAt  time.Time `json:"startAt"`
	Attended bool      `json:"attended"`
	Canceled bool      `json:"canceled,omitempty"`
	UserID   string    `json:"userId,omitempty"`
}

// Meeting subtypes recognized by the call metrics.
const (
	MeetingTriage   = "triage"
	MeetingSolution = "solution"
)

// Call is a single dial attempt logged by the CRM.
type Call struct {
	ID        string    `json:"id"`
	Direction string    `json:"direction"`
	Answered  bool      `json:"answered"`
	At        time.Time `json:"at"`
	UserID    string    `json:"userId,omitempty"`
}

// Call directions.
const (
	CallInbound  = "inbound"
	CallOutbound = "outbound"
)

// AdminTask is a CRM hygiene item (missing field, overdue follow-up).
type AdminTask struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Completed bool      `json:"completed"`
	Due       time.Time `json:"due,omitempty"`
}

// ContactBundle is the inbound contract: everything the sync layer fetched for
// one contact, already deduplicated. The engine never fetches data itself.
type ContactBundle struct {
	ContactID     string         `json:"contactId"`
	Records       []RawRecord    `json:"records,omitempty"`
	StatusChanges []StatusChange `json:"statusChanges,omitempty"`
	Deals         []Deal         `json:"deals,omitempty"`
	Meetings      []Meeting      `json:"meetings,omitempty"`
	Calls         []Call         `json:"calls,omitempty"`
	AdminTasks    []AdminTask    `json:"adminTasks,omitempty"`
	AdSpend       float64        `json:"adSpend,omitempty"`
}

// BundleSource loads contact bundles from the (out-of-scope) sync layer.
type BundleSource interface {
	FetchContactBundle(ctx context.Context, contactID string, scope Scope) (ContactBundle, error)
	ListContactIDs(ctx context.Context, scope Scope) ([]string, error)
}

// CallMetrics summarizes dial and meeting performance for one contact or team.
// Rates are fractions in [0,1]; formatting to percent is a presentation concern.
type CallMetrics struct {
	TotalDials         int      `json:"totalDials"`
	AnsweredCalls      int      `json:"answeredCalls"`
	PickUpRate         float64  `json:"pickUpRate"`
	TriageBooked       int      `json:"triageBooked"`
	TriageSits         int      `json:"triageSits"`
	TriageShowRate     float64  `json:"triageShowRate"`
	SolutionBooked     int      `json:"solutionBooked"`
	SolutionSits       int      `json:"solutionSits"`
	SolutionShowRate   float64  `json:"solutionShowRate"`
	TotalCalls         int      `json:"totalCalls"`
	SpeedToLeadMinutes *float64 `json:"speedToLeadMinutes"`
}

// SalesMetrics summarizes deal outcomes. Nil pointers mean the metric is
// undefined for the inputs (zero denominator) and must render as N/A, never 0.
type SalesMetrics struct {
	DealsWon              int      `json:"dealsWon"`
	Revenue               float64  `json:"revenue"`
	AdSpend               float64  `json:"adSpend"`
	CostPerClosedWon      *float64 `json:"costPerClosedWon"`
	CostPerSolutionCall   *float64 `json:"costPerSolutionCall"`
	ProfitPerSolutionCall *float64 `json:"profitPerSolutionCall"`
}

// AdminMetrics summarizes CRM hygiene completion.
type AdminMetrics struct {
	MissingTasks      int      `json:"missingTasks"`
	CompletedTasks    int      `json:"completedTasks"`
	MissingPercentage *float64 `json:"missingPercentage"`
}

// LeadMetrics carries the funnel position derived from status changes.
type LeadMetrics struct {
	CurrentStage   string            `json:"currentStage,omitempty"`
	Transitions    []StageTransition `json:"transitions,omitempty"`
	SalesCycleDays *float64          `json:"salesCycleDays"`
}

// JourneyMetrics carries temporal facts derived from the ordered timeline.
type JourneyMetrics struct {
	LengthDays            *float64 `json:"lengthDays"`
	AvgDaysBetweenTouches *float64 `json:"avgDaysBetweenTouches"`
	EngagementScore       int      `json:"engagementScore"`
	// HasConversion is the conversion signal the engagement score was built
	// from, kept on the aggregate so cards can explain the composite.
	HasConversion bool `json:"hasConversion"`
}

// CustomerJourney is the per-contact aggregate handed to the presentation
// layer. It is a pure projection: recomputed per fetch, never mutated.
type CustomerJourney struct {
	ContactID        string                              `json:"contactId"`
	FirstTouch       *time.Time                          `json:"firstTouch"`
	LastTouch        *time.Time                          `json:"lastTouch"`
	TotalTouchpoints int                                 `json:"totalTouchpoints"`
	TimelineEvents   []TimelineEvent                     `json:"timelineEvents"`
	Sources          map[Source]int                      `json:"sources"`
	AssignedUsers    []string                            `json:"assignedUsers,omitempty"`
	Deals            []Deal                              `json:"deals,omitempty"`
	CallMetrics      CallMetrics                         `json:"callMetrics"`
	SalesMetrics     SalesMetrics                        `json:"salesMetrics"`
	AdminMetrics     AdminMetrics                        `json:"adminMetrics"`
	LeadMetrics      LeadMetrics                         `json:"leadMetrics"`
	JourneyMetrics   JourneyMetrics                      `json:"journeyMetrics"`
	Attribution      map[AttributionModel]AttributionResult `json:"attribution,omitempty"`
	RejectedRecords  int                                 `json:"rejectedRecords,omitempty"`
	Warnings         []string                            `json:"warnings,omitempty"`
}

// DataQuality surfaces per-contact structural problems without failing the
// dashboard as a whole.
type DataQuality struct {
	RejectedRecords int               `json:"rejectedRecords"`
	ContactErrors   map[string]string `json:"contactErrors,omitempty"`
}

// DashboardData is the team-level aggregate for one scope.
type DashboardData struct {
	Scope             Scope            `json:"scope"`
	Contacts          int              `json:"contacts"`
	TotalTouchpoints  int              `json:"totalTouchpoints"`
	DealsWon          int              `json:"dealsWon"`
	Revenue           float64          `json:"revenue"`
	AdSpend           float64          `json:"adSpend"`
	AverageEngagement float64          `json:"averageEngagement"`
	SourceTotals      map[Source]int   `json:"sourceTotals"`
	StageCounts       map[string]int   `json:"stageCounts"`
	Journeys          []CustomerJourney `json:"journeys,omitempty"`
	Quality           DataQuality      `json:"quality"`
}

// JourneyEvent describes a recompute that transports might care about.
type JourneyEvent struct {
	ContactID string `json:"contactId,omitempty"`
	Reason    string `json:"reason"`
}

// RefreshHook notifies transports (REST/WebSocket/SSE) that journeys changed.
type RefreshHook interface {
	JourneyUpdated(ctx context.Context, event JourneyEvent) error
}

// Field describes one queryable attribute in the registry, sourced from a
// platform path or declared as a custom field.
type Field struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	FieldType string `json:"field_type" yaml:"field_type"`
	Source    Source `json:"source,omitempty" yaml:"source,omitempty"`
	FieldPath string `json:"field_path,omitempty" yaml:"field_path,omitempty"`
}

// SourceCustom marks registry fields that do not map to a platform path.
const SourceCustom Source = "custom"

// KpiFormula is a user-authored arithmetic expression over registry fields.
type KpiFormula struct {
	ID             string         `json:"id" yaml:"id"`
	Name           string         `json:"name" yaml:"name"`
	Formula        string         `json:"formula" yaml:"formula"`
	Category       string         `json:"category,omitempty" yaml:"category,omitempty"`
	DashboardTypes []string       `json:"dashboard_types,omitempty" yaml:"dashboard_types,omitempty"`
	RequiredFields []string       `json:"required_fields,omitempty" yaml:"required_fields,omitempty"`
	Enabled        bool           `json:"enabled" yaml:"enabled"`
	Customizable   bool           `json:"customizable,omitempty" yaml:"customizable,omitempty"`
	ParamsSchema   map[string]any `json:"params_schema,omitempty" yaml:"params_schema,omitempty"`
}

// KPIResult is the outcome of evaluating a formula for one scope. A nil Value
// means the metric is undefined (e.g. zero denominator) and renders as N/A.
type KPIResult struct {
	FormulaID string   `json:"formulaId"`
	Value     *float64 `json:"value"`
}
