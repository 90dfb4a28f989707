package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	gocommand "github.com/goliatone/go-command"
	journey "github.com/salescope/go-journey/components/journey"
	"github.com/salescope/go-journey/components/journey/commands"
	"github.com/salescope/go-journey/components/journey/kpi"
	"github.com/salescope/go-journey/components/journey/queries"
)

// Executor is the command surface transports depend on.
type Executor interface {
	Rebuild(ctx context.Context, input commands.RebuildJourneyInput) error
	RegisterFormula(ctx context.Context, formula journey.KpiFormula) error
	Refresh(ctx context.Context, input commands.RefreshJourneyInput) error
}

// CommandExecutor adapts go-command commanders to the Executor interface.
type CommandExecutor struct {
	RebuildCommander         gocommand.Commander[commands.RebuildJourneyInput]
	RegisterFormulaCommander gocommand.Commander[journey.KpiFormula]
	RefreshCommander         gocommand.Commander[commands.RefreshJourneyInput]
}

var _ Executor = (*CommandExecutor)(nil)

// Rebuild recomputes one contact's journey.
func (e *CommandExecutor) Rebuild(ctx context.Context, input commands.RebuildJourneyInput) error {
	return e.RebuildCommander.Execute(ctx, input)
}

// RegisterFormula stores a KPI formula.
func (e *CommandExecutor) RegisterFormula(ctx context.Context, formula journey.KpiFormula) error {
	return e.RegisterFormulaCommander.Execute(ctx, formula)
}

// Refresh broadcasts a journey refresh event.
func (e *CommandExecutor) Refresh(ctx context.Context, input commands.RefreshJourneyInput) error {
	return e.RefreshCommander.Execute(ctx, input)
}

// RegistryReader is the read-only registry surface the listing endpoints use.
type RegistryReader interface {
	Fields() []journey.Field
	Formulas() []journey.KpiFormula
}

// Handlers exposes HTTP endpoints backed by shared commands and queries.
type Handlers struct {
	Journey   gocommand.Querier[queries.JourneyRequest, journey.CustomerJourney]
	Dashboard gocommand.Querier[journey.Scope, journey.DashboardData]
	KPI       gocommand.Querier[journey.EvaluateKPIRequest, journey.KPIResult]
	Commands  Executor
	Registry  RegistryReader
}

// HandleGetJourney resolves one contact's journey. The contact id comes from
// the route; the scope from the decoded body (empty body means open scope).
func (h *Handlers) HandleGetJourney(w http.ResponseWriter, r *http.Request, contactID string) {
	var scope journey.Scope
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&scope)
	}
	result, err := h.Journey.Query(r.Context(), queries.JourneyRequest{ContactID: contactID, Scope: scope})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// HandleGetDashboard aggregates every contact in the posted scope.
func (h *Handlers) HandleGetDashboard(w http.ResponseWriter, r *http.Request) {
	var scope journey.Scope
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&scope)
	}
	result, err := h.Dashboard.Query(r.Context(), scope)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// KPIEvalPayload is the wire shape for KPI evaluation. Bindings accept either
// a scalar or an array per field.
type KPIEvalPayload struct {
	FormulaID string         `json:"formulaId,omitempty"`
	Formula   string         `json:"formula,omitempty"`
	Bindings  map[string]any `json:"bindings,omitempty"`
	Params    map[string]any `json:"params,omitempty"`
}

// HandleEvaluateKPI evaluates a formula. Undefined results come back with a
// null value, not an error status.
func (h *Handlers) HandleEvaluateKPI(w http.ResponseWriter, r *http.Request) {
	var payload KPIEvalPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	result, err := h.KPI.Query(r.Context(), journey.EvaluateKPIRequest{
		FormulaID: payload.FormulaID,
		Formula:   payload.Formula,
		Bindings:  DecodeBindings(payload.Bindings),
		Params:    payload.Params,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// HandleRegisterFormula stores a user-authored formula.
func (h *Handlers) HandleRegisterFormula(w http.ResponseWriter, r *http.Request) {
	var payload journey.KpiFormula
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Commands.RegisterFormula(r.Context(), payload); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// HandleRebuildJourney queues a journey rebuild.
func (h *Handlers) HandleRebuildJourney(w http.ResponseWriter, r *http.Request) {
	var payload commands.RebuildJourneyInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Commands.Rebuild(r.Context(), payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// HandleRefresh broadcasts a refresh event.
func (h *Handlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var payload commands.RefreshJourneyInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Commands.Refresh(r.Context(), payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// HandleListFields returns the registered field definitions.
func (h *Handlers) HandleListFields(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Registry.Fields())
}

// HandleListFormulas returns the registered formulas.
func (h *Handlers) HandleListFormulas(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Registry.Formulas())
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// DecodeBindings converts loose JSON values into typed bindings: numbers stay
// scalars, arrays become series for the aggregate functions.
func DecodeBindings(raw map[string]any) kpi.Bindings {
	if len(raw) == 0 {
		return kpi.Bindings{}
	}
	b := make(kpi.Bindings, len(raw))
	for field, value := range raw {
		switch v := value.(type) {
		case []any:
			values := make([]float64, 0, len(v))
			for _, item := range v {
				if f, ok := item.(float64); ok {
					values = append(values, f)
				}
			}
			b[field] = kpi.Series(values...)
		case float64:
			b[field] = kpi.Number(v)
		case bool:
			if v {
				b[field] = kpi.Number(1)
			} else {
				b[field] = kpi.Number(0)
			}
		}
	}
	return b
}
