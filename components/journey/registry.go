package journey

import (
	"fmt"
	"sort"
	"sync"

	"github.com/salescope/go-journey/components/journey/kpi"
)

// FieldHook lets packages register fields/formulas during init().
type FieldHook func(reg *Registry) error

var (
	globalHookMu sync.Mutex
	globalHooks  []FieldHook
)

// RegisterFieldHook registers a hook executed against new registries.
func RegisterFieldHook(h FieldHook) {
	globalHookMu.Lock()
	defer globalHookMu.Unlock()
	globalHooks = append(globalHooks, h)
}

// Registry stores the queryable fields of the three platforms plus custom
// fields, and the KPI formulas defined over them. Formulas are parsed once at
// registration; the compiled AST is reused on every evaluation.
type Registry struct {
	mu       sync.RWMutex
	fields   map[string]Field
	formulas map[string]KpiFormula
	compiled map[string]*kpi.Formula
}

// NewRegistry builds a registry seeded with the default platform fields and
// applies global hooks.
func NewRegistry() *Registry {
	reg := &Registry{
		fields:   map[string]Field{},
		formulas: map[string]KpiFormula{},
		compiled: map[string]*kpi.Formula{},
	}
	reg.registerDefaults()
	_ = reg.ApplyHooks()
	return reg
}

func (r *Registry) registerDefaults() {
	for _, field := range DefaultFields() {
		_ = r.RegisterField(field)
	}
	for _, formula := range DefaultFormulas() {
		_ = r.RegisterFormula(formula)
	}
}

// ApplyHooks executes registered field hooks.
func (r *Registry) ApplyHooks() error {
	globalHookMu.Lock()
	defer globalHookMu.Unlock()
	for _, hook := range globalHooks {
		if err := hook(r); err != nil {
			return err
		}
	}
	return nil
}

// RegisterField stores a field definition.
func (r *Registry) RegisterField(field Field) error {
	if field.ID == "" {
		return errInvalidFieldID
	}
	if field.Source == "" {
		field.Source = SourceCustom
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fields[field.ID] = field
	return nil
}

// RegisterFormula parses, validates, and stores a KPI formula. Referenced
// fields must already exist in the registry; RequiredFields is derived from
// the expression when the caller leaves it empty.
func (r *Registry) RegisterFormula(formula KpiFormula) error {
	if formula.ID == "" {
		return errInvalidFormulaID
	}
	if formula.Formula == "" {
		return fmt.Errorf("journey: formula %s has no expression", formula.ID)
	}
	compiled, err := kpi.Parse(formula.Formula)
	if err != nil {
		return fmt.Errorf("journey: formula %s: %w", formula.ID, err)
	}
	if err := compiled.Validate(r.HasField); err != nil {
		return fmt.Errorf("journey: formula %s: %w", formula.ID, err)
	}
	if len(formula.RequiredFields) == 0 {
		formula.RequiredFields = compiled.RequiredFields()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formulas[formula.ID] = formula
	r.compiled[formula.ID] = compiled
	return nil
}

// HasField reports whether a field id exists.
func (r *Registry) HasField(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.fields[id]
	return ok
}

// Field fetches a field definition by id.
func (r *Registry) Field(id string) (Field, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	field, ok := r.fields[id]
	return field, ok
}

// Formula fetches a formula definition by id.
func (r *Registry) Formula(id string) (KpiFormula, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	formula, ok := r.formulas[id]
	return formula, ok
}

// Compiled fetches the parsed expression for a registered formula.
func (r *Registry) Compiled(id string) (*kpi.Formula, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	compiled, ok := r.compiled[id]
	return compiled, ok
}

// Fields returns all registered fields sorted by id.
func (r *Registry) Fields() []Field {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fields := make([]Field, 0, len(r.fields))
	for _, field := range r.fields {
		fields = append(fields, field)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].ID < fields[j].ID })
	return fields
}

// Formulas returns all registered formulas sorted by id.
func (r *Registry) Formulas() []KpiFormula {
	r.mu.RLock()
	defer r.mu.RUnlock()
	formulas := make([]KpiFormula, 0, len(r.formulas))
	for _, formula := range r.formulas {
		formulas = append(formulas, formula)
	}
	sort.Slice(formulas, func(i, j int) bool { return formulas[i].ID < formulas[j].ID })
	return formulas
}
