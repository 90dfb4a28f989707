package journey

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ParamsValidator validates evaluation parameters for customizable formulas
// against their declared schema.
type ParamsValidator interface {
	Validate(formula KpiFormula, params map[string]any) error
}

// JSONSchemaValidator compiles formula parameter schemas and validates
// parameter maps.
type JSONSchemaValidator struct {
	mu       sync.RWMutex
	compiled map[string]*jsonschema.Schema
}

// NewJSONSchemaValidator builds a validator backed by jsonschema v5.
func NewJSONSchemaValidator() *JSONSchemaValidator {
	return &JSONSchemaValidator{
		compiled: make(map[string]*jsonschema.Schema),
	}
}

// Validate ensures the provided parameters satisfy the formula schema.
func (v *JSONSchemaValidator) Validate(formula KpiFormula, params map[string]any) error {
	if len(formula.ParamsSchema) == 0 {
		return nil
	}
	schema, err := v.schemaFor(formula)
	if err != nil {
		return err
	}
	var payload map[string]any
	if params == nil {
		payload = map[string]any{}
	} else {
		data, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("journey: marshal params for %s: %w", formula.ID, err)
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("journey: normalize params for %s: %w", formula.ID, err)
		}
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("journey: parameters for %s failed validation: %w", formula.ID, err)
	}
	return nil
}

func (v *JSONSchemaValidator) schemaFor(formula KpiFormula) (*jsonschema.Schema, error) {
	v.mu.RLock()
	schema, ok := v.compiled[formula.ID]
	v.mu.RUnlock()
	if ok {
		return schema, nil
	}
	data, err := json.Marshal(formula.ParamsSchema)
	if err != nil {
		return nil, fmt.Errorf("journey: marshal schema %s: %w", formula.ID, err)
	}
	compiler := jsonschema.NewCompiler()
	name := formula.ID + ".json"
	if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("journey: load schema %s: %w", formula.ID, err)
	}
	compiled, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("journey: compile schema %s: %w", formula.ID, err)
	}
	v.mu.Lock()
	v.compiled[formula.ID] = compiled
	v.mu.Unlock()
	return compiled, nil
}

type noopParamsValidator struct{}

func (noopParamsValidator) Validate(KpiFormula, map[string]any) error { return nil }
