package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	journey "github.com/salescope/go-journey/components/journey"
)

type formulaService interface {
	RegisterFormula(ctx context.Context, formula journey.KpiFormula) error
}

// RegisterFormulaCommand stores a user-authored KPI formula so transports can
// accept formula definitions without linking against the service.
type RegisterFormulaCommand struct {
	service   formulaService
	telemetry Telemetry
}

// NewRegisterFormulaCommand creates the command.
func NewRegisterFormulaCommand(service formulaService, telemetry Telemetry) *RegisterFormulaCommand {
	return &RegisterFormulaCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[journey.KpiFormula] = (*RegisterFormulaCommand)(nil)

// Execute validates and stores the formula.
func (c *RegisterFormulaCommand) Execute(ctx context.Context, msg journey.KpiFormula) error {
	if c.service == nil {
		return errors.New("register formula command requires service")
	}
	if err := c.service.RegisterFormula(ctx, msg); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "journey.formula.register", map[string]any{
		"formula_id": msg.ID,
		"category":   msg.Category,
	})
	return nil
}
