package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	journey "github.com/salescope/go-journey/components/journey"
)

// SeedRegistryInput controls bootstrap behavior. ManifestPaths point at
// formula packs loaded after the built-in defaults.
type SeedRegistryInput struct {
	ManifestPaths []string
}

// SeedRegistryCommand registers the default fields and formulas, then layers
// manifest packs on top.
type SeedRegistryCommand struct {
	registry  *journey.Registry
	telemetry Telemetry
}

// NewSeedRegistryCommand wires dependencies.
func NewSeedRegistryCommand(registry *journey.Registry, telemetry Telemetry) *SeedRegistryCommand {
	return &SeedRegistryCommand{registry: registry, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SeedRegistryInput] = (*SeedRegistryCommand)(nil)

// Execute runs the bootstrap pipeline.
func (c *SeedRegistryCommand) Execute(ctx context.Context, msg SeedRegistryInput) error {
	if c.registry == nil {
		return errors.New("seed command requires registry")
	}
	for _, field := range journey.DefaultFields() {
		if err := c.registry.RegisterField(field); err != nil {
			return err
		}
	}
	for _, formula := range journey.DefaultFormulas() {
		if err := c.registry.RegisterFormula(formula); err != nil {
			return err
		}
	}
	for _, path := range msg.ManifestPaths {
		if _, err := c.registry.LoadManifestFile(path); err != nil {
			return err
		}
	}
	c.telemetry.Record(ctx, "journey.registry.seed", map[string]any{
		"manifests": len(msg.ManifestPaths),
	})
	return nil
}
