package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	journey "github.com/salescope/go-journey/components/journey"
)

// RefreshJourneyInput emits refresh notifications for a contact's journey.
type RefreshJourneyInput struct {
	Event journey.JourneyEvent
}

type refreshNotifier interface {
	NotifyJourneyUpdated(ctx context.Context, event journey.JourneyEvent) error
}

// RefreshJourneyCommand triggers refresh hooks without forcing transports.
type RefreshJourneyCommand struct {
	service   refreshNotifier
	telemetry Telemetry
}

// NewRefreshJourneyCommand creates the command.
func NewRefreshJourneyCommand(service refreshNotifier, telemetry Telemetry) *RefreshJourneyCommand {
	return &RefreshJourneyCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[RefreshJourneyInput] = (*RefreshJourneyCommand)(nil)

// Execute notifies the engine's refresh hooks.
func (c *RefreshJourneyCommand) Execute(ctx context.Context, msg RefreshJourneyInput) error {
	if c.service == nil {
		return errors.New("refresh command requires service")
	}
	if err := c.service.NotifyJourneyUpdated(ctx, msg.Event); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "journey.refresh", map[string]any{
		"contact_id": msg.Event.ContactID,
		"reason":     msg.Event.Reason,
	})
	return nil
}
