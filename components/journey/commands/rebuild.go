package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	journey "github.com/salescope/go-journey/components/journey"
)

// RebuildJourneyInput names the contact whose journey should be recomputed.
type RebuildJourneyInput struct {
	ContactID string        `json:"contactId"`
	Scope     journey.Scope `json:"scope,omitempty"`
}

type rebuildService interface {
	BuildJourney(ctx context.Context, bundle journey.ContactBundle, scope journey.Scope) (journey.CustomerJourney, error)
	NotifyJourneyUpdated(ctx context.Context, event journey.JourneyEvent) error
}

// RebuildJourneyCommand refetches a contact bundle, rebuilds the journey, and
// notifies transports. Invoked by sync webhooks after new records land.
type RebuildJourneyCommand struct {
	source    journey.BundleSource
	service   rebuildService
	telemetry Telemetry
}

// NewRebuildJourneyCommand creates the command.
func NewRebuildJourneyCommand(source journey.BundleSource, service rebuildService, telemetry Telemetry) *RebuildJourneyCommand {
	return &RebuildJourneyCommand{source: source, service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[RebuildJourneyInput] = (*RebuildJourneyCommand)(nil)

// Execute rebuilds the journey and broadcasts the refresh.
func (c *RebuildJourneyCommand) Execute(ctx context.Context, msg RebuildJourneyInput) error {
	if c.service == nil || c.source == nil {
		return errors.New("rebuild command requires source and service")
	}
	bundle, err := c.source.FetchContactBundle(ctx, msg.ContactID, msg.Scope)
	if err != nil {
		return err
	}
	built, err := c.service.BuildJourney(ctx, bundle, msg.Scope)
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "journey.rebuild", map[string]any{
		"contact_id":  msg.ContactID,
		"touchpoints": built.TotalTouchpoints,
		"rejected":    built.RejectedRecords,
	})
	return c.service.NotifyJourneyUpdated(ctx, journey.JourneyEvent{
		ContactID: msg.ContactID,
		Reason:    "rebuild",
	})
}
