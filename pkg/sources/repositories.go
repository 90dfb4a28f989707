package sources

import (
	"context"
	"time"

	journey "github.com/salescope/go-journey/components/journey"
)

// NewBundleRepository composes the three platform clients into the engine's
// BundleSource contract. AdSpendResolver is optional; it supplies marketing
// spend attributed to the contact (budget sheets, ad platform exports).
func NewBundleRepository(close CloseClient, calendly CalendlyClient, typeform TypeformClient, opts ...BundleRepositoryOption) journey.BundleSource {
	r := &bundleRepository{
		close:    close,
		calendly: calendly,
		typeform: typeform,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BundleRepositoryOption customizes the composite repository.
type BundleRepositoryOption func(*bundleRepository)

// AdSpendResolver resolves marketing spend attributed to one contact.
type AdSpendResolver func(ctx context.Context, contactID string, scope journey.Scope) (float64, error)

// WithAdSpendResolver wires an external spend source into bundles.
func WithAdSpendResolver(resolver AdSpendResolver) BundleRepositoryOption {
	return func(r *bundleRepository) { r.adSpend = resolver }
}

type bundleRepository struct {
	close    CloseClient
	calendly CalendlyClient
	typeform TypeformClient
	adSpend  AdSpendResolver
}

var _ journey.BundleSource = (*bundleRepository)(nil)

// ListContactIDs delegates to the CRM, the system of record for contacts.
func (r *bundleRepository) ListContactIDs(ctx context.Context, scope journey.Scope) ([]string, error) {
	return r.close.ListContactIDs(ctx, scope)
}

// FetchContactBundle pulls every platform's data for one contact and merges
// it into the engine's inbound shape. Meetings are also projected into raw
// records so they appear on the unified timeline.
func (r *bundleRepository) FetchContactBundle(ctx context.Context, contactID string, scope journey.Scope) (journey.ContactBundle, error) {
	bundle := journey.ContactBundle{ContactID: contactID}

	records, err := r.close.FetchActivities(ctx, contactID, scope)
	if err != nil {
		return journey.ContactBundle{}, err
	}
	bundle.Records = records

	if bundle.Deals, err = r.close.FetchDeals(ctx, contactID, scope); err != nil {
		return journey.ContactBundle{}, err
	}
	if bundle.Calls, err = r.close.FetchCalls(ctx, contactID, scope); err != nil {
		return journey.ContactBundle{}, err
	}
	if bundle.StatusChanges, err = r.close.FetchStatusChanges(ctx, contactID, scope); err != nil {
		return journey.ContactBundle{}, err
	}
	if bundle.AdminTasks, err = r.close.FetchAdminTasks(ctx, contactID, scope); err != nil {
		return journey.ContactBundle{}, err
	}

	meetings, err := r.calendly.FetchMeetings(ctx, contactID, scope)
	if err != nil {
		return journey.ContactBundle{}, err
	}
	bundle.Meetings = meetings
	bundle.Records = append(bundle.Records, meetingsToRecords(meetings)...)

	forms, err := r.typeform.FetchFormResponses(ctx, contactID, scope)
	if err != nil {
		return journey.ContactBundle{}, err
	}
	bundle.Records = append(bundle.Records, forms...)

	if r.adSpend != nil {
		spend, err := r.adSpend(ctx, contactID, scope)
		if err != nil {
			return journey.ContactBundle{}, err
		}
		bundle.AdSpend = spend
	}

	return bundle, nil
}

func meetingsToRecords(meetings []journey.Meeting) []journey.RawRecord {
	records := make([]journey.RawRecord, 0, len(meetings))
	for _, meeting := range meetings {
		if meeting.Canceled {
			continue
		}
		records = append(records, journey.RawRecord{
			ID:        meeting.ID,
			Source:    journey.SourceCalendly,
			Kind:      meeting.Subtype,
			Timestamp: meeting.StartAt.Format(time.RFC3339),
			UserID:    meeting.UserID,
		})
	}
	return records
}
