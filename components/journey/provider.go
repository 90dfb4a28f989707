package journey

import "context"

// Provider fetches the data behind one dashboard card.
type Provider interface {
	Fetch(ctx context.Context, card CardContext) (CardData, error)
}

// CardContext carries the aggregates a provider may draw from plus the
// per-card configuration. Journey is set for contact-level cards, Dashboard
// for team-level ones; a provider checks for what it needs.
type CardContext struct {
	Journey   *CustomerJourney
	Dashboard *DashboardData
	Config    map[string]any
}

// CardData is an opaque payload handed to the presentation layer.
type CardData map[string]any

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, card CardContext) (CardData, error)

// Fetch implements Provider.
func (f ProviderFunc) Fetch(ctx context.Context, card CardContext) (CardData, error) {
	return f(ctx, card)
}
