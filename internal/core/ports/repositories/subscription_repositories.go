package repositories

import (
	"context"

	"github.com/openclaw/billing/internal/core/domain"
)

// SubscriptionRepository stores subscription-tier state driven by
// payment-provider lifecycle events.
type SubscriptionRepository interface {
	// FindByStripeID retrieves a subscription by the provider's subscription id,
	// or ErrNotFound.
	FindByStripeID(ctx context.Context, stripeSubscriptionID string) (*domain.Subscription, error)

	// FindByAccountID retrieves the subscription for an account, or ErrNotFound.
	FindByAccountID(ctx context.Context, accountID string) (*domain.Subscription, error)

	// Upsert inserts the subscription or, when a row with the same provider
	// subscription id exists, updates its tier, status and period fields.
	Upsert(ctx context.Context, sub domain.Subscription) error
}
