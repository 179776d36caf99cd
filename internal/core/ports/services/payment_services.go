package services

import (
	"context"

	"github.com/openclaw/billing/internal/core/domain"
)

// PaymentEventSvcFacade turns verified payment-provider events into idempotent
// ledger and subscription operations. Redelivery of an event id is safe:
// credits are keyed by the event id and short-circuit on replay. Unrecognized
// event types return nil.
type PaymentEventSvcFacade interface {
	HandleEvent(ctx context.Context, event domain.PaymentEvent) error

	// GetSubscription returns the account's subscription. Accounts that never
	// subscribed get a synthetic free-tier subscription, not ErrNotFound.
	GetSubscription(ctx context.Context, accountID string) (domain.Subscription, error)
}
