package mapping

import (
	"github.com/openclaw/billing/internal/core/domain"
	"github.com/openclaw/billing/internal/models"
)

// ToDomainSubscription converts a models.Subscription row to the domain type.
func ToDomainSubscription(m models.Subscription) domain.Subscription {
	return domain.Subscription{
		SubscriptionID:       m.SubscriptionID,
		AccountID:            m.AccountID,
		StripeSubscriptionID: m.StripeSubscriptionID,
		StripeCustomerID:     m.StripeCustomerID,
		Tier:                 domain.SubscriptionTier(m.Tier),
		Status:               domain.SubscriptionStatus(m.Status),
		CurrentPeriodStart:   m.CurrentPeriodStart,
		CurrentPeriodEnd:     m.CurrentPeriodEnd,
		CancelAtPeriodEnd:    m.CancelAtPeriodEnd,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

// ToModelSubscription converts a domain.Subscription for DB storage.
func ToModelSubscription(d domain.Subscription) models.Subscription {
	return models.Subscription{
		SubscriptionID:       d.SubscriptionID,
		AccountID:            d.AccountID,
		StripeSubscriptionID: d.StripeSubscriptionID,
		StripeCustomerID:     d.StripeCustomerID,
		Tier:                 string(d.Tier),
		Status:               string(d.Status),
		CurrentPeriodStart:   d.CurrentPeriodStart,
		CurrentPeriodEnd:     d.CurrentPeriodEnd,
		CancelAtPeriodEnd:    d.CancelAtPeriodEnd,
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
	}
}
