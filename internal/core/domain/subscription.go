package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubscriptionTier is the plan an account is on. Tier state lives outside the
// credit ledger; only renewal stipends touch the balance.
type SubscriptionTier string

const (
	TierFree       SubscriptionTier = "free"
	TierPremium    SubscriptionTier = "premium"
	TierEnterprise SubscriptionTier = "enterprise"
)

// SubscriptionStatus mirrors the payment provider's subscription status values.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// Subscription records an account's plan as driven by payment-provider
// lifecycle events.
type Subscription struct {
	SubscriptionID       string             `json:"subscriptionID"` // Primary Key (UUID)
	AccountID            string             `json:"accountID"`
	StripeSubscriptionID string             `json:"stripeSubscriptionID"`
	StripeCustomerID     string             `json:"stripeCustomerID"`
	Tier                 SubscriptionTier   `json:"tier"`
	Status               SubscriptionStatus `json:"status"`
	CurrentPeriodStart   time.Time          `json:"currentPeriodStart"`
	CurrentPeriodEnd     time.Time          `json:"currentPeriodEnd"`
	CancelAtPeriodEnd    bool               `json:"cancelAtPeriodEnd"`
	CreatedAt            time.Time          `json:"createdAt"`
	UpdatedAt            time.Time          `json:"updatedAt"`
}

// RenewalStipend is the credit grant applied when an invoice for the tier is
// paid. Zero means the tier grants no stipend.
func RenewalStipend(tier SubscriptionTier) decimal.Decimal {
	switch tier {
	case TierPremium:
		return decimal.NewFromInt(500)
	case TierEnterprise:
		return decimal.NewFromInt(2000)
	default:
		return decimal.Zero
	}
}
