package models

import "time"

// Subscription is the DB row shape for the subscriptions table.
type Subscription struct {
	SubscriptionID       string    `db:"subscription_id"`
	AccountID            string    `db:"account_id"`
	StripeSubscriptionID string    `db:"stripe_subscription_id"`
	StripeCustomerID     string    `db:"stripe_customer_id"`
	Tier                 string    `db:"tier"`
	Status               string    `db:"status"`
	CurrentPeriodStart   time.Time `db:"current_period_start"`
	CurrentPeriodEnd     time.Time `db:"current_period_end"`
	CancelAtPeriodEnd    bool      `db:"cancel_at_period_end"`
	CreatedAt            time.Time `db:"created_at"`
	UpdatedAt            time.Time `db:"updated_at"`
}
