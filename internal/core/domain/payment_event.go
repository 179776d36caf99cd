package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentEventType is the provider's event type string. Only the types below
// carry ledger or subscription semantics; anything else is acknowledged as a
// no-op since the provider adds event types over time.
type PaymentEventType string

const (
	EventPaymentSucceeded    PaymentEventType = "payment_intent.succeeded"
	EventPaymentFailed       PaymentEventType = "payment_intent.payment_failed"
	EventSubscriptionCreated PaymentEventType = "customer.subscription.created"
	EventSubscriptionUpdated PaymentEventType = "customer.subscription.updated"
	EventSubscriptionDeleted PaymentEventType = "customer.subscription.deleted"
	EventInvoicePaid         PaymentEventType = "invoice.payment_succeeded"
	EventInvoiceFailed       PaymentEventType = "invoice.payment_failed"
)

// PurchaseDetails is the purchase metadata attached to a succeeded payment.
type PurchaseDetails struct {
	PackageID string
	Credits   decimal.Decimal // Total credits to grant, bonus included
}

// SubscriptionDetails is the subscription snapshot carried by lifecycle events.
type SubscriptionDetails struct {
	StripeSubscriptionID string
	StripeCustomerID     string
	StripePriceID        string
	Status               string
	CurrentPeriodStart   time.Time
	CurrentPeriodEnd     time.Time
	CancelAtPeriodEnd    bool
}

// PaymentEvent is a signature-verified payment-provider event, already parsed
// by the webhook receiver. EventID doubles as the idempotency key for any
// ledger credit the event produces.
type PaymentEvent struct {
	EventID               string
	Type                  PaymentEventType
	AccountID             string
	Purchase              *PurchaseDetails     // Set on payment_intent events for credit purchases
	Subscription          *SubscriptionDetails // Set on subscription lifecycle events
	InvoiceSubscriptionID string               // Set on invoice events; provider subscription id
	FailureMessage        string               // Set on failure events
}
