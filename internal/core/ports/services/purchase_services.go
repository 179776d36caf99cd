package services

import (
	"context"

	"github.com/openclaw/billing/internal/core/domain"
	"github.com/shopspring/decimal"
)

// PurchaseIntent is the client-facing handle for completing a credit purchase
// with the payment provider. Credits are only granted later, when the
// provider's payment-succeeded webhook arrives.
type PurchaseIntent struct {
	ClientSecret string
	AmountCents  int64
	Credits      decimal.Decimal
}

// PurchaseSvcFacade initiates credit purchases against the payment provider.
type PurchaseSvcFacade interface {
	// ListPackages returns the static credit package catalog.
	ListPackages(ctx context.Context) []domain.CreditPackage

	// InitiatePurchase creates a provider payment intent for the package,
	// tagged with the account id and credit amount so the webhook can grant
	// credits idempotently. Fails with ErrUnknownPackage for catalog misses.
	InitiatePurchase(ctx context.Context, accountID, email, packageID, paymentMethodRef string) (*PurchaseIntent, error)
}
