package services

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	stripeclient "github.com/stripe/stripe-go/v76/client"

	"github.com/openclaw/billing/internal/apperrors"
	"github.com/openclaw/billing/internal/core/domain"
	portssvc "github.com/openclaw/billing/internal/core/ports/services"
	"github.com/openclaw/billing/internal/platform/config"
)

// purchaseService creates payment intents for credit packages. The intent
// metadata carries the account and package so the succeeded webhook can grant
// credits without any server-side purchase state.
type purchaseService struct {
	BaseService
	stripeClient *stripeclient.API
}

// NewPurchaseService creates the purchase service with its own Stripe client.
func NewPurchaseService(cfg *config.Config) portssvc.PurchaseSvcFacade {
	sc := &stripeclient.API{}
	sc.Init(cfg.StripeSecretKey, nil)
	return &purchaseService{stripeClient: sc}
}

var _ portssvc.PurchaseSvcFacade = (*purchaseService)(nil)

func (s *purchaseService) ListPackages(_ context.Context) []domain.CreditPackage {
	return domain.CreditPackages()
}

func (s *purchaseService) InitiatePurchase(ctx context.Context, accountID, email, packageID, paymentMethodRef string) (*portssvc.PurchaseIntent, error) {
	pkg, ok := domain.CreditPackageByID(packageID)
	if !ok {
		return nil, fmt.Errorf("package %q: %w", packageID, apperrors.ErrUnknownPackage)
	}

	customerID, err := s.findOrCreateCustomer(ctx, accountID, email)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve customer for account %s: %w", accountID, err)
	}

	totalCredits := pkg.TotalCredits()
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(pkg.PriceCents),
		Currency: stripe.String(string(stripe.CurrencyUSD)),
		Customer: stripe.String(customerID),
	}
	if paymentMethodRef != "" {
		params.PaymentMethod = stripe.String(paymentMethodRef)
	}
	params.AddMetadata("userId", accountID)
	params.AddMetadata("packageId", pkg.PackageID)
	params.AddMetadata("credits", totalCredits.String())

	intent, err := s.stripeClient.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent for package %s: %w", packageID, err)
	}

	s.LogInfo(ctx, "Payment intent created",
		"account_id", accountID,
		"package_id", pkg.PackageID,
		"amount_cents", pkg.PriceCents,
	)
	return &portssvc.PurchaseIntent{
		ClientSecret: intent.ClientSecret,
		AmountCents:  pkg.PriceCents,
		Credits:      totalCredits,
	}, nil
}

// findOrCreateCustomer reuses an existing customer for the email so repeat
// purchases do not pile up duplicate customers at the provider.
func (s *purchaseService) findOrCreateCustomer(ctx context.Context, accountID, email string) (string, error) {
	if email != "" {
		listParams := &stripe.CustomerListParams{Email: stripe.String(email)}
		listParams.Limit = stripe.Int64(1)
		iter := s.stripeClient.Customers.List(listParams)
		if iter.Next() {
			return iter.Customer().ID, nil
		}
		if err := iter.Err(); err != nil {
			return "", err
		}
	}

	createParams := &stripe.CustomerParams{}
	if email != "" {
		createParams.Email = stripe.String(email)
	}
	createParams.AddMetadata("userId", accountID)
	customer, err := s.stripeClient.Customers.New(createParams)
	if err != nil {
		return "", err
	}
	s.LogInfo(ctx, "Created provider customer", "account_id", accountID)
	return customer.ID, nil
}
