package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openclaw/billing/internal/apperrors"
	"github.com/openclaw/billing/internal/core/domain"
	portsrepo "github.com/openclaw/billing/internal/core/ports/repositories"
	portssvc "github.com/openclaw/billing/internal/core/ports/services"
	"github.com/openclaw/billing/internal/platform/config"
	"github.com/openclaw/billing/internal/utils"
)

// paymentEventService translates verified payment-provider events into
// idempotent ledger credits and subscription-tier updates. It owns no balance
// logic; every credit goes through the transaction engine keyed by event id.
type paymentEventService struct {
	BaseService
	ledger           portssvc.LedgerWriterSvc
	subscriptionRepo portsrepo.SubscriptionRepository
	analytics        *utils.AnalyticsClient
	pricePremium     string
	priceEnterprise  string
}

// NewPaymentEventService creates the payment event intake service.
func NewPaymentEventService(cfg *config.Config, ledger portssvc.LedgerWriterSvc, subscriptionRepo portsrepo.SubscriptionRepository, analytics *utils.AnalyticsClient) portssvc.PaymentEventSvcFacade {
	return &paymentEventService{
		ledger:           ledger,
		subscriptionRepo: subscriptionRepo,
		analytics:        analytics,
		pricePremium:     cfg.StripePricePremium,
		priceEnterprise:  cfg.StripePriceEnterprise,
	}
}

var _ portssvc.PaymentEventSvcFacade = (*paymentEventService)(nil)

// HandleEvent dispatches one verified provider event. Unrecognized event
// types are acknowledged as no-ops since the provider adds types over time.
func (s *paymentEventService) HandleEvent(ctx context.Context, event domain.PaymentEvent) error {
	switch event.Type {
	case domain.EventPaymentSucceeded:
		return s.handlePaymentSucceeded(ctx, event)
	case domain.EventPaymentFailed, domain.EventInvoiceFailed:
		s.handlePaymentFailed(ctx, event)
		return nil
	case domain.EventSubscriptionCreated, domain.EventSubscriptionUpdated:
		return s.handleSubscriptionUpdate(ctx, event)
	case domain.EventSubscriptionDeleted:
		return s.handleSubscriptionDeleted(ctx, event)
	case domain.EventInvoicePaid:
		return s.handleInvoicePaid(ctx, event)
	default:
		s.LogInfo(ctx, "Unhandled payment event type", "event_type", string(event.Type), "event_id", event.EventID)
		return nil
	}
}

func (s *paymentEventService) handlePaymentSucceeded(ctx context.Context, event domain.PaymentEvent) error {
	if event.Purchase == nil || event.AccountID == "" {
		// Payment intents without purchase metadata are not credit purchases.
		s.LogInfo(ctx, "Payment succeeded without purchase metadata, ignoring", "event_id", event.EventID)
		return nil
	}

	reasonCode := "purchase_" + event.Purchase.PackageID
	newBalance, err := s.ledger.Credit(ctx, event.AccountID, event.Purchase.Credits, reasonCode, &event.EventID)
	if err != nil {
		return fmt.Errorf("failed to credit purchase for event %s: %w", event.EventID, err)
	}

	s.LogInfo(ctx, "Credits added from payment",
		"account_id", event.AccountID,
		"package_id", event.Purchase.PackageID,
		"credits", event.Purchase.Credits.String(),
		"event_id", event.EventID,
	)
	s.analytics.Enqueue(event.AccountID, "credits_purchased", map[string]any{
		"package_id":    event.Purchase.PackageID,
		"credits":       event.Purchase.Credits.String(),
		"balance_after": newBalance.Balance.String(),
	})
	return nil
}

// handlePaymentFailed records no ledger mutation; it only emits observability
// signals so support and the client can react.
func (s *paymentEventService) handlePaymentFailed(ctx context.Context, event domain.PaymentEvent) {
	s.LogWarn(ctx, "Payment failed",
		"account_id", event.AccountID,
		"event_id", event.EventID,
		"failure_message", event.FailureMessage,
	)
	if event.AccountID != "" {
		s.analytics.Enqueue(event.AccountID, "payment_failed", map[string]any{
			"event_id": event.EventID,
			"message":  event.FailureMessage,
		})
	}
}

func (s *paymentEventService) handleSubscriptionUpdate(ctx context.Context, event domain.PaymentEvent) error {
	details := event.Subscription
	if details == nil {
		s.LogWarn(ctx, "Subscription event without subscription details, ignoring", "event_id", event.EventID)
		return nil
	}

	existing, err := s.subscriptionRepo.FindByStripeID(ctx, details.StripeSubscriptionID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("failed to look up subscription %s: %w", details.StripeSubscriptionID, err)
	}

	accountID := event.AccountID
	now := time.Now().UTC()
	sub := domain.Subscription{
		SubscriptionID:       uuid.NewString(),
		AccountID:            accountID,
		StripeSubscriptionID: details.StripeSubscriptionID,
		StripeCustomerID:     details.StripeCustomerID,
		CreatedAt:            now,
	}
	if existing != nil {
		sub.SubscriptionID = existing.SubscriptionID
		sub.CreatedAt = existing.CreatedAt
		if accountID == "" {
			sub.AccountID = existing.AccountID
		}
	}
	if sub.AccountID == "" {
		s.LogWarn(ctx, "Subscription event with no resolvable account, ignoring",
			"stripe_subscription_id", details.StripeSubscriptionID,
			"event_id", event.EventID,
		)
		return nil
	}

	sub.Tier = s.tierFromPriceID(details.StripePriceID)
	sub.Status = domain.SubscriptionStatus(details.Status)
	sub.CurrentPeriodStart = details.CurrentPeriodStart
	sub.CurrentPeriodEnd = details.CurrentPeriodEnd
	sub.CancelAtPeriodEnd = details.CancelAtPeriodEnd
	sub.UpdatedAt = now

	if err := s.subscriptionRepo.Upsert(ctx, sub); err != nil {
		return fmt.Errorf("failed to upsert subscription %s: %w", details.StripeSubscriptionID, err)
	}

	s.LogInfo(ctx, "Subscription updated from webhook",
		"stripe_subscription_id", details.StripeSubscriptionID,
		"tier", string(sub.Tier),
		"status", string(sub.Status),
	)
	return nil
}

func (s *paymentEventService) handleSubscriptionDeleted(ctx context.Context, event domain.PaymentEvent) error {
	details := event.Subscription
	if details == nil {
		return nil
	}

	existing, err := s.subscriptionRepo.FindByStripeID(ctx, details.StripeSubscriptionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to look up subscription %s: %w", details.StripeSubscriptionID, err)
	}

	existing.Status = domain.SubscriptionCanceled
	existing.Tier = domain.TierFree
	existing.UpdatedAt = time.Now().UTC()
	if err := s.subscriptionRepo.Upsert(ctx, *existing); err != nil {
		return fmt.Errorf("failed to cancel subscription %s: %w", details.StripeSubscriptionID, err)
	}

	s.LogInfo(ctx, "Subscription canceled from webhook", "stripe_subscription_id", details.StripeSubscriptionID)
	return nil
}

// handleInvoicePaid grants the tier's renewal stipend, idempotent by event id
// so invoice redeliveries cannot double-credit.
func (s *paymentEventService) handleInvoicePaid(ctx context.Context, event domain.PaymentEvent) error {
	if event.InvoiceSubscriptionID == "" {
		s.LogInfo(ctx, "Invoice paid without subscription, ignoring", "event_id", event.EventID)
		return nil
	}

	sub, err := s.subscriptionRepo.FindByStripeID(ctx, event.InvoiceSubscriptionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.LogWarn(ctx, "Invoice paid for unknown subscription, ignoring", "stripe_subscription_id", event.InvoiceSubscriptionID)
			return nil
		}
		return fmt.Errorf("failed to look up subscription %s: %w", event.InvoiceSubscriptionID, err)
	}

	stipend := domain.RenewalStipend(sub.Tier)
	if stipend.IsZero() {
		return nil
	}

	if _, err := s.ledger.Credit(ctx, sub.AccountID, stipend, "subscription_renewal", &event.EventID); err != nil {
		return fmt.Errorf("failed to credit renewal stipend for event %s: %w", event.EventID, err)
	}

	s.LogInfo(ctx, "Renewal stipend credited",
		"account_id", sub.AccountID,
		"tier", string(sub.Tier),
		"stipend", stipend.String(),
		"event_id", event.EventID,
	)
	return nil
}

// GetSubscription returns the account's subscription state. Accounts with no
// stored subscription are on the free tier.
func (s *paymentEventService) GetSubscription(ctx context.Context, accountID string) (domain.Subscription, error) {
	sub, err := s.subscriptionRepo.FindByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.Subscription{
				AccountID: accountID,
				Tier:      domain.TierFree,
				Status:    domain.SubscriptionActive,
			}, nil
		}
		return domain.Subscription{}, fmt.Errorf("failed to load subscription for account %s: %w", accountID, err)
	}
	return *sub, nil
}

func (s *paymentEventService) tierFromPriceID(priceID string) domain.SubscriptionTier {
	switch priceID {
	case s.priceEnterprise:
		return domain.TierEnterprise
	case s.pricePremium:
		return domain.TierPremium
	default:
		// Unknown prices are treated as the base paid tier rather than
		// rejected, so a new price rollout cannot strand paying users.
		return domain.TierPremium
	}
}
