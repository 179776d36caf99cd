package services_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/openclaw/billing/internal/apperrors"
	"github.com/openclaw/billing/internal/core/domain"
	portssvc "github.com/openclaw/billing/internal/core/ports/services"
	"github.com/openclaw/billing/internal/core/services"
	"github.com/openclaw/billing/internal/platform/config"
	"github.com/openclaw/billing/internal/utils"
)

// MockSubscriptionRepository is a mock type for the SubscriptionRepository interface
type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) FindByStripeID(ctx context.Context, stripeSubscriptionID string) (*domain.Subscription, error) {
	args := m.Called(ctx, stripeSubscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) FindByAccountID(ctx context.Context, accountID string) (*domain.Subscription, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) Upsert(ctx context.Context, sub domain.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

// --- Test Suite Setup ---

type PaymentEventServiceTestSuite struct {
	suite.Suite
	mockLedger *MockLedgerWriter
	mockSubs   *MockSubscriptionRepository
	service    portssvc.PaymentEventSvcFacade
}

func (suite *PaymentEventServiceTestSuite) SetupTest() {
	suite.mockLedger = new(MockLedgerWriter)
	suite.mockSubs = new(MockSubscriptionRepository)
	cfg := &config.Config{
		StripePricePremium:    "price_premium",
		StripePriceEnterprise: "price_enterprise",
	}
	analytics := utils.InitializeAnalyticsClient("", slog.New(slog.DiscardHandler))
	suite.service = services.NewPaymentEventService(cfg, suite.mockLedger, suite.mockSubs, analytics)
}

// --- Test Cases ---

func (suite *PaymentEventServiceTestSuite) TestPaymentSucceeded_CreditsKeyedByEventID() {
	ctx := context.Background()
	accountID := uuid.NewString()
	eventID := "evt_" + uuid.NewString()

	event := domain.PaymentEvent{
		EventID:   eventID,
		Type:      domain.EventPaymentSucceeded,
		AccountID: accountID,
		Purchase:  &domain.PurchaseDetails{PackageID: "pack_500", Credits: decimal.NewFromInt(550)},
	}

	suite.mockLedger.On("Credit", ctx, accountID, mock.MatchedBy(func(amount decimal.Decimal) bool {
		return amount.Equal(decimal.NewFromInt(550))
	}), "purchase_pack_500", mock.MatchedBy(func(ref *string) bool {
		return ref != nil && *ref == eventID
	})).Return(domain.Balance{Balance: decimal.NewFromInt(550)}, nil).Once()

	err := suite.service.HandleEvent(ctx, event)

	suite.Require().NoError(err)
	suite.mockLedger.AssertExpectations(suite.T())
}

func (suite *PaymentEventServiceTestSuite) TestPaymentSucceeded_NoPurchaseMetadata() {
	ctx := context.Background()

	// Payment intents unrelated to credit purchases are acknowledged untouched.
	err := suite.service.HandleEvent(ctx, domain.PaymentEvent{
		EventID: "evt_other",
		Type:    domain.EventPaymentSucceeded,
	})

	suite.Require().NoError(err)
	suite.mockLedger.AssertNotCalled(suite.T(), "Credit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *PaymentEventServiceTestSuite) TestPaymentFailed_NoLedgerMutation() {
	ctx := context.Background()

	err := suite.service.HandleEvent(ctx, domain.PaymentEvent{
		EventID:        "evt_fail",
		Type:           domain.EventPaymentFailed,
		AccountID:      uuid.NewString(),
		FailureMessage: "card_declined",
	})

	suite.Require().NoError(err)
	suite.mockLedger.AssertNotCalled(suite.T(), "Credit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	suite.mockLedger.AssertNotCalled(suite.T(), "Debit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *PaymentEventServiceTestSuite) TestSubscriptionCreated_UpsertsPremiumTier() {
	ctx := context.Background()
	accountID := uuid.NewString()
	stripeSubID := "sub_" + uuid.NewString()

	event := domain.PaymentEvent{
		EventID:   "evt_sub_created",
		Type:      domain.EventSubscriptionCreated,
		AccountID: accountID,
		Subscription: &domain.SubscriptionDetails{
			StripeSubscriptionID: stripeSubID,
			StripeCustomerID:     "cus_1",
			StripePriceID:        "price_premium",
			Status:               "active",
			CurrentPeriodStart:   time.Now().UTC(),
			CurrentPeriodEnd:     time.Now().UTC().AddDate(0, 1, 0),
		},
	}

	suite.mockSubs.On("FindByStripeID", ctx, stripeSubID).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockSubs.On("Upsert", ctx, mock.MatchedBy(func(sub domain.Subscription) bool {
		return sub.AccountID == accountID &&
			sub.StripeSubscriptionID == stripeSubID &&
			sub.Tier == domain.TierPremium &&
			sub.Status == domain.SubscriptionActive
	})).Return(nil).Once()

	err := suite.service.HandleEvent(ctx, event)

	suite.Require().NoError(err)
	suite.mockSubs.AssertExpectations(suite.T())
}

func (suite *PaymentEventServiceTestSuite) TestSubscriptionUpdated_EnterpriseTierKeepsIdentity() {
	ctx := context.Background()
	accountID := uuid.NewString()
	stripeSubID := "sub_" + uuid.NewString()
	existingID := uuid.NewString()
	createdAt := time.Now().UTC().AddDate(0, -2, 0)

	existing := &domain.Subscription{
		SubscriptionID:       existingID,
		AccountID:            accountID,
		StripeSubscriptionID: stripeSubID,
		Tier:                 domain.TierPremium,
		Status:               domain.SubscriptionActive,
		CreatedAt:            createdAt,
	}
	suite.mockSubs.On("FindByStripeID", ctx, stripeSubID).Return(existing, nil).Once()
	suite.mockSubs.On("Upsert", ctx, mock.MatchedBy(func(sub domain.Subscription) bool {
		return sub.SubscriptionID == existingID &&
			sub.AccountID == accountID &&
			sub.CreatedAt.Equal(createdAt) &&
			sub.Tier == domain.TierEnterprise
	})).Return(nil).Once()

	// AccountID missing from event metadata; must come from the stored row.
	err := suite.service.HandleEvent(ctx, domain.PaymentEvent{
		EventID: "evt_sub_updated",
		Type:    domain.EventSubscriptionUpdated,
		Subscription: &domain.SubscriptionDetails{
			StripeSubscriptionID: stripeSubID,
			StripePriceID:        "price_enterprise",
			Status:               "active",
		},
	})

	suite.Require().NoError(err)
	suite.mockSubs.AssertExpectations(suite.T())
}

func (suite *PaymentEventServiceTestSuite) TestSubscriptionDeleted_CancelsAndDowngrades() {
	ctx := context.Background()
	stripeSubID := "sub_" + uuid.NewString()

	existing := &domain.Subscription{
		SubscriptionID:       uuid.NewString(),
		AccountID:            uuid.NewString(),
		StripeSubscriptionID: stripeSubID,
		Tier:                 domain.TierPremium,
		Status:               domain.SubscriptionActive,
	}
	suite.mockSubs.On("FindByStripeID", ctx, stripeSubID).Return(existing, nil).Once()
	suite.mockSubs.On("Upsert", ctx, mock.MatchedBy(func(sub domain.Subscription) bool {
		return sub.Status == domain.SubscriptionCanceled && sub.Tier == domain.TierFree
	})).Return(nil).Once()

	err := suite.service.HandleEvent(ctx, domain.PaymentEvent{
		EventID:      "evt_sub_deleted",
		Type:         domain.EventSubscriptionDeleted,
		Subscription: &domain.SubscriptionDetails{StripeSubscriptionID: stripeSubID},
	})

	suite.Require().NoError(err)
	suite.mockSubs.AssertExpectations(suite.T())
}

func (suite *PaymentEventServiceTestSuite) TestInvoicePaid_GrantsStipend() {
	ctx := context.Background()
	accountID := uuid.NewString()
	stripeSubID := "sub_" + uuid.NewString()
	eventID := "evt_invoice_" + uuid.NewString()

	sub := &domain.Subscription{
		SubscriptionID:       uuid.NewString(),
		AccountID:            accountID,
		StripeSubscriptionID: stripeSubID,
		Tier:                 domain.TierEnterprise,
		Status:               domain.SubscriptionActive,
	}
	suite.mockSubs.On("FindByStripeID", ctx, stripeSubID).Return(sub, nil).Once()
	suite.mockLedger.On("Credit", ctx, accountID, mock.MatchedBy(func(amount decimal.Decimal) bool {
		return amount.Equal(decimal.NewFromInt(2000))
	}), "subscription_renewal", mock.MatchedBy(func(ref *string) bool {
		return ref != nil && *ref == eventID
	})).Return(domain.Balance{Balance: decimal.NewFromInt(2000)}, nil).Once()

	err := suite.service.HandleEvent(ctx, domain.PaymentEvent{
		EventID:               eventID,
		Type:                  domain.EventInvoicePaid,
		InvoiceSubscriptionID: stripeSubID,
	})

	suite.Require().NoError(err)
	suite.mockLedger.AssertExpectations(suite.T())
	suite.mockSubs.AssertExpectations(suite.T())
}

func (suite *PaymentEventServiceTestSuite) TestInvoicePaid_UnknownSubscriptionIgnored() {
	ctx := context.Background()

	suite.mockSubs.On("FindByStripeID", ctx, "sub_unknown").Return(nil, apperrors.ErrNotFound).Once()

	err := suite.service.HandleEvent(ctx, domain.PaymentEvent{
		EventID:               "evt_orphan_invoice",
		Type:                  domain.EventInvoicePaid,
		InvoiceSubscriptionID: "sub_unknown",
	})

	suite.Require().NoError(err)
	suite.mockLedger.AssertNotCalled(suite.T(), "Credit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *PaymentEventServiceTestSuite) TestUnknownEventType_Acknowledged() {
	ctx := context.Background()

	err := suite.service.HandleEvent(ctx, domain.PaymentEvent{
		EventID: "evt_novel",
		Type:    domain.PaymentEventType("charge.refund.updated"),
	})

	suite.Require().NoError(err)
	suite.mockLedger.AssertNotCalled(suite.T(), "Credit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	suite.mockSubs.AssertNotCalled(suite.T(), "Upsert", mock.Anything, mock.Anything)
}

func (suite *PaymentEventServiceTestSuite) TestGetSubscription_DefaultsToFreeTier() {
	ctx := context.Background()
	accountID := uuid.NewString()

	suite.mockSubs.On("FindByAccountID", ctx, accountID).Return(nil, apperrors.ErrNotFound).Once()

	sub, err := suite.service.GetSubscription(ctx, accountID)

	suite.Require().NoError(err)
	suite.Equal(domain.TierFree, sub.Tier)
	suite.Equal(domain.SubscriptionActive, sub.Status)
	suite.mockSubs.AssertExpectations(suite.T())
}

func (suite *PaymentEventServiceTestSuite) TestGetSubscription_ReturnsStoredRow() {
	ctx := context.Background()
	accountID := uuid.NewString()

	stored := &domain.Subscription{
		SubscriptionID: uuid.NewString(),
		AccountID:      accountID,
		Tier:           domain.TierEnterprise,
		Status:         domain.SubscriptionActive,
	}
	suite.mockSubs.On("FindByAccountID", ctx, accountID).Return(stored, nil).Once()

	sub, err := suite.service.GetSubscription(ctx, accountID)

	suite.Require().NoError(err)
	suite.Equal(domain.TierEnterprise, sub.Tier)
	suite.mockSubs.AssertExpectations(suite.T())
}

func TestPaymentEventServiceTestSuite(t *testing.T) {
	suite.Run(t, new(PaymentEventServiceTestSuite))
}
