package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/openclaw/billing/internal/apperrors"
	"github.com/openclaw/billing/internal/core/domain"
	portssvc "github.com/openclaw/billing/internal/core/ports/services"
	"github.com/openclaw/billing/internal/dto"
	"github.com/openclaw/billing/internal/handlers"
	"github.com/openclaw/billing/internal/middleware"
)

// --- Mock LedgerService ---
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) GetBalance(ctx context.Context, accountID string) (domain.Balance, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(domain.Balance), args.Error(1)
}
func (m *MockLedgerService) GetHistory(ctx context.Context, accountID string, limit, offset int) ([]domain.LedgerTransaction, error) {
	args := m.Called(ctx, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LedgerTransaction), args.Error(1)
}
func (m *MockLedgerService) Credit(ctx context.Context, accountID string, amount decimal.Decimal, reasonCode string, externalReference *string) (domain.Balance, error) {
	args := m.Called(ctx, accountID, amount, reasonCode, externalReference)
	return args.Get(0).(domain.Balance), args.Error(1)
}
func (m *MockLedgerService) Debit(ctx context.Context, accountID string, amount decimal.Decimal, reasonCode string, externalReference *string) (domain.Balance, error) {
	args := m.Called(ctx, accountID, amount, reasonCode, externalReference)
	return args.Get(0).(domain.Balance), args.Error(1)
}
func (m *MockLedgerService) Reconcile(ctx context.Context, accountID string) (portssvc.ReconciliationResult, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(portssvc.ReconciliationResult), args.Error(1)
}
func (m *MockLedgerService) TotalCreditsSold(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called(ctx)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

var _ portssvc.LedgerSvcFacade = (*MockLedgerService)(nil)

// --- Mock MeteringService ---
type MockMeteringService struct {
	mock.Mock
}

func (m *MockMeteringService) RecordUsage(ctx context.Context, accountID string, resourceType domain.ResourceType, quantity decimal.Decimal, usageContext string, idempotencyKey *string) (*portssvc.UsageResult, error) {
	args := m.Called(ctx, accountID, resourceType, quantity, usageContext, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*portssvc.UsageResult), args.Error(1)
}

var _ portssvc.MeteringSvcFacade = (*MockMeteringService)(nil)

// --- Mock PurchaseService ---
type MockPurchaseService struct {
	mock.Mock
}

func (m *MockPurchaseService) ListPackages(ctx context.Context) []domain.CreditPackage {
	args := m.Called(ctx)
	return args.Get(0).([]domain.CreditPackage)
}
func (m *MockPurchaseService) InitiatePurchase(ctx context.Context, accountID, email, packageID, paymentMethodRef string) (*portssvc.PurchaseIntent, error) {
	args := m.Called(ctx, accountID, email, packageID, paymentMethodRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*portssvc.PurchaseIntent), args.Error(1)
}

var _ portssvc.PurchaseSvcFacade = (*MockPurchaseService)(nil)

// --- Test Suite ---
type CreditsHandlerTestSuite struct {
	suite.Suite
	router       *gin.Engine
	mockLedger   *MockLedgerService
	mockMetering *MockMeteringService
	mockPurchase *MockPurchaseService
	jwtSecret    string
}

// generateTestToken creates a dummy JWT for testing.
func (suite *CreditsHandlerTestSuite) generateTestToken(accountID string) string {
	claims := jwt.RegisteredClaims{
		Issuer:    "billing-test",
		Subject:   accountID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(1 * time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedString, err := token.SignedString([]byte(suite.jwtSecret))
	if err != nil {
		suite.FailNow("Failed to sign test token", err.Error())
	}
	return signedString
}

func (suite *CreditsHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	suite.jwtSecret = "test-secret-key-that-is-long-enough"

	suite.router.Use(middleware.AuthMiddleware(suite.jwtSecret))

	suite.mockLedger = new(MockLedgerService)
	suite.mockMetering = new(MockMeteringService)
	suite.mockPurchase = new(MockPurchaseService)

	sc := &portssvc.ServiceContainer{
		Ledger:   suite.mockLedger,
		Metering: suite.mockMetering,
		Purchase: suite.mockPurchase,
	}
	v1 := suite.router.Group("/api/v1")
	handlers.RegisterCreditsRoutes(v1, sc)
}

func (suite *CreditsHandlerTestSuite) doRequest(method, url, accountID string, body any) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		suite.Require().NoError(err)
		reqBody = bytes.NewBuffer(raw)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, url, reqBody)
	req.Header.Set("Authorization", "Bearer "+suite.generateTestToken(accountID))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

// --- Test Cases ---

func (suite *CreditsHandlerTestSuite) TestGetBalance_Success() {
	accountID := uuid.NewString()
	now := time.Now().UTC()

	suite.mockLedger.On("GetBalance", mock.Anything, accountID).
		Return(domain.Balance{AccountID: accountID, Balance: decimal.NewFromInt(250), UpdatedAt: now}, nil).Once()

	w := suite.doRequest(http.MethodGet, "/api/v1/credits/balance", accountID, nil)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.BalanceResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(accountID, resp.AccountID)
	suite.True(resp.Balance.Equal(decimal.NewFromInt(250)))
	suite.mockLedger.AssertExpectations(suite.T())
}

func (suite *CreditsHandlerTestSuite) TestGetBalance_Unauthorized() {
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/credits/balance", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.mockLedger.AssertNotCalled(suite.T(), "GetBalance", mock.Anything, mock.Anything)
}

func (suite *CreditsHandlerTestSuite) TestGetHistory_Success() {
	accountID := uuid.NewString()
	ref := "evt_1"
	txns := []domain.LedgerTransaction{
		{
			TransactionID:     uuid.NewString(),
			AccountID:         accountID,
			Kind:              domain.Credit,
			Amount:            decimal.NewFromInt(550),
			BalanceAfter:      decimal.NewFromInt(550),
			ReasonCode:        "purchase_pack_500",
			ExternalReference: &ref,
			CreatedAt:         time.Now().UTC(),
		},
		{
			TransactionID: uuid.NewString(),
			AccountID:     accountID,
			Kind:          domain.Debit,
			Amount:        decimal.NewFromInt(1),
			BalanceAfter:  decimal.NewFromInt(549),
			ReasonCode:    "workflow_execution",
			CreatedAt:     time.Now().UTC().Add(-time.Minute),
		},
	}

	suite.mockLedger.On("GetHistory", mock.Anything, accountID, 10, 0).Return(txns, nil).Once()

	w := suite.doRequest(http.MethodGet, "/api/v1/credits/history?limit=10", accountID, nil)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.HistoryResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Len(resp.Transactions, 2)
	suite.Equal("CREDIT", resp.Transactions[0].Kind)
	suite.Equal("purchase_pack_500", resp.Transactions[0].ReasonCode)
	suite.mockLedger.AssertExpectations(suite.T())
}

func (suite *CreditsHandlerTestSuite) TestListPackages() {
	accountID := uuid.NewString()

	suite.mockPurchase.On("ListPackages", mock.Anything).Return(domain.CreditPackages()).Once()

	w := suite.doRequest(http.MethodGet, "/api/v1/credits/packages", accountID, nil)

	suite.Equal(http.StatusOK, w.Code)
	var resp []dto.PackageResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Len(resp, 4)
	suite.Equal("pack_500", resp[1].PackageID)
	suite.True(resp[1].TotalCredits.Equal(decimal.NewFromInt(550)))
	suite.mockPurchase.AssertExpectations(suite.T())
}

func (suite *CreditsHandlerTestSuite) TestPurchaseCredits_Success() {
	accountID := uuid.NewString()

	intent := &portssvc.PurchaseIntent{
		ClientSecret: "pi_123_secret",
		AmountCents:  3999,
		Credits:      decimal.NewFromInt(550),
	}
	suite.mockPurchase.On("InitiatePurchase", mock.Anything, accountID, "", "pack_500", "").
		Return(intent, nil).Once()

	w := suite.doRequest(http.MethodPost, "/api/v1/credits/purchase", accountID, dto.PurchaseRequest{PackageID: "pack_500"})

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.PurchaseResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("pi_123_secret", resp.ClientSecret)
	suite.Equal(int64(3999), resp.AmountCents)
	suite.mockPurchase.AssertExpectations(suite.T())
}

func (suite *CreditsHandlerTestSuite) TestPurchaseCredits_UnknownPackage() {
	accountID := uuid.NewString()

	suite.mockPurchase.On("InitiatePurchase", mock.Anything, accountID, "", "pack_9000", "").
		Return(nil, apperrors.ErrUnknownPackage).Once()

	w := suite.doRequest(http.MethodPost, "/api/v1/credits/purchase", accountID, dto.PurchaseRequest{PackageID: "pack_9000"})

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.mockPurchase.AssertExpectations(suite.T())
}

func (suite *CreditsHandlerTestSuite) TestPurchaseCredits_MissingPackageID() {
	accountID := uuid.NewString()

	w := suite.doRequest(http.MethodPost, "/api/v1/credits/purchase", accountID, map[string]string{})

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.mockPurchase.AssertNotCalled(suite.T(), "InitiatePurchase", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *CreditsHandlerTestSuite) TestTrackUsage_Success() {
	accountID := uuid.NewString()

	result := &portssvc.UsageResult{
		CreditsCharged:   decimal.NewFromInt(2),
		RemainingBalance: decimal.NewFromInt(98),
	}
	suite.mockMetering.On("RecordUsage", mock.Anything, accountID, domain.ResourceAPICallOpenAI,
		mock.MatchedBy(func(q decimal.Decimal) bool { return q.Equal(decimal.NewFromInt(1)) }),
		"wf_7", (*string)(nil)).Return(result, nil).Once()

	w := suite.doRequest(http.MethodPost, "/api/v1/usage/track", accountID, dto.TrackUsageRequest{
		ResourceType: "api_call_openai",
		Quantity:     decimal.NewFromInt(1),
		Context:      "wf_7",
	})

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.TrackUsageResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.True(resp.CreditsCharged.Equal(decimal.NewFromInt(2)))
	suite.True(resp.RemainingBalance.Equal(decimal.NewFromInt(98)))
	suite.mockMetering.AssertExpectations(suite.T())
}

func (suite *CreditsHandlerTestSuite) TestTrackUsage_InsufficientCreditsReturns402() {
	accountID := uuid.NewString()

	insufficientErr := apperrors.NewInsufficientBalanceError(decimal.NewFromInt(3), decimal.NewFromInt(1))
	suite.mockMetering.On("RecordUsage", mock.Anything, accountID, domain.ResourceAPICallAnthropic,
		mock.Anything, "", (*string)(nil)).Return(nil, insufficientErr).Once()

	w := suite.doRequest(http.MethodPost, "/api/v1/usage/track", accountID, dto.TrackUsageRequest{
		ResourceType: "api_call_anthropic",
		Quantity:     decimal.NewFromInt(1),
	})

	suite.Equal(http.StatusPaymentRequired, w.Code)
	var body map[string]json.RawMessage
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	suite.Contains(body, "creditsNeeded")

	var shortfall decimal.Decimal
	suite.Require().NoError(json.Unmarshal(body["creditsNeeded"], &shortfall))
	suite.True(shortfall.Equal(decimal.NewFromInt(2)))
	suite.mockMetering.AssertExpectations(suite.T())
}

func (suite *CreditsHandlerTestSuite) TestTrackUsage_UnknownResourceReturns400() {
	accountID := uuid.NewString()

	suite.mockMetering.On("RecordUsage", mock.Anything, accountID, domain.ResourceType("gpu_hours"),
		mock.Anything, "", (*string)(nil)).Return(nil, apperrors.ErrUnknownResource).Once()

	w := suite.doRequest(http.MethodPost, "/api/v1/usage/track", accountID, dto.TrackUsageRequest{
		ResourceType: "gpu_hours",
		Quantity:     decimal.NewFromInt(1),
	})

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.mockMetering.AssertExpectations(suite.T())
}

func (suite *CreditsHandlerTestSuite) TestReconcile_Success() {
	accountID := uuid.NewString()

	suite.mockLedger.On("Reconcile", mock.Anything, accountID).Return(portssvc.ReconciliationResult{
		Balance:    decimal.NewFromInt(42),
		LedgerSum:  decimal.NewFromInt(42),
		Consistent: true,
	}, nil).Once()

	w := suite.doRequest(http.MethodGet, "/api/v1/credits/reconcile", accountID, nil)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.ReconciliationResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.True(resp.Consistent)
	suite.mockLedger.AssertExpectations(suite.T())
}

func (suite *CreditsHandlerTestSuite) TestGetStats_Success() {
	accountID := uuid.NewString()

	suite.mockLedger.On("TotalCreditsSold", mock.Anything).Return(decimal.NewFromInt(98765), nil).Once()

	w := suite.doRequest(http.MethodGet, "/api/v1/credits/stats", accountID, nil)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.StatsResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.True(resp.TotalCreditsSold.Equal(decimal.NewFromInt(98765)))
	suite.mockLedger.AssertExpectations(suite.T())
}

func TestCreditsHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(CreditsHandlerTestSuite))
}
