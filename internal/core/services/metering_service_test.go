package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/openclaw/billing/internal/apperrors"
	"github.com/openclaw/billing/internal/core/domain"
	portssvc "github.com/openclaw/billing/internal/core/ports/services"
	"github.com/openclaw/billing/internal/core/services"
)

// MockLedgerWriter is a mock type for the LedgerWriterSvc interface
type MockLedgerWriter struct {
	mock.Mock
}

func (m *MockLedgerWriter) Credit(ctx context.Context, accountID string, amount decimal.Decimal, reasonCode string, externalReference *string) (domain.Balance, error) {
	args := m.Called(ctx, accountID, amount, reasonCode, externalReference)
	return args.Get(0).(domain.Balance), args.Error(1)
}

func (m *MockLedgerWriter) Debit(ctx context.Context, accountID string, amount decimal.Decimal, reasonCode string, externalReference *string) (domain.Balance, error) {
	args := m.Called(ctx, accountID, amount, reasonCode, externalReference)
	return args.Get(0).(domain.Balance), args.Error(1)
}

// --- Test Suite Setup ---

type MeteringServiceTestSuite struct {
	suite.Suite
	mockLedger *MockLedgerWriter
	service    portssvc.MeteringSvcFacade
}

func (suite *MeteringServiceTestSuite) SetupTest() {
	suite.mockLedger = new(MockLedgerWriter)
	suite.service = services.NewMeteringService(suite.mockLedger)
}

// --- Test Cases ---

func (suite *MeteringServiceTestSuite) TestRecordUsage_WorkflowExecution() {
	ctx := context.Background()
	accountID := uuid.NewString()

	suite.mockLedger.On("Debit", ctx, accountID, mock.MatchedBy(func(amount decimal.Decimal) bool {
		return amount.Equal(decimal.NewFromInt(1))
	}), "workflow_execution", (*string)(nil)).
		Return(domain.Balance{AccountID: accountID, Balance: decimal.NewFromInt(99)}, nil).Once()

	result, err := suite.service.RecordUsage(ctx, accountID, domain.ResourceWorkflowExecution, decimal.NewFromInt(1), "", nil)

	suite.Require().NoError(err)
	suite.True(result.CreditsCharged.Equal(decimal.NewFromInt(1)))
	suite.True(result.RemainingBalance.Equal(decimal.NewFromInt(99)))
	suite.mockLedger.AssertExpectations(suite.T())
}

func (suite *MeteringServiceTestSuite) TestRecordUsage_FractionalCost() {
	ctx := context.Background()
	accountID := uuid.NewString()

	// 25 node executions at 0.1 each is exactly 2.5 credits.
	suite.mockLedger.On("Debit", ctx, accountID, mock.MatchedBy(func(amount decimal.Decimal) bool {
		return amount.Equal(decimal.RequireFromString("2.5"))
	}), "node_execution", (*string)(nil)).
		Return(domain.Balance{Balance: decimal.RequireFromString("97.5")}, nil).Once()

	result, err := suite.service.RecordUsage(ctx, accountID, domain.ResourceNodeExecution, decimal.NewFromInt(25), "", nil)

	suite.Require().NoError(err)
	suite.True(result.CreditsCharged.Equal(decimal.RequireFromString("2.5")))
	suite.mockLedger.AssertExpectations(suite.T())
}

func (suite *MeteringServiceTestSuite) TestRecordUsage_ContextTagsReasonCode() {
	ctx := context.Background()
	accountID := uuid.NewString()

	suite.mockLedger.On("Debit", ctx, accountID, mock.Anything, "api_call_anthropic:wf_42", (*string)(nil)).
		Return(domain.Balance{Balance: decimal.NewFromInt(97)}, nil).Once()

	_, err := suite.service.RecordUsage(ctx, accountID, domain.ResourceAPICallAnthropic, decimal.NewFromInt(1), "wf_42", nil)

	suite.Require().NoError(err)
	suite.mockLedger.AssertExpectations(suite.T())
}

func (suite *MeteringServiceTestSuite) TestRecordUsage_IdempotencyKeyPrefixed() {
	ctx := context.Background()
	accountID := uuid.NewString()
	key := "client-retry-1"

	suite.mockLedger.On("Debit", ctx, accountID, mock.Anything, "api_call_openai", mock.MatchedBy(func(ref *string) bool {
		return ref != nil && *ref == "usage_client-retry-1"
	})).Return(domain.Balance{Balance: decimal.NewFromInt(98)}, nil).Once()

	_, err := suite.service.RecordUsage(ctx, accountID, domain.ResourceAPICallOpenAI, decimal.NewFromInt(1), "", &key)

	suite.Require().NoError(err)
	suite.mockLedger.AssertExpectations(suite.T())
}

func (suite *MeteringServiceTestSuite) TestRecordUsage_UnknownResource() {
	ctx := context.Background()

	_, err := suite.service.RecordUsage(ctx, uuid.NewString(), domain.ResourceType("gpu_hours"), decimal.NewFromInt(1), "", nil)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrUnknownResource)
	suite.mockLedger.AssertNotCalled(suite.T(), "Debit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *MeteringServiceTestSuite) TestRecordUsage_NonPositiveQuantity() {
	ctx := context.Background()

	_, err := suite.service.RecordUsage(ctx, uuid.NewString(), domain.ResourceStorageMB, decimal.Zero, "", nil)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrInvalidAmount)
	suite.mockLedger.AssertNotCalled(suite.T(), "Debit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *MeteringServiceTestSuite) TestRecordUsage_InsufficientBalance() {
	ctx := context.Background()
	accountID := uuid.NewString()

	insufficientErr := apperrors.NewInsufficientBalanceError(decimal.NewFromInt(3), decimal.NewFromInt(1))
	suite.mockLedger.On("Debit", ctx, accountID, mock.Anything, "api_call_anthropic", (*string)(nil)).
		Return(domain.Balance{}, insufficientErr).Once()

	result, err := suite.service.RecordUsage(ctx, accountID, domain.ResourceAPICallAnthropic, decimal.NewFromInt(1), "", nil)

	suite.Require().Error(err)
	suite.Nil(result)

	var typed *apperrors.InsufficientBalanceError
	suite.Require().ErrorAs(err, &typed)
	suite.True(typed.Shortfall().Equal(decimal.NewFromInt(2)))
	suite.mockLedger.AssertExpectations(suite.T())
}

func TestMeteringServiceTestSuite(t *testing.T) {
	suite.Run(t, new(MeteringServiceTestSuite))
}
