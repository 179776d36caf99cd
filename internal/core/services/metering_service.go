package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/openclaw/billing/internal/apperrors"
	"github.com/openclaw/billing/internal/core/domain"
	portssvc "github.com/openclaw/billing/internal/core/ports/services"
)

// creditCostPerUnit is the static cost table: resource type to credits per
// unit consumed. Fractional costs are exact decimals, never floats.
var creditCostPerUnit = map[domain.ResourceType]decimal.Decimal{
	domain.ResourceWorkflowExecution: decimal.NewFromInt(1),
	domain.ResourceNodeExecution:     decimal.RequireFromString("0.1"),
	domain.ResourceAPICallOpenAI:     decimal.NewFromInt(2),
	domain.ResourceAPICallAnthropic:  decimal.NewFromInt(3),
	domain.ResourceAPICallGoogle:     decimal.NewFromInt(2),
	domain.ResourceStorageMB:         decimal.RequireFromString("0.01"),
}

// meteringService converts resource consumption into ledger debits. It gates
// the consuming action: the caller must not proceed when the debit fails.
type meteringService struct {
	BaseService
	ledger portssvc.LedgerWriterSvc
}

// NewMeteringService creates the usage metering service over the transaction engine.
func NewMeteringService(ledger portssvc.LedgerWriterSvc) portssvc.MeteringSvcFacade {
	return &meteringService{ledger: ledger}
}

var _ portssvc.MeteringSvcFacade = (*meteringService)(nil)

// RecordUsage charges costTable[resourceType] * quantity against the account.
func (s *meteringService) RecordUsage(ctx context.Context, accountID string, resourceType domain.ResourceType, quantity decimal.Decimal, usageContext string, idempotencyKey *string) (*portssvc.UsageResult, error) {
	costPerUnit, ok := creditCostPerUnit[resourceType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownResource, resourceType)
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: quantity %s", apperrors.ErrInvalidAmount, quantity)
	}

	cost := costPerUnit.Mul(quantity)

	reasonCode := string(resourceType)
	if usageContext != "" {
		reasonCode = reasonCode + ":" + usageContext
	}

	// Client-supplied idempotency keys flow into the same external-reference
	// dedup path used by payment events, so at-least-once callers are safe.
	var externalReference *string
	if idempotencyKey != nil && *idempotencyKey != "" {
		ref := "usage_" + *idempotencyKey
		externalReference = &ref
	}

	newBalance, err := s.ledger.Debit(ctx, accountID, cost, reasonCode, externalReference)
	if err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Usage recorded",
		"account_id", accountID,
		"resource_type", string(resourceType),
		"quantity", quantity.String(),
		"credits_charged", cost.String(),
	)
	return &portssvc.UsageResult{
		CreditsCharged:   cost,
		RemainingBalance: newBalance.Balance,
	}, nil
}
