package services

import (
	"context"

	"github.com/openclaw/billing/internal/core/domain"
	"github.com/shopspring/decimal"
)

// UsageResult reports the outcome of a successful usage debit.
type UsageResult struct {
	CreditsCharged   decimal.Decimal
	RemainingBalance decimal.Decimal
}

// MeteringSvcFacade converts resource consumption into credit debits.
// Metering gates the consuming action: callers must not proceed with the
// action when RecordUsage fails.
type MeteringSvcFacade interface {
	// RecordUsage charges costTable[resourceType] * quantity against the
	// account. usageContext tags the ledger reason code (e.g. a workflow id).
	// idempotencyKey, when supplied, deduplicates client retries the same way
	// payment events are deduplicated.
	RecordUsage(ctx context.Context, accountID string, resourceType domain.ResourceType, quantity decimal.Decimal, usageContext string, idempotencyKey *string) (*UsageResult, error)
}
