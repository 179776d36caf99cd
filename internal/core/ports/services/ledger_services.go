package services

import (
	"context"

	"github.com/openclaw/billing/internal/core/domain"
	"github.com/shopspring/decimal"
)

// LedgerReaderSvc defines read operations on the credit ledger.
type LedgerReaderSvc interface {
	// GetBalance returns the current balance; new accounts read as zero.
	GetBalance(ctx context.Context, accountID string) (domain.Balance, error)

	// GetHistory returns ledger transactions newest first. Pure read, no
	// server-side cursor state; callers may re-query with any offset.
	GetHistory(ctx context.Context, accountID string, limit, offset int) ([]domain.LedgerTransaction, error)
}

// LedgerWriterSvc defines the credit and debit operations of the transaction
// engine. Amounts must be positive (ErrInvalidAmount otherwise). When an
// external reference is supplied and a transaction with that reference already
// exists, the prior outcome is returned without re-applying the mutation.
type LedgerWriterSvc interface {
	Credit(ctx context.Context, accountID string, amount decimal.Decimal, reasonCode string, externalReference *string) (domain.Balance, error)

	// Debit fails with ErrInsufficientBalance (typed, carrying the shortfall)
	// when the account cannot cover the amount; the balance is left unchanged.
	Debit(ctx context.Context, accountID string, amount decimal.Decimal, reasonCode string, externalReference *string) (domain.Balance, error)
}

// ReconciliationResult compares the stored balance against the replayed
// ledger. The two must agree; a mismatch means the audit trail was violated.
type ReconciliationResult struct {
	Balance    decimal.Decimal
	LedgerSum  decimal.Decimal
	Consistent bool
}

// LedgerAuditSvc defines audit and reporting reads over the ledger.
type LedgerAuditSvc interface {
	// Reconcile recomputes the account balance from its transactions and
	// compares it with the stored balance row.
	Reconcile(ctx context.Context, accountID string) (ReconciliationResult, error)

	// TotalCreditsSold sums purchased credits across all accounts.
	TotalCreditsSold(ctx context.Context) (decimal.Decimal, error)
}

// LedgerSvcFacade combines the ledger service interfaces.
type LedgerSvcFacade interface {
	LedgerReaderSvc
	LedgerWriterSvc
	LedgerAuditSvc
}
