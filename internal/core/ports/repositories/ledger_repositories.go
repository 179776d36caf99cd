package repositories

import (
	"context"

	"github.com/openclaw/billing/internal/core/domain"
	"github.com/shopspring/decimal"
)

// ApplyTransactionParams describes one balance mutation to be applied
// atomically with its audit record.
type ApplyTransactionParams struct {
	AccountID  string
	Kind       domain.TransactionKind
	Amount     decimal.Decimal // Positive magnitude
	ReasonCode string
	// ExternalReference, when set, must be unique per account. The store
	// rejects a second transaction with the same reference with ErrDuplicate.
	ExternalReference *string
}

// BalanceReader defines read operations for account balances.
type BalanceReader interface {
	// GetBalance returns the current balance for the account. Accounts with no
	// balance row yet read as zero; nothing is persisted by this call.
	GetBalance(ctx context.Context, accountID string) (domain.Balance, error)
}

// LedgerWriter is the sole mutation entry point for balances. Implementations
// must apply the balance delta and append the audit record as one atomic unit
// and must reject debits that would drive the balance negative, closing the
// read-then-write race inside the same unit.
type LedgerWriter interface {
	ApplyTransaction(ctx context.Context, params ApplyTransactionParams) (domain.Balance, domain.LedgerTransaction, error)
}

// TransactionReader defines read operations over the append-only ledger.
type TransactionReader interface {
	// FindTransactionByExternalRef retrieves the transaction recorded for the
	// given external reference, or ErrNotFound.
	FindTransactionByExternalRef(ctx context.Context, accountID, externalReference string) (*domain.LedgerTransaction, error)

	// ListTransactions retrieves transactions for an account, newest first.
	ListTransactions(ctx context.Context, accountID string, limit, offset int) ([]domain.LedgerTransaction, error)

	// SumTransactions returns the signed sum of all ledger entries for an
	// account. Used for reconciliation against the balance row.
	SumTransactions(ctx context.Context, accountID string) (decimal.Decimal, error)

	// TotalCreditsSold returns the sum of all purchase credits across accounts.
	TotalCreditsSold(ctx context.Context) (decimal.Decimal, error)
}

// LedgerRepositoryFacade combines all ledger repository interfaces.
type LedgerRepositoryFacade interface {
	BalanceReader
	LedgerWriter
	TransactionReader
}
