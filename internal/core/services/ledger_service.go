package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/openclaw/billing/internal/apperrors"
	"github.com/openclaw/billing/internal/core/domain"
	portsrepo "github.com/openclaw/billing/internal/core/ports/repositories"
	portssvc "github.com/openclaw/billing/internal/core/ports/services"
)

// maxHistoryLimit caps a single history page.
const maxHistoryLimit = 1000

// ledgerService is the transaction engine: it orchestrates one logical credit
// or debit, delegating atomicity to the ledger repository, and provides
// idempotency for externally-sourced operations.
type ledgerService struct {
	BaseService
	ledgerRepo portsrepo.LedgerRepositoryFacade
}

// NewLedgerService creates the transaction engine over the given repository.
func NewLedgerService(ledgerRepo portsrepo.LedgerRepositoryFacade) portssvc.LedgerSvcFacade {
	return &ledgerService{ledgerRepo: ledgerRepo}
}

var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

// Credit increases the account balance by amount.
func (s *ledgerService) Credit(ctx context.Context, accountID string, amount decimal.Decimal, reasonCode string, externalReference *string) (domain.Balance, error) {
	return s.apply(ctx, accountID, domain.Credit, amount, reasonCode, externalReference)
}

// Debit decreases the account balance by amount. Fails with
// ErrInsufficientBalance when the account cannot cover it.
func (s *ledgerService) Debit(ctx context.Context, accountID string, amount decimal.Decimal, reasonCode string, externalReference *string) (domain.Balance, error) {
	return s.apply(ctx, accountID, domain.Debit, amount, reasonCode, externalReference)
}

func (s *ledgerService) apply(ctx context.Context, accountID string, kind domain.TransactionKind, amount decimal.Decimal, reasonCode string, externalReference *string) (domain.Balance, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return domain.Balance{}, fmt.Errorf("%w: got %s", apperrors.ErrInvalidAmount, amount)
	}

	// Idempotency check for externally-sourced operations: a redelivered
	// payment event must not mutate the balance twice.
	if externalReference != nil && *externalReference != "" {
		existing, err := s.ledgerRepo.FindTransactionByExternalRef(ctx, accountID, *externalReference)
		if err == nil {
			s.LogInfo(ctx, "Duplicate external reference, returning prior outcome",
				"account_id", accountID,
				"external_reference", *externalReference,
				"transaction_id", existing.TransactionID,
			)
			return domain.Balance{AccountID: accountID, Balance: existing.BalanceAfter, UpdatedAt: existing.CreatedAt}, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return domain.Balance{}, fmt.Errorf("failed idempotency lookup for account %s: %w", accountID, err)
		}
	}

	newBalance, txn, err := s.ledgerRepo.ApplyTransaction(ctx, portsrepo.ApplyTransactionParams{
		AccountID:         accountID,
		Kind:              kind,
		Amount:            amount,
		ReasonCode:        reasonCode,
		ExternalReference: externalReference,
	})
	if err != nil {
		// Lost the idempotency race to a concurrent delivery of the same
		// event: the winner's transaction is the outcome.
		if errors.Is(err, apperrors.ErrDuplicate) && externalReference != nil {
			existing, ferr := s.ledgerRepo.FindTransactionByExternalRef(ctx, accountID, *externalReference)
			if ferr != nil {
				return domain.Balance{}, fmt.Errorf("failed to load winning transaction for external reference %s: %w", *externalReference, ferr)
			}
			s.LogInfo(ctx, "Concurrent duplicate external reference, returning winner's outcome",
				"account_id", accountID,
				"external_reference", *externalReference,
			)
			return domain.Balance{AccountID: accountID, Balance: existing.BalanceAfter, UpdatedAt: existing.CreatedAt}, nil
		}
		if errors.Is(err, apperrors.ErrInsufficientBalance) {
			s.LogInfo(ctx, "Ledger mutation rejected",
				"account_id", accountID,
				"kind", string(kind),
				"amount", amount.String(),
				"reason_code", reasonCode,
				"outcome", "insufficient_balance",
			)
			return domain.Balance{}, err
		}
		s.LogError(ctx, err, "Ledger mutation failed",
			"account_id", accountID,
			"kind", string(kind),
			"amount", amount.String(),
			"reason_code", reasonCode,
		)
		return domain.Balance{}, err
	}

	s.LogInfo(ctx, "Ledger mutation applied",
		"account_id", accountID,
		"kind", string(kind),
		"amount", amount.String(),
		"reason_code", reasonCode,
		"transaction_id", txn.TransactionID,
		"balance_after", newBalance.Balance.String(),
		"outcome", "applied",
	)
	return newBalance, nil
}

// GetBalance returns the account's current balance; new accounts read as zero.
func (s *ledgerService) GetBalance(ctx context.Context, accountID string) (domain.Balance, error) {
	return s.ledgerRepo.GetBalance(ctx, accountID)
}

// Reconcile replays the account's ledger and compares it with the stored
// balance. The two can only diverge if something bypassed ApplyTransaction.
func (s *ledgerService) Reconcile(ctx context.Context, accountID string) (portssvc.ReconciliationResult, error) {
	balance, err := s.ledgerRepo.GetBalance(ctx, accountID)
	if err != nil {
		return portssvc.ReconciliationResult{}, err
	}
	ledgerSum, err := s.ledgerRepo.SumTransactions(ctx, accountID)
	if err != nil {
		return portssvc.ReconciliationResult{}, err
	}
	result := portssvc.ReconciliationResult{
		Balance:    balance.Balance,
		LedgerSum:  ledgerSum,
		Consistent: balance.Balance.Equal(ledgerSum),
	}
	if !result.Consistent {
		s.LogWarn(ctx, "Ledger reconciliation mismatch",
			"account_id", accountID,
			"balance", result.Balance.String(),
			"ledger_sum", result.LedgerSum.String(),
		)
	}
	return result, nil
}

// TotalCreditsSold sums purchased credits across all accounts.
func (s *ledgerService) TotalCreditsSold(ctx context.Context) (decimal.Decimal, error) {
	return s.ledgerRepo.TotalCreditsSold(ctx)
}

// GetHistory returns ledger transactions newest first.
func (s *ledgerService) GetHistory(ctx context.Context, accountID string, limit, offset int) ([]domain.LedgerTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.ledgerRepo.ListTransactions(ctx, accountID, limit, offset)
}
