package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/openclaw/billing/internal/apperrors"
	"github.com/openclaw/billing/internal/core/domain"
	portsrepo "github.com/openclaw/billing/internal/core/ports/repositories"
	"github.com/openclaw/billing/internal/models"
	"github.com/openclaw/billing/internal/utils/mapping"
)

type PgxLedgerRepository struct {
	BaseRepository
}

// newPgxLedgerRepository creates a new repository for balance and ledger data.
func newPgxLedgerRepository(pool PgxPool) portsrepo.LedgerRepositoryFacade {
	return &PgxLedgerRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxLedgerRepository implements portsrepo.LedgerRepositoryFacade
var _ portsrepo.LedgerRepositoryFacade = (*PgxLedgerRepository)(nil)

// GetBalance retrieves the balance row for an account. Accounts without a row
// read as an implicit zero balance; no row is persisted by this call.
func (r *PgxLedgerRepository) GetBalance(ctx context.Context, accountID string) (domain.Balance, error) {
	query := `
		SELECT account_id, balance, updated_at
		FROM credit_balances
		WHERE account_id = $1;
	`
	var m models.CreditBalance
	err := r.Pool.QueryRow(ctx, query, accountID).Scan(&m.AccountID, &m.Balance, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ZeroBalance(accountID), nil
		}
		return domain.Balance{}, fmt.Errorf("failed to get balance for account %s: %w", accountID, err)
	}
	return mapping.ToDomainBalance(m), nil
}

// ApplyTransaction applies a balance delta and appends its audit record as one
// atomic unit. The non-negative invariant for debits is enforced by a
// conditional UPDATE inside the same transaction, so two concurrent debits can
// never both observe a sufficient pre-debit balance. A duplicate external
// reference fails with ErrDuplicate via the partial unique index on
// (account_id, external_reference).
func (r *PgxLedgerRepository) ApplyTransaction(ctx context.Context, params portsrepo.ApplyTransactionParams) (domain.Balance, domain.LedgerTransaction, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return domain.Balance{}, domain.LedgerTransaction{}, err
	}
	defer r.Rollback(ctx, tx)

	now := time.Now().UTC()

	// Create the balance row lazily so first-credit accounts work without a
	// separate provisioning step.
	ensureQuery := `
		INSERT INTO credit_balances (account_id, balance, updated_at)
		VALUES ($1, 0, $2)
		ON CONFLICT (account_id) DO NOTHING;
	`
	if _, err := tx.Exec(ctx, ensureQuery, params.AccountID, now); err != nil {
		return domain.Balance{}, domain.LedgerTransaction{}, fmt.Errorf("failed to ensure balance row for account %s: %w", params.AccountID, err)
	}

	var newBalance decimal.Decimal
	if params.Kind == domain.Debit {
		// Conditional update: zero rows affected means the balance could not
		// cover the debit. The check and the write are one statement, so no
		// row lock juggling is needed and multiple process instances are safe.
		debitQuery := `
			UPDATE credit_balances
			SET balance = balance - $2, updated_at = $3
			WHERE account_id = $1 AND balance >= $2
			RETURNING balance;
		`
		err = tx.QueryRow(ctx, debitQuery, params.AccountID, params.Amount, now).Scan(&newBalance)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				var available decimal.Decimal
				if ferr := tx.QueryRow(ctx, `SELECT balance FROM credit_balances WHERE account_id = $1`, params.AccountID).Scan(&available); ferr != nil {
					available = decimal.Zero
				}
				return domain.Balance{}, domain.LedgerTransaction{}, apperrors.NewInsufficientBalanceError(params.Amount, available)
			}
			return domain.Balance{}, domain.LedgerTransaction{}, fmt.Errorf("failed to debit account %s: %w", params.AccountID, err)
		}
	} else {
		creditQuery := `
			UPDATE credit_balances
			SET balance = balance + $2, updated_at = $3
			WHERE account_id = $1
			RETURNING balance;
		`
		err = tx.QueryRow(ctx, creditQuery, params.AccountID, params.Amount, now).Scan(&newBalance)
		if err != nil {
			return domain.Balance{}, domain.LedgerTransaction{}, fmt.Errorf("failed to credit account %s: %w", params.AccountID, err)
		}
	}

	txn := models.CreditTransaction{
		TransactionID:     uuid.NewString(),
		AccountID:         params.AccountID,
		Kind:              string(params.Kind),
		Amount:            params.Amount,
		BalanceAfter:      newBalance,
		ReasonCode:        params.ReasonCode,
		ExternalReference: params.ExternalReference,
		CreatedAt:         now,
	}

	insertQuery := `
		INSERT INTO credit_transactions (transaction_id, account_id, kind, amount, balance_after, reason_code, external_reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	_, err = tx.Exec(ctx, insertQuery,
		txn.TransactionID,
		txn.AccountID,
		txn.Kind,
		txn.Amount,
		txn.BalanceAfter,
		txn.ReasonCode,
		txn.ExternalReference,
		txn.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique violation
			// A concurrent writer recorded this external reference first. The
			// rollback undoes the balance update, leaving the winner's state.
			return domain.Balance{}, domain.LedgerTransaction{}, fmt.Errorf("%w: external reference %v already recorded for account %s", apperrors.ErrDuplicate, params.ExternalReference, params.AccountID)
		}
		return domain.Balance{}, domain.LedgerTransaction{}, fmt.Errorf("failed to append ledger transaction for account %s: %w", params.AccountID, err)
	}

	if err := r.Commit(ctx, tx); err != nil {
		return domain.Balance{}, domain.LedgerTransaction{}, err
	}

	balance := domain.Balance{AccountID: params.AccountID, Balance: newBalance, UpdatedAt: now}
	return balance, mapping.ToDomainTransaction(txn), nil
}

// FindTransactionByExternalRef retrieves the transaction recorded for an
// external reference, or ErrNotFound.
func (r *PgxLedgerRepository) FindTransactionByExternalRef(ctx context.Context, accountID, externalReference string) (*domain.LedgerTransaction, error) {
	query := `
		SELECT transaction_id, account_id, kind, amount, balance_after, reason_code, external_reference, created_at
		FROM credit_transactions
		WHERE account_id = $1 AND external_reference = $2;
	`
	var m models.CreditTransaction
	err := r.Pool.QueryRow(ctx, query, accountID, externalReference).Scan(
		&m.TransactionID,
		&m.AccountID,
		&m.Kind,
		&m.Amount,
		&m.BalanceAfter,
		&m.ReasonCode,
		&m.ExternalReference,
		&m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find transaction by external reference %s for account %s: %w", externalReference, accountID, err)
	}
	txn := mapping.ToDomainTransaction(m)
	return &txn, nil
}

// ListTransactions retrieves a page of ledger transactions for an account,
// newest first. transaction_id breaks created_at ties for a stable order.
func (r *PgxLedgerRepository) ListTransactions(ctx context.Context, accountID string, limit, offset int) ([]domain.LedgerTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT transaction_id, account_id, kind, amount, balance_after, reason_code, external_reference, created_at
		FROM credit_transactions
		WHERE account_id = $1
		ORDER BY created_at DESC, transaction_id DESC
		LIMIT $2 OFFSET $3;
	`
	rows, err := r.Pool.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions for account %s: %w", accountID, err)
	}
	defer rows.Close()

	transactions := []models.CreditTransaction{}
	for rows.Next() {
		var m models.CreditTransaction
		if err := rows.Scan(
			&m.TransactionID,
			&m.AccountID,
			&m.Kind,
			&m.Amount,
			&m.BalanceAfter,
			&m.ReasonCode,
			&m.ExternalReference,
			&m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row for account %s: %w", accountID, err)
		}
		transactions = append(transactions, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows for account %s: %w", accountID, err)
	}

	return mapping.ToDomainTransactionSlice(transactions), nil
}

// SumTransactions returns the signed sum of the account's ledger entries.
func (r *PgxLedgerRepository) SumTransactions(ctx context.Context, accountID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(CASE WHEN kind = 'CREDIT' THEN amount ELSE -amount END), 0)
		FROM credit_transactions
		WHERE account_id = $1;
	`
	var sum decimal.Decimal
	if err := r.Pool.QueryRow(ctx, query, accountID).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum transactions for account %s: %w", accountID, err)
	}
	return sum, nil
}

// TotalCreditsSold returns the sum of purchased credits across all accounts.
func (r *PgxLedgerRepository) TotalCreditsSold(ctx context.Context) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM credit_transactions
		WHERE kind = 'CREDIT' AND reason_code LIKE 'purchase_%';
	`
	var total decimal.Decimal
	if err := r.Pool.QueryRow(ctx, query).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum credits sold: %w", err)
	}
	return total, nil
}
