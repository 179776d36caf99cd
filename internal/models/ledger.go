package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditBalance is the DB row shape for the credit_balances table.
type CreditBalance struct {
	AccountID string          `db:"account_id"`
	Balance   decimal.Decimal `db:"balance"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// CreditTransaction is the DB row shape for the credit_transactions table.
// Rows are append-only and never updated after insert.
type CreditTransaction struct {
	TransactionID     string          `db:"transaction_id"`
	AccountID         string          `db:"account_id"`
	Kind              string          `db:"kind"`
	Amount            decimal.Decimal `db:"amount"`
	BalanceAfter      decimal.Decimal `db:"balance_after"`
	ReasonCode        string          `db:"reason_code"`
	ExternalReference *string         `db:"external_reference"`
	CreatedAt         time.Time       `db:"created_at"`
}
