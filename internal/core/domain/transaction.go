package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind indicates whether a ledger transaction increases or
// decreases the account balance.
type TransactionKind string

const (
	Credit TransactionKind = "CREDIT"
	Debit  TransactionKind = "DEBIT"
)

// LedgerTransaction is one immutable entry in the append-only credit ledger.
// The ledger is the source of truth for balances; the balance row is a
// materialized sum of these entries.
type LedgerTransaction struct {
	TransactionID string          `json:"transactionID"` // Primary Key (UUID, generated at write time)
	AccountID     string          `json:"accountID"`
	Kind          TransactionKind `json:"kind"`         // CREDIT or DEBIT
	Amount        decimal.Decimal `json:"amount"`       // Positive magnitude; sign implied by Kind
	BalanceAfter  decimal.Decimal `json:"balanceAfter"` // Balance snapshot immediately after this entry
	ReasonCode    string          `json:"reasonCode"`   // e.g. purchase_pack_100, workflow_execution:wf_42
	// ExternalReference is the payment-provider event id for externally-sourced
	// entries. It is the idempotency key: at most one transaction per account
	// may carry a given reference.
	ExternalReference *string   `json:"externalReference,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

// SignedAmount returns the amount with the sign implied by Kind, so that
// summing signed amounts over the ledger reproduces the balance.
func (t LedgerTransaction) SignedAmount() decimal.Decimal {
	if t.Kind == Debit {
		return t.Amount.Neg()
	}
	return t.Amount
}
