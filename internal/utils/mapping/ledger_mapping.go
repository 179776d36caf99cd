package mapping

import (
	"github.com/openclaw/billing/internal/core/domain"
	"github.com/openclaw/billing/internal/models"
)

// ToDomainBalance converts a models.CreditBalance from the DB to a domain.Balance.
func ToDomainBalance(m models.CreditBalance) domain.Balance {
	return domain.Balance{
		AccountID: m.AccountID,
		Balance:   m.Balance,
		UpdatedAt: m.UpdatedAt,
	}
}

// ToDomainTransaction converts a models.CreditTransaction to a domain.LedgerTransaction.
func ToDomainTransaction(m models.CreditTransaction) domain.LedgerTransaction {
	return domain.LedgerTransaction{
		TransactionID:     m.TransactionID,
		AccountID:         m.AccountID,
		Kind:              domain.TransactionKind(m.Kind),
		Amount:            m.Amount,
		BalanceAfter:      m.BalanceAfter,
		ReasonCode:        m.ReasonCode,
		ExternalReference: m.ExternalReference,
		CreatedAt:         m.CreatedAt,
	}
}

// ToDomainTransactionSlice converts a slice of transaction rows.
func ToDomainTransactionSlice(ms []models.CreditTransaction) []domain.LedgerTransaction {
	ds := make([]domain.LedgerTransaction, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainTransaction(m)
	}
	return ds
}

// ToModelTransaction converts a domain.LedgerTransaction for DB storage.
func ToModelTransaction(d domain.LedgerTransaction) models.CreditTransaction {
	return models.CreditTransaction{
		TransactionID:     d.TransactionID,
		AccountID:         d.AccountID,
		Kind:              string(d.Kind),
		Amount:            d.Amount,
		BalanceAfter:      d.BalanceAfter,
		ReasonCode:        d.ReasonCode,
		ExternalReference: d.ExternalReference,
		CreatedAt:         d.CreatedAt,
	}
}
