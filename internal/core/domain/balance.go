package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance is the current credit balance of a single account. One row per
// account, created lazily on the first mutation; a missing row reads as zero.
type Balance struct {
	AccountID string          `json:"accountID"`
	Balance   decimal.Decimal `json:"balance"` // Never negative
	UpdatedAt time.Time       `json:"updatedAt"`
}

// ZeroBalance is the implicit balance of an account that has no row yet.
func ZeroBalance(accountID string) Balance {
	return Balance{AccountID: accountID, Balance: decimal.Zero}
}
