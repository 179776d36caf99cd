package dto

import (
	"time"

	"github.com/openclaw/billing/internal/core/domain"
	portssvc "github.com/openclaw/billing/internal/core/ports/services"
	"github.com/shopspring/decimal"
)

// BalanceResponse defines the data returned for a balance query.
type BalanceResponse struct {
	AccountID string          `json:"accountID"`
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// TransactionResponse defines the data returned for a single ledger transaction.
type TransactionResponse struct {
	TransactionID     string          `json:"transactionID"`
	Kind              string          `json:"kind"` // CREDIT or DEBIT
	Amount            decimal.Decimal `json:"amount"`
	BalanceAfter      decimal.Decimal `json:"balanceAfter"`
	ReasonCode        string          `json:"reasonCode"`
	ExternalReference *string         `json:"externalReference,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// ListHistoryParams defines query parameters for listing transaction history.
type ListHistoryParams struct {
	Limit  int `form:"limit,default=50"`
	Offset int `form:"offset,default=0"`
}

// HistoryResponse wraps the transaction history page.
type HistoryResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	Limit        int                   `json:"limit"`
	Offset       int                   `json:"offset"`
}

// PackageResponse defines the data returned for a purchasable credit package.
type PackageResponse struct {
	PackageID    string          `json:"packageID"`
	Credits      int64           `json:"credits"`
	Bonus        int64           `json:"bonus"`
	TotalCredits decimal.Decimal `json:"totalCredits"`
	PriceCents   int64           `json:"priceCents"`
}

// PurchaseRequest defines the data needed to start a credit purchase.
type PurchaseRequest struct {
	PackageID        string `json:"packageID" binding:"required"`
	PaymentMethodRef string `json:"paymentMethodRef"` // Optional provider payment method id
}

// PurchaseResponse returns the provider handle the client completes payment with.
type PurchaseResponse struct {
	ClientSecret string          `json:"clientSecret"`
	AmountCents  int64           `json:"amountCents"`
	Credits      decimal.Decimal `json:"credits"`
}

// TrackUsageRequest defines the data needed to record resource consumption.
type TrackUsageRequest struct {
	ResourceType   string          `json:"resourceType" binding:"required"`
	Quantity       decimal.Decimal `json:"quantity"`
	Context        string          `json:"context"`        // Optional tag, e.g. a workflow id
	IdempotencyKey *string         `json:"idempotencyKey"` // Optional, dedupes client retries
}

// TrackUsageResponse reports the charge applied for a usage event.
type TrackUsageResponse struct {
	CreditsCharged   decimal.Decimal `json:"creditsCharged"`
	RemainingBalance decimal.Decimal `json:"remainingBalance"`
}

// ReconciliationResponse reports whether the stored balance matches the
// replayed ledger.
type ReconciliationResponse struct {
	Balance    decimal.Decimal `json:"balance"`
	LedgerSum  decimal.Decimal `json:"ledgerSum"`
	Consistent bool            `json:"consistent"`
}

// StatsResponse carries aggregate sales figures.
type StatsResponse struct {
	TotalCreditsSold decimal.Decimal `json:"totalCreditsSold"`
}

// ToBalanceResponse converts a domain.Balance to BalanceResponse DTO.
func ToBalanceResponse(b *domain.Balance) BalanceResponse {
	return BalanceResponse{
		AccountID: b.AccountID,
		Balance:   b.Balance,
		UpdatedAt: b.UpdatedAt,
	}
}

// ToTransactionResponse converts a domain.LedgerTransaction to TransactionResponse DTO.
func ToTransactionResponse(txn *domain.LedgerTransaction) TransactionResponse {
	return TransactionResponse{
		TransactionID:     txn.TransactionID,
		Kind:              string(txn.Kind),
		Amount:            txn.Amount,
		BalanceAfter:      txn.BalanceAfter,
		ReasonCode:        txn.ReasonCode,
		ExternalReference: txn.ExternalReference,
		CreatedAt:         txn.CreatedAt,
	}
}

// ToTransactionResponses converts a slice of domain.LedgerTransaction to []TransactionResponse.
func ToTransactionResponses(txns []domain.LedgerTransaction) []TransactionResponse {
	responses := make([]TransactionResponse, len(txns))
	for i, txn := range txns {
		responses[i] = ToTransactionResponse(&txn)
	}
	return responses
}

// ToPackageResponse converts a domain.CreditPackage to PackageResponse DTO.
func ToPackageResponse(pkg *domain.CreditPackage) PackageResponse {
	return PackageResponse{
		PackageID:    pkg.PackageID,
		Credits:      pkg.Credits,
		Bonus:        pkg.Bonus,
		TotalCredits: pkg.TotalCredits(),
		PriceCents:   pkg.PriceCents,
	}
}

// ToListPackageResponse converts the package catalog to []PackageResponse.
func ToListPackageResponse(pkgs []domain.CreditPackage) []PackageResponse {
	responses := make([]PackageResponse, len(pkgs))
	for i, pkg := range pkgs {
		responses[i] = ToPackageResponse(&pkg)
	}
	return responses
}

// ToPurchaseResponse converts a purchase intent to PurchaseResponse DTO.
func ToPurchaseResponse(intent *portssvc.PurchaseIntent) PurchaseResponse {
	return PurchaseResponse{
		ClientSecret: intent.ClientSecret,
		AmountCents:  intent.AmountCents,
		Credits:      intent.Credits,
	}
}

// ToReconciliationResponse converts a reconciliation result to its DTO.
func ToReconciliationResponse(result portssvc.ReconciliationResult) ReconciliationResponse {
	return ReconciliationResponse{
		Balance:    result.Balance,
		LedgerSum:  result.LedgerSum,
		Consistent: result.Consistent,
	}
}

// ToTrackUsageResponse converts a usage result to TrackUsageResponse DTO.
func ToTrackUsageResponse(result *portssvc.UsageResult) TrackUsageResponse {
	return TrackUsageResponse{
		CreditsCharged:   result.CreditsCharged,
		RemainingBalance: result.RemainingBalance,
	}
}
