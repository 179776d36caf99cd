package domain

import "github.com/shopspring/decimal"

// CreditPackage is a purchasable bundle of credits. The catalog is static
// configuration data; packages are never persisted per account.
type CreditPackage struct {
	PackageID  string `json:"packageID"`
	Credits    int64  `json:"credits"`
	Bonus      int64  `json:"bonus"`
	PriceCents int64  `json:"priceCents"` // USD cents, as charged by the payment provider
}

// TotalCredits is the amount credited to the account on purchase, bonus included.
func (p CreditPackage) TotalCredits() decimal.Decimal {
	return decimal.NewFromInt(p.Credits + p.Bonus)
}

var creditPackages = []CreditPackage{
	{PackageID: "pack_100", Credits: 100, Bonus: 0, PriceCents: 999},
	{PackageID: "pack_500", Credits: 500, Bonus: 50, PriceCents: 3999},
	{PackageID: "pack_1000", Credits: 1000, Bonus: 150, PriceCents: 6999},
	{PackageID: "pack_5000", Credits: 5000, Bonus: 1000, PriceCents: 29999},
}

// CreditPackages returns the purchasable package catalog.
func CreditPackages() []CreditPackage {
	out := make([]CreditPackage, len(creditPackages))
	copy(out, creditPackages)
	return out
}

// CreditPackageByID looks up a catalog package. The boolean is false when the
// package id is not in the catalog.
func CreditPackageByID(packageID string) (CreditPackage, bool) {
	for _, p := range creditPackages {
		if p.PackageID == packageID {
			return p, true
		}
	}
	return CreditPackage{}, false
}
