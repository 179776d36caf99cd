package apperrors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrInvalidAmount indicates that a credit or debit amount was zero or negative.
var ErrInvalidAmount = errors.New("amount must be positive")

// ErrInsufficientBalance indicates that a debit would drive an account balance
// below zero. This is an expected domain outcome, not an infrastructure fault.
var ErrInsufficientBalance = errors.New("insufficient balance")

// ErrUnknownPackage indicates that a purchase referenced a credit package that
// is not in the catalog.
var ErrUnknownPackage = errors.New("unknown credit package")

// ErrUnknownResource indicates that usage was tracked against a resource type
// with no entry in the cost table.
var ErrUnknownResource = errors.New("unknown resource type")

// InsufficientBalanceError carries the amounts involved in a rejected debit so
// callers can surface an actionable top-up prompt.
type InsufficientBalanceError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
}

// NewInsufficientBalanceError builds an InsufficientBalanceError from the
// debit amount that was required and the balance that was available.
func NewInsufficientBalanceError(required, available decimal.Decimal) *InsufficientBalanceError {
	return &InsufficientBalanceError{Required: required, Available: available}
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: required %s, available %s", e.Required, e.Available)
}

// Unwrap makes errors.Is(err, ErrInsufficientBalance) work for the typed error.
func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// Shortfall returns the amount the account is missing to cover the debit.
func (e *InsufficientBalanceError) Shortfall() decimal.Decimal {
	return e.Required.Sub(e.Available)
}
