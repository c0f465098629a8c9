package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ines-sys/real-bank-api-retfull/internal/money"
)

// Status classifies a single withdrawal attempt. It is not a persistent
// certificate state.
type Status string

const (
	// StatusMatured means the certificate had reached its expiration
	// date and the withdrawal carried no surcharge.
	StatusMatured Status = "matured"
	// StatusPenalized means the withdrawal happened before expiration
	// and the early-withdrawal surcharge was deducted on top of the
	// requested amount.
	StatusPenalized Status = "penalized"
)

// Withdrawal is the outcome of a successful withdrawal evaluation.
type Withdrawal struct {
	NewBalance     decimal.Decimal
	Status         Status
	PenaltyApplied bool
}

// EvaluateWithdrawal applies the withdrawal policy to a certificate
// snapshot. Before the expiration date the surcharge is added to the
// requested amount and the penalized total is what must fit within the
// balance; from the expiration date on, only the requested amount is
// deducted. Fails with ErrInsufficientBalance when the effective
// deduction exceeds the balance, leaving the snapshot untouched.
func EvaluateWithdrawal(balance decimal.Decimal, expiration time.Time, amount decimal.Decimal, today time.Time, surcharge decimal.Decimal) (Withdrawal, error) {
	if amount.Sign() <= 0 {
		return Withdrawal{}, money.ErrInvalidAmount
	}

	deduction := amount
	status := StatusMatured
	if today.Before(expiration) {
		// Sufficiency is checked against the penalized total, not
		// the raw requested amount.
		deduction = money.Add(amount, surcharge)
		status = StatusPenalized
	}

	if deduction.GreaterThan(balance) {
		return Withdrawal{}, ErrInsufficientBalance
	}

	return Withdrawal{
		NewBalance:     money.Subtract(balance, deduction),
		Status:         status,
		PenaltyApplied: status == StatusPenalized,
	}, nil
}
