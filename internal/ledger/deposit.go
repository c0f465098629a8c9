package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/ines-sys/real-bank-api-retfull/internal/money"
)

// ApplyDeposit credits a deposit to a certificate balance and returns the
// new balance. Amounts must be strictly positive; a zero or negative
// amount fails with money.ErrInvalidAmount, so a deposit can never reduce
// a balance.
func ApplyDeposit(balance, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.Sign() <= 0 {
		return decimal.Zero, money.ErrInvalidAmount
	}
	return money.Add(balance, amount), nil
}
