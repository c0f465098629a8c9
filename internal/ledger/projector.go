// Package ledger implements the certificate ledger engine: interest
// projection, the withdrawal policy and deposit application. Every
// operation is a pure function of its inputs; persistence belongs to the
// caller.
package ledger

import (
	"iter"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ines-sys/real-bank-api-retfull/internal/money"
)

var monthsPerYear = decimal.NewFromInt(12)

// MonthlyGain is a single entry of a certificate's projected gain
// schedule: the interest accrued up to and including that month, and the
// resulting balance in display format.
type MonthlyGain struct {
	Month           int             `json:"month"`
	AccruedInterest decimal.Decimal `json:"accrued_interest"`
	BalanceDisplay  string          `json:"balance"`
}

// Projection describes the inputs of a gain schedule: the certificate
// principal, its term dates and the nominal annual rate (a ratio, 0.05
// for 5%).
type Projection struct {
	Principal      decimal.Decimal
	AnnualRate     decimal.Decimal
	IssueDate      time.Time
	ExpirationDate time.Time
}

// Months returns the certificate term length under the fixed 30-day-month
// convention: round(days between issue and expiration / 30). Zero or
// negative when the expiration does not follow the issue date.
func (p Projection) Months() int {
	days := math.Round(p.ExpirationDate.Sub(p.IssueDate).Hours() / 24)
	return int(math.Round(days / 30))
}

// Schedule returns the month-by-month gain sequence. The sequence is
// finite and restartable, with exactly Months() entries; it is empty when
// the term is zero or negative months.
//
// The per-month gain is round(principal * rate/12) to whole currency
// units, rounding half away from zero, accumulated across months. The
// rounding happens at every step rather than once at the end, so the
// schedule carries the per-entry drift of step-wise rounding; it must not
// be replaced by a closed-form total.
func (p Projection) Schedule() iter.Seq[MonthlyGain] {
	months := p.Months()
	gain := p.Principal.Mul(p.AnnualRate.Div(monthsPerYear)).Round(0)
	return func(yield func(MonthlyGain) bool) {
		accrued := decimal.Zero
		for m := 1; m <= months; m++ {
			accrued = accrued.Add(gain)
			entry := MonthlyGain{
				Month:           m,
				AccruedInterest: accrued,
				BalanceDisplay:  money.FormatDOP(p.Principal.Add(accrued).Round(0)),
			}
			if !yield(entry) {
				return
			}
		}
	}
}

// Entries collects the full schedule into a slice.
func (p Projection) Entries() []MonthlyGain {
	entries := make([]MonthlyGain, 0, max(p.Months(), 0))
	for e := range p.Schedule() {
		entries = append(entries, e)
	}
	return entries
}
