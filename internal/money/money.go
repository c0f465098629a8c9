// Package money provides exact monetary arithmetic and Dominican Peso
// display formatting for the certificate ledger.
package money

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount indicates a monetary input that could not be coerced
// to a numeric value.
var ErrInvalidAmount = errors.New("invalid monetary amount")

// Parse coerces a monetary input into a decimal amount. Request payloads
// may carry amounts as JSON numbers or as strings, so both are accepted.
func Parse(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return decimal.Zero, ErrInvalidAmount
		}
		return d, nil
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Zero, ErrInvalidAmount
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(n), nil
	case float32:
		return decimal.NewFromFloat32(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case nil:
		return decimal.Zero, ErrInvalidAmount
	default:
		return decimal.Zero, ErrInvalidAmount
	}
}

// Add returns a + b.
func Add(a, b decimal.Decimal) decimal.Decimal {
	return a.Add(b)
}

// Subtract returns a - b.
func Subtract(a, b decimal.Decimal) decimal.Decimal {
	return a.Sub(b)
}

// FormatDOP renders an amount in Dominican Peso display format:
// "RD$" prefix, comma-grouped thousands and exactly two fractional
// digits, e.g. FormatDOP(1500) == "RD$1,500.00".
func FormatDOP(d decimal.Decimal) string {
	fixed := d.StringFixed(2)

	neg := strings.HasPrefix(fixed, "-")
	if neg {
		fixed = fixed[1:]
	}

	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString("RD$")
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(fracPart)
	return b.String()
}
