package ledger

import "errors"

// ErrInsufficientBalance means the effective deduction of a withdrawal
// (including the early-withdrawal surcharge when one applies) exceeds the
// certificate balance. It is a refused state transition, not a fault.
var ErrInsufficientBalance = errors.New("insufficient certificate balance")
