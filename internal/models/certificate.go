package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Certificate represents a fixed-term deposit certificate. Balance is the
// only mutable field; the dates are fixed at creation.
type Certificate struct {
	ID             int64           `json:"id"`
	ClientID       int64           `json:"client_id"`
	Balance        decimal.Decimal `json:"balance"`
	IssueDate      time.Time       `json:"issue_date"`
	ExpirationDate time.Time       `json:"expiration_date"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ClientBalance pairs a certificate with its display-formatted balance
// for per-client balance listings.
type ClientBalance struct {
	CertificateID int64  `json:"certificate_id"`
	Balance       string `json:"balance"`
}
