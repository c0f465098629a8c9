package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ines-sys/real-bank-api-retfull/internal/config"
	"github.com/ines-sys/real-bank-api-retfull/internal/ledger"
	"github.com/ines-sys/real-bank-api-retfull/internal/models"
	"github.com/ines-sys/real-bank-api-retfull/internal/money"
)

// dateLayout is the wire format for certificate dates.
const dateLayout = "2006-01-02"

var (
	// ErrMissingField means a required creation/update field is absent
	// or malformed.
	ErrMissingField = errors.New("required field is missing or malformed")

	// ErrInvalidDateOrder means the expiration date does not strictly
	// follow the issue date.
	ErrInvalidDateOrder = errors.New("expiration date must be strictly after issue date")
)

// Store is the persistence boundary the service depends on. The
// production implementation is repository.Repository.
type Store interface {
	CreateClient(ctx context.Context, client *models.Client) error
	ListClients(ctx context.Context) ([]models.Client, error)
	FindClient(ctx context.Context, id int64) (*models.Client, error)
	UpdateClient(ctx context.Context, id int64, firstName, lastName, email *string) (*models.Client, error)
	CreateCertificate(ctx context.Context, cert *models.Certificate) error
	ListCertificates(ctx context.Context) ([]models.Certificate, error)
	FindCertificate(ctx context.Context, id int64) (*models.Certificate, error)
	FindCertificatesByClient(ctx context.Context, clientID int64) ([]models.Certificate, error)
	FindCertificatesExpiring(ctx context.Context, from, to time.Time) ([]models.Certificate, error)
	UpdateCertificateBalance(ctx context.Context, id int64, prev, next decimal.Decimal) error
}

// Notifier sends client-facing emails. Failures are logged and never fail
// the ledger operation that triggered them.
type Notifier interface {
	SendTransactionNotice(to, name string, certificateID int64, amount, balance decimal.Decimal, kind string) error
	SendMaturityReminder(to, name string, certificateID int64, expiration time.Time, balance decimal.Decimal) error
}

// Service handles business logic
type Service struct {
	store    Store
	notifier Notifier
	log      *logrus.Logger
	config   *config.Config

	// now is swapped out in tests to pin "today" for the withdrawal
	// policy and the maturity sweep.
	now func() time.Time
}

// NewService initializes a new service
func NewService(store Store, notifier Notifier, log *logrus.Logger, cfg *config.Config) *Service {
	return &Service{store: store, notifier: notifier, log: log, config: cfg, now: time.Now}
}

// CreateClient creates a new client. First and last name are required.
func (s *Service) CreateClient(ctx context.Context, firstName, lastName, email string) (*models.Client, error) {
	if firstName == "" || lastName == "" {
		return nil, ErrMissingField
	}

	client := &models.Client{FirstName: firstName, LastName: lastName, Email: email}
	if err := s.store.CreateClient(ctx, client); err != nil {
		return nil, err
	}

	s.log.Infof("Client created: %s %s", client.FirstName, client.LastName)
	return client, nil
}

// ListClients returns all clients.
func (s *Service) ListClients(ctx context.Context) ([]models.Client, error) {
	return s.store.ListClients(ctx)
}

// UpdateClient applies a partial update. At least one field must be set.
func (s *Service) UpdateClient(ctx context.Context, id int64, firstName, lastName, email *string) (*models.Client, error) {
	if firstName == nil && lastName == nil && email == nil {
		return nil, ErrMissingField
	}

	client, err := s.store.UpdateClient(ctx, id, firstName, lastName, email)
	if err != nil {
		return nil, err
	}

	s.log.Infof("Client %d updated", id)
	return client, nil
}

// CreateCertificate opens a fixed-term certificate. The principal must be
// a valid non-negative amount and the expiration date must be strictly
// after the issue date; both dates are fixed for the certificate's life.
func (s *Service) CreateCertificate(ctx context.Context, clientID int64, principal any, issueDate, expirationDate string) (*models.Certificate, error) {
	if clientID <= 0 || issueDate == "" || expirationDate == "" {
		return nil, ErrMissingField
	}

	amount, err := money.Parse(principal)
	if err != nil {
		return nil, err
	}
	if amount.Sign() < 0 {
		return nil, money.ErrInvalidAmount
	}

	issued, err := time.Parse(dateLayout, issueDate)
	if err != nil {
		return nil, ErrMissingField
	}
	expires, err := time.Parse(dateLayout, expirationDate)
	if err != nil {
		return nil, ErrMissingField
	}
	if !expires.After(issued) {
		return nil, ErrInvalidDateOrder
	}

	if _, err := s.store.FindClient(ctx, clientID); err != nil {
		return nil, err
	}

	cert := &models.Certificate{
		ClientID:       clientID,
		Balance:        amount,
		IssueDate:      issued,
		ExpirationDate: expires,
	}
	if err := s.store.CreateCertificate(ctx, cert); err != nil {
		return nil, err
	}

	s.log.Infof("Certificate %d created for client %d", cert.ID, clientID)
	return cert, nil
}

// ListCertificates returns all certificates.
func (s *Service) ListCertificates(ctx context.Context) ([]models.Certificate, error) {
	return s.store.ListCertificates(ctx)
}

// GetBalance returns the display-formatted balance of a certificate.
func (s *Service) GetBalance(ctx context.Context, certificateID int64) (string, error) {
	cert, err := s.store.FindCertificate(ctx, certificateID)
	if err != nil {
		return "", err
	}
	return money.FormatDOP(cert.Balance), nil
}

// GetBalancesForClient returns the display-formatted balances of all
// certificates owned by a client.
func (s *Service) GetBalancesForClient(ctx context.Context, clientID int64) ([]models.ClientBalance, error) {
	if _, err := s.store.FindClient(ctx, clientID); err != nil {
		return nil, err
	}

	certs, err := s.store.FindCertificatesByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	balances := make([]models.ClientBalance, 0, len(certs))
	for _, c := range certs {
		balances = append(balances, models.ClientBalance{
			CertificateID: c.ID,
			Balance:       money.FormatDOP(c.Balance),
		})
	}
	return balances, nil
}

// ProjectionResult is the monthly gain schedule of a certificate.
type ProjectionResult struct {
	CertificateID int64                `json:"certificate_id"`
	Principal     string               `json:"principal"`
	AnnualRate    decimal.Decimal      `json:"annual_rate"`
	Months        int                  `json:"months"`
	Schedule      []ledger.MonthlyGain `json:"schedule"`
}

// GetProjection computes the month-by-month projected gain schedule for a
// certificate at the configured annual rate.
func (s *Service) GetProjection(ctx context.Context, certificateID int64) (*ProjectionResult, error) {
	cert, err := s.store.FindCertificate(ctx, certificateID)
	if err != nil {
		return nil, err
	}

	p := ledger.Projection{
		Principal:      cert.Balance,
		AnnualRate:     s.config.AnnualRate,
		IssueDate:      cert.IssueDate,
		ExpirationDate: cert.ExpirationDate,
	}
	return &ProjectionResult{
		CertificateID: cert.ID,
		Principal:     money.FormatDOP(cert.Balance),
		AnnualRate:    s.config.AnnualRate,
		Months:        p.Months(),
		Schedule:      p.Entries(),
	}, nil
}

// DepositResult reports the balance after a successful deposit.
type DepositResult struct {
	CertificateID int64  `json:"certificate_id"`
	NewBalance    string `json:"new_balance"`
}

// Deposit credits an amount to a certificate. The write carries the
// previously read balance as an optimistic-concurrency precondition.
func (s *Service) Deposit(ctx context.Context, certificateID int64, amount any) (*DepositResult, error) {
	amt, err := money.Parse(amount)
	if err != nil {
		return nil, err
	}

	cert, err := s.store.FindCertificate(ctx, certificateID)
	if err != nil {
		return nil, err
	}

	newBalance, err := ledger.ApplyDeposit(cert.Balance, amt)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateCertificateBalance(ctx, certificateID, cert.Balance, newBalance); err != nil {
		return nil, err
	}

	s.log.Infof("Deposit of %s applied to certificate %d", amt.String(), certificateID)
	s.notifyTransaction(ctx, cert, amt, newBalance, "Deposit")

	return &DepositResult{CertificateID: certificateID, NewBalance: money.FormatDOP(newBalance)}, nil
}

// WithdrawalResult reports the outcome of a successful withdrawal.
type WithdrawalResult struct {
	CertificateID  int64         `json:"certificate_id"`
	NewBalance     string        `json:"new_balance"`
	Status         ledger.Status `json:"status"`
	PenaltyApplied bool          `json:"penalty_applied"`
}

// Withdraw debits an amount from a certificate under the withdrawal
// policy: before the expiration date the configured surcharge is added to
// the requested amount.
func (s *Service) Withdraw(ctx context.Context, certificateID int64, amount any) (*WithdrawalResult, error) {
	amt, err := money.Parse(amount)
	if err != nil {
		return nil, err
	}

	cert, err := s.store.FindCertificate(ctx, certificateID)
	if err != nil {
		return nil, err
	}

	outcome, err := ledger.EvaluateWithdrawal(cert.Balance, cert.ExpirationDate, amt, s.now(), s.config.PenaltySurcharge)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateCertificateBalance(ctx, certificateID, cert.Balance, outcome.NewBalance); err != nil {
		return nil, err
	}

	s.log.Infof("Withdrawal of %s from certificate %d (%s)", amt.String(), certificateID, outcome.Status)
	s.notifyTransaction(ctx, cert, amt, outcome.NewBalance, "Withdrawal")

	return &WithdrawalResult{
		CertificateID:  certificateID,
		NewBalance:     money.FormatDOP(outcome.NewBalance),
		Status:         outcome.Status,
		PenaltyApplied: outcome.PenaltyApplied,
	}, nil
}

// SendMaturityReminders emails the owners of certificates expiring within
// the configured reminder window. Invoked by the daily scheduler.
func (s *Service) SendMaturityReminders(ctx context.Context) error {
	today := s.now().Truncate(24 * time.Hour)
	until := today.AddDate(0, 0, s.config.ReminderDays)

	certs, err := s.store.FindCertificatesExpiring(ctx, today, until)
	if err != nil {
		return fmt.Errorf("failed to find maturing certificates: %w", err)
	}

	for _, cert := range certs {
		client, err := s.store.FindClient(ctx, cert.ClientID)
		if err != nil {
			s.log.Warnf("Skipping reminder for certificate %d: %v", cert.ID, err)
			continue
		}
		if client.Email == "" {
			continue
		}
		name := client.FirstName + " " + client.LastName
		if err := s.notifier.SendMaturityReminder(client.Email, name, cert.ID, cert.ExpirationDate, cert.Balance); err != nil {
			s.log.Warnf("Failed to send maturity reminder for certificate %d: %v", cert.ID, err)
		}
	}

	s.log.Infof("Maturity sweep finished: %d certificate(s) in window", len(certs))
	return nil
}

// notifyTransaction sends a best-effort transaction notice to the
// certificate owner. Errors are logged, never propagated.
func (s *Service) notifyTransaction(ctx context.Context, cert *models.Certificate, amount, balance decimal.Decimal, kind string) {
	client, err := s.store.FindClient(ctx, cert.ClientID)
	if err != nil || client.Email == "" {
		return
	}
	name := client.FirstName + " " + client.LastName
	if err := s.notifier.SendTransactionNotice(client.Email, name, cert.ID, amount, balance, kind); err != nil {
		s.log.Warnf("Failed to send %s notice for certificate %d: %v", kind, cert.ID, err)
	}
}
