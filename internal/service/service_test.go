package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ines-sys/real-bank-api-retfull/internal/config"
	"github.com/ines-sys/real-bank-api-retfull/internal/ledger"
	"github.com/ines-sys/real-bank-api-retfull/internal/models"
	"github.com/ines-sys/real-bank-api-retfull/internal/money"
	"github.com/ines-sys/real-bank-api-retfull/internal/repository"
)

// fakeStore is an in-memory Store for service tests.
type fakeStore struct {
	clients map[int64]*models.Client
	certs   map[int64]*models.Certificate
	nextID  int64

	updateBalanceErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		clients: make(map[int64]*models.Client),
		certs:   make(map[int64]*models.Certificate),
	}
}

func (f *fakeStore) CreateClient(_ context.Context, c *models.Client) error {
	f.nextID++
	c.ID = f.nextID
	cp := *c
	f.clients[c.ID] = &cp
	return nil
}

func (f *fakeStore) ListClients(_ context.Context) ([]models.Client, error) {
	var out []models.Client
	for _, c := range f.clients {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeStore) FindClient(_ context.Context, id int64) (*models.Client, error) {
	c, ok := f.clients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) UpdateClient(_ context.Context, id int64, firstName, lastName, email *string) (*models.Client, error) {
	c, ok := f.clients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if firstName != nil {
		c.FirstName = *firstName
	}
	if lastName != nil {
		c.LastName = *lastName
	}
	if email != nil {
		c.Email = *email
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) CreateCertificate(_ context.Context, cert *models.Certificate) error {
	f.nextID++
	cert.ID = f.nextID
	cp := *cert
	f.certs[cert.ID] = &cp
	return nil
}

func (f *fakeStore) ListCertificates(_ context.Context) ([]models.Certificate, error) {
	var out []models.Certificate
	for _, c := range f.certs {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeStore) FindCertificate(_ context.Context, id int64) (*models.Certificate, error) {
	c, ok := f.certs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) FindCertificatesByClient(_ context.Context, clientID int64) ([]models.Certificate, error) {
	var out []models.Certificate
	for _, c := range f.certs {
		if c.ClientID == clientID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeStore) FindCertificatesExpiring(_ context.Context, from, to time.Time) ([]models.Certificate, error) {
	var out []models.Certificate
	for _, c := range f.certs {
		if !c.ExpirationDate.Before(from) && !c.ExpirationDate.After(to) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateCertificateBalance(_ context.Context, id int64, prev, next decimal.Decimal) error {
	if f.updateBalanceErr != nil {
		return f.updateBalanceErr
	}
	c, ok := f.certs[id]
	if !ok {
		return repository.ErrNotFound
	}
	if !c.Balance.Equal(prev) {
		return repository.ErrConcurrentModification
	}
	c.Balance = next
	return nil
}

// fakeNotifier records sent notifications.
type fakeNotifier struct {
	transactions int
	reminders    []int64
}

func (f *fakeNotifier) SendTransactionNotice(_, _ string, _ int64, _, _ decimal.Decimal, _ string) error {
	f.transactions++
	return nil
}

func (f *fakeNotifier) SendMaturityReminder(_, _ string, certificateID int64, _ time.Time, _ decimal.Decimal) error {
	f.reminders = append(f.reminders, certificateID)
	return nil
}

func newTestService(store Store, notifier Notifier) *Service {
	log := logrus.New()
	log.SetOutput(io.Discard)
	cfg := &config.Config{
		AnnualRate:       decimal.RequireFromString("0.05"),
		PenaltySurcharge: decimal.NewFromInt(1000),
		ReminderDays:     7,
	}
	return NewService(store, notifier, log, cfg)
}

func seedCertificate(t *testing.T, store *fakeStore, balance int64, issue, expiry time.Time) *models.Certificate {
	t.Helper()
	client := &models.Client{FirstName: "Maria", LastName: "Perez", Email: "maria@example.do"}
	if err := store.CreateClient(context.Background(), client); err != nil {
		t.Fatal(err)
	}
	cert := &models.Certificate{
		ClientID:       client.ID,
		Balance:        decimal.NewFromInt(balance),
		IssueDate:      issue,
		ExpirationDate: expiry,
	}
	if err := store.CreateCertificate(context.Background(), cert); err != nil {
		t.Fatal(err)
	}
	return cert
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCreateClientValidation(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeNotifier{})

	if _, err := svc.CreateClient(context.Background(), "", "Perez", ""); !errors.Is(err, ErrMissingField) {
		t.Errorf("missing first name: err = %v, want ErrMissingField", err)
	}
	if _, err := svc.CreateClient(context.Background(), "Maria", "", ""); !errors.Is(err, ErrMissingField) {
		t.Errorf("missing last name: err = %v, want ErrMissingField", err)
	}

	client, err := svc.CreateClient(context.Background(), "Maria", "Perez", "maria@example.do")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.ID == 0 {
		t.Error("created client has no id")
	}
}

func TestUpdateClient(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeNotifier{})
	created, _ := svc.CreateClient(context.Background(), "Maria", "Perez", "")

	if _, err := svc.UpdateClient(context.Background(), created.ID, nil, nil, nil); !errors.Is(err, ErrMissingField) {
		t.Errorf("empty patch: err = %v, want ErrMissingField", err)
	}

	last := "Gomez"
	updated, err := svc.UpdateClient(context.Background(), created.ID, nil, &last, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.LastName != "Gomez" || updated.FirstName != "Maria" {
		t.Errorf("updated = %+v, want last name Gomez and first name kept", updated)
	}

	if _, err := svc.UpdateClient(context.Background(), 999, nil, &last, nil); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("unknown client: err = %v, want ErrNotFound", err)
	}
}

func TestCreateCertificate(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeNotifier{})
	client, _ := svc.CreateClient(context.Background(), "Maria", "Perez", "")

	tests := []struct {
		name      string
		clientID  int64
		principal any
		issue     string
		expiry    string
		wantErr   error
	}{
		{name: "valid", clientID: client.ID, principal: "1000", issue: "2024-01-15", expiry: "2025-01-15"},
		{name: "numeric principal", clientID: client.ID, principal: float64(2500), issue: "2024-01-15", expiry: "2025-01-15"},
		{name: "missing issue date", clientID: client.ID, principal: "1000", issue: "", expiry: "2025-01-15", wantErr: ErrMissingField},
		{name: "missing expiration date", clientID: client.ID, principal: "1000", issue: "2024-01-15", expiry: "", wantErr: ErrMissingField},
		{name: "malformed date", clientID: client.ID, principal: "1000", issue: "15/01/2024", expiry: "2025-01-15", wantErr: ErrMissingField},
		{name: "zero client id", clientID: 0, principal: "1000", issue: "2024-01-15", expiry: "2025-01-15", wantErr: ErrMissingField},
		{name: "expiration equals issue", clientID: client.ID, principal: "1000", issue: "2024-01-15", expiry: "2024-01-15", wantErr: ErrInvalidDateOrder},
		{name: "expiration before issue", clientID: client.ID, principal: "1000", issue: "2024-01-15", expiry: "2023-01-15", wantErr: ErrInvalidDateOrder},
		{name: "non-numeric principal", clientID: client.ID, principal: "lots", issue: "2024-01-15", expiry: "2025-01-15", wantErr: money.ErrInvalidAmount},
		{name: "negative principal", clientID: client.ID, principal: "-5", issue: "2024-01-15", expiry: "2025-01-15", wantErr: money.ErrInvalidAmount},
		{name: "unknown client", clientID: 999, principal: "1000", issue: "2024-01-15", expiry: "2025-01-15", wantErr: repository.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cert, err := svc.CreateCertificate(context.Background(), tt.clientID, tt.principal, tt.issue, tt.expiry)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cert.ID == 0 || !cert.ExpirationDate.After(cert.IssueDate) {
				t.Errorf("created certificate malformed: %+v", cert)
			}
		})
	}
}

func TestDeposit(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	svc := newTestService(store, notifier)
	cert := seedCertificate(t, store, 1000, date(2024, 1, 1), date(2025, 1, 1))

	result, err := svc.Deposit(context.Background(), cert.ID, "500")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.NewBalance != "RD$1,500.00" {
		t.Errorf("NewBalance = %q, want RD$1,500.00", result.NewBalance)
	}

	stored, _ := store.FindCertificate(context.Background(), cert.ID)
	if !stored.Balance.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("stored balance = %s, want 1500", stored.Balance.String())
	}
	if notifier.transactions != 1 {
		t.Errorf("transaction notices sent = %d, want 1", notifier.transactions)
	}
}

func TestDepositErrors(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeNotifier{})
	cert := seedCertificate(t, store, 1000, date(2024, 1, 1), date(2025, 1, 1))

	if _, err := svc.Deposit(context.Background(), cert.ID, "not-a-number"); !errors.Is(err, money.ErrInvalidAmount) {
		t.Errorf("invalid amount: err = %v, want ErrInvalidAmount", err)
	}
	if _, err := svc.Deposit(context.Background(), cert.ID, "-100"); !errors.Is(err, money.ErrInvalidAmount) {
		t.Errorf("negative amount: err = %v, want ErrInvalidAmount", err)
	}
	if _, err := svc.Deposit(context.Background(), 999, "100"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("unknown certificate: err = %v, want ErrNotFound", err)
	}

	store.updateBalanceErr = repository.ErrConcurrentModification
	if _, err := svc.Deposit(context.Background(), cert.ID, "100"); !errors.Is(err, repository.ErrConcurrentModification) {
		t.Errorf("lost race: err = %v, want ErrConcurrentModification", err)
	}
}

func TestWithdrawPenalized(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeNotifier{})
	cert := seedCertificate(t, store, 2000, date(2024, 1, 1), date(2025, 6, 1))
	svc.now = func() time.Time { return date(2025, 1, 10) }

	result, err := svc.Withdraw(context.Background(), cert.ID, "300")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != ledger.StatusPenalized || !result.PenaltyApplied {
		t.Errorf("result = %+v, want penalized", result)
	}
	if result.NewBalance != "RD$700.00" {
		t.Errorf("NewBalance = %q, want RD$700.00", result.NewBalance)
	}

	stored, _ := store.FindCertificate(context.Background(), cert.ID)
	if !stored.Balance.Equal(decimal.NewFromInt(700)) {
		t.Errorf("stored balance = %s, want 700", stored.Balance.String())
	}
}

func TestWithdrawMatured(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeNotifier{})
	cert := seedCertificate(t, store, 1000, date(2024, 1, 1), date(2025, 6, 1))
	svc.now = func() time.Time { return date(2025, 6, 1) }

	result, err := svc.Withdraw(context.Background(), cert.ID, "300")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != ledger.StatusMatured || result.PenaltyApplied {
		t.Errorf("result = %+v, want matured without penalty", result)
	}
	if result.NewBalance != "RD$700.00" {
		t.Errorf("NewBalance = %q, want RD$700.00", result.NewBalance)
	}
}

func TestWithdrawInsufficientLeavesBalance(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeNotifier{})
	cert := seedCertificate(t, store, 1000, date(2024, 1, 1), date(2025, 6, 1))
	svc.now = func() time.Time { return date(2025, 1, 10) }

	if _, err := svc.Withdraw(context.Background(), cert.ID, "300"); !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}

	stored, _ := store.FindCertificate(context.Background(), cert.ID)
	if !stored.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("stored balance = %s, want unchanged 1000", stored.Balance.String())
	}
}

func TestGetBalance(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeNotifier{})
	cert := seedCertificate(t, store, 250000, date(2024, 1, 1), date(2025, 1, 1))

	balance, err := svc.GetBalance(context.Background(), cert.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance != "RD$250,000.00" {
		t.Errorf("balance = %q, want RD$250,000.00", balance)
	}

	if _, err := svc.GetBalance(context.Background(), 999); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("unknown certificate: err = %v, want ErrNotFound", err)
	}
}

func TestGetBalancesForClient(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeNotifier{})
	cert := seedCertificate(t, store, 1000, date(2024, 1, 1), date(2025, 1, 1))

	balances, err := svc.GetBalancesForClient(context.Background(), cert.ClientID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(balances) != 1 || balances[0].CertificateID != cert.ID || balances[0].Balance != "RD$1,000.00" {
		t.Errorf("balances = %+v", balances)
	}

	if _, err := svc.GetBalancesForClient(context.Background(), 999); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("unknown client: err = %v, want ErrNotFound", err)
	}
}

func TestGetProjection(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeNotifier{})
	cert := seedCertificate(t, store, 1000, date(2023, 1, 1), date(2023, 3, 1))

	projection, err := svc.GetProjection(context.Background(), cert.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if projection.Months != 2 || len(projection.Schedule) != 2 {
		t.Fatalf("projection = %+v, want 2 months", projection)
	}
	if projection.Schedule[1].AccruedInterest.String() != "8" {
		t.Errorf("final accrued interest = %s, want 8", projection.Schedule[1].AccruedInterest.String())
	}
	if projection.Principal != "RD$1,000.00" {
		t.Errorf("principal = %q, want RD$1,000.00", projection.Principal)
	}
}

func TestSendMaturityReminders(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	svc := newTestService(store, notifier)
	svc.now = func() time.Time { return date(2025, 5, 28) }

	// Matures inside the reminder window, owned by a client with email.
	inWindow := seedCertificate(t, store, 1000, date(2024, 6, 1), date(2025, 6, 1))
	// Matures far in the future.
	seedCertificate(t, store, 1000, date(2024, 6, 1), date(2026, 6, 1))
	// In window but the owner has no email address.
	noEmail := &models.Client{FirstName: "Jose", LastName: "Santos"}
	if err := store.CreateClient(context.Background(), noEmail); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateCertificate(context.Background(), &models.Certificate{
		ClientID:       noEmail.ID,
		Balance:        decimal.NewFromInt(500),
		IssueDate:      date(2024, 6, 1),
		ExpirationDate: date(2025, 6, 2),
	}); err != nil {
		t.Fatal(err)
	}

	if err := svc.SendMaturityReminders(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifier.reminders) != 1 || notifier.reminders[0] != inWindow.ID {
		t.Errorf("reminders = %v, want exactly certificate %d", notifier.reminders, inWindow.ID)
	}
}
