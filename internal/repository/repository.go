package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ines-sys/real-bank-api-retfull/internal/models"
)

var (
	// ErrNotFound means the referenced client or certificate does not
	// exist.
	ErrNotFound = errors.New("record not found")

	// ErrConcurrentModification means a balance update lost the race
	// against another writer: the previous-balance precondition no
	// longer held at write time.
	ErrConcurrentModification = errors.New("certificate was modified concurrently")
)

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateClient creates a new client in the database
func (r *Repository) CreateClient(ctx context.Context, client *models.Client) error {
	query := `
		INSERT INTO bank.clients (first_name, last_name, email, created_at, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, client.FirstName, client.LastName, client.Email).
		Scan(&client.ID, &client.CreatedAt, &client.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

// ListClients retrieves all clients
func (r *Repository) ListClients(ctx context.Context) ([]models.Client, error) {
	query := `
		SELECT id, first_name, last_name, email, created_at, updated_at
		FROM bank.clients
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var clients []models.Client
	for rows.Next() {
		var c models.Client
		if err := rows.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// FindClient retrieves a client by id
func (r *Repository) FindClient(ctx context.Context, id int64) (*models.Client, error) {
	client := &models.Client{}
	query := `
		SELECT id, first_name, last_name, email, created_at, updated_at
		FROM bank.clients
		WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&client.ID, &client.FirstName, &client.LastName, &client.Email, &client.CreatedAt, &client.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find client: %w", err)
	}
	return client, nil
}

// UpdateClient applies a partial update to a client. Nil fields are left
// unchanged.
func (r *Repository) UpdateClient(ctx context.Context, id int64, firstName, lastName, email *string) (*models.Client, error) {
	var setClauses []string
	var params []any

	if firstName != nil {
		setClauses = append(setClauses, fmt.Sprintf("first_name = $%d", len(params)+1))
		params = append(params, *firstName)
	}
	if lastName != nil {
		setClauses = append(setClauses, fmt.Sprintf("last_name = $%d", len(params)+1))
		params = append(params, *lastName)
	}
	if email != nil {
		setClauses = append(setClauses, fmt.Sprintf("email = $%d", len(params)+1))
		params = append(params, *email)
	}
	setClauses = append(setClauses, "updated_at = CURRENT_TIMESTAMP")

	query := fmt.Sprintf(`
		UPDATE bank.clients SET %s
		WHERE id = $%d
		RETURNING id, first_name, last_name, email, created_at, updated_at`,
		strings.Join(setClauses, ", "), len(params)+1)
	params = append(params, id)

	client := &models.Client{}
	err := r.db.QueryRowContext(ctx, query, params...).
		Scan(&client.ID, &client.FirstName, &client.LastName, &client.Email, &client.CreatedAt, &client.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update client: %w", err)
	}
	return client, nil
}

// CreateCertificate creates a new certificate in the database
func (r *Repository) CreateCertificate(ctx context.Context, cert *models.Certificate) error {
	query := `
		INSERT INTO bank.certificates (client_id, balance, issue_date, expiration_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, cert.ClientID, cert.Balance, cert.IssueDate, cert.ExpirationDate).
		Scan(&cert.ID, &cert.CreatedAt, &cert.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create certificate: %w", err)
	}
	return nil
}

// ListCertificates retrieves all certificates
func (r *Repository) ListCertificates(ctx context.Context) ([]models.Certificate, error) {
	return r.queryCertificates(ctx, certificateSelect+` ORDER BY id`)
}

// FindCertificate retrieves a certificate by id
func (r *Repository) FindCertificate(ctx context.Context, id int64) (*models.Certificate, error) {
	cert := &models.Certificate{}
	query := certificateSelect + ` WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&cert.ID, &cert.ClientID, &cert.Balance, &cert.IssueDate, &cert.ExpirationDate, &cert.CreatedAt, &cert.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find certificate: %w", err)
	}
	return cert, nil
}

// FindCertificatesByClient retrieves all certificates owned by a client
func (r *Repository) FindCertificatesByClient(ctx context.Context, clientID int64) ([]models.Certificate, error) {
	return r.queryCertificates(ctx, certificateSelect+` WHERE client_id = $1 ORDER BY id`, clientID)
}

// FindCertificatesExpiring retrieves certificates whose expiration date
// falls within [from, to].
func (r *Repository) FindCertificatesExpiring(ctx context.Context, from, to time.Time) ([]models.Certificate, error) {
	query := certificateSelect + ` WHERE expiration_date BETWEEN $1 AND $2 ORDER BY expiration_date, id`
	return r.queryCertificates(ctx, query, from, to)
}

// UpdateCertificateBalance persists a new balance under an optimistic
// concurrency precondition: the update applies only while the stored
// balance still equals prev. A writer that lost the race gets
// ErrConcurrentModification and must re-read before retrying.
func (r *Repository) UpdateCertificateBalance(ctx context.Context, id int64, prev, next decimal.Decimal) error {
	query := `
		UPDATE bank.certificates
		SET balance = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND balance = $3`
	res, err := r.db.ExecContext(ctx, query, next, id, prev)
	if err != nil {
		return fmt.Errorf("failed to update certificate balance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		// Distinguish a lost race from a missing certificate.
		if _, err := r.FindCertificate(ctx, id); err != nil {
			return err
		}
		return ErrConcurrentModification
	}
	return nil
}

const certificateSelect = `
	SELECT id, client_id, balance, issue_date, expiration_date, created_at, updated_at
	FROM bank.certificates`

func (r *Repository) queryCertificates(ctx context.Context, query string, args ...any) ([]models.Certificate, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query certificates: %w", err)
	}
	defer rows.Close()

	var certs []models.Certificate
	for rows.Next() {
		var c models.Certificate
		if err := rows.Scan(&c.ID, &c.ClientID, &c.Balance, &c.IssueDate, &c.ExpirationDate, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan certificate: %w", err)
		}
		certs = append(certs, c)
	}
	return certs, rows.Err()
}
