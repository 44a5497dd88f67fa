package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecobalance/impact-balance/internal/models"
)

// ClientRepository handles data access for client records.
type ClientRepository struct {
	pool *pgxpool.Pool
}

// NewClientRepository creates a new client repository.
func NewClientRepository(pool *pgxpool.Pool) *ClientRepository {
	return &ClientRepository{pool: pool}
}

const clientColumns = `id, account_type, name, document_id, phone, phone_digits,
	email, address, bank, status, tags, created_at`

// Create inserts one client record. PhoneDigits is derived from Phone
// when not already set.
func (r *ClientRepository) Create(ctx context.Context, c *models.Client) error {
	if c.PhoneDigits == "" {
		c.PhoneDigits = PhoneDigits(c.Phone)
	}

	query := `
		INSERT INTO clients (` + clientColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.pool.Exec(ctx, query,
		c.ID, c.AccountType, c.Name, c.DocumentID, c.Phone, c.PhoneDigits,
		c.Email, c.Address, c.Bank, c.Status, c.Tags, c.CreatedAt)
	return err
}

// GetByID fetches one client; (nil, nil) when not found.
func (r *ClientRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`
	c, err := scanClient(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

// FindByNameOrPhone looks a client up by normalized name or by normalized
// phone digits; (nil, nil) when no match exists. Used by import
// normalization to deduplicate opportunistically created clients.
func (r *ClientRepository) FindByNameOrPhone(ctx context.Context, name, phone string) (*models.Client, error) {
	normName := strings.ToLower(strings.TrimSpace(name))
	digits := PhoneDigits(phone)

	query := `
		SELECT ` + clientColumns + `
		FROM clients
		WHERE (LOWER(name) = $1 AND $1 <> '')
		   OR (phone_digits = $2 AND $2 <> '')
		ORDER BY created_at ASC
		LIMIT 1
	`
	c, err := scanClient(r.pool.QueryRow(ctx, query, normName, digits))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

// List returns clients ordered by creation time descending, with pagination.
func (r *ClientRepository) List(ctx context.Context, page, pageSize int) ([]models.Client, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	var totalCount int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM clients`).Scan(&totalCount); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + clientColumns + `
		FROM clients
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.pool.Query(ctx, query, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var clients []models.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, 0, err
		}
		clients = append(clients, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return clients, totalCount, nil
}

// Update replaces the mutable fields of a client. Returns false when the
// client does not exist.
func (r *ClientRepository) Update(ctx context.Context, c *models.Client) (bool, error) {
	if c.PhoneDigits == "" {
		c.PhoneDigits = PhoneDigits(c.Phone)
	}

	query := `
		UPDATE clients
		SET account_type = $2, name = $3, document_id = $4, phone = $5,
		    phone_digits = $6, email = $7, address = $8, bank = $9,
		    status = $10, tags = $11
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		c.ID, c.AccountType, c.Name, c.DocumentID, c.Phone, c.PhoneDigits,
		c.Email, c.Address, c.Bank, c.Status, c.Tags)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes a client. Returns false when it does not exist.
func (r *ClientRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// PhoneDigits normalizes a phone number to its digits only.
func PhoneDigits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func scanClient(row pgx.Row) (*models.Client, error) {
	c := &models.Client{}
	if err := row.Scan(
		&c.ID, &c.AccountType, &c.Name, &c.DocumentID, &c.Phone, &c.PhoneDigits,
		&c.Email, &c.Address, &c.Bank, &c.Status, &c.Tags, &c.CreatedAt,
	); err != nil {
		return nil, err
	}
	return c, nil
}
