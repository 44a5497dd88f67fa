package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecobalance/impact-balance/internal/models"
)

// QuotationRepository reads the live UCS quotation rows written by the
// external price feed.
type QuotationRepository struct {
	pool *pgxpool.Pool
}

// NewQuotationRepository creates a new quotation repository.
func NewQuotationRepository(pool *pgxpool.Pool) *QuotationRepository {
	return &QuotationRepository{pool: pool}
}

// Latest returns the most recently captured quotation; (nil, nil) when the
// feed has never written one.
func (r *QuotationRepository) Latest(ctx context.Context) (*models.Quotation, error) {
	query := `
		SELECT id, value, value_usd, value_eur, captured_at
		FROM quotations
		ORDER BY captured_at DESC
		LIMIT 1
	`
	q := &models.Quotation{}
	err := r.pool.QueryRow(ctx, query).Scan(
		&q.ID, &q.Value, &q.ValueUSD, &q.ValueEUR, &q.CapturedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return q, nil
}

// Insert records a quotation point, used by the dev seeding endpoint and
// by tests; the production feed writes rows directly.
func (r *QuotationRepository) Insert(ctx context.Context, q *models.Quotation) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO quotations (id, value, value_usd, value_eur, captured_at)
		VALUES ($1, $2, $3, $4, $5)
	`, q.ID, q.Value, q.ValueUSD, q.ValueEUR, q.CapturedAt)
	return err
}
