package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// factorsDocID is the fixed id of the singleton factor settings document.
const factorsDocID = "factors"

// SettingsRepository handles the singleton factor settings document.
type SettingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository creates a new settings repository.
func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// GetFactors returns the stored factor overrides document, or (nil, nil)
// when none has ever been saved.
func (r *SettingsRepository) GetFactors(ctx context.Context) (json.RawMessage, error) {
	var data []byte
	err := r.pool.QueryRow(ctx,
		`SELECT data FROM settings WHERE id = $1`, factorsDocID).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// PutFactors upserts the factor overrides document.
func (r *SettingsRepository) PutFactors(ctx context.Context, doc json.RawMessage) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO settings (id, data, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	`, factorsDocID, doc)
	return err
}
