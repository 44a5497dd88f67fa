package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecobalance/impact-balance/internal/models"
)

// EventRepository handles data access for event records. Results are
// write-once: only the archived flag is ever updated after creation.
type EventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository creates a new event repository.
func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

// Create inserts one event record.
func (r *EventRepository) Create(ctx context.Context, rec *models.EventRecord) error {
	formData, err := json.Marshal(rec.FormData)
	if err != nil {
		return fmt.Errorf("marshal form data: %w", err)
	}
	results, err := json.Marshal(rec.Results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}

	query := `
		INSERT INTO events (id, ts_ms, form_data, results, archived, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.pool.Exec(ctx, query,
		rec.ID, rec.Timestamp, formData, results, rec.Archived, rec.CreatedAt)
	return err
}

// GetByID fetches one event record; (nil, nil) when not found.
func (r *EventRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.EventRecord, error) {
	query := `
		SELECT id, ts_ms, form_data, results, archived, created_at
		FROM events
		WHERE id = $1
	`
	rec, err := scanEvent(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

// List returns event records ordered by timestamp descending (id as a
// tiebreaker), optionally filtered by archived state, with pagination.
func (r *EventRepository) List(
	ctx context.Context,
	archived *bool,
	page int,
	pageSize int,
) ([]models.EventRecord, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	countQuery := `SELECT COUNT(*) FROM events`
	countArgs := []interface{}{}
	if archived != nil {
		countQuery += ` WHERE archived = $1`
		countArgs = append(countArgs, *archived)
	}

	var totalCount int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&totalCount); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, ts_ms, form_data, results, archived, created_at
		FROM events
	`
	args := []interface{}{}
	if archived != nil {
		query += ` WHERE archived = $1`
		args = append(args, *archived)
	}
	limitParam := len(args) + 1
	offsetParam := len(args) + 2
	query += fmt.Sprintf(` ORDER BY ts_ms DESC, id DESC LIMIT $%d OFFSET $%d`, limitParam, offsetParam)
	args = append(args, pageSize, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []models.EventRecord
	for rows.Next() {
		rec, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return records, totalCount, nil
}

// Latest returns the most recent event record; (nil, nil) when the
// collection is empty.
func (r *EventRepository) Latest(ctx context.Context) (*models.EventRecord, error) {
	query := `
		SELECT id, ts_ms, form_data, results, archived, created_at
		FROM events
		ORDER BY ts_ms DESC, id DESC
		LIMIT 1
	`
	rec, err := scanEvent(r.pool.QueryRow(ctx, query))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

// SetArchived flips the archival flag, the only permitted mutation.
// Returns false when the record does not exist.
func (r *EventRepository) SetArchived(ctx context.Context, id uuid.UUID, archived bool) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE events SET archived = $2 WHERE id = $1`, id, archived)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes an event record. Returns false when it does not exist.
func (r *EventRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func scanEvent(row pgx.Row) (*models.EventRecord, error) {
	rec := &models.EventRecord{}
	var formData, results []byte
	if err := row.Scan(&rec.ID, &rec.Timestamp, &formData, &results, &rec.Archived, &rec.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(formData, &rec.FormData); err != nil {
		return nil, fmt.Errorf("unmarshal form data: %w", err)
	}
	if err := json.Unmarshal(results, &rec.Results); err != nil {
		return nil, fmt.Errorf("unmarshal results: %w", err)
	}
	return rec, nil
}
