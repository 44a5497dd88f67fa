package impact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ecobalance/impact-balance/internal/factors"
	"github.com/ecobalance/impact-balance/internal/models"
)

// ErrPersist marks a calculation whose result was computed but could not
// be stored. The computed record is still returned alongside this error.
var ErrPersist = errors.New("calculation result could not be persisted")

// EventStore is the persistence contract for computed event records.
type EventStore interface {
	Create(ctx context.Context, rec *models.EventRecord) error
}

// QuotationSource provides the current live UCS quotation.
type QuotationSource interface {
	Current(ctx context.Context) (*models.Quotation, error)
}

// Calculator orchestrates one calculation: factor resolution, the pure
// engine, input sanitization, and exactly one persistence write. It never
// retries and never rolls back a computed result.
type Calculator struct {
	events  EventStore
	factors *factors.Service
	quotes  QuotationSource
}

// NewCalculator creates a calculator with its collaborators.
func NewCalculator(events EventStore, factorSvc *factors.Service, quotes QuotationSource) *Calculator {
	return &Calculator{
		events:  events,
		factors: factorSvc,
		quotes:  quotes,
	}
}

// Run computes and persists the impact of one event under the given
// record id, which callers establish up front (the API ties it to the
// idempotency claim). On persistence failure the computed record is
// returned together with an error wrapping ErrPersist, so callers can
// still display the result.
func (c *Calculator) Run(ctx context.Context, id uuid.UUID, input models.EventFormInput) (*models.EventRecord, error) {
	logger := slog.Default().With(
		slog.String("service", "impact-calculator"),
		slog.String("event_name", input.EventName),
	)

	model := c.factors.Load(ctx)

	live := 0.0
	if c.quotes != nil {
		quote, err := c.quotes.Current(ctx)
		switch {
		case err != nil:
			logger.Warn("live quotation unavailable, falling back",
				slog.String("error", err.Error()))
		case quote != nil:
			live = quote.Value
			if quote.ValueUSD > 0 {
				model.Equivalences.UcsQuotationValueUSD = quote.ValueUSD
			}
			if quote.ValueEUR > 0 {
				model.Equivalences.UcsQuotationValueEUR = quote.ValueEUR
			}
		}
	}

	results := Calculate(input, model, live)

	now := time.Now()
	rec := &models.EventRecord{
		ID:        id,
		Timestamp: now.UnixMilli(),
		FormData:  SanitizeInput(input),
		Results:   results,
		Archived:  false,
		CreatedAt: now,
	}

	if err := c.events.Create(ctx, rec); err != nil {
		logger.Error("failed to persist calculation result",
			slog.String("record_id", rec.ID.String()),
			slog.String("error", err.Error()))
		return rec, fmt.Errorf("%w: %v", ErrPersist, err)
	}

	logger.Info("calculation persisted",
		slog.String("record_id", rec.ID.String()),
		slog.Int64("total_ucs", results.TotalUCS),
		slog.Float64("total_cost", results.TotalCost))

	return rec, nil
}
