package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ecobalance/impact-balance/internal/models"
)

// Header aliases accepted for each legacy column.
var (
	eventAliases  = []string{"event", "event_name", "name"}
	ucsAliases    = []string{"ucs", "ucs_quantity", "quantity"}
	costAliases   = []string{"cost", "total_cost", "value"}
	dateAliases   = []string{"date", "event_date", "timestamp"}
	clientAliases = []string{"client", "client_name"}
	phoneAliases  = []string{"phone", "client_phone"}
)

// EventWriter persists synthesized event records.
type EventWriter interface {
	Create(ctx context.Context, rec *models.EventRecord) error
}

// ClientDirectory looks up and creates client records for opportunistic
// client backfill during import.
type ClientDirectory interface {
	FindByNameOrPhone(ctx context.Context, name, phone string) (*models.Client, error)
	Create(ctx context.Context, c *models.Client) error
}

// Normalizer coerces legacy spreadsheet rows into event records. Writes
// happen sequentially, one row at a time, with no rollback: a failure
// partway through leaves prior rows committed.
type Normalizer struct {
	events  EventWriter
	clients ClientDirectory
}

// NewNormalizer creates a normalizer with its collaborators.
func NewNormalizer(events EventWriter, clients ClientDirectory) *Normalizer {
	return &Normalizer{events: events, clients: clients}
}

// Import processes legacy rows best-effort and returns how many were
// imported. Rows whose date cannot be resolved are skipped with a log
// line only; per-row errors are not reported back.
func (n *Normalizer) Import(ctx context.Context, rows []Row) (int, error) {
	logger := slog.Default().With(slog.String("service", "legacy-import"))
	imported := 0

	for i, row := range rows {
		lineNum := i + 2 // header is line 1

		date := ResolveDate(row.Get(dateAliases...))
		if !date.OK() {
			logger.Warn("row skipped",
				slog.Int("line", lineNum),
				slog.String("reason", date.Skip))
			continue
		}

		eventName := row.Get(eventAliases...)
		ucs := ParseUCS(row.Get(ucsAliases...))
		cost := ParseCurrency(row.Get(costAliases...))
		clientName := row.Get(clientAliases...)
		clientPhone := row.Get(phoneAliases...)

		if clientName != "" || clientPhone != "" {
			n.ensureClient(ctx, logger, clientName, clientPhone)
		}

		rec := models.EventRecord{
			ID:        uuid.New(),
			Timestamp: date.Time.UnixMilli(),
			FormData: models.EventFormInput{
				EventName:   eventName,
				ClientName:  clientName,
				ClientPhone: clientPhone,
			},
			Results:   legacyResult(ucs, cost),
			Archived:  false,
			CreatedAt: time.Now(),
		}

		if err := n.events.Create(ctx, &rec); err != nil {
			logger.Warn("row write failed",
				slog.Int("line", lineNum),
				slog.String("error", err.Error()))
			continue
		}
		imported++
	}

	logger.Info("legacy import finished",
		slog.Int("rows", len(rows)),
		slog.Int("imported", imported))
	return imported, nil
}

// ensureClient creates a minimal client record when the named client is
// unknown. Lookup failures only log; the row is still imported.
func (n *Normalizer) ensureClient(ctx context.Context, logger *slog.Logger, name, phone string) {
	existing, err := n.clients.FindByNameOrPhone(ctx, name, phone)
	if err != nil {
		logger.Warn("client lookup failed", slog.String("client", name), slog.String("error", err.Error()))
		return
	}
	if existing != nil {
		return
	}

	client := &models.Client{
		ID:          uuid.New(),
		AccountType: "person",
		Name:        name,
		Phone:       phone,
		Status:      "active",
		CreatedAt:   time.Now(),
	}
	if err := n.clients.Create(ctx, client); err != nil {
		logger.Warn("client create failed", slog.String("client", name), slog.String("error", err.Error()))
	}
}

// legacyResult synthesizes a result for a pre-engine row. The zero
// TotalParticipants marks the record as imported historical data; only
// the directly known UCS and cost are populated.
func legacyResult(ucs int64, cost float64) models.CalculationResult {
	return models.CalculationResult{
		TotalParticipants: 0,
		TotalUCS:          ucs,
		DirectUCS:         ucs,
		TotalCost:         cost,
		DirectCost:        cost,
		Breakdown:         []models.BreakdownEntry{},
		IndirectBreakdown: []models.IndirectEntry{},
	}
}
