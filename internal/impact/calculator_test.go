package impact

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecobalance/impact-balance/internal/factors"
	"github.com/ecobalance/impact-balance/internal/models"
)

type memEventStore struct {
	created []models.EventRecord
	err     error
}

func (m *memEventStore) Create(ctx context.Context, rec *models.EventRecord) error {
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, *rec)
	return nil
}

type memSettingsStore struct {
	doc json.RawMessage
}

func (m *memSettingsStore) GetFactors(ctx context.Context) (json.RawMessage, error) {
	return m.doc, nil
}

func (m *memSettingsStore) PutFactors(ctx context.Context, doc json.RawMessage) error {
	m.doc = doc
	return nil
}

type staticQuotes struct {
	quote *models.Quotation
	err   error
}

func (s *staticQuotes) Current(ctx context.Context) (*models.Quotation, error) {
	return s.quote, s.err
}

func testInput() models.EventFormInput {
	return models.EventFormInput{
		EventName: "Summit",
		Participants: map[string]models.CategoryEntry{
			CategoryStaff: {Count: 100, Days: 2},
		},
	}
}

func TestRun_PersistsComputedRecord(t *testing.T) {
	store := &memEventStore{}
	calc := NewCalculator(store, factors.NewService(&memSettingsStore{}), &staticQuotes{})

	rec, err := calc.Run(context.Background(), uuid.New(), testInput())
	require.NoError(t, err)
	require.NotNil(t, rec)

	require.Len(t, store.created, 1)
	assert.Equal(t, rec.ID, store.created[0].ID)
	assert.Equal(t, int64(14), rec.Results.TotalUCS)
	assert.Equal(t, "Summit", rec.FormData.EventName)
	assert.NotZero(t, rec.Timestamp)
	assert.False(t, rec.Archived)
}

func TestRun_StoresUnderProvidedID(t *testing.T) {
	store := &memEventStore{}
	calc := NewCalculator(store, factors.NewService(&memSettingsStore{}), &staticQuotes{})

	id := uuid.New()
	rec, err := calc.Run(context.Background(), id, testInput())
	require.NoError(t, err)

	// The caller-established id (tied to the idempotency claim upstream)
	// must be the persisted record's id.
	assert.Equal(t, id, rec.ID)
	require.Len(t, store.created, 1)
	assert.Equal(t, id, store.created[0].ID)
}

func TestRun_PersistFailureStillReturnsResult(t *testing.T) {
	store := &memEventStore{err: errors.New("connection lost")}
	calc := NewCalculator(store, factors.NewService(&memSettingsStore{}), &staticQuotes{})

	rec, err := calc.Run(context.Background(), uuid.New(), testInput())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersist)
	require.NotNil(t, rec, "computed result survives a failed write")
	assert.Equal(t, int64(14), rec.Results.TotalUCS)
}

func TestRun_UsesLiveQuotation(t *testing.T) {
	store := &memEventStore{}
	quotes := &staticQuotes{quote: &models.Quotation{Value: 200, ValueUSD: 40, ValueEUR: 37}}
	calc := NewCalculator(store, factors.NewService(&memSettingsStore{}), quotes)

	rec, err := calc.Run(context.Background(), uuid.New(), testInput())
	require.NoError(t, err)

	assert.InDelta(t, 2800.0, rec.Results.DirectCost, 0.001, "14 UCS at live price 200")
	assert.InDelta(t, 14*40.0, rec.Results.TotalCostUSD, 0.001)
	assert.InDelta(t, 14*37.0, rec.Results.TotalCostEUR, 0.001)
}

func TestRun_QuotationErrorFallsBackToDefaults(t *testing.T) {
	store := &memEventStore{}
	quotes := &staticQuotes{err: errors.New("feed down")}
	calc := NewCalculator(store, factors.NewService(&memSettingsStore{}), quotes)

	rec, err := calc.Run(context.Background(), uuid.New(), testInput())
	require.NoError(t, err)
	assert.InDelta(t, 2363.90, rec.Results.DirectCost, 0.001, "default price applies")
}

func TestRun_SanitizesExtraMetadata(t *testing.T) {
	store := &memEventStore{}
	calc := NewCalculator(store, factors.NewService(&memSettingsStore{}), &staticQuotes{})

	var nilPtr *string
	input := testInput()
	input.Extra = map[string]any{"note": nilPtr}

	rec, err := calc.Run(context.Background(), uuid.New(), input)
	require.NoError(t, err)

	v, ok := rec.FormData.Extra["note"]
	require.True(t, ok)
	assert.Nil(t, v)
}
