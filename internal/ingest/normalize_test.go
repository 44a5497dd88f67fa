package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecobalance/impact-balance/internal/models"
)

type fakeEventWriter struct {
	created []models.EventRecord
	err     error
	failAt  int // 1-based index of the call that should fail, 0 for never
	calls   int
}

func (f *fakeEventWriter) Create(ctx context.Context, rec *models.EventRecord) error {
	f.calls++
	if f.err != nil && (f.failAt == 0 || f.calls == f.failAt) {
		return f.err
	}
	f.created = append(f.created, *rec)
	return nil
}

type fakeClientDirectory struct {
	known   map[string]*models.Client
	created []models.Client
	findErr error
}

func (f *fakeClientDirectory) FindByNameOrPhone(ctx context.Context, name, phone string) (*models.Client, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if c, ok := f.known[name]; ok {
		return c, nil
	}
	for _, c := range f.created {
		if c.Name == name {
			existing := c
			return &existing, nil
		}
	}
	return nil, nil
}

func (f *fakeClientDirectory) Create(ctx context.Context, c *models.Client) error {
	f.created = append(f.created, *c)
	return nil
}

func TestImport_SkipsRowsWithUnresolvableDates(t *testing.T) {
	events := &fakeEventWriter{}
	clients := &fakeClientDirectory{}
	n := NewNormalizer(events, clients)

	rows := []Row{
		{"event": "Expo A", "date": "31/12/2023", "ucs": "10", "cost": "1.688,50"},
		{"event": "Expo B", "date": "when it rains", "ucs": "5", "cost": "100"},
		{"event": "Expo C", "date": "2024-01-15", "ucs": "3", "cost": "50"},
	}

	imported, err := n.Import(context.Background(), rows)
	require.NoError(t, err)

	assert.Equal(t, 2, imported)
	require.Len(t, events.created, 2)
	assert.Equal(t, "Expo A", events.created[0].FormData.EventName)
	assert.Equal(t, "Expo C", events.created[1].FormData.EventName)
}

func TestImport_SynthesizesLegacyResults(t *testing.T) {
	events := &fakeEventWriter{}
	n := NewNormalizer(events, &fakeClientDirectory{})

	rows := []Row{
		{"event": "Expo", "date": "31/12/2023", "ucs": "1.234 UCS", "cost": "R$ 1.234,56"},
	}

	imported, err := n.Import(context.Background(), rows)
	require.NoError(t, err)
	require.Equal(t, 1, imported)

	rec := events.created[0]
	assert.Equal(t, 0, rec.Results.TotalParticipants, "imported rows carry the legacy marker")
	assert.Equal(t, int64(1234), rec.Results.TotalUCS)
	assert.Equal(t, int64(1234), rec.Results.DirectUCS)
	assert.Equal(t, 1234.56, rec.Results.TotalCost)
	assert.NotNil(t, rec.Results.Breakdown)
	assert.Empty(t, rec.Results.Breakdown)
	assert.NotZero(t, rec.ID)
	assert.NotZero(t, rec.Timestamp)
	assert.False(t, rec.Archived)
}

func TestImport_BackfillsUnknownClients(t *testing.T) {
	events := &fakeEventWriter{}
	clients := &fakeClientDirectory{}
	n := NewNormalizer(events, clients)

	rows := []Row{
		{"event": "A", "date": "01/02/2023", "client": "Acme Ltda", "phone": "(11) 99999-0001"},
		{"event": "B", "date": "02/02/2023", "client": "Acme Ltda", "phone": "(11) 99999-0001"},
		{"event": "C", "date": "03/02/2023"},
	}

	imported, err := n.Import(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 3, imported)

	require.Len(t, clients.created, 1, "duplicate client rows create one record")
	c := clients.created[0]
	assert.Equal(t, "Acme Ltda", c.Name)
	assert.Equal(t, "(11) 99999-0001", c.Phone)
	assert.Equal(t, "person", c.AccountType)
	assert.Equal(t, "active", c.Status)
}

func TestImport_KnownClientNotDuplicated(t *testing.T) {
	events := &fakeEventWriter{}
	clients := &fakeClientDirectory{
		known: map[string]*models.Client{
			"Acme Ltda": {Name: "Acme Ltda"},
		},
	}
	n := NewNormalizer(events, clients)

	rows := []Row{
		{"event": "A", "date": "01/02/2023", "client": "Acme Ltda"},
	}

	_, err := n.Import(context.Background(), rows)
	require.NoError(t, err)
	assert.Empty(t, clients.created)
}

func TestImport_ClientLookupFailureStillImportsRow(t *testing.T) {
	events := &fakeEventWriter{}
	clients := &fakeClientDirectory{findErr: errors.New("timeout")}
	n := NewNormalizer(events, clients)

	rows := []Row{
		{"event": "A", "date": "01/02/2023", "client": "Acme"},
	}

	imported, err := n.Import(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	assert.Empty(t, clients.created)
}

func TestImport_WriteFailureSkipsRowAndContinues(t *testing.T) {
	events := &fakeEventWriter{err: errors.New("permission denied"), failAt: 1}
	n := NewNormalizer(events, &fakeClientDirectory{})

	rows := []Row{
		{"event": "A", "date": "01/02/2023"},
		{"event": "B", "date": "02/02/2023"},
	}

	imported, err := n.Import(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	require.Len(t, events.created, 1)
	assert.Equal(t, "B", events.created[0].FormData.EventName)
}

func TestImport_HeaderAliases(t *testing.T) {
	events := &fakeEventWriter{}
	n := NewNormalizer(events, &fakeClientDirectory{})

	rows := []Row{
		{"name": "Aliased", "event_date": "01/02/2023", "quantity": "7", "value": "70"},
	}

	imported, err := n.Import(context.Background(), rows)
	require.NoError(t, err)
	require.Equal(t, 1, imported)
	assert.Equal(t, "Aliased", events.created[0].FormData.EventName)
	assert.Equal(t, int64(7), events.created[0].Results.TotalUCS)
	assert.Equal(t, 70.0, events.created[0].Results.TotalCost)
}
