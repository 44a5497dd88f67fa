package factors

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_EmptyDocumentYieldsDefaults(t *testing.T) {
	m, err := Merge(nil)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), m)
}

func TestMerge_PartialDocumentOverlaysDefaults(t *testing.T) {
	raw := json.RawMessage(`{"per_capita":{"daily_ucs_consumption":0.1}}`)

	m, err := Merge(raw)
	require.NoError(t, err)

	assert.Equal(t, 0.1, m.PerCapita.DailyUcsConsumption)
	// Untouched fields keep their defaults.
	assert.Equal(t, 0.0085, m.PerCapita.HourlyUcsConsumption)
	assert.Equal(t, 150.0, m.IndirectCosts.CertificateIssuanceFee)
	assert.Equal(t, 1200.0, m.Benefits.WaterFlowLitersPerUCS)
}

func TestMerge_UnknownKeysIgnored(t *testing.T) {
	raw := json.RawMessage(`{"mystery":{"x":1},"per_capita":{"daily_ucs_consumption":0.05}}`)

	m, err := Merge(raw)
	require.NoError(t, err)
	assert.Equal(t, 0.05, m.PerCapita.DailyUcsConsumption)
}

func TestMerge_NegativeFactorsClampToZero(t *testing.T) {
	raw := json.RawMessage(`{
		"per_capita": {"daily_ucs_consumption": -0.5},
		"indirect_costs": {"website_page_fee": -100},
		"benefits": {"avoided_carbon_t_per_ucs": -1}
	}`)

	m, err := Merge(raw)
	require.NoError(t, err)

	assert.Equal(t, 0.0, m.PerCapita.DailyUcsConsumption)
	assert.Equal(t, 0.0, m.IndirectCosts.WebsitePageFee)
	assert.Equal(t, 0.0, m.Benefits.AvoidedCarbonTPerUCS)
}

func TestMerge_MalformedDocumentReturnsDefaultsAndError(t *testing.T) {
	m, err := Merge(json.RawMessage(`{"per_capita": "not an object"`))
	assert.Error(t, err)
	assert.Equal(t, Defaults(), m)
}

func TestUnitPrice_Resolution(t *testing.T) {
	tests := []struct {
		name   string
		manual bool
		value  float64
		live   float64
		stored float64
		want   float64
	}{
		{"manual override wins over live", true, 200, 175, 168.85, 200},
		{"manual flag without value falls through", true, 0, 175, 168.85, 175},
		{"live quotation when no manual", false, 0, 175, 168.85, 175},
		{"stored value when live unavailable", false, 0, 0, 170.10, 170.10},
		{"hardcoded default as last resort", false, 0, 0, 0, DefaultQuotationValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Defaults()
			m.Equivalences.UseManualQuotation = tt.manual
			m.Equivalences.ManualQuotationValue = tt.value
			m.Equivalences.UcsQuotationValue = tt.stored

			assert.Equal(t, tt.want, m.UnitPrice(tt.live))
		})
	}
}

func TestPersistable_ExcludesLiveQuotationFields(t *testing.T) {
	doc, err := Defaults().persistable()
	require.NoError(t, err)

	var parsed map[string]map[string]any
	require.NoError(t, json.Unmarshal(doc, &parsed))

	eq, ok := parsed["equivalences"]
	require.True(t, ok)
	assert.NotContains(t, eq, "ucs_quotation_value")
	assert.NotContains(t, eq, "ucs_quotation_value_usd")
	assert.NotContains(t, eq, "ucs_quotation_value_eur")
	assert.Contains(t, eq, "gdp_per_capita")
	assert.Contains(t, eq, "use_manual_quotation")
}

// fakeStore is an in-memory SettingsStore for service tests.
type fakeStore struct {
	doc    json.RawMessage
	getErr error
	putErr error
	puts   int
}

func (f *fakeStore) GetFactors(ctx context.Context) (json.RawMessage, error) {
	return f.doc, f.getErr
}

func (f *fakeStore) PutFactors(ctx context.Context, doc json.RawMessage) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.puts++
	f.doc = doc
	return nil
}

func TestServiceLoad_SeedsDefaultsWhenMissing(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store)

	m := svc.Load(context.Background())

	assert.Equal(t, Defaults(), m)
	assert.Equal(t, 1, store.puts, "missing document gets seeded")
	assert.NotNil(t, store.doc)
}

func TestServiceLoad_DegradesToDefaultsOnStoreError(t *testing.T) {
	store := &fakeStore{getErr: errors.New("connection refused")}
	svc := NewService(store)

	m := svc.Load(context.Background())
	assert.Equal(t, Defaults(), m)
}

func TestServiceLoad_MergesStoredOverrides(t *testing.T) {
	store := &fakeStore{doc: json.RawMessage(`{"per_capita":{"daily_ucs_consumption":0.09}}`)}
	svc := NewService(store)

	m := svc.Load(context.Background())
	assert.Equal(t, 0.09, m.PerCapita.DailyUcsConsumption)
}

func TestServiceSave_PropagatesWriteErrors(t *testing.T) {
	store := &fakeStore{putErr: errors.New("read-only transaction")}
	svc := NewService(store)

	err := svc.Save(context.Background(), Defaults())
	assert.Error(t, err)
}

func TestServiceSaveThenLoad_RoundTrips(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store)

	m := Defaults()
	m.IndirectCosts.WebsitePageFee = 300
	require.NoError(t, svc.Save(context.Background(), m))

	loaded := svc.Load(context.Background())
	assert.Equal(t, 300.0, loaded.IndirectCosts.WebsitePageFee)
	// Live quotation fields are never persisted, so loads restore defaults.
	assert.Equal(t, DefaultQuotationValue, loaded.Equivalences.UcsQuotationValue)
}
