package factors

import (
	"encoding/json"
	"fmt"
)

// DefaultQuotationValue is the hardcoded fallback price of one UCS unit in
// local currency, used when neither a manual override nor a positive live
// quotation is available.
const DefaultQuotationValue = 168.85

// PerCapita holds unit-score accrual rates per participant per time unit.
type PerCapita struct {
	DailyUcsConsumption  float64 `json:"daily_ucs_consumption"`
	HourlyUcsConsumption float64 `json:"hourly_ucs_consumption"`
	AnnualUcsConsumption float64 `json:"annual_ucs_consumption"`
}

// Equivalences holds quotation and macro-economic conversion values.
// The quotation value fields are sourced from the live feed and are
// excluded from persistence (see persistable).
type Equivalences struct {
	UcsQuotationValue    float64 `json:"ucs_quotation_value"`
	UcsQuotationValueUSD float64 `json:"ucs_quotation_value_usd"`
	UcsQuotationValueEUR float64 `json:"ucs_quotation_value_eur"`
	GdpPerCapita         float64 `json:"gdp_per_capita"`
	UseManualQuotation   bool    `json:"use_manual_quotation"`
	ManualQuotationValue float64 `json:"manual_quotation_value"`
}

// IndirectCosts parametrizes the three fixed indirect-cost lines.
type IndirectCosts struct {
	OwnershipRegistrationPercent float64 `json:"ownership_registration_percent"`
	CertificateIssuanceFee       float64 `json:"certificate_issuance_fee"`
	WebsitePageFee               float64 `json:"website_page_fee"`
}

// Benefits holds per-UCS conversion rates to ecological proxies.
type Benefits struct {
	PreservedForestM2PerUCS float64 `json:"preserved_forest_m2_per_ucs"`
	AvoidedCarbonTPerUCS    float64 `json:"avoided_carbon_t_per_ucs"`
	StoredWoodM3PerUCS      float64 `json:"stored_wood_m3_per_ucs"`
	FaunaSpeciesPerUCS      float64 `json:"fauna_species_per_ucs"`
	FloraSpeciesPerUCS      float64 `json:"flora_species_per_ucs"`
	WaterFlowLitersPerUCS   float64 `json:"water_flow_liters_per_ucs"`
}

// Model is the full factor model consumed by the calculation engine.
// A Model is always complete: every load path merges stored overrides
// over Defaults so the engine never observes a missing coefficient.
type Model struct {
	PerCapita     PerCapita     `json:"per_capita"`
	Equivalences  Equivalences  `json:"equivalences"`
	IndirectCosts IndirectCosts `json:"indirect_costs"`
	Benefits      Benefits      `json:"benefits"`
}

// Defaults returns the hardcoded baseline factor model.
func Defaults() Model {
	return Model{
		PerCapita: PerCapita{
			DailyUcsConsumption:  0.068,
			HourlyUcsConsumption: 0.0085,
			AnnualUcsConsumption: 24.82,
		},
		Equivalences: Equivalences{
			UcsQuotationValue:    DefaultQuotationValue,
			UcsQuotationValueUSD: 33.77,
			UcsQuotationValueEUR: 31.05,
			GdpPerCapita:         50194.0,
			UseManualQuotation:   false,
			ManualQuotationValue: 0,
		},
		IndirectCosts: IndirectCosts{
			OwnershipRegistrationPercent: 3.0,
			CertificateIssuanceFee:       150.0,
			WebsitePageFee:               250.0,
		},
		Benefits: Benefits{
			PreservedForestM2PerUCS: 180.0,
			AvoidedCarbonTPerUCS:    0.25,
			StoredWoodM3PerUCS:      0.9,
			FaunaSpeciesPerUCS:      0.0001,
			FloraSpeciesPerUCS:      0.0002,
			WaterFlowLitersPerUCS:   1200.0,
		},
	}
}

// Merge overlays a stored partial factor document onto the defaults so
// every field is present. Unknown keys are ignored; negative factors are
// clamped to zero.
func Merge(raw json.RawMessage) (Model, error) {
	m := Defaults()
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &m); err != nil {
			return Defaults(), fmt.Errorf("parse factor document: %w", err)
		}
	}
	m.clamp()
	return m, nil
}

// UnitPrice resolves the effective price of one UCS unit: the manual
// override when enabled, else a positive live quotation, else the
// hardcoded default. The result is always positive.
func (m Model) UnitPrice(live float64) float64 {
	if m.Equivalences.UseManualQuotation && m.Equivalences.ManualQuotationValue > 0 {
		return m.Equivalences.ManualQuotationValue
	}
	if live > 0 {
		return live
	}
	if m.Equivalences.UcsQuotationValue > 0 {
		return m.Equivalences.UcsQuotationValue
	}
	return DefaultQuotationValue
}

// clamp zeroes any negative coefficient. All factors are non-negative by
// contract; stored documents edited out-of-band may violate that.
func (m *Model) clamp() {
	for _, f := range []*float64{
		&m.PerCapita.DailyUcsConsumption,
		&m.PerCapita.HourlyUcsConsumption,
		&m.PerCapita.AnnualUcsConsumption,
		&m.Equivalences.UcsQuotationValue,
		&m.Equivalences.UcsQuotationValueUSD,
		&m.Equivalences.UcsQuotationValueEUR,
		&m.Equivalences.GdpPerCapita,
		&m.Equivalences.ManualQuotationValue,
		&m.IndirectCosts.OwnershipRegistrationPercent,
		&m.IndirectCosts.CertificateIssuanceFee,
		&m.IndirectCosts.WebsitePageFee,
		&m.Benefits.PreservedForestM2PerUCS,
		&m.Benefits.AvoidedCarbonTPerUCS,
		&m.Benefits.StoredWoodM3PerUCS,
		&m.Benefits.FaunaSpeciesPerUCS,
		&m.Benefits.FloraSpeciesPerUCS,
		&m.Benefits.WaterFlowLitersPerUCS,
	} {
		if *f < 0 {
			*f = 0
		}
	}
}

// persistable returns the model as a JSON document with the live quotation
// value fields removed, so a save can never clobber the external feed.
func (m Model) persistable() (json.RawMessage, error) {
	full, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal factor model: %w", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(full, &doc); err != nil {
		return nil, fmt.Errorf("reshape factor model: %w", err)
	}

	if eq, ok := doc["equivalences"].(map[string]any); ok {
		delete(eq, "ucs_quotation_value")
		delete(eq, "ucs_quotation_value_usd")
		delete(eq, "ucs_quotation_value_eur")
	}

	return json.Marshal(doc)
}
