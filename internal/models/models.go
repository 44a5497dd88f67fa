package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DurationUnit is the time unit of a visitor entry.
type DurationUnit string

const (
	UnitDays  DurationUnit = "days"
	UnitHours DurationUnit = "hours"
)

// CategoryEntry is one staff-category line of the event form.
type CategoryEntry struct {
	Count int     `json:"count"`
	Days  float64 `json:"days"`
}

// VisitorEntry is the single visitor line of the event form. Duration is
// expressed either in days or in hours depending on Unit.
type VisitorEntry struct {
	Count int          `json:"count"`
	Unit  DurationUnit `json:"unit"`
	Days  float64      `json:"days,omitempty"`
	Hours float64      `json:"hours,omitempty"`
}

// EventFormInput is the event description submitted for calculation.
// Extra carries free-form metadata fields from the form; it is sanitized
// before persistence so the store never receives non-encodable values.
type EventFormInput struct {
	EventName        string                   `json:"event_name"`
	ClientName       string                   `json:"client_name"`
	ClientPhone      string                   `json:"client_phone"`
	TaxRate          float64                  `json:"tax_rate"`
	Participants     map[string]CategoryEntry `json:"participants"`
	Visitors         *VisitorEntry            `json:"visitors,omitempty"`
	CurrentPractices string                   `json:"current_practices"`
	Extra            map[string]any           `json:"extra,omitempty"`
}

// BreakdownEntry is one per-category line of the direct UCS/cost breakdown.
type BreakdownEntry struct {
	Category     string       `json:"category"`
	UCS          int64        `json:"ucs"`
	Cost         float64      `json:"cost"`
	Quantity     int          `json:"quantity"`
	Duration     float64      `json:"duration"`
	DurationUnit DurationUnit `json:"duration_unit"`
}

// IndirectEntry is one line of the indirect-cost breakdown.
type IndirectEntry struct {
	Category string  `json:"category"`
	Cost     float64 `json:"cost"`
}

// ResultEquivalences holds derived time/GDP equivalence ratios.
type ResultEquivalences struct {
	DailyUCS      float64 `json:"daily_ucs"`
	HourlyUCS     float64 `json:"hourly_ucs"`
	GdpPercentage float64 `json:"gdp_percentage"`
}

// BenefitTotals holds the six ecological proxy totals, each a linear
// function of total UCS.
type BenefitTotals struct {
	PreservedForestM2 float64 `json:"preserved_forest_m2"`
	AvoidedCarbonT    float64 `json:"avoided_carbon_t"`
	StoredWoodM3      float64 `json:"stored_wood_m3"`
	FaunaSpecies      float64 `json:"fauna_species"`
	FloraSpecies      float64 `json:"flora_species"`
	WaterFlowLiters   float64 `json:"water_flow_liters"`
}

// CalculationResult is the structured output of one impact calculation.
// TotalParticipants == 0 marks a legacy record synthesized by import
// normalization rather than computed by the engine.
type CalculationResult struct {
	TotalParticipants      int                `json:"total_participants"`
	TotalUCS               int64              `json:"total_ucs"`
	TotalCost              float64            `json:"total_cost"`
	TotalCostUSD           float64            `json:"total_cost_usd"`
	TotalCostEUR           float64            `json:"total_cost_eur"`
	DirectUCS              int64              `json:"direct_ucs"`
	DirectCost             float64            `json:"direct_cost"`
	IndirectCost           float64            `json:"indirect_cost"`
	UcsPerParticipant      float64            `json:"ucs_per_participant"`
	CostPerParticipant     float64            `json:"cost_per_participant"`
	CostPerParticipantDay  float64            `json:"cost_per_participant_day"`
	CostPerParticipantHour float64            `json:"cost_per_participant_hour"`
	Breakdown              []BreakdownEntry   `json:"breakdown"`
	IndirectBreakdown      []IndirectEntry    `json:"indirect_breakdown"`
	Equivalences           ResultEquivalences `json:"equivalences"`
	Benefits               BenefitTotals      `json:"benefits"`
}

// EventRecord is one persisted calculation (or imported legacy row).
// Results are immutable once created; only Archived may be flipped.
// DB columns: id, ts_ms, form_data, results, archived, created_at
type EventRecord struct {
	ID        uuid.UUID         `json:"id"`
	Timestamp int64             `json:"timestamp"` // epoch milliseconds
	FormData  EventFormInput    `json:"form_data"`
	Results   CalculationResult `json:"results"`
	Archived  bool              `json:"archived"`
	CreatedAt time.Time         `json:"created_at"`
}

// Client is a CRM-style account record. Address and Bank stay
// semi-structured; import normalization only fills name and phone.
// DB columns: id, account_type, name, document_id, phone, phone_digits,
//
//	email, address, bank, status, tags, created_at
type Client struct {
	ID          uuid.UUID       `json:"id"`
	AccountType string          `json:"account_type"` // "person" or "company"
	Name        string          `json:"name"`
	DocumentID  string          `json:"document_id"`
	Phone       string          `json:"phone"`
	PhoneDigits string          `json:"phone_digits"`
	Email       string          `json:"email"`
	Address     json.RawMessage `json:"address,omitempty"`
	Bank        json.RawMessage `json:"bank,omitempty"`
	Status      string          `json:"status"`
	Tags        []string        `json:"tags,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Quotation is one captured live UCS price point.
// DB columns: id, value, value_usd, value_eur, captured_at
type Quotation struct {
	ID         uuid.UUID `json:"id"`
	Value      float64   `json:"value"`
	ValueUSD   float64   `json:"value_usd"`
	ValueEUR   float64   `json:"value_eur"`
	CapturedAt time.Time `json:"captured_at"`
}

// Pagination holds pagination metadata.
type Pagination struct {
	Page         int `json:"page"`
	PageSize     int `json:"page_size"`
	TotalResults int `json:"total_results"`
	TotalPages   int `json:"total_pages"`
}
