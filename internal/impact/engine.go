package impact

import (
	"math"

	"github.com/ecobalance/impact-balance/internal/factors"
	"github.com/ecobalance/impact-balance/internal/models"
)

// Staff participant categories, in the order they appear in the breakdown.
const (
	CategoryOrganizers = "organizers"
	CategoryStaff      = "staff"
	CategorySpeakers   = "speakers"
	CategoryExhibitors = "exhibitors"
	CategorySuppliers  = "suppliers"

	// CategoryVisitors labels the single visitor breakdown entry.
	CategoryVisitors = "visitors"
)

// Categories is the explicit ordered list of staff categories. Breakdown
// output order follows this list, with visitors always last.
var Categories = []string{
	CategoryOrganizers,
	CategoryStaff,
	CategorySpeakers,
	CategoryExhibitors,
	CategorySuppliers,
}

// Indirect-cost breakdown labels. All three lines always appear in the
// result, even at zero cost.
const (
	IndirectOwnershipRegistration = "ownership_registration"
	IndirectCertificateIssuance   = "certificate_issuance"
	IndirectWebsitePage           = "website_page"
)

const (
	// personHoursPerUCS is the fixed visitor conversion: 14 person-hours
	// accrue one UCS, independent of the daily consumption factor.
	personHoursPerUCS = 14.0

	// hoursPerDay normalizes visitor hour durations to day-equivalents for
	// aggregate denominators and max-duration only, never for UCS itself.
	hoursPerDay = 8.0
)

// Calculate maps an event description and a factor model to a full impact
// result. livePrice is the current UCS quotation (0 when unavailable).
// Negative counts and durations are clamped to zero. The function is pure:
// persistence is the caller's concern.
func Calculate(input models.EventFormInput, m factors.Model, livePrice float64) models.CalculationResult {
	unitPrice := m.UnitPrice(livePrice)
	daily := m.PerCapita.DailyUcsConsumption

	var (
		breakdown       []models.BreakdownEntry
		totalPeople     int
		personDays      float64
		personHours     float64
		maxDurationDays float64
		directUCS       int64
		directCost      float64
	)

	for _, category := range Categories {
		entry, ok := input.Participants[category]
		if !ok {
			continue
		}
		count := clampCount(entry.Count)
		days := clampDuration(entry.Days)
		if count == 0 || days == 0 {
			continue
		}

		totalPeople += count
		personDays += float64(count) * days
		personHours += float64(count) * days * hoursPerDay
		maxDurationDays = math.Max(maxDurationDays, days)

		ucs := int64(math.Ceil(float64(count) * days * daily))
		if ucs == 0 {
			continue
		}
		cost := round2(float64(ucs) * unitPrice)
		directUCS += ucs
		directCost += cost
		breakdown = append(breakdown, models.BreakdownEntry{
			Category:     category,
			UCS:          ucs,
			Cost:         cost,
			Quantity:     count,
			Duration:     days,
			DurationUnit: models.UnitDays,
		})
	}

	if v := input.Visitors; v != nil {
		count := clampCount(v.Count)
		var (
			ucs      int64
			duration float64
			unit     models.DurationUnit
		)
		switch {
		case count > 0 && v.Unit == models.UnitHours && clampDuration(v.Hours) > 0:
			hours := clampDuration(v.Hours)
			visitorHours := float64(count) * hours
			ucs = int64(math.Ceil(visitorHours / personHoursPerUCS))
			duration, unit = hours, models.UnitHours

			totalPeople += count
			personHours += visitorHours
			personDays += visitorHours / hoursPerDay
			maxDurationDays = math.Max(maxDurationDays, hours/hoursPerDay)
		case count > 0 && v.Unit != models.UnitHours && clampDuration(v.Days) > 0:
			days := clampDuration(v.Days)
			ucs = int64(math.Ceil(float64(count) * days * daily))
			duration, unit = days, models.UnitDays

			totalPeople += count
			personDays += float64(count) * days
			personHours += float64(count) * days * hoursPerDay
			maxDurationDays = math.Max(maxDurationDays, days)
		}

		if ucs > 0 {
			cost := round2(float64(ucs) * unitPrice)
			directUCS += ucs
			directCost += cost
			breakdown = append(breakdown, models.BreakdownEntry{
				Category:     CategoryVisitors,
				UCS:          ucs,
				Cost:         cost,
				Quantity:     count,
				Duration:     duration,
				DurationUnit: unit,
			})
		}
	}

	directCost = round2(directCost)

	ownership := round2(directCost * m.IndirectCosts.OwnershipRegistrationPercent / 100)
	certificate := round2(m.IndirectCosts.CertificateIssuanceFee)
	website := round2(m.IndirectCosts.WebsitePageFee)
	indirectBreakdown := []models.IndirectEntry{
		{Category: IndirectOwnershipRegistration, Cost: ownership},
		{Category: IndirectCertificateIssuance, Cost: certificate},
		{Category: IndirectWebsitePage, Cost: website},
	}
	indirectCost := round2(ownership + certificate + website)

	totalUCS := directUCS
	totalCost := round2(directCost + indirectCost)

	result := models.CalculationResult{
		TotalParticipants: totalPeople,
		TotalUCS:          totalUCS,
		TotalCost:         totalCost,
		TotalCostUSD:      round2(float64(totalUCS) * m.Equivalences.UcsQuotationValueUSD),
		TotalCostEUR:      round2(float64(totalUCS) * m.Equivalences.UcsQuotationValueEUR),
		DirectUCS:         directUCS,
		DirectCost:        directCost,
		IndirectCost:      indirectCost,
		Breakdown:         breakdown,
		IndirectBreakdown: indirectBreakdown,
	}

	if totalPeople > 0 {
		result.UcsPerParticipant = float64(totalUCS) / float64(totalPeople)
		result.CostPerParticipant = round2(totalCost / float64(totalPeople))
	}
	if personDays > 0 {
		result.CostPerParticipantDay = round2(totalCost / personDays)
	}
	if personHours > 0 {
		result.CostPerParticipantHour = round2(totalCost / personHours)
	}

	if maxDurationDays > 0 {
		result.Equivalences.DailyUCS = float64(totalUCS) / maxDurationDays
		result.Equivalences.HourlyUCS = float64(totalUCS) / (maxDurationDays * 24)
	}
	if m.Equivalences.GdpPerCapita > 0 {
		result.Equivalences.GdpPercentage = totalCost / m.Equivalences.GdpPerCapita * 100
	}

	ucsF := float64(totalUCS)
	result.Benefits = models.BenefitTotals{
		PreservedForestM2: ucsF * m.Benefits.PreservedForestM2PerUCS,
		AvoidedCarbonT:    ucsF * m.Benefits.AvoidedCarbonTPerUCS,
		StoredWoodM3:      ucsF * m.Benefits.StoredWoodM3PerUCS,
		FaunaSpecies:      ucsF * m.Benefits.FaunaSpeciesPerUCS,
		FloraSpecies:      ucsF * m.Benefits.FloraSpeciesPerUCS,
		WaterFlowLiters:   ucsF * m.Benefits.WaterFlowLitersPerUCS,
	}

	return result
}

func clampCount(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func clampDuration(d float64) float64 {
	if d < 0 || math.IsNaN(d) {
		return 0
	}
	return d
}

// round2 rounds a monetary value to two decimals.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
