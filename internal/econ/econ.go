// Package econ turns a completed leg into a financial result. The
// calculation is deterministic and idempotent for a given record, which
// is what lets the observer's at-most-once emission carry the whole
// settlement guarantee.
package econ

import (
	"math"

	"airline_sim/internal/demand"
	"airline_sim/internal/world"
)

// defaultCruiseKt is used when neither the leg's block time nor the
// aircraft's cruise speed is usable.
const defaultCruiseKt = 450

// CostModel holds the operating cost constants.
type CostModel struct {
	FuelPricePerKg       float64 `json:"fuel_price_per_kg" yaml:"fuel_price_per_kg"`
	CrewCostPerBlockHour float64 `json:"crew_cost_per_block_hour" yaml:"crew_cost_per_block_hour"`
	HandlingFeePerLeg    float64 `json:"handling_fee_per_leg" yaml:"handling_fee_per_leg"`
}

// DefaultCostModel returns the baseline cost constants.
func DefaultCostModel() CostModel {
	return CostModel{
		FuelPricePerKg:       1.10,
		CrewCostPerBlockHour: 950,
		HandlingFeePerLeg:    600,
	}
}

// Calculator settles completed legs against a cost model.
type Calculator struct {
	costs CostModel
}

// NewCalculator builds a calculator. Non-positive cost constants fall
// back to the defaults so a sparse config cannot zero out expenses.
func NewCalculator(costs CostModel) *Calculator {
	def := DefaultCostModel()
	if costs.FuelPricePerKg <= 0 {
		costs.FuelPricePerKg = def.FuelPricePerKg
	}
	if costs.CrewCostPerBlockHour <= 0 {
		costs.CrewCostPerBlockHour = def.CrewCostPerBlockHour
	}
	if costs.HandlingFeePerLeg <= 0 {
		costs.HandlingFeePerLeg = def.HandlingFeePerLeg
	}
	return &Calculator{costs: costs}
}

// Settle computes the financial result for one completed leg flown by
// the given aircraft under the given market conditions. All amounts
// are rounded to whole currency units.
func (c *Calculator) Settle(rec world.CompletedLegRecord, ac world.Aircraft, f demand.MarketFactors) world.FinancialResult {
	blockHours := c.blockHours(rec, ac)

	fuel := math.Round(world.Finite(ac.FuelBurnKg, 0) * blockHours * c.costs.FuelPricePerKg)
	crew := math.Round(c.costs.CrewCostPerBlockHour * blockHours)
	fees := math.Round(c.costs.HandlingFeePerLeg)

	year := rec.DepartedAt.Year()
	hour := rec.DepartedAt.Hour()
	pax := demand.Passengers(rec.DistanceNM, year, hour, f, ac.Seats)
	revenue := math.Round(float64(pax) * Fare(rec.DistanceNM, year))

	return world.FinancialResult{
		LegKey:     rec.LegKey,
		AircraftID: rec.AircraftID,
		Passengers: pax,
		Revenue:    revenue,
		FuelCost:   fuel,
		CrewCost:   crew,
		FeeCost:    fees,
		Profit:     revenue - (fuel + crew + fees),
		SettledAt:  rec.DetectedAt,
	}
}

// blockHours prefers the leg's scheduled block time; without one the
// distance over cruise speed decides, with a type-default fallback.
func (c *Calculator) blockHours(rec world.CompletedLegRecord, ac world.Aircraft) float64 {
	if rec.BlockMinutes > 0 {
		return float64(rec.BlockMinutes) / 60
	}
	speed := world.Finite(ac.CruiseKt, 0)
	if speed <= 0 {
		speed = defaultCruiseKt
	}
	dist := world.Finite(rec.DistanceNM, 0)
	if dist <= 0 {
		return 0
	}
	return dist / speed
}

// Fare returns the one-way base fare for a leg, tiered by distance
// band and scaled by the era's fare level. Real fares were far higher
// in the early decades of the calendar.
func Fare(distanceNM float64, year int) float64 {
	distanceNM = world.Finite(distanceNM, 0)
	if distanceNM <= 0 {
		return 0
	}

	// Marginal per-mile rates by band: each additional band is
	// cheaper per mile than the last.
	fare := 30.0
	bands := []struct {
		limit float64
		rate  float64
	}{
		{500, 0.22},
		{1500, 0.17},
		{3000, 0.13},
		{math.Inf(1), 0.10},
	}
	prev := 0.0
	for _, b := range bands {
		if distanceNM <= prev {
			break
		}
		span := math.Min(distanceNM, b.limit) - prev
		fare += span * b.rate
		prev = b.limit
	}

	return fare * eraFareIndex(year)
}

func eraFareIndex(year int) float64 {
	switch {
	case year < 1950:
		return 1.60
	case year < 1960:
		return 1.45
	case year < 1970:
		return 1.30
	case year < 1980:
		return 1.20
	case year < 1990:
		return 1.10
	case year < 2000:
		return 1.00
	case year < 2010:
		return 0.95
	default:
		return 0.90
	}
}
