package econ

import (
	"math"
	"testing"
	"time"

	"airline_sim/internal/demand"
	"airline_sim/internal/world"
)

func testRecord() world.CompletedLegRecord {
	departed := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	return world.CompletedLegRecord{
		LegKey:       "N801AW|KJFK|EGLL|L1|2026-03-02",
		AircraftID:   "N801AW",
		Origin:       "KJFK",
		Destination:  "EGLL",
		ScheduleID:   "L1",
		ServiceDate:  "2026-03-02",
		DistanceNM:   2995,
		BlockMinutes: 420,
		DepartedAt:   departed,
		ArrivedAt:    departed.Add(7 * time.Hour),
		DetectedAt:   departed.Add(7*time.Hour + 20*time.Minute),
	}
}

func testAircraft() world.Aircraft {
	return world.Aircraft{
		ID:         "N801AW",
		TypeName:   "B763",
		Seats:      280,
		CruiseKt:   470,
		FuelBurnKg: 4800,
		Comfort:    0.6,
	}
}

func testFactors() demand.MarketFactors {
	return demand.MarketFactors{
		PriceRatio:  1,
		Comfort:     0.6,
		Marketing:   0.5,
		Reputation:  0.5,
		Competitors: 2,
		SameRegion:  false,
	}
}

func TestSettleDeterministic(t *testing.T) {
	c := NewCalculator(DefaultCostModel())
	rec, ac, f := testRecord(), testAircraft(), testFactors()

	first := c.Settle(rec, ac, f)
	second := c.Settle(rec, ac, f)
	if first != second {
		t.Errorf("settlement not deterministic:\n first = %+v\nsecond = %+v", first, second)
	}
}

func TestSettleAmounts(t *testing.T) {
	c := NewCalculator(DefaultCostModel())
	rec, ac, f := testRecord(), testAircraft(), testFactors()
	res := c.Settle(rec, ac, f)

	// 420 block minutes = 7 block hours.
	if want := math.Round(4800 * 7 * 1.10); res.FuelCost != want {
		t.Errorf("FuelCost = %f, want %f", res.FuelCost, want)
	}
	if want := math.Round(950.0 * 7); res.CrewCost != want {
		t.Errorf("CrewCost = %f, want %f", res.CrewCost, want)
	}
	if res.FeeCost != 600 {
		t.Errorf("FeeCost = %f, want 600", res.FeeCost)
	}
	if res.Profit != res.Revenue-res.Cost() {
		t.Errorf("Profit = %f, want Revenue - Cost = %f", res.Profit, res.Revenue-res.Cost())
	}
	if res.Passengers <= 0 || res.Passengers > ac.Seats {
		t.Errorf("Passengers = %d, want within (0, %d]", res.Passengers, ac.Seats)
	}
	if res.Revenue <= 0 {
		t.Errorf("Revenue = %f, want positive for a peak-hour transatlantic leg", res.Revenue)
	}
	if !res.SettledAt.Equal(rec.DetectedAt) {
		t.Errorf("SettledAt = %s, want detection time %s", res.SettledAt, rec.DetectedAt)
	}

	// Whole currency units only.
	for name, v := range map[string]float64{
		"Revenue": res.Revenue, "FuelCost": res.FuelCost,
		"CrewCost": res.CrewCost, "FeeCost": res.FeeCost, "Profit": res.Profit,
	} {
		if v != math.Trunc(v) {
			t.Errorf("%s = %f, not a whole amount", name, v)
		}
	}
}

func TestBlockHoursFallbacks(t *testing.T) {
	c := NewCalculator(DefaultCostModel())

	rec := testRecord()
	ac := testAircraft()

	if got := c.blockHours(rec, ac); got != 7 {
		t.Errorf("scheduled blockHours = %f, want 7", got)
	}

	rec.BlockMinutes = 0
	if got, want := c.blockHours(rec, ac), 2995.0/470.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("cruise blockHours = %f, want %f", got, want)
	}

	ac.CruiseKt = 0
	if got, want := c.blockHours(rec, ac), 2995.0/450.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("default-cruise blockHours = %f, want %f", got, want)
	}

	rec.DistanceNM = 0
	if got := c.blockHours(rec, ac); got != 0 {
		t.Errorf("no-distance blockHours = %f, want 0", got)
	}
}

func TestNewCalculatorSparseConfig(t *testing.T) {
	c := NewCalculator(CostModel{FuelPricePerKg: 2.0})
	def := DefaultCostModel()
	if c.costs.FuelPricePerKg != 2.0 {
		t.Errorf("explicit fuel price overwritten: %f", c.costs.FuelPricePerKg)
	}
	if c.costs.CrewCostPerBlockHour != def.CrewCostPerBlockHour {
		t.Errorf("crew cost = %f, want default %f", c.costs.CrewCostPerBlockHour, def.CrewCostPerBlockHour)
	}
	if c.costs.HandlingFeePerLeg != def.HandlingFeePerLeg {
		t.Errorf("handling fee = %f, want default %f", c.costs.HandlingFeePerLeg, def.HandlingFeePerLeg)
	}
}

func TestFareTiers(t *testing.T) {
	year := 2026

	// Flat rate within the first band.
	if got, want := Fare(400, year), (30+400*0.22)*0.90; math.Abs(got-want) > 1e-9 {
		t.Errorf("Fare(400) = %f, want %f", got, want)
	}

	// Marginal pricing: the per-mile average falls as distance grows.
	shortPerMile := Fare(400, year) / 400
	longPerMile := Fare(4000, year) / 4000
	if longPerMile >= shortPerMile {
		t.Errorf("per-mile fare did not fall with distance: %f vs %f", shortPerMile, longPerMile)
	}

	// Longer trips still cost more in absolute terms.
	if Fare(4000, year) <= Fare(400, year) {
		t.Error("absolute fare not increasing with distance")
	}

	if Fare(0, year) != 0 || Fare(-10, year) != 0 || Fare(math.NaN(), year) != 0 {
		t.Error("degenerate distance did not fare to zero")
	}
}

func TestFareEraIndexDecreasing(t *testing.T) {
	years := []int{1946, 1955, 1965, 1975, 1985, 1995, 2005, 2015}
	prev := Fare(1000, years[0])
	for _, y := range years[1:] {
		cur := Fare(1000, y)
		if cur >= prev {
			t.Errorf("Fare(1000, %d) = %f, not below earlier era %f", y, cur, prev)
		}
		prev = cur
	}
}
