// Package demand estimates passengers for one flight leg. Everything
// here is a pure function of its inputs so the settlement pipeline is
// deterministic and the model trivially testable.
//
// The model runs in three stages: a daily base from distance decay,
// era and market reach; an hourly slice via a fixed diurnal curve; and
// a market-share adjustment clamped to [0.05, 1.0]. Bad input degrades
// to zero demand, never to an error or NaN.
package demand

import (
	"math"

	"airline_sim/internal/world"
)

// GlobalCap bounds the model's output regardless of seat counts.
const GlobalCap = 850

// MarketFactors describe the competitive position of the operator on
// a route. Zero values are neutralised by sanitisation.
type MarketFactors struct {
	// PriceRatio is our fare divided by the prevailing market fare;
	// 1.0 is neutral, above 1 depresses share.
	PriceRatio float64 `json:"price_ratio" yaml:"price_ratio"`
	Comfort    float64 `json:"comfort" yaml:"comfort"`       // 0..1
	Marketing  float64 `json:"marketing" yaml:"marketing"`   // 0..1
	Reputation float64 `json:"reputation" yaml:"reputation"` // 0..1
	// Competitors is the effective number of carriers splitting the
	// route's demand, ourselves included.
	Competitors int  `json:"competitors" yaml:"competitors"`
	SameRegion  bool `json:"same_region" yaml:"same_region"`
}

// diurnalShares distributes a day's demand over the 14 operating hours
// 06:00..19:00. The buckets sum to 1.0 and peak at the morning and
// evening travel waves; overnight hours carry no demand.
var diurnalShares = [14]float64{
	0.06, 0.09, 0.10, 0.08, 0.06, 0.05, 0.05,
	0.06, 0.06, 0.07, 0.09, 0.10, 0.08, 0.05,
}

const (
	firstOperatingHour = 6
	lastOperatingHour  = 19
)

// Passengers returns the passenger count for a leg of the given
// distance flown in simYear at hourOfDay, bounded by seats and
// GlobalCap. Degenerate input (zero distance, zero seats, off-hours,
// non-finite numbers) yields 0.
func Passengers(distanceNM float64, simYear, hourOfDay int, f MarketFactors, seats int) int {
	distanceNM = world.Finite(distanceNM, 0)
	if distanceNM <= 0 || seats <= 0 {
		return 0
	}

	daily := dailyBase(distanceNM, simYear, f.SameRegion)
	hourly := daily * HourShare(hourOfDay)
	pax := hourly * Share(f)

	if math.IsNaN(pax) || pax <= 0 {
		return 0
	}
	n := int(math.Floor(pax))
	if n > seats {
		n = seats
	}
	if n > GlobalCap {
		n = GlobalCap
	}
	return n
}

// dailyBase is the route's total daily demand before hourly slicing.
func dailyBase(distanceNM float64, simYear int, sameRegion bool) float64 {
	// Longer routes see fewer daily travellers; the floor keeps very
	// long hauls from decaying to nothing.
	decay := 2600*math.Exp(-distanceNM/2200) + 40

	reach := 0.9
	if sameRegion {
		reach = 1.25
	}

	return decay * EraMultiplier(simYear) * reach
}

// EraMultiplier scales demand by the propensity to fly in a given
// year. The bands are strictly increasing from the piston era to the
// present day.
func EraMultiplier(year int) float64 {
	switch {
	case year < 1945:
		return 0.12
	case year < 1950:
		return 0.18
	case year < 1960:
		return 0.28
	case year < 1970:
		return 0.42
	case year < 1980:
		return 0.55
	case year < 1990:
		return 0.68
	case year < 2000:
		return 0.80
	case year < 2010:
		return 0.90
	case year < 2020:
		return 1.00
	default:
		return 1.08
	}
}

// HourShare returns the diurnal fraction of daily demand departing in
// the given hour. Hours outside the operating window return 0.
func HourShare(hour int) float64 {
	if hour < firstOperatingHour || hour > lastOperatingHour {
		return 0
	}
	return diurnalShares[hour-firstOperatingHour]
}

// Share computes the operator's share of available demand from price
// competitiveness, comfort, marketing and reputation, divided across
// competitors and clamped to [0.05, 1.0].
func Share(f MarketFactors) float64 {
	ratio := world.Finite(f.PriceRatio, 1)
	if ratio <= 0 {
		ratio = 1
	}
	// Cheaper than market lifts share, pricier depresses it.
	priceComp := math.Exp(-2 * (ratio - 1))
	if priceComp > 1.5 {
		priceComp = 1.5
	}
	if priceComp < 0.2 {
		priceComp = 0.2
	}

	comfort := clamp01(world.Finite(f.Comfort, 0.5))
	marketing := clamp01(world.Finite(f.Marketing, 0.5))
	reputation := clamp01(world.Finite(f.Reputation, 0.5))

	appeal := (priceComp + comfort + marketing + reputation) / 4

	competitors := f.Competitors
	if competitors < 1 {
		competitors = 1
	}

	share := appeal / float64(competitors)
	if share < 0.05 {
		share = 0.05
	}
	if share > 1 {
		share = 1
	}
	return share
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
