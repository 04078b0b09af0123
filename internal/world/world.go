// Package world holds the shared data model for the simulation core:
// airports, the fleet roster and the flight schedule, together with the
// small geometry and calendar helpers everything else is built on.
package world

import (
	"math"
	"time"
)

// MinutesPerDay is the length of one simulated day in schedule minutes.
const MinutesPerDay = 24 * 60

// Position is a geographic coordinate in decimal degrees.
type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Airport describes one airport in the route network.
type Airport struct {
	Ident      string  `json:"ident" yaml:"ident"` // ICAO ident, e.g. "KJFK"
	Name       string  `json:"name" yaml:"name"`
	Lat        float64 `json:"lat" yaml:"lat"`
	Lon        float64 `json:"lon" yaml:"lon"`
	Region     string  `json:"region" yaml:"region"` // coarse market region, e.g. "NA", "EU"
	LandingFee float64 `json:"landing_fee" yaml:"landing_fee"`
}

// Aircraft is one roster entry: the operational numbers the economics
// and projection layers need. The roster is owned externally and
// read-only here.
type Aircraft struct {
	ID         string  `json:"id" yaml:"id"` // registration, e.g. "N801AW"
	TypeName   string  `json:"type" yaml:"type"`
	Seats      int     `json:"seats" yaml:"seats"`
	CruiseKt   float64 `json:"cruise_kt" yaml:"cruise_kt"`
	FuelBurnKg float64 `json:"fuel_burn_kg" yaml:"fuel_burn_kg"` // kg per block hour
	Comfort    float64 `json:"comfort" yaml:"comfort"`           // 0..1, cabin quality factor
}

// ScheduledLeg is one scheduled flight occurrence. Legs are authored by
// the external scheduling UI and immutable here. ID must be stable and
// unique per scheduled occurrence; it seeds the completion key.
type ScheduledLeg struct {
	ID            string  `json:"id" yaml:"id"`
	AircraftID    string  `json:"aircraft_id" yaml:"aircraft_id"`
	Origin        string  `json:"origin" yaml:"origin"`
	Destination   string  `json:"destination" yaml:"destination"`
	DepartMin     int     `json:"depart_min" yaml:"depart_min"` // minute of day, 0..1439
	ArriveMin     int     `json:"arrive_min" yaml:"arrive_min"` // minute of day; < DepartMin means overnight
	TurnaroundMin int     `json:"turnaround_min" yaml:"turnaround_min"`
	DistanceNM    float64 `json:"distance_nm" yaml:"distance_nm"`
	Days          [7]bool `json:"days" yaml:"days"` // index 0 = Sunday, matching time.Weekday
}

// Overnight reports whether the leg arrives on the day after it departs.
func (l ScheduledLeg) Overnight() bool {
	return l.ArriveMin < l.DepartMin
}

// BlockMinutes is the scheduled departure-to-arrival time.
func (l ScheduledLeg) BlockMinutes() int {
	if l.Overnight() {
		return l.ArriveMin + MinutesPerDay - l.DepartMin
	}
	return l.ArriveMin - l.DepartMin
}

// OperatesOn reports whether the leg departs on the given weekday.
func (l ScheduledLeg) OperatesOn(day time.Weekday) bool {
	return l.Days[int(day)]
}

// Daily marks a leg as operating every day of the week.
func Daily() [7]bool {
	return [7]bool{true, true, true, true, true, true, true}
}

// MinuteOfDay returns the minute within the simulated day for t.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// HaversineNM returns the great-circle distance between two coordinates
// in nautical miles.
func HaversineNM(a, b Position) float64 {
	const earthRadiusNM = 3440.065
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusNM * c
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// Lerp interpolates linearly between two positions by fraction f in
// [0,1]. Good enough for a map view; this is not a great-circle track.
func Lerp(a, b Position, f float64) Position {
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	return Position{
		Lat: a.Lat + (b.Lat-a.Lat)*f,
		Lon: a.Lon + (b.Lon-a.Lon)*f,
	}
}

// Finite returns v if it is a usable finite number, otherwise fallback.
// Demand and economics inputs pass through this so malformed schedule
// data degrades instead of propagating NaN.
func Finite(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}
