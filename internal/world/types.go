package world

import "time"

// AircraftState is the projected operational state of an aircraft.
type AircraftState string

const (
	StateGround   AircraftState = "GROUND"
	StateAirborne AircraftState = "AIRBORNE"
)

// CompletedLegRecord is produced exactly once per physical leg
// execution. LegKey is the dedup key: the set of keys ever emitted is
// append-only, so reprocessing a finished leg never re-emits.
type CompletedLegRecord struct {
	LegKey       string    `json:"leg_key"`
	AircraftID   string    `json:"aircraft_id"`
	Origin       string    `json:"origin"`
	Destination  string    `json:"destination"`
	ScheduleID   string    `json:"schedule_id"`
	ServiceDate  string    `json:"service_date"` // YYYY-MM-DD of the departure day
	DistanceNM   float64   `json:"distance_nm"`
	BlockMinutes int       `json:"block_minutes"`
	DepartedAt   time.Time `json:"departed_at"`
	ArrivedAt    time.Time `json:"arrived_at"`
	DetectedAt   time.Time `json:"detected_at"`
}

// FinancialResult is the settled economics of one completed leg.
// Immutable once created; posted into the finance ledger exactly once.
type FinancialResult struct {
	LegKey     string    `json:"leg_key"`
	AircraftID string    `json:"aircraft_id"`
	Passengers int       `json:"passengers"`
	Revenue    float64   `json:"revenue"`
	FuelCost   float64   `json:"fuel_cost"`
	CrewCost   float64   `json:"crew_cost"`
	FeeCost    float64   `json:"fee_cost"`
	Profit     float64   `json:"profit"`
	SettledAt  time.Time `json:"settled_at"`
}

// Cost returns the total operating cost of the leg.
func (r FinancialResult) Cost() float64 {
	return r.FuelCost + r.CrewCost + r.FeeCost
}
