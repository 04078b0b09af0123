// Package projector computes each aircraft's operational state from
// the current simulated time and its schedule. Output is a pure view:
// recomputed every tick, never the source of truth.
package projector

import (
	"time"

	"airline_sim/internal/world"
)

// Projection is the derived state of one aircraft at one instant.
type Projection struct {
	AircraftID string              `json:"aircraft_id"`
	State      world.AircraftState `json:"state"`

	// Leg is the active leg while airborne, the just-arrived leg
	// during turnaround, or the next upcoming leg while waiting.
	// Nil when the aircraft has no schedule.
	Leg *world.ScheduledLeg `json:"leg,omitempty"`

	// ServiceDate (YYYY-MM-DD of the departure day) and the leg's
	// concrete instants are set whenever Leg refers to an active or
	// just-arrived occurrence.
	ServiceDate string    `json:"service_date,omitempty"`
	DepartedAt  time.Time `json:"departed_at,omitzero"`
	ArrivedAt   time.Time `json:"arrived_at,omitzero"`

	// Fraction is elapsed block-time fraction in [0,1] when airborne.
	Fraction float64        `json:"fraction"`
	Position world.Position `json:"position"`
}

// Projector projects aircraft against a fixed airport map.
type Projector struct {
	airports map[string]world.Airport
}

// New builds a projector over the given airports.
func New(airports []world.Airport) *Projector {
	m := make(map[string]world.Airport, len(airports))
	for _, a := range airports {
		m[a.Ident] = a
	}
	return &Projector{airports: m}
}

// Project computes the aircraft's state at simulated time now.
//
// Selection order: the leg whose [departure, arrival] window contains
// the current minute (airborne), else the leg whose
// [arrival, arrival+turnaround] window contains it (just arrived),
// else the next upcoming leg (waiting). Overlapping legs are a
// schedule-authoring defect; the earliest-departing one wins
// deterministically and nothing is reported as an error.
func (p *Projector) Project(now time.Time, aircraftID string, legs []world.ScheduledLeg) Projection {
	proj := Projection{
		AircraftID: aircraftID,
		State:      world.StateGround,
	}
	if len(legs) == 0 {
		return proj
	}

	minute := world.MinuteOfDay(now)
	today := now.Weekday()
	yesterday := (today + 6) % 7

	// 1. Airborne: a leg window containing the current minute, either
	// departing today or wrapping over from yesterday.
	var active *world.ScheduledLeg
	var activeDay time.Time
	for i := range legs {
		l := &legs[i]
		if l.BlockMinutes() <= 0 {
			continue
		}
		if l.OperatesOn(today) && inFlightToday(l, minute) {
			if active == nil || l.DepartMin < active.DepartMin {
				active = l
				activeDay = now
			}
		}
		if l.Overnight() && l.OperatesOn(yesterday) && minute <= l.ArriveMin {
			if active == nil || l.DepartMin < active.DepartMin {
				active = l
				activeDay = now.AddDate(0, 0, -1)
			}
		}
	}
	if active != nil {
		dep, arr := legInstants(active, activeDay)
		elapsed := now.Sub(dep).Minutes()
		frac := elapsed / float64(active.BlockMinutes())
		proj.State = world.StateAirborne
		proj.Leg = active
		proj.ServiceDate = dep.Format("2006-01-02")
		proj.DepartedAt = dep
		proj.ArrivedAt = arr
		proj.Fraction = clamp01(frac)
		proj.Position = p.interpolate(active, proj.Fraction)
		return proj
	}

	// 2. Just arrived: inside the turnaround window after arrival.
	var arrived *world.ScheduledLeg
	var arrivedDay time.Time
	for i := range legs {
		l := &legs[i]
		turn := l.TurnaroundMin
		if turn <= 0 {
			continue
		}
		if l.OperatesOn(landingDay(l, today)) && minute >= l.ArriveMin && minute <= l.ArriveMin+turn {
			if arrived == nil || l.DepartMin < arrived.DepartMin {
				arrived = l
				arrivedDay = now
				if l.Overnight() {
					arrivedDay = now.AddDate(0, 0, -1)
				}
			}
		}
	}
	if arrived != nil {
		dep, arr := legInstants(arrived, arrivedDay)
		proj.Leg = arrived
		proj.ServiceDate = dep.Format("2006-01-02")
		proj.DepartedAt = dep
		proj.ArrivedAt = arr
		proj.Fraction = 1
		proj.Position = p.airportPosition(arrived.Destination)
		return proj
	}

	// 3. Waiting: the next leg departing today, else the earliest
	// departure on the nearest upcoming day the schedule operates.
	var next *world.ScheduledLeg
	for i := range legs {
		l := &legs[i]
		if l.OperatesOn(today) && l.DepartMin > minute {
			if next == nil || l.DepartMin < next.DepartMin {
				next = l
			}
		}
	}
	for offset := 1; offset < 8 && next == nil; offset++ {
		day := (today + time.Weekday(offset)) % 7
		for i := range legs {
			l := &legs[i]
			if !l.OperatesOn(day) {
				continue
			}
			if next == nil || l.DepartMin < next.DepartMin {
				next = l
			}
		}
	}
	proj.Leg = next
	if next != nil {
		proj.Position = p.airportPosition(next.Origin)
	}
	return proj
}

// inFlightToday reports whether a leg departing today spans the minute.
func inFlightToday(l *world.ScheduledLeg, minute int) bool {
	if l.Overnight() {
		return minute >= l.DepartMin
	}
	return minute >= l.DepartMin && minute <= l.ArriveMin
}

// landingDay maps the current weekday back to the leg's departure day.
func landingDay(l *world.ScheduledLeg, today time.Weekday) time.Weekday {
	if l.Overnight() {
		return (today + 6) % 7
	}
	return today
}

// legInstants materialises the leg's schedule minutes on a concrete day.
func legInstants(l *world.ScheduledLeg, departureDay time.Time) (dep, arr time.Time) {
	y, m, d := departureDay.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, departureDay.Location())
	dep = midnight.Add(time.Duration(l.DepartMin) * time.Minute)
	arr = dep.Add(time.Duration(l.BlockMinutes()) * time.Minute)
	return dep, arr
}

func (p *Projector) interpolate(l *world.ScheduledLeg, frac float64) world.Position {
	from, okFrom := p.airports[l.Origin]
	to, okTo := p.airports[l.Destination]
	if !okFrom || !okTo {
		// Missing coordinates are a data-quality problem; state and
		// completion detection do not depend on position.
		if okFrom {
			return world.Position{Lat: from.Lat, Lon: from.Lon}
		}
		if okTo {
			return world.Position{Lat: to.Lat, Lon: to.Lon}
		}
		return world.Position{}
	}
	return world.Lerp(
		world.Position{Lat: from.Lat, Lon: from.Lon},
		world.Position{Lat: to.Lat, Lon: to.Lon},
		frac,
	)
}

func (p *Projector) airportPosition(ident string) world.Position {
	if a, ok := p.airports[ident]; ok {
		return world.Position{Lat: a.Lat, Lon: a.Lon}
	}
	return world.Position{}
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
