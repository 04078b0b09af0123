package world

import "sort"

// Roster is a read-only aircraft lookup. It is supplied by the fleet
// management side and never mutated by the core.
type Roster struct {
	byID  map[string]Aircraft
	order []string
}

// NewRoster builds a roster from a list of aircraft. Later duplicates
// of the same ID win, matching save-file reload semantics.
func NewRoster(aircraft []Aircraft) *Roster {
	r := &Roster{byID: make(map[string]Aircraft, len(aircraft))}
	for _, a := range aircraft {
		if a.ID == "" {
			continue
		}
		if _, seen := r.byID[a.ID]; !seen {
			r.order = append(r.order, a.ID)
		}
		r.byID[a.ID] = a
	}
	return r
}

// Get returns the aircraft with the given ID.
func (r *Roster) Get(id string) (Aircraft, bool) {
	a, ok := r.byID[id]
	return a, ok
}

// IDs returns aircraft IDs in insertion order.
func (r *Roster) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of aircraft in the roster.
func (r *Roster) Len() int {
	return len(r.byID)
}

// Schedule is the ordered collection of scheduled legs per aircraft.
// Owned by the external scheduling UI; the core only reads it.
type Schedule struct {
	byAircraft map[string][]ScheduledLeg
}

// NewSchedule groups legs by aircraft and orders each group by
// departure minute. Legs missing an aircraft ID are dropped; they can
// never be projected.
func NewSchedule(legs []ScheduledLeg) *Schedule {
	s := &Schedule{byAircraft: make(map[string][]ScheduledLeg)}
	for _, l := range legs {
		if l.AircraftID == "" {
			continue
		}
		s.byAircraft[l.AircraftID] = append(s.byAircraft[l.AircraftID], l)
	}
	for id := range s.byAircraft {
		group := s.byAircraft[id]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].DepartMin < group[j].DepartMin
		})
	}
	return s
}

// LegsFor returns the legs assigned to an aircraft, ordered by
// departure minute. The returned slice must not be modified.
func (s *Schedule) LegsFor(aircraftID string) []ScheduledLeg {
	return s.byAircraft[aircraftID]
}
