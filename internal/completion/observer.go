// Package completion watches projected aircraft state across ticks and
// emits exactly one record per physically flown leg. The in-memory
// airborne cache bridges coarse ticks (a leg can be sampled airborne on
// one tick and grounded on the next); the persisted ledger keyed by leg
// key makes the at-most-once guarantee survive restarts.
package completion

import (
	"strings"
	"sync"
	"time"

	"airline_sim/internal/projector"
	"airline_sim/internal/store"
	"airline_sim/internal/world"
)

// LegKey builds the deterministic dedup key for one scheduled leg
// occurrence. The schedule ID plus service date pins the occurrence;
// the rest makes collisions across edited schedules harmless.
func LegKey(aircraftID, origin, destination, scheduleID, serviceDate string) string {
	return strings.Join([]string{aircraftID, origin, destination, scheduleID, serviceDate}, "|")
}

// Observer diffs each tick's projection against the last known airborne
// leg per aircraft and emits completion records.
type Observer struct {
	mu sync.Mutex

	st *store.Store

	// airborne caches the last airborne projection per aircraft. If
	// the process restarts mid-flight this cache starts empty and the
	// in-progress leg is never recognised: an accepted loss window,
	// favouring under-counting over double-posting revenue.
	airborne map[string]projector.Projection

	// seen mirrors the persisted ledger keys for O(1) membership.
	seen map[string]struct{}

	onCompletion []func(world.CompletedLegRecord)
}

// NewObserver creates an observer seeded with every leg key already in
// the persisted completion ledger.
func NewObserver(st *store.Store) (*Observer, error) {
	seen, err := st.CompletedLegKeys()
	if err != nil {
		return nil, err
	}
	return &Observer{
		st:       st,
		airborne: make(map[string]projector.Projection),
		seen:     seen,
	}, nil
}

// OnCompletion registers a callback fired once per new completion,
// after the record is persisted.
func (o *Observer) OnCompletion(fn func(world.CompletedLegRecord)) {
	o.onCompletion = append(o.onCompletion, fn)
}

// Observe processes one aircraft's projection for the tick sampled at
// simulated time now. It returns a record only the first time a flown
// leg is seen grounded.
func (o *Observer) Observe(now time.Time, proj projector.Projection) (*world.CompletedLegRecord, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if proj.State == world.StateAirborne {
		if proj.Leg != nil {
			o.airborne[proj.AircraftID] = proj
		}
		return nil, nil
	}

	cached, ok := o.airborne[proj.AircraftID]
	if !ok {
		return nil, nil
	}

	leg := cached.Leg
	if leg == nil || leg.Origin == leg.Destination {
		delete(o.airborne, proj.AircraftID)
		return nil, nil
	}

	key := LegKey(proj.AircraftID, leg.Origin, leg.Destination, leg.ID, cached.ServiceDate)
	if _, dup := o.seen[key]; dup {
		delete(o.airborne, proj.AircraftID)
		return nil, nil
	}

	rec := world.CompletedLegRecord{
		LegKey:       key,
		AircraftID:   proj.AircraftID,
		Origin:       leg.Origin,
		Destination:  leg.Destination,
		ScheduleID:   leg.ID,
		ServiceDate:  cached.ServiceDate,
		DistanceNM:   leg.DistanceNM,
		BlockMinutes: leg.BlockMinutes(),
		DepartedAt:   cached.DepartedAt,
		ArrivedAt:    cached.ArrivedAt,
		DetectedAt:   now,
	}

	inserted, err := o.st.InsertCompletedLeg(rec)
	if err != nil {
		// Keep the cached leg and leave the key unseen: the next
		// GROUND sample retries the insert once the store is back.
		return nil, err
	}
	delete(o.airborne, proj.AircraftID)
	o.seen[key] = struct{}{}
	if !inserted {
		// Another session already recorded this occurrence.
		return nil, nil
	}

	for _, fn := range o.onCompletion {
		fn(rec)
	}
	return &rec, nil
}

// PendingAirborne returns how many aircraft are currently cached as
// airborne. Exposed for status reporting.
func (o *Observer) PendingAirborne() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.airborne)
}
