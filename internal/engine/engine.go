// Package engine runs the settlement pipeline. It subscribes to the
// simulation clock's heartbeat and, within each tick, executes the
// stages strictly in order: project every aircraft, diff projections
// for completions, settle each completion and post it to the ledger.
// All of a tick's work finishes before the next heartbeat fires; there
// is exactly one writer per shared structure and no locking beyond the
// snapshot map handed to the API.
package engine

import (
	"log"
	"sync"
	"time"

	"airline_sim/internal/completion"
	"airline_sim/internal/demand"
	"airline_sim/internal/econ"
	"airline_sim/internal/events"
	"airline_sim/internal/ledger"
	"airline_sim/internal/projector"
	"airline_sim/internal/simclock"
	"airline_sim/internal/world"
)

// Engine wires the pipeline stages together.
type Engine struct {
	clock    *simclock.Clock
	roster   *world.Roster
	schedule *world.Schedule
	proj     *projector.Projector
	obs      *completion.Observer
	calc     *econ.Calculator
	led      *ledger.Ledger
	pub      *events.Publisher
	market   demand.MarketFactors

	mu          sync.RWMutex
	lastTick    time.Time
	projections map[string]projector.Projection
}

// New builds an engine over already-constructed components and
// subscribes it to the clock heartbeat.
func New(
	clock *simclock.Clock,
	roster *world.Roster,
	schedule *world.Schedule,
	proj *projector.Projector,
	obs *completion.Observer,
	calc *econ.Calculator,
	led *ledger.Ledger,
	pub *events.Publisher,
	market demand.MarketFactors,
) *Engine {
	e := &Engine{
		clock:       clock,
		roster:      roster,
		schedule:    schedule,
		proj:        proj,
		obs:         obs,
		calc:        calc,
		led:         led,
		pub:         pub,
		market:      market,
		projections: make(map[string]projector.Projection),
	}
	led.OnUpdate(pub.PublishLedgerUpdated)
	clock.Subscribe(e.HandleTick)
	return e
}

// HandleTick processes one heartbeat at simulated time now. Exported
// so tests can drive ticks without a real-time heartbeat.
func (e *Engine) HandleTick(now time.Time) {
	snapshot := make(map[string]projector.Projection, e.roster.Len())

	for _, id := range e.roster.IDs() {
		legs := e.schedule.LegsFor(id)
		proj := e.proj.Project(now, id, legs)
		snapshot[id] = proj

		rec, err := e.obs.Observe(now, proj)
		if err != nil {
			// Store trouble: the leg stays unrecognised this tick and
			// is retried when the same GROUND state is sampled again.
			log.Printf("engine: observe %s: %v", id, err)
			continue
		}
		if rec == nil {
			continue
		}

		e.pub.PublishCompletion(*rec)

		ac, ok := e.roster.Get(id)
		if !ok {
			// Completion without roster data cannot be settled.
			log.Printf("engine: no roster entry for %s, leg %s not settled", id, rec.LegKey)
			continue
		}

		res := e.calc.Settle(*rec, ac, e.market)
		e.pub.PublishEconomics(res)

		if err := e.led.Post(res); err != nil {
			// The result is not durably queued; settlement for this
			// leg is lost, which the economics layer's determinism
			// makes an under-count, never a double-count.
			log.Printf("engine: post %s: %v", rec.LegKey, err)
		}
	}

	e.mu.Lock()
	e.lastTick = now
	e.projections = snapshot
	e.mu.Unlock()
}

// Projections returns the last tick's projection per aircraft.
func (e *Engine) Projections() map[string]projector.Projection {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]projector.Projection, len(e.projections))
	for k, v := range e.projections {
		out[k] = v
	}
	return out
}

// LastTick returns the simulated time of the most recent tick.
func (e *Engine) LastTick() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastTick
}
