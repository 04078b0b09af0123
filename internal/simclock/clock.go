// Package simclock derives the simulation's virtual timestamp from
// elapsed real time since a persisted anchor. The anchor pattern means
// a process restart resumes virtual time exactly where the elapsed real
// time says it should be, and pausing freezes it without drift.
//
// Core logic never calls time.Now() directly: a TimeSource is injected
// so tests can drive the clock deterministically.
package simclock

import (
	"context"
	"log"
	"sync"
	"time"

	"airline_sim/internal/store"
)

// TimeSource supplies real wall-clock time.
type TimeSource interface {
	Now() time.Time
}

// SystemTime is the production TimeSource.
type SystemTime struct{}

// Now returns the current system time.
func (SystemTime) Now() time.Time { return time.Now() }

// FuncTime adapts a function into a TimeSource for tests.
type FuncTime func() time.Time

// Now calls the wrapped function.
func (f FuncTime) Now() time.Time { return f() }

// stateKey is the clock's slot in its store namespace.
const stateKey = "state"

// persistedState is the serialized clock state. AnchorReal/AnchorSim
// are only meaningful while Running is true.
type persistedState struct {
	SimTime    time.Time `json:"sim_time"`
	Running    bool      `json:"running"`
	AnchorReal time.Time `json:"anchor_real,omitempty"`
	AnchorSim  time.Time `json:"anchor_sim,omitempty"`
	Scale      float64   `json:"scale"`
}

// Clock is the simulation clock. While running,
//
//	simNow = anchorSim + (realNow - anchorReal) * scale
//
// while paused, simNow is the last frozen value and the anchor is
// cleared. Mutated only here; every other component reads pushed
// timestamps from the heartbeat.
type Clock struct {
	mu sync.Mutex

	ts    TimeSource
	st    *store.Store
	scale float64 // simulated seconds per real second

	running    bool
	frozen     time.Time // last computed sim time; authoritative while paused
	anchorReal time.Time
	anchorSim  time.Time

	subs []func(time.Time)
}

// New creates a clock anchored at epoch, paused. scale is simulated
// seconds per real second (60 means one real second advances the
// simulation by one minute); values <= 0 fall back to 1.
func New(ts TimeSource, st *store.Store, epoch time.Time, scale float64) *Clock {
	if scale <= 0 {
		scale = 1
	}
	return &Clock{ts: ts, st: st, scale: scale, frozen: epoch}
}

// Load restores persisted clock state. A missing record keeps the
// configured epoch. A record claiming to run without a usable anchor is
// treated as corrupt: the clock falls back to the last frozen simulated
// time and stays paused rather than silently jumping time forward.
func (c *Clock) Load() error {
	var ps persistedState
	ok, err := c.st.Get(store.NSClock, stateKey, &ps)
	if err != nil {
		log.Printf("simclock: persisted state unreadable, staying paused: %v", err)
		return nil
	}
	if !ok {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !ps.SimTime.IsZero() {
		c.frozen = ps.SimTime
	}
	if ps.Scale > 0 {
		c.scale = ps.Scale
	}
	if ps.Running {
		if ps.AnchorReal.IsZero() || ps.AnchorSim.IsZero() {
			log.Printf("simclock: anchor missing in persisted state, staying paused at %s", c.frozen)
			return nil
		}
		c.anchorReal = ps.AnchorReal
		c.anchorSim = ps.AnchorSim
		c.running = true
	}
	return nil
}

// Now returns the current simulated timestamp.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nowLocked()
}

func (c *Clock) nowLocked() time.Time {
	if !c.running {
		return c.frozen
	}
	elapsed := c.ts.Now().Sub(c.anchorReal)
	return c.anchorSim.Add(time.Duration(float64(elapsed) * c.scale))
}

// Running reports whether virtual time is advancing.
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Start resumes virtual time. The new anchor is computed so Now()
// continues seamlessly from the last frozen value. Starting a running
// clock is a no-op.
func (c *Clock) Start() {
	c.mu.Lock()
	if !c.running {
		c.anchorReal = c.ts.Now()
		c.anchorSim = c.frozen
		c.running = true
	}
	c.mu.Unlock()
	c.persist()
}

// Pause freezes Now() at its current value and clears the anchor.
func (c *Clock) Pause() {
	c.mu.Lock()
	if c.running {
		c.frozen = c.nowLocked()
		c.running = false
		c.anchorReal = time.Time{}
		c.anchorSim = time.Time{}
	}
	c.mu.Unlock()
	c.persist()
}

// Reset moves virtual time to the given instant, preserving the
// running flag.
func (c *Clock) Reset(to time.Time) {
	c.mu.Lock()
	c.frozen = to
	if c.running {
		c.anchorReal = c.ts.Now()
		c.anchorSim = to
	}
	c.mu.Unlock()
	c.persist()
}

// Subscribe registers a heartbeat callback. Subscribers run
// synchronously in registration order on each tick; the pipeline relies
// on that ordering.
func (c *Clock) Subscribe(fn func(time.Time)) {
	c.mu.Lock()
	c.subs = append(c.subs, fn)
	c.mu.Unlock()
}

// Tick recomputes the current simulated time, persists it and pushes
// it to every subscriber. The heartbeat calls this once per interval;
// tests call it directly.
func (c *Clock) Tick() time.Time {
	c.mu.Lock()
	now := c.nowLocked()
	if c.running {
		c.frozen = now
	}
	subs := c.subs
	c.mu.Unlock()

	c.persist()
	for _, fn := range subs {
		fn(now)
	}
	return now
}

// RunHeartbeat drives Tick at the given real-time interval until the
// context is cancelled. This is the single heartbeat of the whole
// system; nothing else polls.
func (c *Clock) RunHeartbeat(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Tick()
		}
	}
}

func (c *Clock) persist() {
	c.mu.Lock()
	ps := persistedState{
		SimTime:    c.frozen,
		Running:    c.running,
		AnchorReal: c.anchorReal,
		AnchorSim:  c.anchorSim,
		Scale:      c.scale,
	}
	c.mu.Unlock()

	if err := c.st.Set(store.NSClock, stateKey, ps); err != nil {
		// Degrade, never crash the surrounding session.
		log.Printf("simclock: persist failed: %v", err)
	}
}
