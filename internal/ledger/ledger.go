// Package ledger accumulates per-leg financial results into running
// totals, rolls them into weekly and monthly closed periods and answers
// capital and revenue queries. Period rollover is driven entirely by
// the timestamps of postings: when the first posting of a new period
// arrives, the old accumulator is archived and a fresh one starts, in
// that order, atomically with the posting. No timer is involved, so a
// boundary can never be lost between ticks.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"airline_sim/internal/store"
	"airline_sim/internal/world"
)

// Cost categories tracked in the breakdown.
const (
	CostFuel  = "fuel"
	CostCrew  = "crew"
	CostFees  = "fees"
	CostOther = "other"
)

// stateKey is the ledger's slot in its store namespace.
const stateKey = "state"

// Period is one open accumulation interval (week or month).
type Period struct {
	Key      string             `json:"key"`
	Revenue  float64            `json:"revenue"`
	Expenses float64            `json:"expenses"`
	Profit   float64            `json:"profit"`
	Costs    map[string]float64 `json:"costs"`
}

func newPeriod(key string) Period {
	return Period{Key: key, Costs: make(map[string]float64)}
}

func (p Period) clone() Period {
	out := p
	out.Costs = make(map[string]float64, len(p.Costs))
	for k, v := range p.Costs {
		out.Costs[k] = v
	}
	return out
}

// ClosedMonth is a frozen month snapshot kept forever in history.
type ClosedMonth struct {
	Period
	ClosedAt time.Time `json:"closed_at"`
}

// ledgerState is everything the ledger persists, as one record.
type ledgerState struct {
	Capital  float64       `json:"capital"`
	Month    Period        `json:"month"`
	Week     Period        `json:"week"`
	PrevWeek Period        `json:"prev_week"`
	History  []ClosedMonth `json:"history"`
}

// Ledger is the finance ledger. The tick handler and the HTTP posting
// endpoints both write; postings serialize on the mutex.
type Ledger struct {
	mu sync.Mutex
	st *store.Store

	state ledgerState

	onUpdate []func()
}

// New creates a ledger with the given opening capital. Call Load to
// restore a previous session before posting.
func New(st *store.Store, openingCapital float64) *Ledger {
	return &Ledger{
		st: st,
		state: ledgerState{
			Capital: openingCapital,
			Month:   newPeriod(""),
			Week:    newPeriod(""),
		},
	}
}

// Load restores persisted ledger state if present.
func (l *Ledger) Load() error {
	var ps ledgerState
	ok, err := l.st.Get(store.NSLedger, stateKey, &ps)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	if !ok {
		return nil
	}
	if ps.Month.Costs == nil {
		ps.Month.Costs = make(map[string]float64)
	}
	if ps.Week.Costs == nil {
		ps.Week.Costs = make(map[string]float64)
	}
	l.mu.Lock()
	l.state = ps
	l.mu.Unlock()
	return nil
}

// OnUpdate registers a callback fired after every successful posting,
// so dependent collaborators can refresh without polling.
func (l *Ledger) OnUpdate(fn func()) {
	l.onUpdate = append(l.onUpdate, fn)
}

// MonthKey is the calendar month period key for t, e.g. "1967-03".
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// WeekKey is the ISO week period key for t, e.g. "1967-W12".
func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// Post applies one financial result to the ledger. The period keys are
// resolved from the result's settlement timestamp; if either differs
// from the open period, the open accumulator is archived first and only
// then is the posting applied, so activity never bleeds into a closed
// snapshot. Returns an error, without mutating anything, when the
// store cannot persist the new state.
func (l *Ledger) Post(result world.FinancialResult) error {
	return l.apply(result.SettledAt, func(next *ledgerState) {
		cost := result.Cost()
		for _, p := range []*Period{&next.Month, &next.Week} {
			p.Revenue += result.Revenue
			p.Expenses += cost
			p.Profit += result.Profit
			p.Costs[CostFuel] += result.FuelCost
			p.Costs[CostCrew] += result.CrewCost
			p.Costs[CostFees] += result.FeeCost
		}
		next.Capital += result.Profit
	})
}

// PostExpense applies an external expense (leasing, staff, one-off
// charges) at the given simulated time.
func (l *Ledger) PostExpense(at time.Time, category string, amount float64) error {
	if category == "" {
		category = CostOther
	}
	return l.apply(at, func(next *ledgerState) {
		for _, p := range []*Period{&next.Month, &next.Week} {
			p.Expenses += amount
			p.Profit -= amount
			p.Costs[category] += amount
		}
		next.Capital -= amount
	})
}

// PostIncome applies external income (subsidies, asset sales) at the
// given simulated time.
func (l *Ledger) PostIncome(at time.Time, amount float64) error {
	return l.apply(at, func(next *ledgerState) {
		for _, p := range []*Period{&next.Month, &next.Week} {
			p.Revenue += amount
			p.Profit += amount
		}
		next.Capital += amount
	})
}

// apply rolls periods for the posting time, runs the mutation against
// a scratch copy, persists it and only then commits it. The lock is
// held across the whole sequence: external expense/income postings
// arrive on HTTP goroutines concurrently with the tick handler's Post,
// and interleaved clone/commit pairs would drop the earlier delta.
// Callbacks run after the lock is released.
func (l *Ledger) apply(at time.Time, mutate func(*ledgerState)) error {
	l.mu.Lock()

	next := l.cloneStateLocked()
	rollPeriods(&next, at)
	mutate(&next)

	if err := l.st.Set(store.NSLedger, stateKey, next); err != nil {
		l.mu.Unlock()
		// Refuse the posting; the caller decides whether to drop it.
		return fmt.Errorf("post: %w", err)
	}

	l.state = next
	subs := l.onUpdate
	l.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
	return nil
}

// rollPeriods archives and resets any open period whose key no longer
// matches the posting time. Archive before reset, reset before apply.
func rollPeriods(s *ledgerState, at time.Time) {
	mk := MonthKey(at)
	if s.Month.Key == "" {
		s.Month = newPeriod(mk)
	} else if s.Month.Key != mk {
		s.History = append(s.History, ClosedMonth{Period: s.Month.clone(), ClosedAt: at})
		s.Month = newPeriod(mk)
	}

	wk := WeekKey(at)
	if s.Week.Key == "" {
		s.Week = newPeriod(wk)
	} else if s.Week.Key != wk {
		// Weeks keep only the last closed value, not full history.
		s.PrevWeek = s.Week.clone()
		s.Week = newPeriod(wk)
	}
}

func (l *Ledger) cloneStateLocked() ledgerState {
	next := l.state
	next.Month = l.state.Month.clone()
	next.Week = l.state.Week.clone()
	next.PrevWeek = l.state.PrevWeek.clone()
	next.History = make([]ClosedMonth, len(l.state.History))
	copy(next.History, l.state.History)
	return next
}

// Capital returns the running balance.
func (l *Ledger) Capital() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Capital
}

// CurrentMonth returns a copy of the open month accumulator.
func (l *Ledger) CurrentMonth() Period {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Month.clone()
}

// CurrentWeek returns a copy of the open week accumulator.
func (l *Ledger) CurrentWeek() Period {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Week.clone()
}

// PreviousWeek returns the last closed week.
func (l *Ledger) PreviousWeek() Period {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.PrevWeek.clone()
}

// CostBreakdown returns a copy of the open month's cost categories.
func (l *Ledger) CostBreakdown() map[string]float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]float64, len(l.state.Month.Costs))
	for k, v := range l.state.Month.Costs {
		out[k] = v
	}
	return out
}

// ClosedMonths returns the archived month history, oldest first.
func (l *Ledger) ClosedMonths() []ClosedMonth {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ClosedMonth, len(l.state.History))
	copy(out, l.state.History)
	return out
}
