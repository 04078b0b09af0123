package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"airline_sim/internal/completion"
	"airline_sim/internal/demand"
	"airline_sim/internal/econ"
	"airline_sim/internal/engine"
	"airline_sim/internal/events"
	"airline_sim/internal/ledger"
	"airline_sim/internal/projector"
	"airline_sim/internal/simclock"
	"airline_sim/internal/store"
	"airline_sim/internal/world"
)

func newTestServer(t *testing.T) (*Server, *store.Store, *ledger.Ledger) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "sim.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	epoch := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	clock := simclock.New(simclock.SystemTime{}, st, epoch, 60)

	roster := world.NewRoster([]world.Aircraft{{ID: "N801AW", Seats: 280}})
	schedule := world.NewSchedule(nil)
	obs, err := completion.NewObserver(st)
	if err != nil {
		t.Fatalf("new observer: %v", err)
	}
	led := ledger.New(st, 250000)
	eng := engine.New(clock, roster, schedule, projector.New(nil), obs,
		econ.NewCalculator(econ.DefaultCostModel()), led, events.NewPublisher(),
		demand.MarketFactors{PriceRatio: 1, Competitors: 1})

	return New(clock, eng, st, led, nil, 0), st, led
}

func getJSON(t *testing.T, h http.Handler, path string, dest any) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code == http.StatusOK {
		if err := json.Unmarshal(rr.Body.Bytes(), dest); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return rr.Code
}

func TestHealthAndClockEndpoints(t *testing.T) {
	s, _, _ := newTestServer(t)
	r := s.Router()

	var health struct {
		Status  string    `json:"status"`
		SimTime time.Time `json:"sim_time"`
	}
	if code := getJSON(t, r, "/health", &health); code != http.StatusOK {
		t.Fatalf("GET /health = %d", code)
	}
	if health.Status != "ok" {
		t.Errorf("status = %q, want ok", health.Status)
	}

	var clock struct {
		SimTime time.Time `json:"sim_time"`
		Running bool      `json:"running"`
	}
	if code := getJSON(t, r, "/clock", &clock); code != http.StatusOK {
		t.Fatalf("GET /clock = %d", code)
	}
	if clock.Running {
		t.Error("fresh clock reports running")
	}
	want := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if !clock.SimTime.Equal(want) {
		t.Errorf("sim_time = %s, want epoch %s", clock.SimTime, want)
	}
}

func TestClockControlEndpoints(t *testing.T) {
	s, _, _ := newTestServer(t)
	r := s.Router()

	req := httptest.NewRequest(http.MethodPost, "/clock/start", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("POST /clock/start = %d", rr.Code)
	}
	var state struct {
		Running bool `json:"running"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !state.Running {
		t.Error("clock not running after start")
	}

	req = httptest.NewRequest(http.MethodPost, "/clock/pause", nil)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if err := json.Unmarshal(rr.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.Running {
		t.Error("clock still running after pause")
	}
}

func TestClockResetEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)
	r := s.Router()

	req := httptest.NewRequest(http.MethodPost, "/clock/reset",
		strings.NewReader(`{"to": "1950-06-01T00:00:00Z"}`))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("POST /clock/reset = %d: %s", rr.Code, rr.Body.String())
	}
	var state struct {
		SimTime time.Time `json:"sim_time"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if want := time.Date(1950, 6, 1, 0, 0, 0, 0, time.UTC); !state.SimTime.Equal(want) {
		t.Errorf("sim_time = %s, want %s", state.SimTime, want)
	}

	req = httptest.NewRequest(http.MethodPost, "/clock/reset", strings.NewReader(`{}`))
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("POST /clock/reset without time = %d, want 400", rr.Code)
	}
}

func TestLedgerEndpoints(t *testing.T) {
	s, st, led := newTestServer(t)
	r := s.Router()

	at := time.Date(2026, 3, 2, 15, 20, 0, 0, time.UTC)
	res := world.FinancialResult{
		LegKey: "k1", AircraftID: "N801AW", Passengers: 120,
		Revenue: 40000, FuelCost: 10000, CrewCost: 6000, FeeCost: 600,
		Profit: 23400, SettledAt: at,
	}
	if err := led.Post(res); err != nil {
		t.Fatalf("post: %v", err)
	}
	if _, err := st.InsertCompletedLeg(world.CompletedLegRecord{
		LegKey: "k1", AircraftID: "N801AW", Origin: "KJFK", Destination: "EGLL",
		ScheduleID: "L1", ServiceDate: "2026-03-02", DistanceNM: 2995,
		BlockMinutes: 420, DepartedAt: at.Add(-7 * time.Hour), ArrivedAt: at, DetectedAt: at,
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	var fin struct {
		Capital      float64       `json:"capital"`
		CurrentMonth ledger.Period `json:"current_month"`
	}
	if code := getJSON(t, r, "/ledger", &fin); code != http.StatusOK {
		t.Fatalf("GET /ledger = %d", code)
	}
	if fin.Capital != 250000+23400 {
		t.Errorf("capital = %f, want 273400", fin.Capital)
	}
	if fin.CurrentMonth.Key != "2026-03" || fin.CurrentMonth.Revenue != 40000 {
		t.Errorf("current month = %+v", fin.CurrentMonth)
	}

	var legs struct {
		Legs []world.CompletedLegRecord `json:"legs"`
	}
	if code := getJSON(t, r, "/legs/completed?limit=5", &legs); code != http.StatusOK {
		t.Fatalf("GET /legs/completed = %d", code)
	}
	if len(legs.Legs) != 1 || legs.Legs[0].LegKey != "k1" {
		t.Errorf("legs = %+v", legs.Legs)
	}

	var months struct {
		Months []ledger.ClosedMonth `json:"months"`
	}
	if code := getJSON(t, r, "/ledger/months", &months); code != http.StatusOK {
		t.Fatalf("GET /ledger/months = %d", code)
	}
	if len(months.Months) != 0 {
		t.Errorf("months = %+v, want empty", months.Months)
	}
}

func TestExternalPostingEndpoints(t *testing.T) {
	s, _, led := newTestServer(t)
	r := s.Router()

	post := func(path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr
	}

	if rr := post("/ledger/expense", `{"category": "lease", "amount": 12000}`); rr.Code != http.StatusOK {
		t.Fatalf("POST /ledger/expense = %d: %s", rr.Code, rr.Body.String())
	}
	if rr := post("/ledger/income", `{"amount": 5000}`); rr.Code != http.StatusOK {
		t.Fatalf("POST /ledger/income = %d: %s", rr.Code, rr.Body.String())
	}
	if got := led.Capital(); got != 250000-12000+5000 {
		t.Errorf("capital = %f, want 243000", got)
	}
	if got := led.CostBreakdown()["lease"]; got != 12000 {
		t.Errorf("lease costs = %f, want 12000", got)
	}

	if rr := post("/ledger/expense", `{"amount": -5}`); rr.Code != http.StatusBadRequest {
		t.Errorf("negative expense = %d, want 400", rr.Code)
	}
	if rr := post("/ledger/income", `not json`); rr.Code != http.StatusBadRequest {
		t.Errorf("malformed income = %d, want 400", rr.Code)
	}
}

func TestAircraftEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)
	r := s.Router()

	var out struct {
		Aircraft map[string]projector.Projection `json:"aircraft"`
	}
	if code := getJSON(t, r, "/aircraft", &out); code != http.StatusOK {
		t.Fatalf("GET /aircraft = %d", code)
	}
	// No tick has run yet.
	if len(out.Aircraft) != 0 {
		t.Errorf("aircraft = %+v, want empty before first tick", out.Aircraft)
	}
}
