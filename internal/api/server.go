// Package api provides the REST and WebSocket surface over the
// simulation: clock state and control, live aircraft projections,
// the completion ledger and finance ledger queries. Everything except
// clock start/pause is read-only.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"airline_sim/internal/engine"
	"airline_sim/internal/hub"
	"airline_sim/internal/ledger"
	"airline_sim/internal/simclock"
	"airline_sim/internal/store"
)

var (
	errInvalidResetTime = errors.New(`body must be {"to": "<RFC3339 timestamp>"}`)
	errInvalidAmount    = errors.New("amount must be a positive number")
)

// Server exposes the simulation over HTTP.
type Server struct {
	clock *simclock.Clock
	eng   *engine.Engine
	st    *store.Store
	led   *ledger.Ledger
	wsHub *hub.Hub
	port  int
}

// New creates a server. wsHub may be nil to disable the push endpoint.
func New(clock *simclock.Clock, eng *engine.Engine, st *store.Store, led *ledger.Ledger, wsHub *hub.Hub, port int) *Server {
	return &Server{clock: clock, eng: eng, st: st, led: led, wsHub: wsHub, port: port}
}

// Run starts the HTTP server and blocks.
func (s *Server) Run() error {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)

	r.Mount("/api/v1", s.Router())

	if s.wsHub != nil {
		r.Get("/ws", s.wsHub.ServeWS)
	}

	addr := ":" + strconv.Itoa(s.port)
	log.Printf("API listening at http://localhost%s", addr)
	return http.ListenAndServe(addr, r)
}

// Router returns the API routes for embedding in another server.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", s.handleHealth)

	r.Get("/clock", s.handleClock)
	r.Post("/clock/start", s.handleClockStart)
	r.Post("/clock/pause", s.handleClockPause)
	r.Post("/clock/reset", s.handleClockReset)

	r.Get("/aircraft", s.handleAircraft)

	r.Post("/ledger/expense", s.handleLedgerExpense)
	r.Post("/ledger/income", s.handleLedgerIncome)
	r.Mount("/", LedgerRouter(s.st, s.led))

	return r
}

// LedgerRouter returns the read-only completion and finance query
// routes. cmd/ledger-api serves these over a saved store without
// running a simulation.
func LedgerRouter(st *store.Store, led *ledger.Ledger) chi.Router {
	r := chi.NewRouter()

	r.Get("/legs/completed", func(w http.ResponseWriter, req *http.Request) {
		limit := 100
		if v := req.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}
		legs, err := st.CompletedLegs(limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"legs": legs})
	})

	r.Get("/ledger", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"capital":        led.Capital(),
			"current_month":  led.CurrentMonth(),
			"current_week":   led.CurrentWeek(),
			"previous_week":  led.PreviousWeek(),
			"cost_breakdown": led.CostBreakdown(),
		})
	})

	r.Get("/ledger/months", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"months": led.ClosedMonths()})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sim_time": s.clock.Now().UTC(),
	})
}

func (s *Server) handleClock(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"sim_time": s.clock.Now().UTC(),
		"running":  s.clock.Running(),
	})
}

func (s *Server) handleClockStart(w http.ResponseWriter, r *http.Request) {
	s.clock.Start()
	s.handleClock(w, r)
}

func (s *Server) handleClockPause(w http.ResponseWriter, r *http.Request) {
	s.clock.Pause()
	s.handleClock(w, r)
}

func (s *Server) handleClockReset(w http.ResponseWriter, r *http.Request) {
	var body struct {
		To time.Time `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.To.IsZero() {
		writeError(w, http.StatusBadRequest, errInvalidResetTime)
		return
	}
	s.clock.Reset(body.To)
	s.handleClock(w, r)
}

// External postings (leasing, staff, subsidies) are booked at the
// current simulated time.
func (s *Server) handleLedgerExpense(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Category string  `json:"category"`
		Amount   float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Amount <= 0 {
		writeError(w, http.StatusBadRequest, errInvalidAmount)
		return
	}
	if err := s.led.PostExpense(s.clock.Now(), body.Category, body.Amount); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"capital": s.led.Capital()})
}

func (s *Server) handleLedgerIncome(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Amount float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Amount <= 0 {
		writeError(w, http.StatusBadRequest, errInvalidAmount)
		return
	}
	if err := s.led.PostIncome(s.clock.Now(), body.Amount); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"capital": s.led.Capital()})
}

func (s *Server) handleAircraft(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"tick_at":  s.eng.LastTick().UTC(),
		"aircraft": s.eng.Projections(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// corsMiddleware allows browser UIs on other origins to query the API.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
