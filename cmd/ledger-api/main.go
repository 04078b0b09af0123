// Command ledger-api serves read-only finance and completion queries
// over a saved simulation store. It runs no simulation: point it at the
// SQLite file of a finished or live session and query the books.
//
// Usage:
//
//	ledger-api -db airline_sim.db [-port 8081]
//
// API Endpoints:
//
//	GET /api/v1/legs/completed?limit=N
//	    Most recent completed leg records.
//
//	GET /api/v1/ledger
//	    Capital, open week/month accumulators, cost breakdown.
//
//	GET /api/v1/ledger/months
//	    Closed month history.
package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"airline_sim/internal/api"
	"airline_sim/internal/ledger"
	"airline_sim/internal/store"
)

func main() {
	dbPath := flag.String("db", envOr("AIRLINE_SIM_DB", "airline_sim.db"), "SQLite store path")
	port := flag.Int("port", 8081, "HTTP port")
	flag.Parse()

	if _, err := os.Stat(*dbPath); err != nil {
		log.Fatalf("store not found: %v", err)
	}

	st, err := store.Open(*dbPath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer func() { _ = st.Close() }()

	led := ledger.New(st, 0)
	if err := led.Load(); err != nil {
		log.Fatalf("load ledger: %v", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)
	r.Mount("/api/v1", api.LedgerRouter(st, led))

	addr := ":" + strconv.Itoa(*port)
	log.Printf("ledger API at http://localhost%s (store %s)", addr, *dbPath)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal(err)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
