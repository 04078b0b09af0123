// Package store provides the persistence port for the simulation core:
// a namespaced key-value store plus typed access to the completion
// ledger, all backed by a single SQLite database.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"airline_sim/internal/world"
)

// Well-known namespaces. Each component owns its own slice of the
// store and never touches another component's keys.
const (
	NSClock  = "clock"
	NSLedger = "ledger"
	NSWorld  = "world"
)

// Store wraps a SQLite database used as the session's only database.
// A single process is the only writer; WAL keeps readers cheap.
type Store struct {
	db *sql.DB
}

// Open opens or creates the store at the given path. An empty path or
// ":memory:" opens an in-memory database (used by tests).
func Open(path string) (*Store, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	// One pooled connection: pragmas below are per-connection, and a
	// single conn keeps an in-memory database from fragmenting into one
	// database per pool slot.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent access. WAL is persisted in
	// the database file itself, so a separate read-only process opening
	// the same file inherits it.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	namespace  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at TEXT DEFAULT (datetime('now')),
	PRIMARY KEY (namespace, key)
);

CREATE TABLE IF NOT EXISTS completed_legs (
	leg_key       TEXT PRIMARY KEY,
	aircraft_id   TEXT NOT NULL,
	origin        TEXT NOT NULL,
	destination   TEXT NOT NULL,
	schedule_id   TEXT NOT NULL,
	service_date  TEXT NOT NULL,
	distance_nm   REAL NOT NULL,
	block_minutes INTEGER NOT NULL,
	departed_at   TEXT NOT NULL,
	arrived_at    TEXT NOT NULL,
	detected_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_completed_aircraft ON completed_legs(aircraft_id);
CREATE INDEX IF NOT EXISTS idx_completed_service_date ON completed_legs(service_date);
`

// Set stores value under (namespace, key), JSON-encoded.
func (s *Store) Set(namespace, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", namespace, key, err)
	}
	_, err = s.db.Exec(`
		INSERT INTO kv (namespace, key, value, updated_at)
		VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, namespace, key, string(data))
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", namespace, key, err)
	}
	return nil
}

// Get loads (namespace, key) into dest. It returns false with a nil
// error when the key does not exist.
func (s *Store) Get(namespace, key string, dest any) (bool, error) {
	var raw string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE namespace = ? AND key = ?`, namespace, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s/%s: %w", namespace, key, err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("decode %s/%s: %w", namespace, key, err)
	}
	return true, nil
}

// Delete removes (namespace, key). Deleting a missing key is not an error.
func (s *Store) Delete(namespace, key string) error {
	_, err := s.db.Exec(`DELETE FROM kv WHERE namespace = ? AND key = ?`, namespace, key)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", namespace, key, err)
	}
	return nil
}

// InsertCompletedLeg persists one completion record. It returns false
// when a record with the same leg key already exists, which is how the
// observer's at-most-once guarantee survives restarts.
func (s *Store) InsertCompletedLeg(rec world.CompletedLegRecord) (bool, error) {
	res, err := s.db.Exec(`
		INSERT OR IGNORE INTO completed_legs
			(leg_key, aircraft_id, origin, destination, schedule_id, service_date,
			 distance_nm, block_minutes, departed_at, arrived_at, detected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.LegKey, rec.AircraftID, rec.Origin, rec.Destination, rec.ScheduleID, rec.ServiceDate,
		rec.DistanceNM, rec.BlockMinutes,
		rec.DepartedAt.UTC().Format(time.RFC3339),
		rec.ArrivedAt.UTC().Format(time.RFC3339),
		rec.DetectedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return false, fmt.Errorf("insert completed leg: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert completed leg: %w", err)
	}
	return n > 0, nil
}

// HasCompletedLeg reports whether a completion with the given key was
// ever recorded.
func (s *Store) HasCompletedLeg(legKey string) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM completed_legs WHERE leg_key = ?`, legKey).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup completed leg: %w", err)
	}
	return true, nil
}

// CompletedLegKeys loads every recorded leg key. The observer seeds its
// in-memory membership set from this at startup for O(1) dedup checks.
func (s *Store) CompletedLegKeys() (map[string]struct{}, error) {
	rows, err := s.db.Query(`SELECT leg_key FROM completed_legs`)
	if err != nil {
		return nil, fmt.Errorf("load completed leg keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	keys := make(map[string]struct{})
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan leg key: %w", err)
		}
		keys[k] = struct{}{}
	}
	return keys, rows.Err()
}

// CompletedLegs returns the most recent completion records, newest
// first, up to limit (default 100).
func (s *Store) CompletedLegs(limit int) ([]world.CompletedLegRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`
		SELECT leg_key, aircraft_id, origin, destination, schedule_id, service_date,
		       distance_nm, block_minutes, departed_at, arrived_at, detected_at
		FROM completed_legs
		ORDER BY detected_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query completed legs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []world.CompletedLegRecord
	for rows.Next() {
		var rec world.CompletedLegRecord
		var departed, arrived, detected string
		err := rows.Scan(&rec.LegKey, &rec.AircraftID, &rec.Origin, &rec.Destination,
			&rec.ScheduleID, &rec.ServiceDate, &rec.DistanceNM, &rec.BlockMinutes,
			&departed, &arrived, &detected)
		if err != nil {
			return nil, fmt.Errorf("scan completed leg: %w", err)
		}
		rec.DepartedAt, _ = time.Parse(time.RFC3339, departed)
		rec.ArrivedAt, _ = time.Parse(time.RFC3339, arrived)
		rec.DetectedAt, _ = time.Parse(time.RFC3339, detected)
		out = append(out, rec)
	}
	return out, rows.Err()
}
