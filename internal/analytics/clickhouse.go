// Package analytics is an optional ClickHouse sink for route
// statistics. It subscribes to completion and settlement events and
// appends them to MergeTree tables; nothing in the core pipeline
// depends on it, and a missing ClickHouse simply disables it.
package analytics

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"airline_sim/internal/world"
)

// Config holds ClickHouse connection settings.
type Config struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// Sink wraps a ClickHouse connection for flight analytics.
type Sink struct {
	conn driver.Conn
}

// Open connects to ClickHouse and ensures the schema exists.
func Open(ctx context.Context, cfg Config) (*Sink, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	s := &Sink{conn: conn}
	if err := s.createSchema(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the connection.
func (s *Sink) Close() error {
	return s.conn.Close()
}

func (s *Sink) createSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS completed_legs (
			leg_key        String,
			aircraft_id    LowCardinality(String),
			origin         LowCardinality(String),
			destination    LowCardinality(String),
			service_date   Date,
			distance_nm    Float64,
			block_minutes  UInt32,
			departed_at    DateTime64(3),
			arrived_at     DateTime64(3),
			detected_at    DateTime64(3),
			recorded_at    DateTime64(3) DEFAULT now64(3)
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(service_date)
		ORDER BY (origin, destination, service_date, leg_key)`,

		`CREATE TABLE IF NOT EXISTS leg_financials (
			leg_key      String,
			aircraft_id  LowCardinality(String),
			passengers   UInt32,
			revenue      Float64,
			fuel_cost    Float64,
			crew_cost    Float64,
			fee_cost     Float64,
			profit       Float64,
			settled_at   DateTime64(3),
			recorded_at  DateTime64(3) DEFAULT now64(3)
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(settled_at)
		ORDER BY (aircraft_id, settled_at, leg_key)`,
	}
	for _, q := range queries {
		if err := s.conn.Exec(ctx, q); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// RecordCompletion appends one completed leg. Errors are logged, not
// propagated: analytics must never stall the tick.
func (s *Sink) RecordCompletion(ctx context.Context, rec world.CompletedLegRecord) {
	serviceDate, err := time.Parse("2006-01-02", rec.ServiceDate)
	if err != nil {
		serviceDate = rec.DepartedAt
	}
	err = s.conn.Exec(ctx, `
		INSERT INTO completed_legs
			(leg_key, aircraft_id, origin, destination, service_date,
			 distance_nm, block_minutes, departed_at, arrived_at, detected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.LegKey, rec.AircraftID, rec.Origin, rec.Destination, serviceDate,
		rec.DistanceNM, uint32(rec.BlockMinutes), rec.DepartedAt, rec.ArrivedAt, rec.DetectedAt)
	if err != nil {
		log.Printf("analytics: record completion: %v", err)
	}
}

// RecordFinancials appends one settled result.
func (s *Sink) RecordFinancials(ctx context.Context, res world.FinancialResult) {
	err := s.conn.Exec(ctx, `
		INSERT INTO leg_financials
			(leg_key, aircraft_id, passengers, revenue, fuel_cost, crew_cost, fee_cost, profit, settled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.LegKey, res.AircraftID, uint32(res.Passengers), res.Revenue,
		res.FuelCost, res.CrewCost, res.FeeCost, res.Profit, res.SettledAt)
	if err != nil {
		log.Printf("analytics: record financials: %v", err)
	}
}
