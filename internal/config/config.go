// Package config loads the world and server configuration from a
// single YAML file: airports, fleet roster, flight schedule, economics
// constants and service endpoints. Flags in cmd/ override the service
// fields.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"airline_sim/internal/analytics"
	"airline_sim/internal/demand"
	"airline_sim/internal/econ"
	"airline_sim/internal/world"
)

// ClockConfig controls the simulation clock.
type ClockConfig struct {
	// Epoch is the simulated calendar start, e.g. "1946-04-01".
	Epoch string `yaml:"epoch"`
	// Scale is simulated seconds per real second (60 = one sim
	// minute per real second).
	Scale float64 `yaml:"scale"`
	// HeartbeatSeconds is the real-time tick interval.
	HeartbeatSeconds int `yaml:"heartbeat_seconds"`
	// AutoStart resumes the clock immediately on boot.
	AutoStart bool `yaml:"auto_start"`
}

// EconomyConfig holds opening capital, the cost model and the default
// market position used for settlement.
type EconomyConfig struct {
	OpeningCapital float64              `yaml:"opening_capital"`
	Costs          econ.CostModel       `yaml:"costs"`
	Market         demand.MarketFactors `yaml:"market"`
}

// Config is the full configuration file.
type Config struct {
	StorePath string `yaml:"store_path"`
	HTTPPort  int    `yaml:"http_port"`
	NATSURL   string `yaml:"nats_url"`

	ClickHouse struct {
		Enabled          bool `yaml:"enabled"`
		analytics.Config `yaml:",inline"`
	} `yaml:"clickhouse"`

	Clock   ClockConfig   `yaml:"clock"`
	Economy EconomyConfig `yaml:"economy"`

	Airports []world.Airport      `yaml:"airports"`
	Fleet    []world.Aircraft     `yaml:"fleet"`
	Schedule []world.ScheduledLeg `yaml:"schedule"`
}

// Default returns a runnable configuration with no world loaded.
func Default() *Config {
	cfg := &Config{
		StorePath: "airline_sim.db",
		HTTPPort:  8080,
	}
	cfg.Clock = ClockConfig{
		Epoch:            "1946-04-01",
		Scale:            60,
		HeartbeatSeconds: 1,
	}
	cfg.Economy = EconomyConfig{
		OpeningCapital: 5_000_000,
		Costs:          econ.DefaultCostModel(),
		Market: demand.MarketFactors{
			PriceRatio:  1,
			Comfort:     0.5,
			Marketing:   0.5,
			Reputation:  0.5,
			Competitors: 2,
		},
	}
	return cfg
}

// Load reads and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EpochTime parses the configured calendar start.
func (c *Config) EpochTime() (time.Time, error) {
	t, err := time.Parse("2006-01-02", c.Clock.Epoch)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse clock epoch %q: %w", c.Clock.Epoch, err)
	}
	return t.UTC(), nil
}

// normalize fills gaps a hand-written file commonly leaves.
func (c *Config) normalize() error {
	if c.Clock.Scale <= 0 {
		c.Clock.Scale = 60
	}
	if c.Clock.HeartbeatSeconds <= 0 {
		c.Clock.HeartbeatSeconds = 1
	}
	if _, err := c.EpochTime(); err != nil {
		return err
	}

	airports := make(map[string]world.Airport, len(c.Airports))
	for _, a := range c.Airports {
		airports[a.Ident] = a
	}

	for i := range c.Schedule {
		l := &c.Schedule[i]
		if l.ID == "" {
			return fmt.Errorf("schedule leg %d (%s-%s) has no id", i, l.Origin, l.Destination)
		}
		// A leg with no day flags operates daily.
		if l.Days == ([7]bool{}) {
			l.Days = world.Daily()
		}
		// Derive distance from coordinates when the file omits it.
		if l.DistanceNM <= 0 {
			from, okFrom := airports[l.Origin]
			to, okTo := airports[l.Destination]
			if okFrom && okTo {
				l.DistanceNM = world.HaversineNM(
					world.Position{Lat: from.Lat, Lon: from.Lon},
					world.Position{Lat: to.Lat, Lon: to.Lon},
				)
			}
		}
	}
	return nil
}
