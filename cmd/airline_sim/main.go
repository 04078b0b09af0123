// Command airline_sim runs the airline operations simulation: the
// simulated clock heartbeat, the per-tick settlement pipeline, the
// REST/WebSocket API and the optional NATS and ClickHouse fan-outs.
//
// Usage:
//
//	airline_sim -config world.yaml [options]
//
// Options:
//
//	-config PATH   World/configuration YAML file (required)
//	-db PATH       Override the SQLite store path
//	-port N        Override the HTTP port
//	-nats URL      Override the NATS URL ("" disables fan-out)
//	-start         Start the clock immediately, regardless of config
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"airline_sim/internal/analytics"
	"airline_sim/internal/api"
	"airline_sim/internal/completion"
	"airline_sim/internal/config"
	"airline_sim/internal/econ"
	"airline_sim/internal/engine"
	"airline_sim/internal/events"
	"airline_sim/internal/hub"
	"airline_sim/internal/ledger"
	"airline_sim/internal/projector"
	"airline_sim/internal/simclock"
	"airline_sim/internal/store"
	"airline_sim/internal/world"
)

func main() {
	configPath := flag.String("config", "", "configuration YAML file")
	dbPath := flag.String("db", "", "override SQLite store path")
	port := flag.Int("port", 0, "override HTTP port")
	natsURL := flag.String("nats", "", "override NATS URL")
	startNow := flag.Bool("start", false, "start the clock immediately")
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "airline_sim: -config is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *dbPath != "" {
		cfg.StorePath = *dbPath
	}
	if *port > 0 {
		cfg.HTTPPort = *port
	}
	if *natsURL != "" {
		cfg.NATSURL = *natsURL
	}

	if err := run(cfg, *startNow); err != nil {
		log.Fatalf("airline_sim: %v", err)
	}
}

func run(cfg *config.Config, startNow bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	epoch, err := cfg.EpochTime()
	if err != nil {
		return err
	}
	clock := simclock.New(simclock.SystemTime{}, st, epoch, cfg.Clock.Scale)
	if err := clock.Load(); err != nil {
		return err
	}

	roster := world.NewRoster(cfg.Fleet)
	schedule := world.NewSchedule(cfg.Schedule)
	proj := projector.New(cfg.Airports)

	obs, err := completion.NewObserver(st)
	if err != nil {
		return err
	}

	led := ledger.New(st, cfg.Economy.OpeningCapital)
	if err := led.Load(); err != nil {
		return err
	}

	pub := events.NewPublisher()
	defer pub.Close()
	if cfg.NATSURL != "" {
		if err := pub.ConnectNATS(cfg.NATSURL); err != nil {
			// Fan-out is an output, not a dependency; keep simulating.
			log.Printf("nats unavailable, fan-out disabled: %v", err)
		} else {
			log.Printf("NATS fan-out: %s", cfg.NATSURL)
		}
	}

	if cfg.ClickHouse.Enabled {
		sink, err := analytics.Open(ctx, cfg.ClickHouse.Config)
		if err != nil {
			log.Printf("clickhouse unavailable, analytics disabled: %v", err)
		} else {
			defer func() { _ = sink.Close() }()
			pub.OnCompletion(func(rec world.CompletedLegRecord) {
				sink.RecordCompletion(ctx, rec)
			})
			pub.OnEconomics(func(res world.FinancialResult) {
				sink.RecordFinancials(ctx, res)
			})
			log.Printf("ClickHouse analytics: %s:%d", cfg.ClickHouse.Host, cfg.ClickHouse.Port)
		}
	}

	wsHub := hub.New()
	go wsHub.Run()
	pub.OnCompletion(func(rec world.CompletedLegRecord) {
		wsHub.Broadcast(hub.Message{Type: "leg_completed", Payload: rec})
	})
	pub.OnLedgerUpdated(func() {
		wsHub.Broadcast(hub.Message{Type: "ledger_updated"})
	})

	calc := econ.NewCalculator(cfg.Economy.Costs)
	eng := engine.New(clock, roster, schedule, proj, obs, calc, led, pub, cfg.Economy.Market)

	log.Printf("world: %d airports, %d aircraft", len(cfg.Airports), roster.Len())
	log.Printf("sim time: %s (running=%v)", clock.Now().UTC().Format(time.RFC3339), clock.Running())

	if startNow || cfg.Clock.AutoStart {
		clock.Start()
		log.Printf("clock started")
	}

	go clock.RunHeartbeat(ctx, time.Duration(cfg.Clock.HeartbeatSeconds)*time.Second)

	srv := api.New(clock, eng, st, led, wsHub, cfg.HTTPPort)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	select {
	case <-ctx.Done():
		// Freeze the calendar so the anchor is not left running
		// against wall-clock time we will not observe.
		clock.Pause()
		log.Printf("shutting down, sim time frozen at %s", clock.Now().UTC().Format(time.RFC3339))
		return nil
	case err := <-errCh:
		return err
	}
}
