// Package events carries the tick-driven publish/subscribe contract
// between pipeline stages and external collaborators. In-process
// subscribers run synchronously, in registration order, inside the
// tick that produced the event; ordering across stages is therefore
// projector -> observer -> economics -> ledger, never interleaved
// across ticks. When a NATS URL is configured the same events fan out
// as JSON to subjects for out-of-process consumers.
package events

import (
	"encoding/json"
	"log"

	"github.com/nats-io/nats.go"

	"airline_sim/internal/world"
)

// NATS subjects for external fan-out.
const (
	SubjectCompletion    = "airline.leg.completed"
	SubjectEconomics     = "airline.leg.settled"
	SubjectLedgerUpdated = "airline.ledger.updated"
)

// Publisher dispatches simulation events.
type Publisher struct {
	nc *nats.Conn // nil when external fan-out is disabled

	onCompletion    []func(world.CompletedLegRecord)
	onEconomics     []func(world.FinancialResult)
	onLedgerUpdated []func()
}

// NewPublisher creates a publisher with no external connection.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// ConnectNATS enables external fan-out. The simulation keeps running
// if the broker later disappears; nats.go reconnects on its own.
func (p *Publisher) ConnectNATS(url string) error {
	nc, err := nats.Connect(url,
		nats.Name("airline_sim"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return err
	}
	p.nc = nc
	return nil
}

// Close drains the external connection if one exists.
func (p *Publisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
		p.nc = nil
	}
}

// OnCompletion registers an in-process completion subscriber.
func (p *Publisher) OnCompletion(fn func(world.CompletedLegRecord)) {
	p.onCompletion = append(p.onCompletion, fn)
}

// OnEconomics registers an in-process settlement subscriber.
func (p *Publisher) OnEconomics(fn func(world.FinancialResult)) {
	p.onEconomics = append(p.onEconomics, fn)
}

// OnLedgerUpdated registers a parameterless refresh trigger.
func (p *Publisher) OnLedgerUpdated(fn func()) {
	p.onLedgerUpdated = append(p.onLedgerUpdated, fn)
}

// PublishCompletion emits one newly completed leg.
func (p *Publisher) PublishCompletion(rec world.CompletedLegRecord) {
	for _, fn := range p.onCompletion {
		fn(rec)
	}
	p.fanOut(SubjectCompletion, rec)
}

// PublishEconomics emits one settled financial result.
func (p *Publisher) PublishEconomics(res world.FinancialResult) {
	for _, fn := range p.onEconomics {
		fn(res)
	}
	p.fanOut(SubjectEconomics, res)
}

// PublishLedgerUpdated signals that ledger state changed.
func (p *Publisher) PublishLedgerUpdated() {
	for _, fn := range p.onLedgerUpdated {
		fn()
	}
	p.fanOut(SubjectLedgerUpdated, struct{}{})
}

func (p *Publisher) fanOut(subject string, v any) {
	if p.nc == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("events: marshal %s: %v", subject, err)
		return
	}
	if err := p.nc.Publish(subject, data); err != nil {
		log.Printf("events: publish %s: %v", subject, err)
	}
}
