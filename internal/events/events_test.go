package events

import (
	"testing"
	"time"

	"airline_sim/internal/world"
)

func TestInProcessSubscribersRunInOrder(t *testing.T) {
	p := NewPublisher()

	var order []string
	p.OnCompletion(func(world.CompletedLegRecord) { order = append(order, "c1") })
	p.OnCompletion(func(world.CompletedLegRecord) { order = append(order, "c2") })
	p.OnEconomics(func(world.FinancialResult) { order = append(order, "e1") })
	p.OnLedgerUpdated(func() { order = append(order, "l1") })

	rec := world.CompletedLegRecord{LegKey: "k1", DetectedAt: time.Now()}
	p.PublishCompletion(rec)
	p.PublishEconomics(world.FinancialResult{LegKey: "k1"})
	p.PublishLedgerUpdated()

	want := []string{"c1", "c2", "e1", "l1"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestPublishPassesRecordThrough(t *testing.T) {
	p := NewPublisher()

	var got world.CompletedLegRecord
	p.OnCompletion(func(rec world.CompletedLegRecord) { got = rec })

	rec := world.CompletedLegRecord{LegKey: "N801AW|KJFK|EGLL|L1|2026-03-02", Origin: "KJFK"}
	p.PublishCompletion(rec)
	if got.LegKey != rec.LegKey || got.Origin != "KJFK" {
		t.Errorf("subscriber saw %+v", got)
	}
}

func TestPublishWithoutBrokerIsSafe(t *testing.T) {
	p := NewPublisher()
	// No connection, no subscribers: publishing must be a no-op.
	p.PublishCompletion(world.CompletedLegRecord{LegKey: "k1"})
	p.PublishEconomics(world.FinancialResult{LegKey: "k1"})
	p.PublishLedgerUpdated()
	p.Close()
}
