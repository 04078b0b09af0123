package world

import (
	"math"
	"testing"
	"time"
)

func TestHaversineNM(t *testing.T) {
	jfk := Position{Lat: 40.6413, Lon: -73.7781}
	lhr := Position{Lat: 51.4700, Lon: -0.4543}

	got := HaversineNM(jfk, lhr)
	// Great-circle JFK-LHR is close to 2995 nm.
	if got < 2950 || got > 3050 {
		t.Errorf("HaversineNM(JFK, LHR) = %.1f, want ~2995", got)
	}

	if d := HaversineNM(jfk, jfk); d != 0 {
		t.Errorf("zero-distance = %f, want 0", d)
	}
}

func TestLegBlockMinutes(t *testing.T) {
	tests := []struct {
		name   string
		depart int
		arrive int
		want   int
	}{
		{"same day", 480, 900, 420},
		{"overnight wrap", 1380, 120, 180},
		{"midnight arrival", 1200, 0, 240},
	}
	for _, tt := range tests {
		l := ScheduledLeg{DepartMin: tt.depart, ArriveMin: tt.arrive}
		if got := l.BlockMinutes(); got != tt.want {
			t.Errorf("%s: BlockMinutes() = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestLegOvernight(t *testing.T) {
	if (ScheduledLeg{DepartMin: 480, ArriveMin: 900}).Overnight() {
		t.Error("same-day leg reported overnight")
	}
	if !(ScheduledLeg{DepartMin: 1380, ArriveMin: 120}).Overnight() {
		t.Error("wrap leg not reported overnight")
	}
}

func TestMinuteOfDay(t *testing.T) {
	at := time.Date(2026, 3, 2, 14, 10, 30, 0, time.UTC)
	if got := MinuteOfDay(at); got != 850 {
		t.Errorf("MinuteOfDay = %d, want 850", got)
	}
}

func TestLerpClamps(t *testing.T) {
	a := Position{Lat: 0, Lon: 0}
	b := Position{Lat: 10, Lon: 20}

	mid := Lerp(a, b, 0.5)
	if mid.Lat != 5 || mid.Lon != 10 {
		t.Errorf("Lerp(0.5) = %+v, want {5 10}", mid)
	}
	if got := Lerp(a, b, -1); got != a {
		t.Errorf("Lerp(-1) = %+v, want origin", got)
	}
	if got := Lerp(a, b, 2); got != b {
		t.Errorf("Lerp(2) = %+v, want destination", got)
	}
}

func TestFinite(t *testing.T) {
	if got := Finite(math.NaN(), 7); got != 7 {
		t.Errorf("Finite(NaN) = %f, want fallback", got)
	}
	if got := Finite(math.Inf(1), 7); got != 7 {
		t.Errorf("Finite(+Inf) = %f, want fallback", got)
	}
	if got := Finite(3.5, 7); got != 3.5 {
		t.Errorf("Finite(3.5) = %f, want 3.5", got)
	}
}

func TestScheduleOrdersLegs(t *testing.T) {
	s := NewSchedule([]ScheduledLeg{
		{ID: "B", AircraftID: "N1", DepartMin: 600, ArriveMin: 700},
		{ID: "A", AircraftID: "N1", DepartMin: 480, ArriveMin: 560},
		{ID: "X", AircraftID: "", DepartMin: 100, ArriveMin: 200},
	})

	legs := s.LegsFor("N1")
	if len(legs) != 2 {
		t.Fatalf("LegsFor(N1) = %d legs, want 2", len(legs))
	}
	if legs[0].ID != "A" || legs[1].ID != "B" {
		t.Errorf("legs not ordered by departure: %s, %s", legs[0].ID, legs[1].ID)
	}
	if got := s.LegsFor("missing"); got != nil {
		t.Errorf("LegsFor(missing) = %v, want nil", got)
	}
}

func TestRosterLookup(t *testing.T) {
	r := NewRoster([]Aircraft{
		{ID: "N1", Seats: 100},
		{ID: "N2", Seats: 200},
		{ID: "", Seats: 50},
	})
	if r.Len() != 2 {
		t.Fatalf("Len = %d, want 2", r.Len())
	}
	if a, ok := r.Get("N2"); !ok || a.Seats != 200 {
		t.Errorf("Get(N2) = %+v %v", a, ok)
	}
	ids := r.IDs()
	if len(ids) != 2 || ids[0] != "N1" || ids[1] != "N2" {
		t.Errorf("IDs = %v, want [N1 N2]", ids)
	}
}
