package model

import (
	"testing"
	"time"
)

func TestCheckFrequencyInterval(t *testing.T) {
	t.Parallel()
	tests := []struct {
		freq CheckFrequency
		want time.Duration
	}{
		{FrequencyHours1, time.Hour},
		{FrequencyHours3, 3 * time.Hour},
		{FrequencyHours6, 6 * time.Hour},
		{FrequencyHours12, 12 * time.Hour},
		{FrequencyHours24, 24 * time.Hour},
		{CheckFrequency("HOURS_48"), 6 * time.Hour},
		{CheckFrequency(""), 6 * time.Hour},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.freq), func(t *testing.T) {
			if got := tt.freq.Interval(); got != tt.want {
				t.Fatalf("Interval() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAlertStatusTransitions(t *testing.T) {
	t.Parallel()
	tests := []struct {
		from, to AlertStatus
		ok       bool
	}{
		{AlertStatusActive, AlertStatusPaused, true},
		{AlertStatusPaused, AlertStatusActive, true},
		{AlertStatusActive, AlertStatusDeleted, true},
		{AlertStatusPaused, AlertStatusDeleted, true},
		{AlertStatusDeleted, AlertStatusActive, false},
		{AlertStatusDeleted, AlertStatusPaused, false},
		{AlertStatusActive, AlertStatusActive, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.ok {
			t.Fatalf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}
}

func TestSearchDates(t *testing.T) {
	t.Parallel()
	dep := time.Date(2026, 12, 20, 0, 0, 0, 0, time.UTC)
	ret := time.Date(2027, 1, 5, 0, 0, 0, 0, time.UTC)

	oneWay := &FlightAlert{TripType: TripTypeOneWay, DepartureDate: dep, ReturnDate: &ret}
	d, r := oneWay.SearchDates()
	if d != "2026-12-20" || r != "" {
		t.Fatalf("one way dates = %q %q", d, r)
	}

	round := &FlightAlert{TripType: TripTypeRoundTrip, DepartureDate: dep, ReturnDate: &ret}
	d, r = round.SearchDates()
	if d != "2026-12-20" || r != "2027-01-05" {
		t.Fatalf("round trip dates = %q %q", d, r)
	}
}

func TestRoute(t *testing.T) {
	t.Parallel()
	gru, lis, empty := "GRU", "LIS", ""

	if _, _, ok := (&FlightAlert{}).Route(); ok {
		t.Fatal("expected missing route")
	}
	if _, _, ok := (&FlightAlert{DepartureAirportCode: &gru, DestinationAirportCode: &empty}).Route(); ok {
		t.Fatal("expected empty destination to be rejected")
	}
	o, d, ok := (&FlightAlert{DepartureAirportCode: &gru, DestinationAirportCode: &lis}).Route()
	if !ok || o != "GRU" || d != "LIS" {
		t.Fatalf("Route() = %q %q %v", o, d, ok)
	}
}
