package amadeus

import (
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
	}{
		{"PT2H30M", 150},
		{"PT6H10M", 370},
		{"PT45M", 45},
		{"PT3H", 180},
		{"P1D", 0},
		{"", 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := ParseDuration(tt.in); got != tt.want {
				t.Fatalf("ParseDuration(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeOfferOneWay(t *testing.T) {
	t.Parallel()

	raw := FlightOffer{
		ID: "1",
		Itineraries: []Itinerary{{
			Duration: "PT5H20M",
			Segments: []Segment{
				{
					Departure:   Endpoint{IATACode: "GRU", At: "2025-06-01T08:30:00"},
					Arrival:     Endpoint{IATACode: "BSB", At: "2025-06-01T10:10:00"},
					CarrierCode: "LA",
					Number:      "3456",
				},
				{
					Departure:   Endpoint{IATACode: "BSB", At: "2025-06-01T11:00:00"},
					Arrival:     Endpoint{IATACode: "REC", At: "2025-06-01T13:50:00"},
					CarrierCode: "LA",
					Number:      "3900",
				},
			},
		}},
		Price: Price{Currency: "BRL", GrandTotal: "812.37"},
	}

	offer, err := normalizeOffer(raw, map[string]string{"LA": "LATAM AIRLINES BRASIL"})
	if err != nil {
		t.Fatalf("normalizeOffer() error = %v", err)
	}

	if offer.Price.String() != "812.37" {
		t.Fatalf("price = %s, want 812.37", offer.Price)
	}
	if offer.Airline != "LA" || offer.AirlineName != "LATAM AIRLINES BRASIL" {
		t.Fatalf("airline = %q/%q", offer.Airline, offer.AirlineName)
	}
	if offer.FlightNumber != "LA3456" {
		t.Fatalf("flight number = %q, want LA3456", offer.FlightNumber)
	}
	if offer.DepartureAirport != "GRU" || offer.ArrivalAirport != "REC" {
		t.Fatalf("route = %s-%s, want GRU-REC", offer.DepartureAirport, offer.ArrivalAirport)
	}
	wantDeparture := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)
	if !offer.DepartureTime.Equal(wantDeparture) {
		t.Fatalf("departure = %v, want %v", offer.DepartureTime, wantDeparture)
	}
	if offer.Duration != 320 || offer.Stops != 1 {
		t.Fatalf("duration/stops = %d/%d, want 320/1", offer.Duration, offer.Stops)
	}
	if offer.HasReturn() {
		t.Fatal("one-way offer should not have a return leg")
	}
}

func TestNormalizeOfferRoundTrip(t *testing.T) {
	t.Parallel()

	raw := FlightOffer{
		ID: "2",
		Itineraries: []Itinerary{
			{
				Duration: "PT1H5M",
				Segments: []Segment{{
					Departure:   Endpoint{IATACode: "GRU", At: "2025-06-01T19:00:00"},
					Arrival:     Endpoint{IATACode: "GIG", At: "2025-06-01T20:05:00"},
					CarrierCode: "G3",
					Number:      "1000",
				}},
			},
			{
				Duration: "PT1H",
				Segments: []Segment{{
					Departure:   Endpoint{IATACode: "GIG", At: "2025-06-08T06:15:00"},
					Arrival:     Endpoint{IATACode: "GRU", At: "2025-06-08T07:15:00"},
					CarrierCode: "G3",
					Number:      "1001",
				}},
			},
		},
		Price: Price{Currency: "BRL", GrandTotal: "399.90"},
	}

	offer, err := normalizeOffer(raw, nil)
	if err != nil {
		t.Fatalf("normalizeOffer() error = %v", err)
	}
	if !offer.HasReturn() {
		t.Fatal("round-trip offer should have a return leg")
	}
	if offer.ReturnDepartureTime.Hour() != 6 {
		t.Fatalf("return departure hour = %d, want 6", offer.ReturnDepartureTime.Hour())
	}
	if *offer.ReturnDuration != 60 || *offer.ReturnStops != 0 {
		t.Fatalf("return duration/stops = %d/%d, want 60/0", *offer.ReturnDuration, *offer.ReturnStops)
	}
	if offer.AirlineName != "" {
		t.Fatalf("airline name = %q, want empty without dictionary", offer.AirlineName)
	}
}

func TestNormalizeOfferRejectsMalformed(t *testing.T) {
	t.Parallel()

	if _, err := normalizeOffer(FlightOffer{ID: "empty"}, nil); err == nil {
		t.Fatal("expected error for offer without itineraries")
	}

	raw := FlightOffer{
		ID: "bad-price",
		Itineraries: []Itinerary{{Segments: []Segment{{
			Departure: Endpoint{At: "2025-06-01T08:30:00"},
			Arrival:   Endpoint{At: "2025-06-01T10:00:00"},
		}}}},
		Price: Price{GrandTotal: "n/a"},
	}
	if _, err := normalizeOffer(raw, nil); err == nil {
		t.Fatal("expected error for unparsable price")
	}
}
