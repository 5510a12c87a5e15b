package amadeus

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"FareWatch/internal/model"

	"github.com/shopspring/decimal"
)

// 供应商返回的是机场当地时间，不带时区，按 UTC 解析以保留墙上时间
const localTimeLayout = "2006-01-02T15:04:05"

var durationPattern = regexp.MustCompile(`PT(?:(\d+)H)?(?:(\d+)M)?`)

// ParseDuration 解析 ISO-8601 时长（如 PT2H30M）为分钟，无法识别时返回 0
func ParseDuration(iso string) int {
	m := durationPattern.FindStringSubmatch(iso)
	if m == nil {
		return 0
	}
	hours, _ := strconv.Atoi(orZero(m[1]))
	minutes, _ := strconv.Atoi(orZero(m[2]))
	return hours*60 + minutes
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

func parseLocalTime(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(localTimeLayout, s, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t.UTC(), nil
}

// normalizeOffer 取第一段行程的首尾航段作为去程，第二段行程（如有）作为回程
func normalizeOffer(offer FlightOffer, carriers map[string]string) (model.FlightOffer, error) {
	if len(offer.Itineraries) == 0 || len(offer.Itineraries[0].Segments) == 0 {
		return model.FlightOffer{}, fmt.Errorf("offer %s has no segments", offer.ID)
	}

	outbound := offer.Itineraries[0]
	first := outbound.Segments[0]
	last := outbound.Segments[len(outbound.Segments)-1]

	price, err := decimal.NewFromString(offer.Price.GrandTotal)
	if err != nil {
		return model.FlightOffer{}, fmt.Errorf("offer %s has invalid price %q: %w", offer.ID, offer.Price.GrandTotal, err)
	}

	departure, err := parseLocalTime(first.Departure.At)
	if err != nil {
		return model.FlightOffer{}, err
	}
	arrival, err := parseLocalTime(last.Arrival.At)
	if err != nil {
		return model.FlightOffer{}, err
	}

	result := model.FlightOffer{
		Price:            price,
		Currency:         offer.Price.Currency,
		Airline:          first.CarrierCode,
		AirlineName:      carriers[first.CarrierCode],
		FlightNumber:     first.CarrierCode + first.Number,
		DepartureTime:    departure,
		ArrivalTime:      arrival,
		DepartureAirport: first.Departure.IATACode,
		ArrivalAirport:   last.Arrival.IATACode,
		Duration:         ParseDuration(outbound.Duration),
		Stops:            len(outbound.Segments) - 1,
	}

	if len(offer.Itineraries) > 1 && len(offer.Itineraries[1].Segments) > 0 {
		back := offer.Itineraries[1]
		retDeparture, err := parseLocalTime(back.Segments[0].Departure.At)
		if err != nil {
			return model.FlightOffer{}, err
		}
		retArrival, err := parseLocalTime(back.Segments[len(back.Segments)-1].Arrival.At)
		if err != nil {
			return model.FlightOffer{}, err
		}
		retDuration := ParseDuration(back.Duration)
		retStops := len(back.Segments) - 1

		result.ReturnDepartureTime = &retDeparture
		result.ReturnArrivalTime = &retArrival
		result.ReturnDuration = &retDuration
		result.ReturnStops = &retStops
	}

	return result, nil
}

func normalizeLocation(loc Location) model.Airport {
	airport := model.Airport{
		Name:     loc.Name,
		IATACode: loc.IATACode,
	}
	if loc.Address != nil {
		airport.CityName = loc.Address.CityName
		airport.CountryCode = loc.Address.CountryCode
	}
	return airport
}
