package service

import (
	"time"

	"FareWatch/internal/model"
)

// inShift 判断 UTC 小时是否落在时段内，NIGHT 跨越午夜
func inShift(hour int, shift model.DayShift) bool {
	switch shift {
	case model.DayShiftMorning:
		return hour >= 5 && hour < 12
	case model.DayShiftAfternoon:
		return hour >= 12 && hour < 18
	case model.DayShiftNight:
		return hour >= 18 || hour < 5
	default:
		// 未知时段不做限制
		return true
	}
}

// matchesShifts 未选择任何时段时全部通过
func matchesShifts(t time.Time, shifts []model.DayShift) bool {
	if len(shifts) == 0 {
		return true
	}
	hour := t.UTC().Hour()
	for _, s := range shifts {
		if inShift(hour, s) {
			return true
		}
	}
	return false
}

func matchesAirline(airline string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == airline {
			return true
		}
	}
	return false
}

// OfferMatches 各条件相互独立，全部满足才通过
func OfferMatches(offer model.FlightOffer, alert *model.FlightAlert) bool {
	if !matchesShifts(offer.DepartureTime, alert.DepartureDayShift) {
		return false
	}

	if alert.TripType == model.TripTypeRoundTrip && len(alert.ReturnDayShift) > 0 && offer.HasReturn() {
		if !matchesShifts(*offer.ReturnDepartureTime, alert.ReturnDayShift) {
			return false
		}
	}

	if !matchesAirline(offer.Airline, alert.Airlines) {
		return false
	}

	if alert.MaxFlightDuration != nil && offer.Duration > *alert.MaxFlightDuration {
		return false
	}

	return true
}

// FilterOffers 按提醒的时段、航司、时长条件过滤报价，不修改入参
func FilterOffers(offers []model.FlightOffer, alert *model.FlightAlert) []model.FlightOffer {
	matched := make([]model.FlightOffer, 0, len(offers))
	for _, o := range offers {
		if OfferMatches(o, alert) {
			matched = append(matched, o)
		}
	}
	return matched
}
