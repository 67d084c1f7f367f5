package search

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/dharmasatrya/flightassist/internal/models"
)

const (
	platformID   = "984"
	searchLocale = "zh_cn"
)

// BuildRequest maps trip info onto the backend request. Round trips add the
// reversed leg on the return date; the passenger list is padded so every
// type appears, with zero counts for types the trip leaves out.
func BuildRequest(trip *models.TripInfo, traceID string) Request {
	travelType := trip.EffectiveTravelType()
	dep, arr := trip.Departure.Key(), trip.Arrival.Key()

	lines := []UserLine{{Index: 1, DepCityCode: dep, ArrCityCode: arr, DepDate: trip.DepartureDate}}
	if travelType == models.TravelTypeRoundTrip {
		lines = append(lines, UserLine{Index: 2, DepCityCode: arr, ArrCityCode: dep, DepDate: trip.ReturnDate})
	}

	return Request{
		TravelType:       string(travelType),
		ReqUserLines:     lines,
		UserLineIndex:    1,
		SelectedLines:    []json.RawMessage{},
		ReqPassengers:    requestPassengers(trip.EffectivePassengers()),
		BookingClass:     bookingClass(trip.CabinClass),
		PlatID:           platformID,
		Language:         searchLocale,
		Locale:           searchLocale,
		CurrencyCode:     "CNY",
		TransitCityCodes: []string{},
		TraceID:          traceID,
		MemberInfo:       MemberInfo{QueryIP: "127.0.0.1"},
		Config: RequestConfig{
			AB:       map[string]string{},
			SortType: "DEFAULT",
		},
		Ext: map[string]string{},
	}
}

func requestPassengers(passengers []models.Passenger) []ReqPassenger {
	out := make([]ReqPassenger, 0, len(models.PassengerTypes))
	seen := make(map[models.PassengerType]bool, len(models.PassengerTypes))
	for _, p := range passengers {
		count := p.Count
		if count < 0 {
			count = 0
		}
		out = append(out, ReqPassenger{PassengerType: string(p.Type), PassengerCount: strconv.Itoa(count)})
		seen[p.Type] = true
	}
	for _, t := range models.PassengerTypes {
		if !seen[t] {
			out = append(out, ReqPassenger{PassengerType: string(t), PassengerCount: "0"})
		}
	}
	return out
}

func bookingClass(cabin string) string {
	switch strings.ToUpper(cabin) {
	case "":
		return models.CabinEconomy
	case models.CabinAny:
		return "Y|S|C|F"
	default:
		return strings.ToUpper(cabin)
	}
}
