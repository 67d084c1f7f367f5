package tripinfo

import (
	"strconv"
	"strings"

	"github.com/dharmasatrya/flightassist/internal/models"
)

const (
	FieldTravelType     = "travel_type"
	FieldDeparture      = "departure"
	FieldDepartureCity  = "departure_city"
	FieldDepartureCode  = "departure_code"
	FieldArrival        = "arrival"
	FieldArrivalCity    = "arrival_city"
	FieldArrivalCode    = "arrival_code"
	FieldDepartureDate  = "dep_date"
	FieldReturnDate     = "return_date"
	FieldPassengers     = "passengers"
	FieldCabinClass     = "cabin_class"
	FieldAirlineCode    = "airline_code"
	FieldFlightNumber   = "flight_no"
	FieldTransferCities = "transfer_cities"
)

// IsComplete reports whether trip carries everything a search needs. A round
// trip without a return date is never complete.
func IsComplete(trip *models.TripInfo) bool {
	return MissingField(trip) == nil
}

// MissingField returns a clarification for the first required field trip
// lacks, or nil when nothing is missing.
func MissingField(trip *models.TripInfo) *models.Clarification {
	if trip == nil || trip.Departure.Key() == "" {
		return &models.Clarification{Field: FieldDeparture, Question: "请问您从哪里出发？", Options: []models.ClarifyOption{}}
	}
	if trip.Arrival.Key() == "" {
		return &models.Clarification{Field: FieldArrival, Question: "请问您要去哪里？", Options: []models.ClarifyOption{}}
	}
	if trip.DepartureDate == "" {
		return &models.Clarification{Field: FieldDepartureDate, Question: "请问您想哪天出发？", Options: []models.ClarifyOption{}}
	}
	if trip.EffectiveTravelType() == models.TravelTypeRoundTrip && trip.ReturnDate == "" {
		return &models.Clarification{Field: FieldReturnDate, Question: "请问您想哪天返程？", Options: []models.ClarifyOption{}}
	}
	return nil
}

// ApplyClarification merges the answer to a pending clarification as a
// single-field update. Unknown fields leave trip unchanged.
func ApplyClarification(trip *models.TripInfo, field, value string) *models.TripInfo {
	value = strings.TrimSpace(value)
	if value == "" {
		return trip.Clone()
	}

	update := &models.TripInfo{}
	switch field {
	case FieldTravelType:
		update.TravelType = models.TravelType(strings.ToUpper(value))
	case FieldDeparture, FieldDepartureCity:
		update.Departure = &models.Airport{City: value}
	case FieldDepartureCode:
		update.Departure = withCode(trip, true, value)
	case FieldArrival, FieldArrivalCity:
		update.Arrival = &models.Airport{City: value}
	case FieldArrivalCode:
		update.Arrival = withCode(trip, false, value)
	case FieldDepartureDate:
		update.DepartureDate = value
	case FieldReturnDate:
		update.ReturnDate = value
		update.TravelType = models.TravelTypeRoundTrip
	case FieldPassengers:
		passengers, ok := ParsePassengers(value)
		if !ok {
			return trip.Clone()
		}
		update.Passengers = passengers
	case FieldCabinClass:
		update.CabinClass = strings.ToUpper(value)
		update.CabinName = models.CabinName(update.CabinClass)
	case FieldAirlineCode:
		update.AirlineCode = strings.ToUpper(value)
	case FieldFlightNumber:
		update.FlightNumber = strings.ToUpper(value)
	case FieldTransferCities:
		update.TransferCities = splitList(value)
	default:
		return trip.Clone()
	}

	return Merge(trip, update)
}

func withCode(trip *models.TripInfo, departure bool, code string) *models.Airport {
	a := &models.Airport{Code: strings.ToUpper(code)}
	if trip == nil {
		return a
	}
	existing := trip.Arrival
	if departure {
		existing = trip.Departure
	}
	if existing != nil {
		a.City = existing.City
		a.Name = existing.Name
	}
	return a
}

// ParsePassengers reads "ADT:2,CHD:1" style compositions.
func ParsePassengers(s string) ([]models.Passenger, bool) {
	var out []models.Passenger
	for _, part := range splitList(s) {
		typ, count, found := strings.Cut(part, ":")
		if !found {
			return nil, false
		}
		n, err := strconv.Atoi(strings.TrimSpace(count))
		if err != nil || n < 0 {
			return nil, false
		}
		pt := models.PassengerType(strings.ToUpper(strings.TrimSpace(typ)))
		switch pt {
		case models.PassengerAdult, models.PassengerChild, models.PassengerInfant:
		default:
			return nil, false
		}
		out = append(out, models.Passenger{Type: pt, Count: n})
	}
	return out, len(out) > 0
}

func splitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '/' || r == ' '
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, strings.ToUpper(f))
		}
	}
	return out
}

// Normalize clamps negative passenger counts and drops unknown passenger
// types. A missing or all-zero composition falls back to one adult. A trip
// with no travel type is a round trip when it has a return date and one-way
// otherwise; one-way trips carry no return date. The input is not modified.
func Normalize(trip *models.TripInfo) *models.TripInfo {
	if trip == nil {
		return nil
	}
	out := trip.Clone()
	if out.TravelType == "" {
		out.TravelType = models.TravelTypeOneWay
		if out.ReturnDate != "" {
			out.TravelType = models.TravelTypeRoundTrip
		}
	}
	if out.TravelType == models.TravelTypeOneWay {
		out.ReturnDate = ""
	}
	if out.CabinClass != "" && out.CabinName == "" {
		out.CabinName = models.CabinName(out.CabinClass)
	}
	if out.Passengers == nil {
		out.Passengers = models.DefaultPassengers()
	} else {
		kept := make([]models.Passenger, 0, len(out.Passengers))
		positive := false
		for _, p := range out.Passengers {
			switch p.Type {
			case models.PassengerAdult, models.PassengerChild, models.PassengerInfant:
			default:
				continue
			}
			if p.Count < 0 {
				p.Count = 0
			}
			if p.Count > 0 {
				positive = true
			}
			kept = append(kept, p)
		}
		if !positive {
			kept = models.DefaultPassengers()
		}
		out.Passengers = kept
	}
	out.FlightNumber = strings.ToUpper(strings.TrimSpace(out.FlightNumber))
	if len(out.TransferCities) == 0 {
		out.TransferCities = nil
	}
	return out
}
