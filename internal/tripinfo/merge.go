// Package tripinfo accumulates partial trip extractions across conversation turns.
package tripinfo

import (
	"github.com/dharmasatrya/flightassist/internal/models"
)

// Merge folds update into base and returns a new TripInfo. Present fields in
// update overwrite base; absent ones are kept. A change of route resets the
// passenger composition and cabin to what update supplies (one adult and no
// cabin when it supplies none). An explicit one-way update drops the return
// date. Neither input is modified.
func Merge(base, update *models.TripInfo) *models.TripInfo {
	if base.IsEmpty() {
		return update.Clone()
	}
	if update.IsEmpty() {
		return base.Clone()
	}

	newRoute := IsNewRoute(base, update)
	result := base.Clone()

	if update.TravelType != "" {
		result.TravelType = update.TravelType
	}
	if update.Departure != nil {
		d := *update.Departure
		result.Departure = &d
	}
	if update.Arrival != nil {
		a := *update.Arrival
		result.Arrival = &a
	}
	if update.DepartureDate != "" {
		result.DepartureDate = update.DepartureDate
	}
	if update.ReturnDate != "" {
		result.ReturnDate = update.ReturnDate
	}
	if update.TravelType == models.TravelTypeOneWay {
		result.ReturnDate = ""
	}
	if update.AirlineCode != "" {
		result.AirlineCode = update.AirlineCode
	}
	if update.FlightNumber != "" {
		result.FlightNumber = update.FlightNumber
	}
	if update.TransferCities != nil {
		result.TransferCities = append([]string(nil), update.TransferCities...)
	}
	if update.DirectOnly != nil {
		v := *update.DirectOnly
		result.DirectOnly = &v
	}
	if update.DepartureTimeFrom != "" {
		result.DepartureTimeFrom = update.DepartureTimeFrom
	}
	if update.DepartureTimeTo != "" {
		result.DepartureTimeTo = update.DepartureTimeTo
	}

	switch {
	case update.Passengers != nil:
		result.Passengers = append([]models.Passenger(nil), update.Passengers...)
	case newRoute:
		result.Passengers = models.DefaultPassengers()
	}

	switch {
	case update.CabinClass != "":
		result.CabinClass = update.CabinClass
		result.CabinName = update.CabinName
	case newRoute:
		result.CabinClass = ""
		result.CabinName = ""
	}
	if update.CabinName != "" {
		result.CabinName = update.CabinName
	}

	return result
}

// IsNewRoute reports whether update changes the departure city, arrival city
// or departure date that base already holds.
func IsNewRoute(base, update *models.TripInfo) bool {
	if base == nil || update == nil {
		return false
	}
	if airportChanged(base.Departure, update.Departure) {
		return true
	}
	if airportChanged(base.Arrival, update.Arrival) {
		return true
	}
	return changed(base.DepartureDate, update.DepartureDate)
}

func changed(prev, next string) bool {
	return prev != "" && next != "" && prev != next
}

// airportChanged compares cities when both sides name one, codes otherwise.
func airportChanged(prev, next *models.Airport) bool {
	if prev == nil || next == nil {
		return false
	}
	if prev.City != "" && next.City != "" {
		return prev.City != next.City
	}
	return changed(prev.Code, next.Code)
}
