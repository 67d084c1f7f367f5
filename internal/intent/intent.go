// Package intent turns a free-text message into structured trip parameters
// with a language model.
package intent

import (
	"context"
	"errors"
	"strings"

	"github.com/dharmasatrya/flightassist/internal/models"
)

type Status string

const (
	StatusComplete    Status = "complete"
	StatusNeedClarify Status = "need_clarify"
	StatusError       Status = "error"
)

var ErrUnparseable = errors.New("model output is not valid JSON")

type Result struct {
	Status   Status
	TripInfo *models.TripInfo
	Clarify  *models.Clarification
	Message  string
}

// Parser extracts trip parameters from one user message, given recent
// history and the trip info gathered so far.
type Parser interface {
	Parse(ctx context.Context, message string, history []models.Message, current *models.TripInfo) (*Result, error)
}

// reply is the JSON document the model is asked to produce. Airports are
// flat city/code pairs there.
type reply struct {
	Status   string                `json:"status"`
	TripInfo *tripFields           `json:"trip_info"`
	Clarify  *models.Clarification `json:"clarify"`
	Message  string                `json:"message"`
}

type tripFields struct {
	TravelType     string             `json:"travel_type,omitempty"`
	DepartureCity  string             `json:"departure_city,omitempty"`
	DepartureCode  string             `json:"departure_code,omitempty"`
	ArrivalCity    string             `json:"arrival_city,omitempty"`
	ArrivalCode    string             `json:"arrival_code,omitempty"`
	DepDate        string             `json:"dep_date,omitempty"`
	ReturnDate     string             `json:"return_date,omitempty"`
	Passengers     []models.Passenger `json:"passengers,omitempty"`
	CabinClass     string             `json:"cabin_class,omitempty"`
	CabinName      string             `json:"cabin_name,omitempty"`
	AirlineCode    string             `json:"airline_code,omitempty"`
	FlightNo       string             `json:"flight_no,omitempty"`
	TransferCities []string           `json:"transfer_cities,omitempty"`
	DirectOnly     *bool              `json:"direct_only,omitempty"`
	DepTimeFrom    string             `json:"dep_time_from,omitempty"`
	DepTimeTo      string             `json:"dep_time_to,omitempty"`
}

func fromTripInfo(t *models.TripInfo) *tripFields {
	if t.IsEmpty() {
		return nil
	}
	f := &tripFields{
		TravelType:     string(t.TravelType),
		DepDate:        t.DepartureDate,
		ReturnDate:     t.ReturnDate,
		Passengers:     t.Passengers,
		CabinClass:     t.CabinClass,
		CabinName:      t.CabinName,
		AirlineCode:    t.AirlineCode,
		FlightNo:       t.FlightNumber,
		TransferCities: t.TransferCities,
		DirectOnly:     t.DirectOnly,
		DepTimeFrom:    t.DepartureTimeFrom,
		DepTimeTo:      t.DepartureTimeTo,
	}
	if t.Departure != nil {
		f.DepartureCity, f.DepartureCode = t.Departure.City, t.Departure.Code
	}
	if t.Arrival != nil {
		f.ArrivalCity, f.ArrivalCode = t.Arrival.City, t.Arrival.Code
	}
	return f
}

func (f *tripFields) toTripInfo() *models.TripInfo {
	if f == nil {
		return nil
	}
	t := &models.TripInfo{
		TravelType:     models.TravelType(strings.ToUpper(strings.TrimSpace(f.TravelType))),
		Departure:      airport(f.DepartureCity, f.DepartureCode),
		Arrival:        airport(f.ArrivalCity, f.ArrivalCode),
		DepartureDate:  strings.TrimSpace(f.DepDate),
		ReturnDate:     strings.TrimSpace(f.ReturnDate),
		Passengers:     f.Passengers,
		CabinClass:     strings.ToUpper(strings.TrimSpace(f.CabinClass)),
		CabinName:      f.CabinName,
		AirlineCode:    strings.ToUpper(strings.TrimSpace(f.AirlineCode)),
		FlightNumber:   strings.ToUpper(strings.TrimSpace(f.FlightNo)),
		TransferCities: f.TransferCities,

		DirectOnly:        f.DirectOnly,
		DepartureTimeFrom: strings.TrimSpace(f.DepTimeFrom),
		DepartureTimeTo:   strings.TrimSpace(f.DepTimeTo),
	}
	if t.IsEmpty() {
		return nil
	}
	return t
}

func airport(city, code string) *models.Airport {
	city, code = strings.TrimSpace(city), strings.ToUpper(strings.TrimSpace(code))
	if city == "" && code == "" {
		return nil
	}
	return &models.Airport{City: city, Code: code}
}

func (r *reply) toResult() *Result {
	res := &Result{
		TripInfo: r.TripInfo.toTripInfo(),
		Clarify:  r.Clarify,
		Message:  r.Message,
	}
	switch Status(strings.ToLower(strings.TrimSpace(r.Status))) {
	case StatusComplete:
		res.Status = StatusComplete
	case StatusNeedClarify, "needs_clarification":
		res.Status = StatusNeedClarify
	default:
		res.Status = StatusError
	}
	if res.Clarify != nil && res.Clarify.Options == nil {
		res.Clarify.Options = []models.ClarifyOption{}
	}
	return res
}
