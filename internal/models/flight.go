package models

import (
	"encoding/json"
	"strconv"
)

type Airline struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type Location struct {
	Code     string `json:"code"`
	City     string `json:"city"`
	Name     string `json:"name"`
	Terminal string `json:"terminal"`
	Time     string `json:"time"`
}

type FlightSegment struct {
	Sequence        int      `json:"sequence"`
	FlightNumber    string   `json:"flight_no"`
	Airline         Airline  `json:"airline"`
	Departure       Location `json:"departure"`
	Arrival         Location `json:"arrival"`
	DurationMinutes int      `json:"-"`
	Equipment       string   `json:"equip,omitempty"`
	IsTransfer      bool     `json:"is_transfer"`
}

// MarshalJSON renders the duration as text, the form clients consume.
func (s FlightSegment) MarshalJSON() ([]byte, error) {
	type alias FlightSegment
	return json.Marshal(struct {
		alias
		Duration string `json:"duration"`
	}{
		alias:    alias(s),
		Duration: strconv.Itoa(s.DurationMinutes),
	})
}

type PassengerPrice struct {
	Type  PassengerType
	Count int
	Base  float64
	Tax   float64
	Total float64
}

func (p PassengerPrice) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  PassengerType `json:"type"`
		Count int           `json:"count"`
		Base  string        `json:"base"`
		Tax   string        `json:"tax"`
		Total string        `json:"total"`
	}{
		Type:  p.Type,
		Count: p.Count,
		Base:  FormatAmount(p.Base),
		Tax:   FormatAmount(p.Tax),
		Total: FormatAmount(p.Total),
	})
}

type OfferPrice struct {
	Base       float64
	Tax        float64
	Total      float64
	Currency   string
	Formatted  string
	Passengers []PassengerPrice
}

func (p OfferPrice) MarshalJSON() ([]byte, error) {
	passengers := p.Passengers
	if passengers == nil {
		passengers = []PassengerPrice{}
	}
	return json.Marshal(struct {
		Base       string           `json:"base"`
		Tax        string           `json:"tax"`
		Total      string           `json:"total"`
		Currency   string           `json:"currency"`
		Formatted  string           `json:"formatted,omitempty"`
		Passengers []PassengerPrice `json:"passenger_prices"`
	}{
		Base:       FormatAmount(p.Base),
		Tax:        FormatAmount(p.Tax),
		Total:      FormatAmount(p.Total),
		Currency:   p.Currency,
		Formatted:  p.Formatted,
		Passengers: passengers,
	})
}

type FlightOffer struct {
	ID             string            `json:"id"`
	Type           string            `json:"type"`
	TravelType     TravelType        `json:"travel_type"`
	Segments       []FlightSegment   `json:"segments"`
	IsTransfer     bool              `json:"is_transfer"`
	CabinClass     string            `json:"cabin_class"`
	CabinName      string            `json:"cabin_name"`
	CabinNum       string            `json:"cabin_num,omitempty"`
	Price          OfferPrice        `json:"price"`
	Services       []string          `json:"services"`
	Labels         []json.RawMessage `json:"labels"`
	BestValueScore float64           `json:"best_value_score,omitempty"`
}

// TotalMinutes sums the flying time of every segment.
func (o FlightOffer) TotalMinutes() int {
	total := 0
	for _, s := range o.Segments {
		total += s.DurationMinutes
	}
	return total
}

// Stops counts connections: segments beyond one per direction.
func (o FlightOffer) Stops() int {
	directions := 1
	if o.TravelType == TravelTypeRoundTrip {
		directions = 2
	}
	if n := len(o.Segments) - directions; n > 0 {
		return n
	}
	return 0
}

// FormatAmount renders a price without trailing zeros: 1364 -> "1364", 12.5 -> "12.5".
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
