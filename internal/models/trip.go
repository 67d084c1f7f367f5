package models

type TravelType string

const (
	TravelTypeOneWay    TravelType = "OW"
	TravelTypeRoundTrip TravelType = "RT"
	TravelTypeOpenJaw   TravelType = "OJ"
)

type PassengerType string

const (
	PassengerAdult  PassengerType = "ADT"
	PassengerChild  PassengerType = "CHD"
	PassengerInfant PassengerType = "INF"
)

// PassengerTypes lists every fare bucket in the order backends expect them.
var PassengerTypes = []PassengerType{PassengerAdult, PassengerChild, PassengerInfant}

const (
	CabinEconomy        = "Y"
	CabinPremiumEconomy = "S"
	CabinBusiness       = "C"
	CabinFirst          = "F"
	CabinAny            = "ALL"
)

var cabinNames = map[string]string{
	CabinEconomy:        "经济舱",
	CabinPremiumEconomy: "超级经济舱",
	CabinBusiness:       "商务舱",
	CabinFirst:          "头等舱",
}

// CabinName returns the display name for a cabin class code, economy when unknown.
func CabinName(code string) string {
	if name, ok := cabinNames[code]; ok {
		return name
	}
	return cabinNames[CabinEconomy]
}

type Passenger struct {
	Type  PassengerType `json:"type" validate:"required,oneof=ADT CHD INF"`
	Count int           `json:"count" validate:"gte=0"`
}

// DefaultPassengers is the composition used when nothing else is known.
func DefaultPassengers() []Passenger {
	return []Passenger{{Type: PassengerAdult, Count: 1}}
}

type Airport struct {
	City string `json:"city"`
	Code string `json:"code"`
	Name string `json:"name,omitempty"`
}

// Key returns the airport code, falling back to the city name.
func (a *Airport) Key() string {
	if a == nil {
		return ""
	}
	if a.Code != "" {
		return a.Code
	}
	return a.City
}

type TripInfo struct {
	TravelType     TravelType  `json:"travel_type,omitempty"`
	Departure      *Airport    `json:"departure,omitempty"`
	Arrival        *Airport    `json:"arrival,omitempty"`
	DepartureDate  string      `json:"dep_date,omitempty"`
	ReturnDate     string      `json:"return_date,omitempty"`
	Passengers     []Passenger `json:"passengers,omitempty" validate:"dive"`
	CabinClass     string      `json:"cabin_class,omitempty"`
	CabinName      string      `json:"cabin_name,omitempty"`
	AirlineCode    string      `json:"airline_code,omitempty"`
	FlightNumber   string      `json:"flight_no,omitempty"`
	TransferCities []string    `json:"transfer_cities,omitempty"`

	// Display preferences applied to live results.
	DirectOnly        *bool  `json:"direct_only,omitempty"`
	DepartureTimeFrom string `json:"dep_time_from,omitempty"` // HH:MM
	DepartureTimeTo   string `json:"dep_time_to,omitempty"`
}

// IsEmpty reports whether no field carries a value.
func (t *TripInfo) IsEmpty() bool {
	if t == nil {
		return true
	}
	return t.TravelType == "" &&
		t.Departure == nil &&
		t.Arrival == nil &&
		t.DepartureDate == "" &&
		t.ReturnDate == "" &&
		len(t.Passengers) == 0 &&
		t.CabinClass == "" &&
		t.CabinName == "" &&
		t.AirlineCode == "" &&
		t.FlightNumber == "" &&
		len(t.TransferCities) == 0 &&
		t.DirectOnly == nil &&
		t.DepartureTimeFrom == "" &&
		t.DepartureTimeTo == ""
}

// Clone returns a deep copy; nil stays nil.
func (t *TripInfo) Clone() *TripInfo {
	if t == nil {
		return nil
	}
	c := *t
	if t.Departure != nil {
		d := *t.Departure
		c.Departure = &d
	}
	if t.Arrival != nil {
		a := *t.Arrival
		c.Arrival = &a
	}
	if t.Passengers != nil {
		c.Passengers = append([]Passenger(nil), t.Passengers...)
	}
	if t.TransferCities != nil {
		c.TransferCities = append([]string(nil), t.TransferCities...)
	}
	if t.DirectOnly != nil {
		v := *t.DirectOnly
		c.DirectOnly = &v
	}
	return &c
}

// EffectiveTravelType defaults to one-way.
func (t *TripInfo) EffectiveTravelType() TravelType {
	if t == nil || t.TravelType == "" {
		return TravelTypeOneWay
	}
	return t.TravelType
}

// EffectivePassengers returns the passenger list, or one adult when no
// entry has a positive count.
func (t *TripInfo) EffectivePassengers() []Passenger {
	if t != nil {
		for _, p := range t.Passengers {
			if p.Count > 0 {
				return append([]Passenger(nil), t.Passengers...)
			}
		}
	}
	return DefaultPassengers()
}

type ClarifyOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type Clarification struct {
	Field    string          `json:"field"`
	Question string          `json:"question"`
	Options  []ClarifyOption `json:"options"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
