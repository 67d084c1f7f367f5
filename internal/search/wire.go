package search

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// flexString accepts a JSON string or number.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	*s = flexString(b)
	return nil
}

// flexInt accepts a JSON number or a numeric string. Empty strings read as 0.
type flexInt int

func (n *flexInt) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	if s == "" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		return err
	}
	*n = flexInt(f)
	return nil
}

// flexFloat accepts a JSON number or a numeric string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// Request is the body POSTed on every polling round.
type Request struct {
	TravelType       string            `json:"travelType"`
	ReqUserLines     []UserLine        `json:"reqUserLines"`
	UserLineIndex    int               `json:"userLineIndex"`
	SelectedLines    []json.RawMessage `json:"selectedLines"`
	ReqPassengers    []ReqPassenger    `json:"reqPassengers"`
	BookingClass     string            `json:"bookingClass"`
	Scene            string            `json:"scene"`
	PlatID           string            `json:"platId"`
	RefID            string            `json:"refId"`
	Language         string            `json:"language"`
	Locale           string            `json:"locale"`
	CurrencyCode     string            `json:"currencyCode"`
	SelectClass      string            `json:"selectClass"`
	BlackHole        bool              `json:"blackHole"`
	DeviceID         string            `json:"deviceId"`
	Buddha           string            `json:"buddha"`
	Thunder          string            `json:"thunder"`
	RecommendTag     string            `json:"recommendTag"`
	TransitCityCodes []string          `json:"transitCityCodes"`
	TraceID          string            `json:"traceId"`
	MemberInfo       MemberInfo        `json:"memberInfo"`
	Config           RequestConfig     `json:"config"`
	Ext              map[string]string `json:"ext"`
}

type UserLine struct {
	Index       int    `json:"index"`
	DepCityCode string `json:"depCityCode"`
	ArrCityCode string `json:"arrCityCode"`
	DepDate     string `json:"depDate"`
}

// ReqPassenger counts are strings on the request side.
type ReqPassenger struct {
	PassengerType  string `json:"passengerType"`
	PassengerCount string `json:"passengerCount"`
}

type MemberInfo struct {
	MemberID string `json:"memberId"`
	OpenID   string `json:"openId"`
	UnionID  string `json:"unionId"`
	UserSign string `json:"userSign"`
	QueryIP  string `json:"queryIp"`
}

type RequestConfig struct {
	AB       map[string]string `json:"ab"`
	Lat      string            `json:"lat"`
	Lon      string            `json:"lon"`
	LocType  string            `json:"locType"`
	SortType string            `json:"sortType"`
}

// Response is one polling round's answer, after unwrapping any data envelope.
type Response struct {
	Success     bool         `json:"success"`
	Finished    bool         `json:"finished"`
	SleepTime   flexInt      `json:"sleepTime"`
	Message     string       `json:"message"`
	ResultCount flexInt      `json:"resultCount"`
	Route       *Route       `json:"route"`
	Req         *RequestEcho `json:"req"`
}

type Route struct {
	Segments     map[string]Segment `json:"segments"`
	TripProducts []TripProduct      `json:"tripProducts"`
}

type Segment struct {
	LineNo     string  `json:"lineNo"`
	MktCode    string  `json:"mktCode"`
	MktName    string  `json:"mktName"`
	DepStation Station `json:"depStation"`
	ArrStation Station `json:"arrStation"`
	DepDate    string  `json:"depDate"`
	ArrDate    string  `json:"arrDate"`
	TravelTime flexInt `json:"travelTime"`
	Equip      *Equip  `json:"equip"`
}

type Station struct {
	StationCode string `json:"stationCode"`
	CityName    string `json:"cityName"`
	StationName string `json:"stationName"`
	Terminal    string `json:"terminal"`
}

type Equip struct {
	CraftName string `json:"craftName"`
}

type TripProduct struct {
	Trip       Trip              `json:"trip"`
	PriceQuote PriceQuote        `json:"priceQuote"`
	Labels     []json.RawMessage `json:"labels"`
}

type Trip struct {
	ID              flexString `json:"id"`
	Type            string     `json:"type"`
	HasTransferItem bool       `json:"hasTransferItem"`
	Items           []TripItem `json:"items"`
}

type TripItem struct {
	FlightKeys []ItemKey `json:"flightKeys"`
}

type ItemKey struct {
	FlightKey flexString `json:"flightKey"`
	Sequence  flexInt    `json:"sequence"`
	Index     flexInt    `json:"index"`
}

type PriceQuote struct {
	TotalPrice     TotalPrice `json:"totalPrice"`
	CabinClassCode string     `json:"cabinClassCode"`
	CabinNum       flexString `json:"cabinNum"`
}

type TotalPrice struct {
	AdultPrice  *Fare `json:"adultPrice"`
	ChildPrice  *Fare `json:"childPrice"`
	InfantPrice *Fare `json:"infantPrice"`
}

// Bucket returns the fare for a passenger type code, nil when absent.
func (t TotalPrice) Bucket(passengerType string) *Fare {
	switch passengerType {
	case "ADT":
		return t.AdultPrice
	case "CHD":
		return t.ChildPrice
	case "INF":
		return t.InfantPrice
	default:
		return nil
	}
}

type Fare struct {
	Price             flexFloat  `json:"price"`
	Tax               flexFloat  `json:"tax"`
	TotalPrice        *flexFloat `json:"totalPrice"`
	ForeignTotalPrice flexString `json:"foreignTotalPrice"`
}

// Total is totalPrice when the backend sent one, price+tax otherwise.
func (f *Fare) Total() float64 {
	if f.TotalPrice != nil {
		return float64(*f.TotalPrice)
	}
	return float64(f.Price + f.Tax)
}

type RequestEcho struct {
	UserCommonReq struct {
		TravelType    string `json:"travelType"`
		ReqPassengers []struct {
			PassengerType  string   `json:"passengerType"`
			PassengerCount *flexInt `json:"passengerCount"` // absent means one
		} `json:"reqPassengers"`
	} `json:"userCommonReq"`
}

// decodeResponse reads a round's body, unwrapping a top-level data object
// when present.
func decodeResponse(body []byte) (*Response, json.RawMessage, error) {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, nil, err
	}
	raw := json.RawMessage(body)
	if d := bytes.TrimSpace(wrapper.Data); len(d) > 0 && d[0] == '{' {
		raw = wrapper.Data
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, nil, err
	}
	return &resp, raw, nil
}
