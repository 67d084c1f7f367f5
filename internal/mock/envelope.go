// Package mock builds synthetic itineraries in the search backend's envelope
// shape and pushes them to the mock ingestion service.
package mock

// Envelope is the synthetic payload. Its shape mirrors a search backend
// record so it can be ingested and later returned by real searches.
type Envelope struct {
	Filter2            string             `json:"filter2"`
	FlatType           string             `json:"flatType"`
	ResourceID         string             `json:"resourceId"`
	ResourceType       string             `json:"resourceType"`
	TraceID            string             `json:"traceId"`
	SearchScene        string             `json:"searchScene"`
	SearchParamRequest SearchParamRequest `json:"searchParamRequest"`
	Segments           map[string]Segment `json:"segments"`
	TripProduct        TripProductGroup   `json:"tripProduct"`
	Ext                map[string]string  `json:"ext"`
	BoardFlightNoGroup string             `json:"boardFlightNoGroup"`
	BoardProductCode   string             `json:"boardProductCode"`
	CheckFlightNoGroup string             `json:"checkFlightNoGroup"`
}

type SearchParamRequest struct {
	LimitReq      LimitReq      `json:"limitReq"`
	UserCommonReq UserCommonReq `json:"userCommonReq"`
}

type LimitReq struct {
	MaxAge  int      `json:"maxAge"`
	MinAge  int      `json:"minAge"`
	Nations []string `json:"nations"`
}

type UserCommonReq struct {
	TravelType     string         `json:"travelType"`
	BookingClass   []string       `json:"bookingClass"`
	PassengerCount int            `json:"passengerCount"`
	ReqPassengers  []ReqPassenger `json:"reqPassengers"`
	ReqUserLines   []UserLine     `json:"reqUserLines"`
}

type ReqPassenger struct {
	PassengerType  string `json:"passengerType"`
	PassengerCount int    `json:"passengerCount"`
}

type UserLine struct {
	Index       int    `json:"index"`
	DepCityCode string `json:"depCityCode"`
	ArrCityCode string `json:"arrCityCode"`
	DepDate     string `json:"depDate"`
}

// Segment is one leg. Times are kept both as epoch milliseconds and as
// yyyyMMddHHmm strings in the journey origin's zone.
type Segment struct {
	Aircraft          string   `json:"aircraft"`
	ArrAirportCode    string   `json:"arrAirportCode"`
	ArrAirportTerm    string   `json:"arrAirportTerm"`
	ArrCityCode       string   `json:"arrCityCode"`
	ArrDateTime       string   `json:"arrDateTime"`
	ArrTime           int64    `json:"arrTime"`
	DepAirportCode    string   `json:"depAirportCode"`
	DepAirportTerm    string   `json:"depAirportTerm"`
	DepCityCode       string   `json:"depCityCode"`
	DepDateTime       string   `json:"depDateTime"`
	DepTime           int64    `json:"depTime"`
	Duration          int      `json:"duration"`
	FlightShare       bool     `json:"flightShare"`
	Key               string   `json:"key"`
	MarketingAirCode  string   `json:"marketingAirCode"`
	MarketingAirline  string   `json:"marketingAirline"`
	MarketingFlightNo string   `json:"marketingFlightNo"`
	Mileage           int      `json:"mileage"`
	OperatingAirline  string   `json:"operatingAirline"`
	OperatingFlightNo string   `json:"operatingFlightNo"`
	StopTime          int      `json:"stopTime"`
	Stops             []string `json:"stops"`
}

type FlightKey struct {
	FlightKey    string `json:"flightKey"`
	Index        int    `json:"index"`
	MainSegment  bool   `json:"mainSegment"`
	AirLineIndex int    `json:"airLineIndex"`
	MainAirline  string `json:"mainAirline"`
}

type TripProductGroup struct {
	TraceID      string        `json:"traceId"`
	CreateTime   int64         `json:"createTime"`
	TripProducts []TripProduct `json:"tripProducts"`
}

type TripProduct struct {
	FlightKeys    []FlightKey            `json:"flightKeys"`
	FlightNoGroup string                 `json:"flightNoGroup"`
	MinPrice      int                    `json:"minPrice"`
	NearTakeoff   bool                   `json:"nearTakeoff"`
	PriceDetails  map[string]PriceDetail `json:"priceDetails"`
	Ext           map[string]string      `json:"ext"`
}

// PriceDetail carries one fare bucket per passenger type. The adult bucket
// is always present; child and infant buckets only when requested.
type PriceDetail struct {
	Abnormal     bool        `json:"abnormal"`
	AdultPrice   *FarePrice  `json:"adultPrice"`
	ChildPrice   *FarePrice  `json:"childPrice,omitempty"`
	InfantPrice  *FarePrice  `json:"infantPrice,omitempty"`
	AllPrice     int         `json:"allPrice"`
	CabinClass   string      `json:"cabinClass"`
	CabinName    string      `json:"cabinName"`
	CabinNum     string      `json:"cabinNum"`
	FlightKeys   []FlightKey `json:"flightKeys"`
	ID           string      `json:"id"`
	MerchantID   int         `json:"merchantId"`
	ResourceType string      `json:"resourceType"`
	GDS          string      `json:"gds"`
}

type FarePrice struct {
	QValue        int      `json:"QValue"`
	BidMaxPrice   int      `json:"bidMaxPrice"`
	BidMinPrice   int      `json:"bidMinPrice"`
	EnginePrice   int      `json:"enginePrice"`
	GdsPrice      GdsPrice `json:"gdsPrice"`
	MerchantPrice int      `json:"merchantPrice"`
	NetPrice      int      `json:"netPrice"`
	PassengerType string   `json:"passengerType"`
	Price         int      `json:"price"`
	Tax           int      `json:"tax"`
	TotalPrice    int      `json:"totalPrice"`
}

type GdsPrice struct {
	QValue   float64 `json:"QValue"`
	Currency string  `json:"currency"`
	NetPrice float64 `json:"netPrice"`
	NetTax   float64 `json:"netTax"`
}

// Bucket returns the fare bucket for a passenger type code, nil when absent.
func (d PriceDetail) Bucket(passengerType string) *FarePrice {
	switch passengerType {
	case "ADT":
		return d.AdultPrice
	case "CHD":
		return d.ChildPrice
	case "INF":
		return d.InfantPrice
	default:
		return nil
	}
}
