package mock

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/dharmasatrya/flightassist/internal/models"
	"github.com/dharmasatrya/flightassist/internal/timezone"
)

const (
	defaultDirectAirline   = "9C"
	defaultTransferAirline = "MU"
	defaultDepartureClock  = "12:00"

	seedFare = 1000
	seedTax  = 364

	roundTripIncrement = 100
	roundTripDiscount  = 50
	roundTripTax       = 50

	transferLegMinutes   = 120
	layoverMinutes       = 90
	roundTripLegMinutes  = 210
	directMinMinutes     = 120
	directMaxMinutes     = 300
	sameDayFallbackShift = 24 * time.Hour
)

var allBookingClasses = []string{"Y", "S", "C", "F"}

// Params describes the itinerary to synthesize. Departure and Arrival are
// airport or city codes.
type Params struct {
	Departure      string
	Arrival        string
	DepartureDate  string
	TravelType     models.TravelType
	ReturnDate     string
	FlightNumber   string
	AirlineCode    string
	TransferCities []string
	Passengers     []models.Passenger
	CabinClass     string
	CabinName      string
}

// ParamsFromTrip maps accumulated trip info onto generator input, preferring
// airport codes over city names.
func ParamsFromTrip(trip *models.TripInfo) Params {
	p := Params{
		Departure:      trip.Departure.Key(),
		Arrival:        trip.Arrival.Key(),
		DepartureDate:  trip.DepartureDate,
		TravelType:     trip.EffectiveTravelType(),
		ReturnDate:     trip.ReturnDate,
		FlightNumber:   trip.FlightNumber,
		AirlineCode:    trip.AirlineCode,
		TransferCities: append([]string(nil), trip.TransferCities...),
		Passengers:     trip.EffectivePassengers(),
		CabinClass:     trip.CabinClass,
		CabinName:      trip.CabinName,
	}
	if p.Departure == "" {
		p.Departure = "PEK"
	}
	if p.Arrival == "" {
		p.Arrival = "SHA"
	}
	return p
}

// IsTransfer reports whether p asks for a multi-leg itinerary.
func (p Params) IsTransfer() bool {
	return strings.Contains(p.FlightNumber, "/") || len(p.TransferCities) > 0
}

type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewGenerator returns a generator drawing from rng. A nil rng is seeded from
// the clock; a nil now uses time.Now.
func NewGenerator(rng *rand.Rand, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(now().UnixNano()))
	}
	return &Generator{rng: rng, now: now}
}

func (g *Generator) intn(lo, hi int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return lo + g.rng.Intn(hi-lo+1)
}

// Generate builds the envelope for p. Every path yields the same envelope
// shape: one trip product referencing its segments in order and one price
// detail.
func (g *Generator) Generate(p Params) *Envelope {
	p.Departure = strings.ToUpper(p.Departure)
	p.Arrival = strings.ToUpper(p.Arrival)
	p.FlightNumber = strings.ToUpper(strings.TrimSpace(p.FlightNumber))
	if len(positive(p.Passengers)) == 0 {
		p.Passengers = models.DefaultPassengers()
	}
	roundTrip := p.TravelType == models.TravelTypeRoundTrip
	if roundTrip && p.ReturnDate == "" {
		p.ReturnDate = p.DepartureDate
	}

	traceID := models.NewTraceID(models.TracePrefixMock, g.now())

	var env *Envelope
	switch {
	case p.IsTransfer() && roundTrip:
		env = g.transferRoundTrip(p)
	case p.IsTransfer():
		env = g.transferOneWay(p)
	case roundTrip:
		env = g.directRoundTrip(p)
	default:
		env = g.directOneWay(p)
	}

	env.TraceID = traceID
	env.TripProduct.TraceID = traceID
	env.TripProduct.CreateTime = g.now().UnixMilli()
	return env
}

type leg struct {
	from, to   string
	flightNo   string
	depart     time.Time
	minutes    int
	stopTime   int
	keySeed    string
	aircraft   string
	terminal   string
	direction  int
	mainInLine bool
}

func (g *Generator) directOneWay(p Params) *Envelope {
	flightNo, _ := g.directFlightNumber(p)
	base := g.baseTime(p.DepartureDate, p.Departure, time.Time{})

	l := leg{
		from: p.Departure, to: p.Arrival, flightNo: flightNo, depart: base,
		minutes:  g.intn(directMinMinutes, directMaxMinutes),
		keySeed:  fmt.Sprintf("%s_%s_%s", flightNo, p.DepartureDate, defaultDepartureClock),
		aircraft: "A320", terminal: "T2", direction: 1, mainInLine: true,
	}
	segments, keys := buildSegments([]leg{l})

	detail := g.priceDetail(p, seedFare, seedTax, keys, flightNo+"_"+strconv.Itoa(seedFare))
	detail.MerchantID, detail.ResourceType, detail.GDS = 317, "GW", "GW"

	env := newEnvelope(p, "AUTOMATIC", "GW", segments)
	env.TripProduct.TripProducts = []TripProduct{product(keys, flightNo+"_"+compactDate(p.DepartureDate), seedFare+seedTax, detail)}
	return env
}

func (g *Generator) directRoundTrip(p Params) *Envelope {
	outbound, airline := g.directFlightNumber(p)
	inbound := g.inboundFlightNumber(outbound, airline)

	out := g.baseTime(p.DepartureDate, p.Departure, time.Time{})
	in := g.baseTime(p.ReturnDate, p.Arrival, out.Add(sameDayFallbackShift))

	legs := []leg{
		{
			from: p.Departure, to: p.Arrival, flightNo: outbound, depart: out,
			minutes:  roundTripLegMinutes,
			keySeed:  fmt.Sprintf("%s_%s_%s", outbound, p.DepartureDate, defaultDepartureClock),
			aircraft: "777", terminal: "T1", direction: 1, mainInLine: true,
		},
		{
			from: p.Arrival, to: p.Departure, flightNo: inbound, depart: in,
			minutes:  roundTripLegMinutes,
			keySeed:  fmt.Sprintf("%s_%s_%s", inbound, p.ReturnDate, defaultDepartureClock),
			aircraft: "777", terminal: "T1", direction: 2, mainInLine: true,
		},
	}
	segments, keys := buildSegments(legs)

	detail := g.priceDetail(p, roundTripFare(), roundTripTax, keys,
		fmt.Sprintf("%s_%s_%d", outbound, inbound, seedFare))
	detail.MerchantID, detail.ResourceType, detail.GDS = 1047258, "TCPL", "TCPL"

	group := outbound + "_" + compactDate(p.DepartureDate) + "|" + inbound + "_" + compactDate(p.ReturnDate)
	env := newEnvelope(p, "NORMAL", "TCPL", segments)
	env.TripProduct.TripProducts = []TripProduct{product(keys, group, roundTripFare()+roundTripTax, detail)}
	return env
}

func (g *Generator) transferOneWay(p Params) *Envelope {
	flightNos, cities := g.transferPlan(p, 1)
	route := append(append([]string{p.Departure}, cities...), p.Arrival)
	base := g.baseTime(p.DepartureDate, p.Departure, time.Time{})

	legs := transferLegs(route, flightNos, base, 1, "")
	segments, keys := buildSegments(legs)

	detail := g.priceDetail(p, seedFare, seedTax, keys, strings.Join(flightNos, "_")+"_"+strconv.Itoa(seedFare))
	detail.MerchantID, detail.ResourceType, detail.GDS = 317, "GW", "GW"

	env := newEnvelope(p, "AUTOMATIC", "GW", segments)
	env.TripProduct.TripProducts = []TripProduct{product(keys, flightGroup(flightNos, p.DepartureDate), seedFare+seedTax, detail)}
	return env
}

func (g *Generator) transferRoundTrip(p Params) *Envelope {
	flightNos, cities := g.transferPlan(p, 2)
	outRoute := append(append([]string{p.Departure}, cities...), p.Arrival)
	inRoute := []string{p.Arrival}
	for i := len(cities) - 1; i >= 0; i-- {
		inRoute = append(inRoute, cities[i])
	}
	inRoute = append(inRoute, p.Departure)

	outBase := g.baseTime(p.DepartureDate, p.Departure, time.Time{})
	inBase := g.baseTime(p.ReturnDate, p.Arrival, outBase.Add(sameDayFallbackShift))

	outLegs := len(outRoute) - 1
	legs := transferLegs(outRoute, flightNos[:outLegs], outBase, 1, "OUT_")
	legs = append(legs, transferLegs(inRoute, flightNos[outLegs:], inBase, 2, "IN_")...)
	segments, keys := buildSegments(legs)

	detail := g.priceDetail(p, roundTripFare(), roundTripTax, keys, strings.Join(flightNos, "_")+"_"+strconv.Itoa(seedFare))
	detail.MerchantID, detail.ResourceType, detail.GDS = 1047258, "TCPL", "TCPL"

	group := flightGroup(flightNos[:outLegs], p.DepartureDate) + "|" + flightGroup(flightNos[outLegs:], p.ReturnDate)
	env := newEnvelope(p, "NORMAL", "TCPL", segments)
	env.TripProduct.TripProducts = []TripProduct{product(keys, group, roundTripFare()+roundTripTax, detail)}
	return env
}

// roundTripFare doubles the one-way seed, adds the fixed increment and moves
// part of it out of the fare so the adult total lands on 2×seed+increment.
func roundTripFare() int {
	return 2*seedFare + roundTripIncrement - roundTripDiscount
}

func (g *Generator) directFlightNumber(p Params) (flightNo, airline string) {
	if p.FlightNumber != "" {
		return p.FlightNumber, carrier(p.FlightNumber, defaultDirectAirline)
	}
	airline = strings.ToUpper(p.AirlineCode)
	if airline == "" {
		airline = defaultDirectAirline
	}
	return airline + strconv.Itoa(g.intn(1000, 9999)), airline
}

func (g *Generator) inboundFlightNumber(outbound, airline string) string {
	if len(outbound) > 2 {
		if n, err := strconv.Atoi(outbound[2:]); err == nil {
			return fmt.Sprintf("%s%04d", airline, n+1)
		}
	}
	return airline + strconv.Itoa(g.intn(1000, 9999))
}

// transferPlan settles the flight numbers for every leg and the transfer
// cities of one direction. directions is 1 for one-way, 2 for round trip.
func (g *Generator) transferPlan(p Params, directions int) ([]string, []string) {
	var flightNos []string
	if strings.Contains(p.FlightNumber, "/") {
		for _, fn := range strings.Split(p.FlightNumber, "/") {
			if fn = strings.TrimSpace(fn); fn != "" {
				flightNos = append(flightNos, fn)
			}
		}
	}

	cities := make([]string, 0, len(p.TransferCities))
	for _, c := range p.TransferCities {
		cities = append(cities, strings.ToUpper(c))
	}

	if len(flightNos) == 0 {
		airline := strings.ToUpper(p.AirlineCode)
		if airline == "" {
			airline = defaultTransferAirline
		}
		n := (len(cities) + 1) * directions
		for i := 0; i < n; i++ {
			flightNos = append(flightNos, fmt.Sprintf("%s%d", airline, 1000+i))
		}
	}

	if len(cities) == 0 {
		transfers := len(flightNos) - 1
		if directions == 2 {
			transfers = len(flightNos)/2 - 1
		}
		if transfers < 1 {
			transfers = 1
		}
		for i := 1; i <= transfers; i++ {
			cities = append(cities, "TR"+strconv.Itoa(i))
		}
	}

	need := (len(cities) + 1) * directions
	prefix := carrier(flightNos[0], defaultTransferAirline)
	for len(flightNos) < need {
		flightNos = append(flightNos, prefix+strconv.Itoa(g.intn(1000, 9999)))
	}
	return flightNos[:need], cities
}

func transferLegs(route, flightNos []string, base time.Time, direction int, keyPrefix string) []leg {
	legs := make([]leg, 0, len(route)-1)
	for i := 0; i < len(route)-1; i++ {
		stop := 0
		if i > 0 {
			stop = layoverMinutes
		}
		fn := flightNos[i]
		legs = append(legs, leg{
			from:       route[i],
			to:         route[i+1],
			flightNo:   fn,
			depart:     base.Add(time.Duration(i*(transferLegMinutes+layoverMinutes)) * time.Minute),
			minutes:    transferLegMinutes,
			stopTime:   stop,
			keySeed:    fmt.Sprintf("%s%s_%s_%s_%d", keyPrefix, fn, route[i], route[i+1], i),
			aircraft:   "A320",
			terminal:   "T2",
			direction:  direction,
			mainInLine: i == 0,
		})
	}
	return legs
}

func buildSegments(legs []leg) (map[string]Segment, []FlightKey) {
	segments := make(map[string]Segment, len(legs))
	keys := make([]FlightKey, 0, len(legs))
	for i, l := range legs {
		key := stableKey(l.keySeed)
		airline := carrier(l.flightNo, defaultTransferAirline)
		arrive := l.depart.Add(time.Duration(l.minutes) * time.Minute)

		segments[key] = Segment{
			Aircraft:          l.aircraft,
			ArrAirportCode:    l.to,
			ArrAirportTerm:    l.terminal,
			ArrCityCode:       l.to,
			ArrDateTime:       arrive.Format(timezone.WireLayout),
			ArrTime:           arrive.UnixMilli(),
			DepAirportCode:    l.from,
			DepAirportTerm:    l.terminal,
			DepCityCode:       l.from,
			DepDateTime:       l.depart.Format(timezone.WireLayout),
			DepTime:           l.depart.UnixMilli(),
			Duration:          l.minutes,
			Key:               key,
			MarketingAirCode:  airline,
			MarketingAirline:  airline,
			MarketingFlightNo: l.flightNo,
			OperatingAirline:  airline,
			OperatingFlightNo: l.flightNo,
			StopTime:          l.stopTime,
			Stops:             []string{},
		}

		keys = append(keys, FlightKey{
			FlightKey:    key,
			Index:        i + 1,
			MainSegment:  l.mainInLine,
			AirLineIndex: l.direction,
			MainAirline:  airline,
		})
	}
	return segments, keys
}

// baseTime is date at noon in the airport's zone. Unparseable dates fall
// back to fallback, or to now when fallback is zero.
func (g *Generator) baseTime(date, airport string, fallback time.Time) time.Time {
	t, err := timezone.LocalDateTime(date, defaultDepartureClock, airport)
	if err == nil {
		return t
	}
	if !fallback.IsZero() {
		return fallback
	}
	return g.now().In(timezone.GetLocationByAirport(airport)).Truncate(time.Minute)
}

func (g *Generator) priceDetail(p Params, fare, tax int, keys []FlightKey, idSeed string) PriceDetail {
	detail := buildPriceDetail(fare, tax, p.Passengers)

	cabin := strings.ToUpper(p.CabinClass)
	if cabin == "" || cabin == models.CabinAny {
		cabin = models.CabinEconomy
	}
	name := p.CabinName
	if name == "" || p.CabinClass == models.CabinAny {
		name = models.CabinName(cabin)
	}

	detail.CabinClass = cabin
	detail.CabinName = name
	detail.CabinNum = "9"
	detail.FlightKeys = keys
	detail.ID = stableKey(idSeed)
	return detail
}

func newEnvelope(p Params, scene, resourceType string, segments map[string]Segment) *Envelope {
	filter2 := p.Departure + "-" + p.Arrival + "-" + compactDate(p.DepartureDate)
	lines := []UserLine{{Index: 1, DepCityCode: p.Departure, ArrCityCode: p.Arrival, DepDate: p.DepartureDate + " 00:00:00.000"}}
	travelType := string(models.TravelTypeOneWay)
	if p.TravelType == models.TravelTypeRoundTrip {
		travelType = string(models.TravelTypeRoundTrip)
		filter2 += "-" + compactDate(p.ReturnDate)
		lines = append(lines, UserLine{Index: 2, DepCityCode: p.Arrival, ArrCityCode: p.Departure, DepDate: p.ReturnDate + " 00:00:00.000"})
	}

	reqPassengers := make([]ReqPassenger, 0, len(p.Passengers))
	total := 0
	for _, pax := range p.Passengers {
		reqPassengers = append(reqPassengers, ReqPassenger{PassengerType: string(pax.Type), PassengerCount: pax.Count})
		total += pax.Count
	}

	return &Envelope{
		Filter2:      filter2,
		FlatType:     "TC",
		ResourceID:   "EBOOKING-PRICING",
		ResourceType: resourceType,
		SearchScene:  scene,
		SearchParamRequest: SearchParamRequest{
			LimitReq: LimitReq{Nations: []string{}},
			UserCommonReq: UserCommonReq{
				TravelType:     travelType,
				BookingClass:   append([]string(nil), allBookingClasses...),
				PassengerCount: total,
				ReqPassengers:  reqPassengers,
				ReqUserLines:   lines,
			},
		},
		Segments: segments,
		Ext: map[string]string{
			"searchType": scene,
			"FILTER2":    filter2,
			"flatType":   "TC",
		},
	}
}

func product(keys []FlightKey, group string, minPrice int, detail PriceDetail) TripProduct {
	return TripProduct{
		FlightKeys:    keys,
		FlightNoGroup: group,
		MinPrice:      minPrice,
		PriceDetails:  map[string]PriceDetail{detail.ID: detail},
		Ext:           map[string]string{"PGS_FLOW_SWITCH": "1"},
	}
}

func flightGroup(flightNos []string, date string) string {
	parts := make([]string, len(flightNos))
	for i, fn := range flightNos {
		parts[i] = fn + "_" + compactDate(date)
	}
	return strings.Join(parts, "_")
}

// stableKey hashes a leg or price identity into a 10-digit key.
func stableKey(seed string) string {
	return fmt.Sprintf("%010d", xxhash.Sum64String(seed)%10_000_000_000)
}

func carrier(flightNo, fallback string) string {
	if len(flightNo) >= 2 {
		return flightNo[:2]
	}
	return fallback
}

func compactDate(date string) string {
	return strings.ReplaceAll(date, "-", "")
}

func positive(passengers []models.Passenger) []models.Passenger {
	var out []models.Passenger
	for _, p := range passengers {
		if p.Count > 0 {
			out = append(out, p)
		}
	}
	return out
}
