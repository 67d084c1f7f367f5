package search

import (
	"encoding/json"
	"sort"

	"github.com/dharmasatrya/flightassist/internal/models"
	"github.com/dharmasatrya/flightassist/internal/timezone"
	"github.com/dharmasatrya/flightassist/pkg/currency"
)

// Transform converts a finished (or last) round into canonical offers.
// Pricing follows the passenger composition the backend echoes back in
// req.userCommonReq, one adult when it echoes none.
func Transform(resp *Response) []models.FlightOffer {
	if resp == nil || !resp.Success || resp.Route == nil {
		return []models.FlightOffer{}
	}

	travelType := models.TravelTypeOneWay
	var passengers []models.Passenger
	if resp.Req != nil {
		if tt := resp.Req.UserCommonReq.TravelType; tt != "" {
			travelType = models.TravelType(tt)
		}
		for _, rp := range resp.Req.UserCommonReq.ReqPassengers {
			pt := rp.PassengerType
			if pt == "" {
				pt = string(models.PassengerAdult)
			}
			count := 1
			if rp.PassengerCount != nil {
				count = int(*rp.PassengerCount)
			}
			passengers = append(passengers, models.Passenger{Type: models.PassengerType(pt), Count: count})
		}
	}
	if len(passengers) == 0 {
		passengers = models.DefaultPassengers()
	}

	offers := make([]models.FlightOffer, 0, len(resp.Route.TripProducts))
	for _, tp := range resp.Route.TripProducts {
		segments := collectSegments(tp.Trip, resp.Route.Segments)

		cabin := tp.PriceQuote.CabinClassCode
		if cabin == "" {
			cabin = models.CabinEconomy
		}
		offerType := tp.Trip.Type
		if offerType == "" {
			offerType = "INTL_NORMAL"
		}
		labels := tp.Labels
		if labels == nil {
			labels = []json.RawMessage{}
		}

		offers = append(offers, models.FlightOffer{
			ID:         string(tp.Trip.ID),
			Type:       offerType,
			TravelType: travelType,
			Segments:   segments,
			IsTransfer: tp.Trip.HasTransferItem || len(segments) > directions(travelType),
			CabinClass: cabin,
			CabinName:  models.CabinName(cabin),
			CabinNum:   string(tp.PriceQuote.CabinNum),
			Price:      quotePrice(tp.PriceQuote.TotalPrice, passengers),
			Services:   []string{},
			Labels:     labels,
		})
	}
	return offers
}

func collectSegments(trip Trip, lookup map[string]Segment) []models.FlightSegment {
	var segments []models.FlightSegment
	for _, item := range trip.Items {
		for _, fk := range item.FlightKeys {
			seg, ok := lookup[string(fk.FlightKey)]
			if !ok {
				continue
			}
			sequence := int(fk.Sequence)
			if sequence <= 0 {
				sequence = int(fk.Index)
			}
			if sequence <= 0 {
				sequence = 1
			}
			equip := ""
			if seg.Equip != nil {
				equip = seg.Equip.CraftName
			}
			segments = append(segments, models.FlightSegment{
				Sequence:     sequence,
				FlightNumber: seg.LineNo,
				Airline: models.Airline{
					Code: seg.MktCode,
					Name: seg.MktName,
				},
				Departure:       location(seg.DepStation, seg.DepDate),
				Arrival:         location(seg.ArrStation, seg.ArrDate),
				DurationMinutes: int(seg.TravelTime),
				Equipment:       equip,
				IsTransfer:      sequence > 1,
			})
		}
	}
	sort.SliceStable(segments, func(i, j int) bool { return segments[i].Sequence < segments[j].Sequence })
	if segments == nil {
		segments = []models.FlightSegment{}
	}
	return segments
}

func location(s Station, when string) models.Location {
	return models.Location{
		Code:     s.StationCode,
		City:     s.CityName,
		Name:     s.StationName,
		Terminal: s.Terminal,
		Time:     timezone.NormalizeDisplay(when),
	}
}

// quotePrice sums bucket × count per passenger type, using the adult bucket
// for types the quote does not price. When nothing could be priced the adult
// bucket alone is the price.
func quotePrice(quote TotalPrice, passengers []models.Passenger) models.OfferPrice {
	price := models.OfferPrice{Currency: currency.CNY}

	for _, p := range passengers {
		if p.Count <= 0 {
			continue
		}
		fare := quote.Bucket(string(p.Type))
		if fare == nil {
			fare = quote.AdultPrice
		}
		if fare == nil {
			continue
		}
		n := float64(p.Count)
		price.Base += float64(fare.Price) * n
		price.Tax += float64(fare.Tax) * n
		price.Total += fare.Total() * n
		price.Passengers = append(price.Passengers, models.PassengerPrice{
			Type:  p.Type,
			Count: p.Count,
			Base:  float64(fare.Price),
			Tax:   float64(fare.Tax),
			Total: fare.Total(),
		})
	}

	if price.Total == 0 && quote.AdultPrice != nil {
		adult := quote.AdultPrice
		price.Base = float64(adult.Price)
		price.Tax = float64(adult.Tax)
		price.Total = adult.Total()
	}

	price.Formatted = currency.Format(price.Total, price.Currency)
	return price
}

func directions(travelType models.TravelType) int {
	if travelType == models.TravelTypeRoundTrip {
		return 2
	}
	return 1
}
