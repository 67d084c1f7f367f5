package mock

import (
	"encoding/json"
	"sort"

	"github.com/dharmasatrya/flightassist/internal/models"
	"github.com/dharmasatrya/flightassist/internal/timezone"
	"github.com/dharmasatrya/flightassist/pkg/currency"
)

// ExtractOffers converts an envelope into canonical offers. Pricing follows
// passengers, the composition the caller asked for; when it is empty the
// envelope's own request composition is used.
func ExtractOffers(env *Envelope, travelType models.TravelType, passengers []models.Passenger) []models.FlightOffer {
	if env == nil {
		return nil
	}
	if travelType == "" {
		travelType = models.TravelType(env.SearchParamRequest.UserCommonReq.TravelType)
	}
	if len(passengers) == 0 {
		for _, rp := range env.SearchParamRequest.UserCommonReq.ReqPassengers {
			passengers = append(passengers, models.Passenger{Type: models.PassengerType(rp.PassengerType), Count: rp.PassengerCount})
		}
	}
	if len(positive(passengers)) == 0 {
		passengers = models.DefaultPassengers()
	}

	offers := make([]models.FlightOffer, 0, len(env.TripProduct.TripProducts))
	for _, tp := range env.TripProduct.TripProducts {
		keys := append([]FlightKey(nil), tp.FlightKeys...)
		sort.SliceStable(keys, func(i, j int) bool { return keys[i].Index < keys[j].Index })

		segments := make([]models.FlightSegment, 0, len(keys))
		for _, fk := range keys {
			seg, ok := env.Segments[fk.FlightKey]
			if !ok {
				continue
			}
			segments = append(segments, normalizeSegment(fk, seg))
		}

		detail := firstDetail(tp.PriceDetails)
		cabin := models.CabinEconomy
		cabinName := ""
		cabinNum := ""
		if detail != nil {
			if detail.CabinClass != "" {
				cabin = detail.CabinClass
			}
			cabinName = detail.CabinName
			cabinNum = detail.CabinNum
		}
		if cabinName == "" {
			cabinName = models.CabinName(cabin)
		}

		offers = append(offers, models.FlightOffer{
			ID:         tp.FlightNoGroup,
			Type:       "INTL_NORMAL",
			TravelType: travelType,
			Segments:   segments,
			IsTransfer: len(segments) > directions(travelType),
			CabinClass: cabin,
			CabinName:  cabinName,
			CabinNum:   cabinNum,
			Price:      offerPrice(detail, tp.MinPrice, passengers),
			Services:   []string{},
			Labels:     []json.RawMessage{},
		})
	}
	return offers
}

func normalizeSegment(fk FlightKey, seg Segment) models.FlightSegment {
	return models.FlightSegment{
		Sequence:     fk.Index,
		FlightNumber: seg.OperatingFlightNo,
		Airline: models.Airline{
			Code: seg.MarketingAirCode,
			Name: seg.MarketingAirline,
		},
		Departure: models.Location{
			Code:     seg.DepAirportCode,
			City:     seg.DepCityCode,
			Name:     seg.DepAirportCode,
			Terminal: seg.DepAirportTerm,
			Time:     timezone.NormalizeDisplay(seg.DepDateTime),
		},
		Arrival: models.Location{
			Code:     seg.ArrAirportCode,
			City:     seg.ArrCityCode,
			Name:     seg.ArrAirportCode,
			Terminal: seg.ArrAirportTerm,
			Time:     timezone.NormalizeDisplay(seg.ArrDateTime),
		},
		DurationMinutes: seg.Duration,
		IsTransfer:      fk.Index > 1,
	}
}

// firstDetail picks the lowest-keyed price detail so map order never leaks
// into the result.
func firstDetail(details map[string]PriceDetail) *PriceDetail {
	if len(details) == 0 {
		return nil
	}
	ids := make([]string, 0, len(details))
	for id := range details {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	d := details[ids[0]]
	return &d
}

// offerPrice sums each requested passenger type's bucket × count. A missing
// type bucket falls back to the adult one; with no detail at all the trip
// product's minimum price stands in for one adult.
func offerPrice(detail *PriceDetail, minPrice int, passengers []models.Passenger) models.OfferPrice {
	price := models.OfferPrice{Currency: currency.CNY}

	if detail != nil {
		for _, p := range passengers {
			if p.Count <= 0 {
				continue
			}
			bucket := detail.Bucket(string(p.Type))
			if bucket == nil {
				bucket = detail.AdultPrice
			}
			if bucket == nil {
				continue
			}
			total := bucket.TotalPrice
			if total == 0 {
				total = bucket.Price + bucket.Tax
			}
			price.Base += float64(bucket.Price * p.Count)
			price.Tax += float64(bucket.Tax * p.Count)
			price.Total += float64(total * p.Count)
			price.Passengers = append(price.Passengers, models.PassengerPrice{
				Type:  p.Type,
				Count: p.Count,
				Base:  float64(bucket.Price),
				Tax:   float64(bucket.Tax),
				Total: float64(total),
			})
		}
	}

	if len(price.Passengers) == 0 {
		price.Base = float64(minPrice)
		price.Total = float64(minPrice)
		price.Passengers = []models.PassengerPrice{{
			Type:  models.PassengerAdult,
			Count: 1,
			Base:  price.Base,
			Total: price.Total,
		}}
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
