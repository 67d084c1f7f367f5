// Package ranking scores offers so cheaper, shorter and more direct
// itineraries sort first.
package ranking

import (
	"math"

	"github.com/dharmasatrya/flightassist/internal/models"
)

// Each stop costs this many points before weighting.
const stopPenalty = 15

// weights balances the three score components; they sum to 1.
type weights struct {
	price    float64
	duration float64
	stops    float64
}

var defaultWeights = weights{price: 0.5, duration: 0.3, stops: 0.2}

// CalculateScores returns a copy of offers with BestValueScore filled in.
func CalculateScores(offers []models.FlightOffer) []models.FlightOffer {
	return defaultWeights.score(offers)
}

func (w weights) score(offers []models.FlightOffer) []models.FlightOffer {
	if len(offers) == 0 {
		return offers
	}

	b := boundsOf(offers)
	scored := append([]models.FlightOffer(nil), offers...)
	for i := range scored {
		scored[i].BestValueScore = w.value(scored[i], b)
	}
	return scored
}

type bounds struct {
	price   float64
	minutes float64
}

func boundsOf(offers []models.FlightOffer) bounds {
	var b bounds
	for _, o := range offers {
		b.price = math.Max(b.price, o.Price.Total)
		b.minutes = math.Max(b.minutes, float64(o.TotalMinutes()))
	}
	return b
}

// value scores one offer against the most expensive and longest offers in
// its result set. Lower is better.
func (w weights) value(o models.FlightOffer, b bounds) float64 {
	score := w.price*ratio(o.Price.Total, b.price) +
		w.duration*ratio(float64(o.TotalMinutes()), b.minutes) +
		w.stops*float64(o.Stops()*stopPenalty)
	return math.Round(score*100) / 100
}

// ratio maps v onto 0..100 relative to ceiling.
func ratio(v, ceiling float64) float64 {
	if ceiling <= 0 {
		return 0
	}
	return v / ceiling * 100
}
