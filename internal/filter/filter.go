package filter

import (
	"sort"
	"strings"
	"time"

	"github.com/dharmasatrya/flightassist/internal/models"
	"github.com/dharmasatrya/flightassist/internal/ranking"
)

const (
	SortPrice     = "price"
	SortDuration  = "duration"
	SortDeparture = "departure"
	SortBestValue = "best_value"
	SortStops     = "stops"
)

const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Criteria narrows a result set. Zero values match everything.
type Criteria struct {
	Airlines      []string
	DirectOnly    bool
	DepartureFrom string // HH:MM, inclusive
	DepartureTo   string
}

// FromTrip derives criteria from the preferences the traveller stated. It
// returns nil when there are none.
func FromTrip(trip *models.TripInfo) *Criteria {
	if trip == nil {
		return nil
	}
	c := &Criteria{
		DirectOnly:    trip.DirectOnly != nil && *trip.DirectOnly,
		DepartureFrom: trip.DepartureTimeFrom,
		DepartureTo:   trip.DepartureTimeTo,
	}
	if trip.AirlineCode != "" {
		c.Airlines = []string{trip.AirlineCode}
	}
	if len(c.Airlines) == 0 && !c.DirectOnly && c.DepartureFrom == "" && c.DepartureTo == "" {
		return nil
	}
	return c
}

// Apply filters offers by criteria and orders them by sortBy ("asc" unless
// sortOrder is "desc"). Unknown sort keys order by price ascending. The
// input slice is not reordered.
func Apply(offers []models.FlightOffer, criteria *Criteria, sortBy, sortOrder string) []models.FlightOffer {
	filtered := applyFilters(offers, criteria)

	if strings.EqualFold(sortBy, SortBestValue) {
		filtered = ranking.CalculateScores(filtered)
	}

	return applySort(filtered, sortBy, sortOrder)
}

func applyFilters(offers []models.FlightOffer, criteria *Criteria) []models.FlightOffer {
	result := make([]models.FlightOffer, 0, len(offers))
	for _, o := range offers {
		if criteria == nil || matches(o, criteria) {
			result = append(result, o)
		}
	}
	return result
}

// An offer matches an airline when any of its segments is operated by it.
func matches(o models.FlightOffer, c *Criteria) bool {
	if c.DirectOnly && o.Stops() > 0 {
		return false
	}

	if len(c.Airlines) > 0 && !operatedBy(o, c.Airlines) {
		return false
	}

	if c.DepartureFrom == "" && c.DepartureTo == "" {
		return true
	}
	dep, ok := minuteOfDay(departure(o))
	if !ok {
		return true
	}
	if lo, err := parseTimeOfDay(c.DepartureFrom); err == nil && dep < lo {
		return false
	}
	if hi, err := parseTimeOfDay(c.DepartureTo); err == nil && dep > hi {
		return false
	}
	return true
}

func operatedBy(o models.FlightOffer, airlines []string) bool {
	for _, s := range o.Segments {
		for _, airline := range airlines {
			if strings.EqualFold(s.Airline.Code, airline) {
				return true
			}
		}
	}
	return false
}

func parseTimeOfDay(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// minuteOfDay reads HH:MM out of a "yyyy-MM-dd HH:mm[:ss]" segment time.
func minuteOfDay(ts string) (int, bool) {
	if len(ts) < 16 {
		return 0, false
	}
	m, err := parseTimeOfDay(ts[11:16])
	return m, err == nil
}

func departure(o models.FlightOffer) string {
	if len(o.Segments) == 0 {
		return ""
	}
	return o.Segments[0].Departure.Time
}

func applySort(offers []models.FlightOffer, sortBy, sortOrder string) []models.FlightOffer {
	if len(offers) == 0 {
		return offers
	}

	ascending := !strings.EqualFold(sortOrder, OrderDesc)
	less := func(a, b bool) bool {
		if ascending {
			return a
		}
		return b
	}

	switch strings.ToLower(sortBy) {
	case SortPrice:
		sort.SliceStable(offers, func(i, j int) bool {
			return less(offers[i].Price.Total < offers[j].Price.Total, offers[i].Price.Total > offers[j].Price.Total)
		})

	case SortDuration:
		sort.SliceStable(offers, func(i, j int) bool {
			di, dj := offers[i].TotalMinutes(), offers[j].TotalMinutes()
			return less(di < dj, di > dj)
		})

	case SortDeparture:
		// Display times sort lexically.
		sort.SliceStable(offers, func(i, j int) bool {
			di, dj := departure(offers[i]), departure(offers[j])
			return less(di < dj, di > dj)
		})

	case SortBestValue:
		sort.SliceStable(offers, func(i, j int) bool {
			si, sj := offers[i].BestValueScore, offers[j].BestValueScore
			return less(si < sj, si > sj)
		})

	case SortStops:
		sort.SliceStable(offers, func(i, j int) bool {
			si, sj := offers[i].Stops(), offers[j].Stops()
			return less(si < sj, si > sj)
		})

	default:
		// Default to price ascending
		sort.SliceStable(offers, func(i, j int) bool {
			return offers[i].Price.Total < offers[j].Price.Total
		})
	}

	return offers
}
