package mock

import (
	"github.com/dharmasatrya/flightassist/internal/models"
)

// Child fares are 75% of the adult fare with half the tax; infant fares are
// 10% with no tax.
const (
	childFarePercent  = 75
	infantFarePercent = 10
)

func fareBucket(passengerType models.PassengerType, price, tax int) *FarePrice {
	return &FarePrice{
		BidMaxPrice: price,
		BidMinPrice: price,
		EnginePrice: price,
		GdsPrice: GdsPrice{
			Currency: "CNY",
			NetPrice: float64(price),
			NetTax:   float64(tax),
		},
		MerchantPrice: price,
		NetPrice:      price,
		PassengerType: string(passengerType),
		Price:         price,
		Tax:           tax,
		TotalPrice:    price + tax,
	}
}

// buildPriceDetail derives the per-type buckets from the adult seed and sums
// fare×count over every passenger entry with a positive count.
func buildPriceDetail(price, tax int, passengers []models.Passenger) PriceDetail {
	detail := PriceDetail{AdultPrice: fareBucket(models.PassengerAdult, price, tax)}

	all := 0
	for _, p := range passengers {
		if p.Count <= 0 {
			continue
		}
		switch p.Type {
		case models.PassengerAdult:
			all += detail.AdultPrice.TotalPrice * p.Count
		case models.PassengerChild:
			detail.ChildPrice = fareBucket(models.PassengerChild, price*childFarePercent/100, tax/2)
			all += detail.ChildPrice.TotalPrice * p.Count
		case models.PassengerInfant:
			detail.InfantPrice = fareBucket(models.PassengerInfant, price*infantFarePercent/100, 0)
			all += detail.InfantPrice.TotalPrice * p.Count
		}
	}
	detail.AllPrice = all
	return detail
}
