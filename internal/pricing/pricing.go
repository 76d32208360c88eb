// Package pricing derives the checkout breakdown from the cart subtotal.
package pricing

import (
	"github.com/fjod/go_food/internal/money"
	"github.com/shopspring/decimal"
)

var (
	DeliveryFee = money.MajorFromInt(40)
	TaxRate     = decimal.RequireFromString("0.05")

	// FreeDeliveryThreshold drives the "free delivery" banner only; the fee is still charged.
	FreeDeliveryThreshold = money.MajorFromInt(500)
)

type Breakdown struct {
	Subtotal             money.Amount `json:"subtotal"`
	DeliveryFee          money.Amount `json:"delivery_fee"`
	Tax                  money.Amount `json:"tax"`
	GrandTotal           money.Amount `json:"grand_total"`
	FreeDeliveryAdvisory bool         `json:"free_delivery_advisory"`
}

// ComputeBreakdown applies no rounding; rounding happens once when the
// grand total is converted to minor units for the provider.
func ComputeBreakdown(subtotal money.Amount) Breakdown {
	tax := subtotal.MulRate(TaxRate)
	grand := subtotal.Add(DeliveryFee).Add(tax)
	return Breakdown{
		Subtotal:             subtotal,
		DeliveryFee:          DeliveryFee,
		Tax:                  tax,
		GrandTotal:           grand,
		FreeDeliveryAdvisory: grand.GreaterThan(FreeDeliveryThreshold),
	}
}
