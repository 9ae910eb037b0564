// Package checkout orchestrates the cart calculation pipeline: line item
// pricing, the processor chain and the final amount summary.
package checkout

import (
	"github.com/noah-isme/checkout-core/internal/cart"
	"github.com/noah-isme/checkout-core/internal/channel"
	"github.com/noah-isme/checkout-core/internal/price"
)

// AmountCalculator folds line item and delivery prices into the cart's
// price summary.
type AmountCalculator struct{}

// Calculate sums positions and shipping, merges their tax breakdowns and
// cash-rounds the grand total. The raw total keeps full precision for
// payment providers that settle on unrounded values.
func (AmountCalculator) Calculate(items, deliveries []price.CalculatedPrice, ctx *channel.Context) cart.Price {
	positions := price.SumPrices(items)
	all := price.SumPrices(append(append([]price.CalculatedPrice{}, items...), deliveries...))
	taxes := all.CalculatedTaxes

	var net, total float64
	if ctx.TaxState == price.TaxStateGross {
		total = all.TotalPrice
		net = total - taxes.Total()
	} else {
		net = all.TotalPrice
		total = net + taxes.Total()
	}

	rounding := ctx.TotalRounding
	return cart.Price{
		NetPrice:        rounding.MathRound(net),
		TotalPrice:      rounding.CashRound(total),
		PositionPrice:   positions.TotalPrice,
		TaxState:        ctx.TaxState,
		CalculatedTaxes: taxes,
		RawTotal:        total,
	}
}
