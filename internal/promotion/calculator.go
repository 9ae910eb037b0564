package promotion

import (
	"github.com/noah-isme/checkout-core/internal/cart"
	"github.com/noah-isme/checkout-core/internal/channel"
	"github.com/noah-isme/checkout-core/internal/price"
	"github.com/noah-isme/checkout-core/internal/rule"
)

// Discount is one resolved promotion discount awaiting calculation. The
// line item carries the price definition; the optional requirement gates
// the discount against the current cart.
type Discount struct {
	Item        *cart.LineItem
	Requirement rule.Rule
}

// Calculator prices resolved discounts against the goods already on the
// cart and attaches the ones that apply.
type Calculator struct {
	percentage price.PercentagePriceCalculator
	absolute   price.AbsolutePriceCalculator
}

// NewCalculator returns a ready calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Calculate applies each discount in order. Ineligible and zero-valued
// discounts are dropped silently; the remaining ones end up as priced
// promotion line items on the cart.
func (c *Calculator) Calculate(discounts []Discount, original, calculated *cart.Cart, ctx *channel.Context) error {
	for _, discount := range discounts {
		if discount.Item == nil {
			continue
		}
		if discount.Requirement != nil {
			scope := rule.CartScope{Cart: calculated, Context: ctx}
			if !discount.Requirement.Match(scope) {
				continue
			}
		}

		discountPrice, err := c.discountPrice(discount.Item, calculated, ctx)
		if err != nil {
			return err
		}
		if discountPrice == nil || price.FloatEquals(discountPrice.TotalPrice, 0) {
			continue
		}

		item := discount.Item
		item.Price = discountPrice
		calculated.LineItems = append(calculated.LineItems, item)
	}
	return nil
}

// discountPrice resolves the discount value from the item's price
// definition. Absolute discounts are capped at the goods total so a cart
// can never go negative.
func (c *Calculator) discountPrice(item *cart.LineItem, calculated *cart.Cart, ctx *channel.Context) (*price.CalculatedPrice, error) {
	goods := calculated.Goods().Prices()
	if len(goods) == 0 {
		return nil, nil
	}
	total := price.SumPrices(goods).TotalPrice

	switch def := item.PriceDefinition.(type) {
	case price.PercentagePriceDefinition:
		p, err := c.percentage.Calculate(def.Percentage, goods, ctx.PriceContext())
		if err != nil {
			return nil, err
		}
		return &p, nil
	case price.AbsolutePriceDefinition:
		amount := def.Amount
		if -amount > total {
			amount = -total
		}
		p, err := c.absolute.Calculate(amount, goods, ctx.PriceContext())
		if err != nil {
			return nil, err
		}
		return &p, nil
	default:
		return nil, nil
	}
}
