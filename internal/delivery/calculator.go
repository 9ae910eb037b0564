// Package delivery computes shipping costs for cart deliveries by matching
// shipping-method price tiers against cart metrics and rule-scoped
// overrides.
package delivery

import (
	"sort"

	"github.com/noah-isme/checkout-core/internal/cart"
	"github.com/noah-isme/checkout-core/internal/channel"
	"github.com/noah-isme/checkout-core/internal/obs"
	"github.com/noah-isme/checkout-core/internal/price"
)

// DataKey returns the data collection key a shipping method is pre-loaded
// under.
func DataKey(shippingMethodID string) string {
	return "delivery-" + shippingMethodID
}

// Calculator resolves the shipping cost of each delivery in place.
type Calculator struct {
	prices     price.QuantityPriceCalculator
	taxBuilder price.PercentageTaxRuleBuilder
}

// NewCalculator returns a ready calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Calculate mutates each delivery's shipping cost. Missing shipping-method
// data is a hard error; a delivery without a matching tier records a
// blocked error on the cart and keeps its previous cost.
func (c *Calculator) Calculate(data *cart.DataCollection, cr *cart.Cart, deliveries []*cart.Delivery, ctx *channel.Context) error {
	for _, d := range deliveries {
		if err := c.calculateDelivery(data, cr, d, ctx); err != nil {
			return err
		}
	}
	return nil
}

func (c *Calculator) calculateDelivery(data *cart.DataCollection, cr *cart.Cart, d *cart.Delivery, ctx *channel.Context) error {
	// A manual override or an already priced delivery keeps its total; only
	// the tax breakdown is recomputed against the current items.
	if cr.ManualShippingCost != nil || d.ShippingCosts.UnitPrice > 0 {
		value := d.ShippingCosts.TotalPrice
		if cr.ManualShippingCost != nil {
			value = *cr.ManualShippingCost
		}
		costs, err := c.shippingCosts(d.ShippingMethod, fixedValue(value), d.LineItems(), ctx)
		if err != nil {
			return err
		}
		d.ShippingCosts = costs
		observeTier("manual")
		return nil
	}

	skipWithZero := cr.Behavior.HasPermission(cart.PermissionSkipDeliveryPriceRecalculation) &&
		price.FloatEquals(d.ShippingCosts.UnitPrice, 0)
	if skipWithZero || d.HasOnlyFreeDeliveryItems() {
		costs, err := c.shippingCosts(d.ShippingMethod, fixedValue(0), d.LineItems(), ctx)
		if err != nil {
			return err
		}
		d.ShippingCosts = costs
		observeTier("free")
		return nil
	}

	value, ok := data.Get(DataKey(d.ShippingMethod.ID))
	if !ok {
		return &NotFoundError{ShippingMethodID: d.ShippingMethod.ID}
	}
	method, ok := value.(cart.ShippingMethod)
	if !ok {
		return &NotFoundError{ShippingMethodID: d.ShippingMethod.ID}
	}

	var costs *price.CalculatedPrice
	for _, ruleID := range ctx.RuleIDs {
		matched, err := c.matchingTierPrice(d, ctx, tiersForRule(method.Prices, ruleID))
		if err != nil {
			return err
		}
		if matched != nil {
			costs = matched
			break
		}
	}
	if costs == nil {
		// No rule-scoped tier matched; retry against the default tier set.
		matched, err := c.matchingTierPrice(d, ctx, tiersForRule(method.Prices, ""))
		if err != nil {
			return err
		}
		costs = matched
	}
	if costs == nil {
		cr.AddError(&BlockedError{ShippingMethodName: method.Name})
		observeTier("blocked")
		return nil
	}

	d.ShippingCosts = *costs
	observeTier("matched")
	return nil
}

func observeTier(outcome string) {
	if obs.ShippingTierMatchTotal != nil {
		obs.ShippingTierMatchTotal.WithLabelValues(outcome).Inc()
	}
}

// matchingTierPrice sorts candidate tiers ascending by their
// currency-adjusted price (stable on ties) and prices the first tier that
// matches the delivery. Nil means no tier matched.
func (c *Calculator) matchingTierPrice(d *cart.Delivery, ctx *channel.Context, tiers []cart.ShippingPriceTier) (*price.CalculatedPrice, error) {
	sort.SliceStable(tiers, func(i, j int) bool {
		a, aok := currencyValue(tiers[i].CurrencyPrices, ctx)
		b, bok := currencyValue(tiers[j].CurrencyPrices, ctx)
		if aok != bok {
			return aok
		}
		return a < b
	})

	for _, tier := range tiers {
		if !c.tierMatches(d, tier, ctx) {
			continue
		}
		if _, ok := currencyValue(tier.CurrencyPrices, ctx); !ok {
			continue
		}
		costs, err := c.shippingCosts(d.ShippingMethod, tier.CurrencyPrices, d.LineItems(), ctx)
		if err != nil {
			return nil, err
		}
		return &costs, nil
	}
	return nil, nil
}

// tierMatches checks tier eligibility: a calculation rule binds the tier to
// that rule being active; otherwise the delivery metric must fall into the
// tier's range, start inclusive, end exclusive.
func (c *Calculator) tierMatches(d *cart.Delivery, tier cart.ShippingPriceTier, ctx *channel.Context) bool {
	if tier.CalculationRuleID != "" {
		return ctx.HasRule(tier.CalculationRuleID)
	}

	value := d.MetricValue(tier.Calculation)
	if tier.QuantityStart != nil && !price.FloatGreaterThanOrEquals(value, *tier.QuantityStart) {
		return false
	}
	if tier.QuantityEnd != nil && !price.FloatLessThan(value, *tier.QuantityEnd) {
		return false
	}
	return true
}

// shippingCosts prices the currency value with the method's tax strategy.
func (c *Calculator) shippingCosts(method cart.ShippingMethod, prices price.CurrencyCollection, items cart.LineItemCollection, ctx *channel.Context) (price.CalculatedPrice, error) {
	itemPrices := items.Prices()

	var rules price.TaxRuleCollection
	switch {
	case method.TaxType == cart.ShippingTaxHighest:
		rules = price.HighestTaxRules(itemPrices)
	case method.TaxType == cart.ShippingTaxFixed && method.FixedTaxRate != nil:
		rules = price.TaxRuleCollection{price.NewTaxRule(*method.FixedTaxRate)}
	default:
		rules = c.taxBuilder.BuildRules(price.SumPrices(itemPrices))
	}

	value, _ := currencyValue(prices, ctx)
	return c.prices.Calculate(price.QuantityPriceDefinition{
		UnitPrice: value,
		TaxRules:  rules,
		Quantity:  1,
	}, ctx.PriceContext())
}

// currencyValue resolves a currency collection for the context currency,
// picking gross or net per tax state and applying the currency factor to
// default-currency entries.
func currencyValue(prices price.CurrencyCollection, ctx *channel.Context) (float64, bool) {
	entry, ok := prices.ForCurrency(ctx.CurrencyID)
	if !ok {
		return 0, false
	}
	value := entry.Net
	if ctx.TaxState == price.TaxStateGross {
		value = entry.Gross
	}
	if entry.CurrencyID == price.DefaultCurrencyID {
		value *= ctx.CurrencyFactor
	}
	return value, true
}

func tiersForRule(tiers []cart.ShippingPriceTier, ruleID string) []cart.ShippingPriceTier {
	var filtered []cart.ShippingPriceTier
	for _, tier := range tiers {
		if tier.RuleID == ruleID {
			filtered = append(filtered, tier)
		}
	}
	return filtered
}

func fixedValue(value float64) price.CurrencyCollection {
	return price.CurrencyCollection{{CurrencyID: price.DefaultCurrencyID, Gross: value, Net: value}}
}
