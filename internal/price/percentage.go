package price

// PercentageTaxRuleBuilder derives proportional tax rules from the tax
// composition of a summed price. Used when a dependent price (shipping,
// discount) must mirror the tax split of the goods it relates to.
type PercentageTaxRuleBuilder struct{}

// BuildRules returns one rule per tax rate, weighted by that rate's share of
// the total price. A zero total yields an empty collection.
func (PercentageTaxRuleBuilder) BuildRules(p CalculatedPrice) TaxRuleCollection {
	if FloatEquals(p.TotalPrice, 0) {
		return TaxRuleCollection{}
	}
	rules := make(TaxRuleCollection, 0, len(p.CalculatedTaxes))
	for _, tax := range p.CalculatedTaxes {
		rules = append(rules, TaxRule{
			TaxRate:    tax.TaxRate,
			Percentage: tax.Price / p.TotalPrice * 100,
		})
	}
	return rules
}

// PercentagePriceCalculator computes a percentage of a set of reference
// prices, keeping their proportional tax composition.
type PercentagePriceCalculator struct {
	quantity   QuantityPriceCalculator
	taxBuilder PercentageTaxRuleBuilder
}

// Calculate applies the signed percentage to the summed reference prices.
func (c PercentagePriceCalculator) Calculate(percentage float64, prices []CalculatedPrice, ctx Context) (CalculatedPrice, error) {
	sum := SumPrices(prices)
	value := ctx.Rounding.MathRound(sum.TotalPrice * percentage / 100)
	return c.quantity.Calculate(QuantityPriceDefinition{
		UnitPrice: value,
		TaxRules:  c.taxBuilder.BuildRules(sum),
		Quantity:  1,
	}, ctx)
}

// AbsolutePriceCalculator computes a fixed amount whose tax composition
// mirrors the given reference prices.
type AbsolutePriceCalculator struct {
	quantity   QuantityPriceCalculator
	taxBuilder PercentageTaxRuleBuilder
}

// Calculate prices the signed amount against the reference prices.
func (c AbsolutePriceCalculator) Calculate(amount float64, prices []CalculatedPrice, ctx Context) (CalculatedPrice, error) {
	sum := SumPrices(prices)
	return c.quantity.Calculate(QuantityPriceDefinition{
		UnitPrice: amount,
		TaxRules:  c.taxBuilder.BuildRules(sum),
		Quantity:  1,
	}, ctx)
}
