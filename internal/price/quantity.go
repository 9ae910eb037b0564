package price

import "errors"

// ErrInvalidQuantity is returned when a price definition carries a quantity
// of zero or less.
var ErrInvalidQuantity = errors.New("price definition quantity must be greater than zero")

// QuantityPriceCalculator turns a quantity price definition into a
// calculated price, applying the currency rounding and tax distribution of
// the sales channel.
type QuantityPriceCalculator struct{}

// Calculate computes unit × quantity with currency rounding and distributes
// the tax across the configured rules. The calculation is pure; identical
// inputs always yield identical results.
func (QuantityPriceCalculator) Calculate(def QuantityPriceDefinition, ctx Context) (CalculatedPrice, error) {
	if def.Quantity <= 0 {
		return CalculatedPrice{}, ErrInvalidQuantity
	}

	unit := ctx.Rounding.Round(def.UnitPrice, ctx.TaxState)
	total := ctx.Rounding.Round(unit*float64(def.Quantity), ctx.TaxState)

	return CalculatedPrice{
		UnitPrice:       unit,
		TotalPrice:      total,
		CalculatedTaxes: distributeTaxes(total, def.TaxRules, ctx),
		TaxRules:        def.TaxRules,
		Quantity:        def.Quantity,
	}, nil
}

// distributeTaxes allocates the tax over the rule percentages. Each share is
// rounded independently; the residual against the rounded exact sum lands on
// the largest share so the amounts always add up.
func distributeTaxes(total float64, rules TaxRuleCollection, ctx Context) CalculatedTaxCollection {
	if len(rules) == 0 {
		return CalculatedTaxCollection{}
	}

	taxes := make(CalculatedTaxCollection, 0, len(rules))
	var exactSum, roundedSum float64
	largest := 0
	for i, rule := range rules {
		share := total * rule.Percentage / 100
		exact := taxAmount(share, rule.TaxRate, ctx.TaxState)
		rounded := ctx.Rounding.MathRound(exact)
		taxes = append(taxes, CalculatedTax{
			Tax:     rounded,
			TaxRate: rule.TaxRate,
			Price:   share,
		})
		exactSum += exact
		roundedSum += rounded
		if taxes[i].Tax > taxes[largest].Tax {
			largest = i
		}
	}

	residual := ctx.Rounding.MathRound(ctx.Rounding.MathRound(exactSum) - roundedSum)
	if !FloatEquals(residual, 0) {
		taxes[largest].Tax = ctx.Rounding.MathRound(taxes[largest].Tax + residual)
	}
	return taxes
}

func taxAmount(price, rate float64, state TaxState) float64 {
	if state == TaxStateGross {
		return price * rate / (100 + rate)
	}
	return price * rate / 100
}
