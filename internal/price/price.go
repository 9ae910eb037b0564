package price

// TaxState declares whether prices are handled gross or net.
type TaxState string

const (
	// TaxStateGross means prices include tax.
	TaxStateGross TaxState = "gross"
	// TaxStateNet means prices exclude tax.
	TaxStateNet TaxState = "net"
)

// DefaultCurrencyID marks currency price entries in the system default
// currency. Values in the default currency are converted with the context
// currency factor when resolved for another currency.
const DefaultCurrencyID = "default"

// Context carries the sales-channel facts price calculation depends on.
type Context struct {
	TaxState TaxState
	Rounding CashRoundingConfig
}

// CalculatedPrice is an immutable money value with its resolved tax
// breakdown for a specific quantity.
type CalculatedPrice struct {
	UnitPrice       float64                 `json:"unitPrice"`
	TotalPrice      float64                 `json:"totalPrice"`
	CalculatedTaxes CalculatedTaxCollection `json:"calculatedTaxes"`
	TaxRules        TaxRuleCollection       `json:"taxRules"`
	Quantity        int                     `json:"quantity"`
}

// Definition is a price definition attached to a line item before
// calculation.
type Definition interface {
	isDefinition()
}

// QuantityPriceDefinition describes a unit price to be multiplied by a
// quantity and taxed by the given rules.
type QuantityPriceDefinition struct {
	UnitPrice float64           `json:"unitPrice"`
	TaxRules  TaxRuleCollection `json:"taxRules"`
	Quantity  int               `json:"quantity"`
}

// PercentagePriceDefinition describes a percentage surcharge or discount
// over a set of reference prices. Negative percentages reduce the price.
type PercentagePriceDefinition struct {
	Percentage float64 `json:"percentage"`
}

// AbsolutePriceDefinition describes a fixed surcharge or discount amount.
type AbsolutePriceDefinition struct {
	Amount float64 `json:"amount"`
}

func (QuantityPriceDefinition) isDefinition()   {}
func (PercentagePriceDefinition) isDefinition() {}
func (AbsolutePriceDefinition) isDefinition()   {}

// Currency is a single gross/net value pair for one currency.
type Currency struct {
	CurrencyID string  `json:"currencyId"`
	Gross      float64 `json:"gross"`
	Net        float64 `json:"net"`
	Linked     bool    `json:"linked"`
}

// CurrencyCollection holds the per-currency values of a reference price.
type CurrencyCollection []Currency

// ForCurrency returns the entry for the given currency, falling back to the
// default currency entry.
func (c CurrencyCollection) ForCurrency(currencyID string) (Currency, bool) {
	for _, entry := range c {
		if entry.CurrencyID == currencyID {
			return entry, true
		}
	}
	for _, entry := range c {
		if entry.CurrencyID == DefaultCurrencyID {
			return entry, true
		}
	}
	return Currency{}, false
}

// SumPrices adds up calculated prices, merging their tax breakdowns.
func SumPrices(prices []CalculatedPrice) CalculatedPrice {
	sum := CalculatedPrice{Quantity: 1}
	taxes := CalculatedTaxCollection{}
	for _, p := range prices {
		sum.UnitPrice += p.TotalPrice
		sum.TotalPrice += p.TotalPrice
		taxes = taxes.Merge(p.CalculatedTaxes)
	}
	sum.CalculatedTaxes = taxes
	return sum
}

// HighestTaxRules returns a single full-coverage rule carrying the highest
// tax rate found across the given prices.
func HighestTaxRules(prices []CalculatedPrice) TaxRuleCollection {
	var highest float64
	found := false
	for _, p := range prices {
		for _, rule := range p.TaxRules {
			if !found || rule.TaxRate > highest {
				highest = rule.TaxRate
				found = true
			}
		}
	}
	if !found {
		return TaxRuleCollection{}
	}
	return TaxRuleCollection{NewTaxRule(highest)}
}
