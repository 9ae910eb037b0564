// Package channel models the sales-channel context a cart is calculated
// against: currency, tax display state, active rules and rounding. The
// context is assembled explicitly by the caller and read-only during
// calculation.
package channel

import (
	"github.com/noah-isme/checkout-core/internal/cart"
	"github.com/noah-isme/checkout-core/internal/price"
)

// Customer is the subset of customer data rule evaluation depends on.
type Customer struct {
	ID            string
	AffiliateCode string
	CampaignCode  string
}

// Context carries the read-only facts of one calculation run.
type Context struct {
	Token          string
	CurrencyID     string
	CurrencyFactor float64
	TaxState       price.TaxState
	// RuleIDs holds the active rule ids, pre-ordered by priority.
	RuleIDs        []string
	ItemRounding   price.CashRoundingConfig
	TotalRounding  price.CashRoundingConfig
	Customer       *Customer
	ShippingMethod cart.ShippingMethod
}

// HasRule reports whether the given rule id is active.
func (c *Context) HasRule(id string) bool {
	for _, active := range c.RuleIDs {
		if active == id {
			return true
		}
	}
	return false
}

// PriceContext narrows the context to what price calculation needs, using
// the per-item rounding configuration.
func (c *Context) PriceContext() price.Context {
	return price.Context{TaxState: c.TaxState, Rounding: c.ItemRounding}
}

// TotalPriceContext narrows the context for grand-total rounding.
func (c *Context) TotalPriceContext() price.Context {
	return price.Context{TaxState: c.TaxState, Rounding: c.TotalRounding}
}
