// Package cart holds the in-memory aggregates of the checkout calculation
// pipeline: the cart draft, its line items and deliveries, the behavior
// flags of a run and the shared processor data bag.
package cart

import "github.com/noah-isme/checkout-core/internal/price"

// Price is the computed summary of a calculated cart.
type Price struct {
	NetPrice        float64                       `json:"netPrice"`
	TotalPrice      float64                       `json:"totalPrice"`
	PositionPrice   float64                       `json:"positionPrice"`
	TaxState        price.TaxState                `json:"taxStatus"`
	CalculatedTaxes price.CalculatedTaxCollection `json:"calculatedTaxes"`
	RawTotal        float64                       `json:"rawTotal"`
}

// Cart is the mutable in-memory representation of a prospective order. It is
// owned by the calling checkout session; processors mutate it in sequence
// and append errors instead of throwing for business conditions.
type Cart struct {
	Token      string             `json:"token"`
	LineItems  LineItemCollection `json:"lineItems"`
	Deliveries []*Delivery        `json:"deliveries"`
	Price      Price              `json:"price"`
	Errors     ErrorCollection    `json:"errors"`
	Behavior   *Behavior          `json:"-"`

	// ManualShippingCost overrides tier-based shipping calculation when set
	// (e.g. an agent negotiated a custom rate during order recalculation).
	ManualShippingCost *float64 `json:"manualShippingCost,omitempty"`
}

// New returns an empty cart for the given session token.
func New(token string) *Cart {
	return &Cart{Token: token}
}

// Add appends a line item to the cart.
func (c *Cart) Add(item *LineItem) {
	c.LineItems = append(c.LineItems, item)
}

// Remove deletes the line item with the given id. Returns false when the
// item is absent or not removable.
func (c *Cart) Remove(id string) bool {
	for i, item := range c.LineItems {
		if item.ID != id {
			continue
		}
		if !item.Removable {
			return false
		}
		c.LineItems = append(c.LineItems[:i], c.LineItems[i+1:]...)
		return true
	}
	return false
}

// Goods returns all goods line items, flattened through containers.
func (c *Cart) Goods() LineItemCollection {
	return c.LineItems.Goods()
}

// ShippableItems returns the line items that participate in deliveries.
func (c *Cart) ShippableItems() LineItemCollection {
	var items LineItemCollection
	for _, item := range c.Goods() {
		if item.IsShippable() {
			items = append(items, item)
		}
	}
	return items
}

// AddError records a business error on the cart.
func (c *Cart) AddError(err Error) {
	c.Errors.Add(err)
}
