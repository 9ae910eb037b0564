package cart

import (
	"errors"

	"github.com/noah-isme/checkout-core/internal/price"
)

// Line item types known to the calculation pipeline.
const (
	TypeProduct   = "product"
	TypePromotion = "promotion"
	TypeCredit    = "credit"
	TypeContainer = "container"
)

var (
	// ErrInvalidChildQuantity is returned when a child item cannot follow a
	// parent quantity change because it is not stackable.
	ErrInvalidChildQuantity = errors.New("child line item is not stackable")
)

// DeliveryInformation carries the shippable facts of a line item. Nil
// dimensions contribute zero to cart metrics.
type DeliveryInformation struct {
	Stock        int      `json:"stock"`
	Weight       *float64 `json:"weight,omitempty"`
	Height       *float64 `json:"height,omitempty"`
	Width        *float64 `json:"width,omitempty"`
	Length       *float64 `json:"length,omitempty"`
	FreeDelivery bool     `json:"freeDelivery"`
}

// Volume returns height × width × length, treating missing dimensions as
// zero.
func (d *DeliveryInformation) Volume() float64 {
	if d == nil || d.Height == nil || d.Width == nil || d.Length == nil {
		return 0
	}
	return *d.Height * *d.Width * *d.Length
}

// LineItem is a single cart entry: a product, a discount, a credit or a
// container of child items.
type LineItem struct {
	ID                  string                 `json:"id"`
	Type                string                 `json:"type"`
	ReferencedID        string                 `json:"referencedId,omitempty"`
	Label               string                 `json:"label,omitempty"`
	Quantity            int                    `json:"quantity"`
	Good                bool                   `json:"good"`
	Stackable           bool                   `json:"stackable"`
	Removable           bool                   `json:"removable"`
	Price               *price.CalculatedPrice `json:"price,omitempty"`
	PriceDefinition     price.Definition       `json:"-"`
	DeliveryInformation *DeliveryInformation   `json:"deliveryInformation,omitempty"`
	Children            LineItemCollection     `json:"children,omitempty"`
}

// IsShippable reports whether the item participates in deliveries.
func (l *LineItem) IsShippable() bool {
	return l.DeliveryInformation != nil
}

// LineItemCollection is an ordered list of line items.
type LineItemCollection []*LineItem

// FilterType returns the items of the given type, preserving order.
func (c LineItemCollection) FilterType(itemType string) LineItemCollection {
	var filtered LineItemCollection
	for _, item := range c {
		if item.Type == itemType {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

// Goods returns all goods items, flattened through container children.
func (c LineItemCollection) Goods() LineItemCollection {
	var goods LineItemCollection
	for _, item := range c {
		if item.Good {
			goods = append(goods, item)
		}
		if len(item.Children) > 0 {
			goods = append(goods, item.Children.Goods()...)
		}
	}
	return goods
}

// Get returns the item with the given id, or nil.
func (c LineItemCollection) Get(id string) *LineItem {
	for _, item := range c {
		if item.ID == id {
			return item
		}
	}
	return nil
}

// TotalQuantity sums the quantities of all items in the collection.
func (c LineItemCollection) TotalQuantity() int {
	var total int
	for _, item := range c {
		total += item.Quantity
	}
	return total
}

// Prices collects the calculated prices of all priced items.
func (c LineItemCollection) Prices() []price.CalculatedPrice {
	prices := make([]price.CalculatedPrice, 0, len(c))
	for _, item := range c {
		if item.Price != nil {
			prices = append(prices, *item.Price)
		}
	}
	return prices
}
