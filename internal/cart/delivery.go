package cart

import "github.com/noah-isme/checkout-core/internal/price"

// ShippingTaxType selects the tax strategy for shipping costs.
type ShippingTaxType string

const (
	// ShippingTaxHighest taxes shipping at the highest rate found among the
	// delivered items.
	ShippingTaxHighest ShippingTaxType = "highest"
	// ShippingTaxFixed taxes shipping at the method's configured rate.
	ShippingTaxFixed ShippingTaxType = "fixed"
	// ShippingTaxAuto mirrors the proportional tax composition of the
	// delivered items.
	ShippingTaxAuto ShippingTaxType = "auto"
)

// CalculationBasis selects the cart metric a price tier range applies to.
type CalculationBasis int

const (
	// CalculationByLineItemCount ranges over the delivered quantity.
	CalculationByLineItemCount CalculationBasis = 1
	// CalculationByPrice ranges over the delivered goods total.
	CalculationByPrice CalculationBasis = 2
	// CalculationByWeight ranges over the delivered weight.
	CalculationByWeight CalculationBasis = 3
	// CalculationByVolume ranges over the delivered volume.
	CalculationByVolume CalculationBasis = 4
)

// ShippingPriceTier is one price row of a shipping method: scoped by an
// optional rule, ranged over a cart metric, priced per currency. The range
// start is inclusive, the end exclusive.
type ShippingPriceTier struct {
	ID                string                   `json:"id"`
	RuleID            string                   `json:"ruleId,omitempty"`
	Calculation       CalculationBasis         `json:"calculation"`
	CalculationRuleID string                   `json:"calculationRuleId,omitempty"`
	QuantityStart     *float64                 `json:"quantityStart,omitempty"`
	QuantityEnd       *float64                 `json:"quantityEnd,omitempty"`
	CurrencyPrices    price.CurrencyCollection `json:"currencyPrices"`
}

// ShippingMethod is the pre-loaded reference data of one shipping method.
type ShippingMethod struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	TaxType      ShippingTaxType     `json:"taxType"`
	FixedTaxRate *float64            `json:"fixedTaxRate,omitempty"`
	Prices       []ShippingPriceTier `json:"prices,omitempty"`
}

// DeliveryPosition is one line item's share of a delivery.
type DeliveryPosition struct {
	LineItem *LineItem             `json:"lineItem"`
	Quantity int                   `json:"quantity"`
	Price    price.CalculatedPrice `json:"price"`
}

// Delivery groups line items shipped together with one shipping method and
// one computed shipping cost.
type Delivery struct {
	ShippingMethod ShippingMethod        `json:"shippingMethod"`
	Positions      []DeliveryPosition    `json:"positions"`
	ShippingCosts  price.CalculatedPrice `json:"shippingCosts"`
}

// WithoutFreeDelivery returns the positions whose items are not marked for
// free delivery. Items without delivery information count as free.
func (d *Delivery) WithoutFreeDelivery() []DeliveryPosition {
	var positions []DeliveryPosition
	for _, pos := range d.Positions {
		info := pos.LineItem.DeliveryInformation
		if info != nil && !info.FreeDelivery {
			positions = append(positions, pos)
		}
	}
	return positions
}

// HasOnlyFreeDeliveryItems reports whether every position is free of
// shipping charges.
func (d *Delivery) HasOnlyFreeDeliveryItems() bool {
	return len(d.WithoutFreeDelivery()) == 0
}

// LineItems returns the items covered by the delivery.
func (d *Delivery) LineItems() LineItemCollection {
	items := make(LineItemCollection, 0, len(d.Positions))
	for _, pos := range d.Positions {
		items = append(items, pos.LineItem)
	}
	return items
}

// MetricValue resolves the delivery's value for the given calculation
// basis over the non-free positions. Unknown bases fall back to price.
func (d *Delivery) MetricValue(basis CalculationBasis) float64 {
	positions := d.WithoutFreeDelivery()
	switch basis {
	case CalculationByLineItemCount:
		var quantity int
		for _, pos := range positions {
			quantity += pos.Quantity
		}
		return float64(quantity)
	case CalculationByWeight:
		var weight float64
		for _, pos := range positions {
			if w := pos.LineItem.DeliveryInformation.Weight; w != nil {
				weight += *w * float64(pos.Quantity)
			}
		}
		return weight
	case CalculationByVolume:
		var volume float64
		for _, pos := range positions {
			volume += pos.LineItem.DeliveryInformation.Volume() * float64(pos.Quantity)
		}
		return volume
	default:
		var total float64
		for _, pos := range positions {
			total += pos.Price.TotalPrice
		}
		return total
	}
}
