package rule

import "github.com/noah-isme/checkout-core/internal/cart"

// CartWeightRule compares the total weight of all goods in the cart against
// a threshold. Items without a weight contribute zero.
type CartWeightRule struct {
	Operator Operator `json:"operator" validate:"required"`
	Weight   float64  `json:"weight"`
}

// Name identifies the rule variant.
func (CartWeightRule) Name() string { return "cartWeight" }

// Match sums weight × quantity over the cart goods and compares.
func (r CartWeightRule) Match(scope Scope) bool {
	cartScope, ok := scope.(CartScope)
	if !ok {
		return false
	}
	weight := cartWeight(cartScope.Cart)
	return CompareNumeric(&weight, &r.Weight, r.Operator)
}

// Constraints describes the configuration schema.
func (CartWeightRule) Constraints() map[string][]string {
	return map[string][]string{
		"operator": {"required", "numericOperator"},
		"weight":   {"required", "numeric"},
	}
}

func cartWeight(c *cart.Cart) float64 {
	var weight float64
	for _, item := range c.Goods() {
		if item.DeliveryInformation == nil || item.DeliveryInformation.Weight == nil {
			continue
		}
		weight += *item.DeliveryInformation.Weight * float64(item.Quantity)
	}
	return weight
}

// CartVolumeRule compares the total volume of all goods in the cart against
// a threshold. Missing dimensions contribute zero.
type CartVolumeRule struct {
	Operator Operator `json:"operator" validate:"required"`
	Volume   float64  `json:"volume"`
}

// Name identifies the rule variant.
func (CartVolumeRule) Name() string { return "cartVolume" }

// Match sums volume × quantity over the cart goods and compares.
func (r CartVolumeRule) Match(scope Scope) bool {
	cartScope, ok := scope.(CartScope)
	if !ok {
		return false
	}
	var volume float64
	for _, item := range cartScope.Cart.Goods() {
		volume += item.DeliveryInformation.Volume() * float64(item.Quantity)
	}
	return CompareNumeric(&volume, &r.Volume, r.Operator)
}

// Constraints describes the configuration schema.
func (CartVolumeRule) Constraints() map[string][]string {
	return map[string][]string{
		"operator": {"required", "numericOperator"},
		"volume":   {"required", "numeric"},
	}
}

// GoodsCountRule compares the number of goods line items in the cart,
// optionally counting only items accepted by a filter rule.
type GoodsCountRule struct {
	Operator Operator `json:"operator" validate:"required"`
	Count    int      `json:"count"`
	Filter   Rule     `json:"-"`
}

// Name identifies the rule variant.
func (GoodsCountRule) Name() string { return "goodsCount" }

// Match counts the (filtered) goods and compares.
func (r GoodsCountRule) Match(scope Scope) bool {
	cartScope, ok := scope.(CartScope)
	if !ok {
		return false
	}
	var count int
	for _, item := range cartScope.Cart.Goods() {
		if r.Filter != nil && !r.Filter.Match(LineItemScope{LineItem: item, Context: cartScope.Context}) {
			continue
		}
		count++
	}
	return CompareInt(count, r.Count, r.Operator)
}

// Constraints describes the configuration schema.
func (GoodsCountRule) Constraints() map[string][]string {
	return map[string][]string{
		"operator": {"required", "numericOperator"},
		"count":    {"required", "integer"},
	}
}

// LineItemOfTypeRule matches line items by type: the single item on a
// line-item scope, any item on a cart scope.
type LineItemOfTypeRule struct {
	Operator Operator `json:"operator" validate:"required"`
	ItemType string   `json:"lineItemType" validate:"required"`
}

// Name identifies the rule variant.
func (LineItemOfTypeRule) Name() string { return "lineItemOfType" }

// Match compares the item type per scope kind.
func (r LineItemOfTypeRule) Match(scope Scope) bool {
	switch s := scope.(type) {
	case LineItemScope:
		return CompareString(s.LineItem.Type, r.ItemType, r.Operator)
	case CartScope:
		for _, item := range s.Cart.LineItems {
			if CompareString(item.Type, r.ItemType, r.Operator) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Constraints describes the configuration schema.
func (LineItemOfTypeRule) Constraints() map[string][]string {
	return map[string][]string{
		"operator":     {"required", "stringOperator"},
		"lineItemType": {"required", "string"},
	}
}
