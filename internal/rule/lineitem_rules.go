package rule

import "github.com/noah-isme/checkout-core/internal/cart"

// LineItemDimensionHeightRule compares a line item's height against a
// threshold. On a cart scope the rule matches when any goods item matches.
type LineItemDimensionHeightRule struct {
	Operator Operator `json:"operator" validate:"required"`
	Amount   *float64 `json:"amount"`
}

// Name identifies the rule variant.
func (LineItemDimensionHeightRule) Name() string { return "lineItemDimensionHeight" }

// Match evaluates per item or over all cart goods.
func (r LineItemDimensionHeightRule) Match(scope Scope) bool {
	switch s := scope.(type) {
	case LineItemScope:
		return r.matchItem(s.LineItem)
	case CartScope:
		for _, item := range s.Cart.Goods() {
			if r.matchItem(item) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func (r LineItemDimensionHeightRule) matchItem(item *cart.LineItem) bool {
	info := item.DeliveryInformation
	if info == nil {
		return IsNegative(r.Operator)
	}
	return CompareNumeric(info.Height, r.Amount, r.Operator)
}

// Constraints describes the configuration schema. The amount is optional
// for the empty operator.
func (r LineItemDimensionHeightRule) Constraints() map[string][]string {
	constraints := map[string][]string{
		"operator": {"required", "numericOperator"},
	}
	if r.Operator != OpEmpty {
		constraints["amount"] = []string{"required", "numeric"}
	}
	return constraints
}
