package rule

import "github.com/noah-isme/checkout-core/internal/price"

// Operator is a comparison operator shared by all rule variants so that
// numeric and string comparison behave identically across the rule set.
type Operator string

const (
	OpEquals        Operator = "="
	OpNotEquals     Operator = "!="
	OpGreaterThan   Operator = ">"
	OpGreaterThanEq Operator = ">="
	OpLessThan      Operator = "<"
	OpLessThanEq    Operator = "<="
	OpEmpty         Operator = "empty"
	OpNotEmpty      Operator = "notEmpty"
)

// IsNegative reports whether the operator is satisfied by an absent value.
// Rules short-circuit on absent comparison values: absence satisfies
// exactly the negative operators, everything else fails without attempting
// a real comparison.
func IsNegative(op Operator) bool {
	return op == OpNotEquals || op == OpEmpty
}

// CompareNumeric evaluates value against target. A nil value satisfies only
// negative operators; a nil target never matches a real comparison.
func CompareNumeric(value, target *float64, op Operator) bool {
	switch op {
	case OpEmpty:
		return value == nil
	case OpNotEmpty:
		return value != nil
	}
	if value == nil {
		return IsNegative(op)
	}
	if target == nil {
		return false
	}
	switch op {
	case OpEquals:
		return price.FloatEquals(*value, *target)
	case OpNotEquals:
		return !price.FloatEquals(*value, *target)
	case OpGreaterThan:
		return !price.FloatEquals(*value, *target) && *value > *target
	case OpGreaterThanEq:
		return price.FloatGreaterThanOrEquals(*value, *target)
	case OpLessThan:
		return price.FloatLessThan(*value, *target)
	case OpLessThanEq:
		return price.FloatEquals(*value, *target) || *value < *target
	default:
		return false
	}
}

// CompareString evaluates value against target. The empty string counts as
// an absent value.
func CompareString(value, target string, op Operator) bool {
	switch op {
	case OpEmpty:
		return value == ""
	case OpNotEmpty:
		return value != ""
	}
	if value == "" {
		return IsNegative(op)
	}
	switch op {
	case OpEquals:
		return value == target
	case OpNotEquals:
		return value != target
	default:
		return false
	}
}

// CompareInt evaluates an integer count through the shared numeric path.
func CompareInt(value, target int, op Operator) bool {
	v := float64(value)
	t := float64(target)
	return CompareNumeric(&v, &t, op)
}
