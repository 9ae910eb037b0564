package rule

import (
	"encoding/json"
	"fmt"

	validator "github.com/go-playground/validator/v10"
)

var validate = validator.New()

var knownOperators = map[Operator]bool{
	OpEquals:        true,
	OpNotEquals:     true,
	OpGreaterThan:   true,
	OpGreaterThanEq: true,
	OpLessThan:      true,
	OpLessThanEq:    true,
	OpEmpty:         true,
	OpNotEmpty:      true,
}

// Config is one persisted rule condition row: a variant name, its JSON
// payload and, for containers, child conditions.
type Config struct {
	Type     string          `json:"type"`
	Value    json.RawMessage `json:"value,omitempty"`
	Children []Config        `json:"children,omitempty"`
}

// Decode hydrates a rule tree from persisted condition rows, validating
// each variant's payload against its constraint schema.
func Decode(cfg Config) (Rule, error) {
	switch cfg.Type {
	case "andContainer":
		children, err := decodeChildren(cfg.Children)
		if err != nil {
			return nil, err
		}
		return AndRule{Rules: children}, nil
	case "orContainer":
		children, err := decodeChildren(cfg.Children)
		if err != nil {
			return nil, err
		}
		return OrRule{Rules: children}, nil
	case "cartWeight":
		var r CartWeightRule
		if err := decodePayload(cfg, &r); err != nil {
			return nil, err
		}
		if err := validateOperator(cfg.Type, r.Operator); err != nil {
			return nil, err
		}
		return r, nil
	case "cartVolume":
		var r CartVolumeRule
		if err := decodePayload(cfg, &r); err != nil {
			return nil, err
		}
		if err := validateOperator(cfg.Type, r.Operator); err != nil {
			return nil, err
		}
		return r, nil
	case "goodsCount":
		var r GoodsCountRule
		if err := decodePayload(cfg, &r); err != nil {
			return nil, err
		}
		if len(cfg.Children) > 0 {
			children, err := decodeChildren(cfg.Children)
			if err != nil {
				return nil, err
			}
			r.Filter = AndRule{Rules: children}
		}
		if err := validateOperator(cfg.Type, r.Operator); err != nil {
			return nil, err
		}
		return r, nil
	case "lineItemOfType":
		var r LineItemOfTypeRule
		if err := decodePayload(cfg, &r); err != nil {
			return nil, err
		}
		if err := validateOperator(cfg.Type, r.Operator); err != nil {
			return nil, err
		}
		return r, nil
	case "lineItemDimensionHeight":
		var r LineItemDimensionHeightRule
		if err := decodePayload(cfg, &r); err != nil {
			return nil, err
		}
		if err := validateOperator(cfg.Type, r.Operator); err != nil {
			return nil, err
		}
		return r, nil
	case "customerAffiliateCode":
		var r AffiliateCodeRule
		if err := decodePayload(cfg, &r); err != nil {
			return nil, err
		}
		if err := validateOperator(cfg.Type, r.Operator); err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown rule type %q", cfg.Type)
	}
}

func decodeChildren(configs []Config) ([]Rule, error) {
	rules := make([]Rule, 0, len(configs))
	for _, child := range configs {
		rule, err := Decode(child)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func decodePayload(cfg Config, target any) error {
	if len(cfg.Value) == 0 {
		return fmt.Errorf("rule %q: missing value payload", cfg.Type)
	}
	if err := json.Unmarshal(cfg.Value, target); err != nil {
		return fmt.Errorf("rule %q: decode value: %w", cfg.Type, err)
	}
	if err := validate.Struct(target); err != nil {
		return fmt.Errorf("rule %q: invalid value: %w", cfg.Type, err)
	}
	return nil
}

func validateOperator(ruleType string, op Operator) error {
	if !knownOperators[op] {
		return fmt.Errorf("rule %q: unsupported operator %q", ruleType, op)
	}
	return nil
}
