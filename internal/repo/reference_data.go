// Package repo loads calculation reference data from Postgres: shipping
// methods with their price tiers, and rule definitions. The calculation
// core never queries; everything a pipeline run needs is loaded up front
// into the shared data collection.
package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/checkout-core/internal/cart"
	"github.com/noah-isme/checkout-core/internal/delivery"
	"github.com/noah-isme/checkout-core/internal/price"
	"github.com/noah-isme/checkout-core/internal/rule"
)

// Querier is the subset of pgxpool.Pool the repo uses.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ReferenceData loads shipping methods and rules.
type ReferenceData struct {
	Q Querier
}

const shippingMethodsSQL = `
SELECT id, name, tax_type, fixed_tax_rate
FROM shipping_methods
WHERE active
ORDER BY id`

const shippingPricesSQL = `
SELECT id, shipping_method_id, rule_id, calculation, calculation_rule_id,
       quantity_start, quantity_end, currency_prices
FROM shipping_method_prices
ORDER BY shipping_method_id, id`

// ShippingMethods returns all active shipping methods with their tiers
// attached.
func (r ReferenceData) ShippingMethods(ctx context.Context) ([]cart.ShippingMethod, error) {
	rows, err := r.Q.Query(ctx, shippingMethodsSQL)
	if err != nil {
		return nil, fmt.Errorf("query shipping methods: %w", err)
	}
	defer rows.Close()

	var methods []cart.ShippingMethod
	index := map[string]int{}
	for rows.Next() {
		var m cart.ShippingMethod
		var taxType string
		if err := rows.Scan(&m.ID, &m.Name, &taxType, &m.FixedTaxRate); err != nil {
			return nil, fmt.Errorf("scan shipping method: %w", err)
		}
		m.TaxType = cart.ShippingTaxType(taxType)
		index[m.ID] = len(methods)
		methods = append(methods, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read shipping methods: %w", err)
	}

	tiers, err := r.shippingPrices(ctx)
	if err != nil {
		return nil, err
	}
	for methodID, methodTiers := range tiers {
		if i, ok := index[methodID]; ok {
			methods[i].Prices = methodTiers
		}
	}
	return methods, nil
}

func (r ReferenceData) shippingPrices(ctx context.Context) (map[string][]cart.ShippingPriceTier, error) {
	rows, err := r.Q.Query(ctx, shippingPricesSQL)
	if err != nil {
		return nil, fmt.Errorf("query shipping prices: %w", err)
	}
	defer rows.Close()

	tiers := map[string][]cart.ShippingPriceTier{}
	for rows.Next() {
		var tier cart.ShippingPriceTier
		var methodID string
		var ruleID, calcRuleID *string
		var currencyPrices []byte
		if err := rows.Scan(&tier.ID, &methodID, &ruleID, &tier.Calculation, &calcRuleID,
			&tier.QuantityStart, &tier.QuantityEnd, &currencyPrices); err != nil {
			return nil, fmt.Errorf("scan shipping price: %w", err)
		}
		if ruleID != nil {
			tier.RuleID = *ruleID
		}
		if calcRuleID != nil {
			tier.CalculationRuleID = *calcRuleID
		}
		var prices price.CurrencyCollection
		if err := json.Unmarshal(currencyPrices, &prices); err != nil {
			return nil, fmt.Errorf("decode currency prices of tier %s: %w", tier.ID, err)
		}
		tier.CurrencyPrices = prices
		tiers[methodID] = append(tiers[methodID], tier)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read shipping prices: %w", err)
	}
	return tiers, nil
}

// LoadCalculationData places every active shipping method into the data
// collection under its documented key.
func (r ReferenceData) LoadCalculationData(ctx context.Context, data *cart.DataCollection) error {
	methods, err := r.ShippingMethods(ctx)
	if err != nil {
		return err
	}
	for _, method := range methods {
		data.Set(delivery.DataKey(method.ID), method)
	}
	return nil
}

// RuleRow is one hydrated rule with its evaluation priority.
type RuleRow struct {
	ID       string
	Name     string
	Priority int
	Rule     rule.Rule
}

const rulesSQL = `
SELECT id, name, priority, payload
FROM rules
WHERE active
ORDER BY priority DESC, id`

// ActiveRules loads and decodes all active rules, highest priority first.
// A rule whose payload no longer decodes is a data error and aborts the
// load rather than silently mismatching.
func (r ReferenceData) ActiveRules(ctx context.Context) ([]RuleRow, error) {
	rows, err := r.Q.Query(ctx, rulesSQL)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var out []RuleRow
	for rows.Next() {
		var row RuleRow
		var payload []byte
		if err := rows.Scan(&row.ID, &row.Name, &row.Priority, &payload); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		var cfg rule.Config
		if err := json.Unmarshal(payload, &cfg); err != nil {
			return nil, fmt.Errorf("decode rule %s: %w", row.ID, err)
		}
		decoded, err := rule.Decode(cfg)
		if err != nil {
			return nil, fmt.Errorf("hydrate rule %s: %w", row.ID, err)
		}
		row.Rule = decoded
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return out, nil
}

// MatchingRuleIDs evaluates every rule against the scope and returns the
// ids of the ones that match, ordered by priority.
func MatchingRuleIDs(rules []RuleRow, scope rule.Scope) []string {
	matched := make([]RuleRow, 0, len(rules))
	for _, row := range rules {
		if row.Rule != nil && row.Rule.Match(scope) {
			matched = append(matched, row)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Priority > matched[j].Priority })
	ids := make([]string, 0, len(matched))
	for _, row := range matched {
		ids = append(ids, row.ID)
	}
	return ids
}
