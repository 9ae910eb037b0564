package price

import "sort"

// TaxRule describes a tax rate applied to a percentage share of a price.
type TaxRule struct {
	TaxRate    float64 `json:"taxRate"`
	Percentage float64 `json:"percentage"`
}

// NewTaxRule builds a rule covering the full price at the given rate.
func NewTaxRule(rate float64) TaxRule {
	return TaxRule{TaxRate: rate, Percentage: 100}
}

// TaxRuleCollection groups the tax rules of a price.
type TaxRuleCollection []TaxRule

// CalculatedTax is the resolved tax portion for a single rate.
type CalculatedTax struct {
	Tax     float64 `json:"tax"`
	TaxRate float64 `json:"taxRate"`
	Price   float64 `json:"price"`
}

// CalculatedTaxCollection holds resolved taxes keyed by rate.
type CalculatedTaxCollection []CalculatedTax

// Total returns the sum of all tax amounts.
func (c CalculatedTaxCollection) Total() float64 {
	var total float64
	for _, t := range c {
		total += t.Tax
	}
	return total
}

// Merge combines another collection into this one, summing entries with the
// same rate. The result is sorted by rate for deterministic output.
func (c CalculatedTaxCollection) Merge(other CalculatedTaxCollection) CalculatedTaxCollection {
	byRate := make(map[float64]CalculatedTax, len(c)+len(other))
	for _, t := range c {
		byRate[t.TaxRate] = t
	}
	for _, t := range other {
		if existing, ok := byRate[t.TaxRate]; ok {
			existing.Tax += t.Tax
			existing.Price += t.Price
			byRate[t.TaxRate] = existing
			continue
		}
		byRate[t.TaxRate] = t
	}
	merged := make(CalculatedTaxCollection, 0, len(byRate))
	for _, t := range byRate {
		merged = append(merged, t)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].TaxRate < merged[j].TaxRate })
	return merged
}
