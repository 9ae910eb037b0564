package price

import "github.com/shopspring/decimal"

// floatEpsilon is the tolerance for float comparisons on monetary values.
const floatEpsilon = 1e-8

// CashRoundingConfig controls how monetary values are rounded for a
// currency: number of decimals, the smallest cash interval (0.01 disables
// interval rounding) and whether interval rounding also applies to net
// prices.
type CashRoundingConfig struct {
	Decimals    int     `json:"decimals"`
	Interval    float64 `json:"interval"`
	RoundForNet bool    `json:"roundForNet"`
}

// DefaultRounding is standard two-decimal rounding without a cash interval.
func DefaultRounding() CashRoundingConfig {
	return CashRoundingConfig{Decimals: 2, Interval: 0.01, RoundForNet: true}
}

// MathRound rounds to the configured decimals without interval snapping.
func (c CashRoundingConfig) MathRound(value float64) float64 {
	rounded, _ := decimal.NewFromFloat(value).Round(int32(c.Decimals)).Float64()
	return rounded
}

// CashRound rounds to the configured decimals and snaps to the cash
// interval. Intervals at or below one cent behave like MathRound.
func (c CashRoundingConfig) CashRound(value float64) float64 {
	if c.Interval <= 0.01 {
		return c.MathRound(value)
	}
	interval := decimal.NewFromFloat(c.Interval)
	snapped := decimal.NewFromFloat(value).Div(interval).Round(0).Mul(interval)
	rounded, _ := snapped.Round(int32(c.Decimals)).Float64()
	return rounded
}

// Round applies the full rounding policy for the given tax state. Net
// prices skip interval snapping unless RoundForNet is set.
func (c CashRoundingConfig) Round(value float64, state TaxState) float64 {
	if state == TaxStateNet && !c.RoundForNet {
		return c.MathRound(value)
	}
	return c.CashRound(value)
}

// FloatEquals reports equality within the monetary epsilon.
func FloatEquals(a, b float64) bool {
	diff := a - b
	return diff < floatEpsilon && diff > -floatEpsilon
}

// FloatGreaterThanOrEquals reports a >= b within the monetary epsilon.
func FloatGreaterThanOrEquals(a, b float64) bool {
	return a > b-floatEpsilon
}

// FloatLessThan reports a < b within the monetary epsilon.
func FloatLessThan(a, b float64) bool {
	return a < b-floatEpsilon
}
