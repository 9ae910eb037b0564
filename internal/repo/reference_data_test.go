package repo

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/checkout-core/internal/cart"
	"github.com/noah-isme/checkout-core/internal/channel"
	"github.com/noah-isme/checkout-core/internal/delivery"
	"github.com/noah-isme/checkout-core/internal/rule"
)

type fakeRows struct {
	rows [][]any
	pos  int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return r.rows[r.pos-1], nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: want %d destinations, got %d", len(row), len(dest))
	}
	for i, value := range row {
		if err := assign(dest[i], value); err != nil {
			return fmt.Errorf("scan column %d: %w", i, err)
		}
	}
	return nil
}

func assign(dest, value any) error {
	switch d := dest.(type) {
	case *string:
		*d = value.(string)
	case **string:
		if value == nil {
			*d = nil
		} else {
			s := value.(string)
			*d = &s
		}
	case *int:
		*d = value.(int)
	case **float64:
		if value == nil {
			*d = nil
		} else {
			f := value.(float64)
			*d = &f
		}
	case *[]byte:
		if value == nil {
			*d = nil
		} else {
			*d = []byte(value.(string))
		}
	case *cart.CalculationBasis:
		*d = cart.CalculationBasis(value.(int))
	default:
		return fmt.Errorf("unsupported destination %T", dest)
	}
	return nil
}

type fakeQuerier struct {
	methods [][]any
	prices  [][]any
	rules   [][]any
}

func (q fakeQuerier) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	switch {
	case strings.Contains(sql, "FROM shipping_methods"):
		return &fakeRows{rows: q.methods}, nil
	case strings.Contains(sql, "FROM shipping_method_prices"):
		return &fakeRows{rows: q.prices}, nil
	case strings.Contains(sql, "FROM rules"):
		return &fakeRows{rows: q.rules}, nil
	}
	return nil, fmt.Errorf("unexpected query: %s", sql)
}

func TestShippingMethodsAttachTiers(t *testing.T) {
	q := fakeQuerier{
		methods: [][]any{
			{"standard", "Standard", "auto", nil},
			{"express", "Express", "fixed", 19.0},
		},
		prices: [][]any{
			{"tier-1", "standard", nil, 2, nil, 0.0, 100.0,
				`[{"currencyId":"default","gross":4.99,"net":4.19}]`},
			{"tier-2", "standard", "premium-rule", 2, nil, nil, nil,
				`[{"currencyId":"default","gross":0,"net":0}]`},
		},
	}

	methods, err := ReferenceData{Q: q}.ShippingMethods(context.Background())
	require.NoError(t, err)
	require.Len(t, methods, 2)

	require.Equal(t, "standard", methods[0].ID)
	require.Len(t, methods[0].Prices, 2)
	require.Equal(t, cart.CalculationByPrice, methods[0].Prices[0].Calculation)
	require.InDelta(t, 4.99, methods[0].Prices[0].CurrencyPrices[0].Gross, 0.001)
	require.Equal(t, "premium-rule", methods[0].Prices[1].RuleID)

	require.Equal(t, cart.ShippingTaxFixed, methods[1].TaxType)
	require.NotNil(t, methods[1].FixedTaxRate)
	require.Empty(t, methods[1].Prices)
}

func TestLoadCalculationDataKeys(t *testing.T) {
	q := fakeQuerier{methods: [][]any{{"standard", "Standard", "auto", nil}}}

	data := cart.NewDataCollection()
	require.NoError(t, ReferenceData{Q: q}.LoadCalculationData(context.Background(), data))

	value, ok := data.Get(delivery.DataKey("standard"))
	require.True(t, ok)
	method, ok := value.(cart.ShippingMethod)
	require.True(t, ok)
	require.Equal(t, "Standard", method.Name)
}

func TestActiveRulesHydration(t *testing.T) {
	q := fakeQuerier{rules: [][]any{
		{"rule-1", "Heavy cart", 100, `{"type":"cartWeight","value":{"operator":">=","weight":10}}`},
	}}

	rules, err := ReferenceData{Q: q}.ActiveRules(context.Background())
	require.NoError(t, err)
	require.Len(t, rules, 1)
	require.Equal(t, "cartWeight", rules[0].Rule.Name())
}

func TestActiveRulesRejectsBrokenPayload(t *testing.T) {
	q := fakeQuerier{rules: [][]any{
		{"rule-1", "Broken", 100, `{"type":"cartWeight","value":{"weight":10}}`},
	}}

	_, err := ReferenceData{Q: q}.ActiveRules(context.Background())
	require.Error(t, err)
}

func TestMatchingRuleIDsOrderedByPriority(t *testing.T) {
	weight := 5.0
	c := cart.New("token")
	c.LineItems = cart.LineItemCollection{{
		ID: "a", Type: cart.TypeProduct, Quantity: 2, Good: true,
		DeliveryInformation: &cart.DeliveryInformation{Weight: &weight},
	}}
	scope := rule.CartScope{Cart: c, Context: &channel.Context{}}

	rules := []RuleRow{
		{ID: "low", Priority: 10, Rule: rule.CartWeightRule{Operator: rule.OpGreaterThanEq, Weight: 1}},
		{ID: "no", Priority: 50, Rule: rule.CartWeightRule{Operator: rule.OpGreaterThanEq, Weight: 100}},
		{ID: "high", Priority: 90, Rule: rule.CartWeightRule{Operator: rule.OpGreaterThanEq, Weight: 5}},
	}

	require.Equal(t, []string{"high", "low"}, MatchingRuleIDs(rules, scope))
}
