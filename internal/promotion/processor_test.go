package promotion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/checkout-core/internal/cart"
	"github.com/noah-isme/checkout-core/internal/channel"
	"github.com/noah-isme/checkout-core/internal/price"
	"github.com/noah-isme/checkout-core/internal/rule"
)

func grossContext() *channel.Context {
	return &channel.Context{
		CurrencyID:     price.DefaultCurrencyID,
		CurrencyFactor: 1,
		TaxState:       price.TaxStateGross,
		ItemRounding:   price.DefaultRounding(),
		TotalRounding:  price.DefaultRounding(),
	}
}

func goodsCart(total float64) *cart.Cart {
	c := cart.New("token")
	c.Behavior = cart.NewBehavior()
	c.LineItems = cart.LineItemCollection{{
		ID:       "product-1",
		Type:     cart.TypeProduct,
		Quantity: 1,
		Good:     true,
		Price: &price.CalculatedPrice{
			UnitPrice:  total,
			TotalPrice: total,
			TaxRules:   price.TaxRuleCollection{price.NewTaxRule(19)},
			CalculatedTaxes: price.CalculatedTaxCollection{
				{Tax: total * 19 / 119, TaxRate: 19, Price: total},
			},
			Quantity: 1,
		},
	}}
	return c
}

func promotionItem(id, referencedID string, def price.Definition) *cart.LineItem {
	return &cart.LineItem{
		ID:              id,
		Type:            cart.TypePromotion,
		ReferencedID:    referencedID,
		Label:           "Summer Sale",
		Quantity:        1,
		PriceDefinition: def,
	}
}

func TestProcessSkipPromotionCopiesVerbatim(t *testing.T) {
	original := goodsCart(100)
	stale := promotionItem("promo-1", "code-1", price.PercentagePriceDefinition{Percentage: -10})
	stale.Price = &price.CalculatedPrice{UnitPrice: -10, TotalPrice: -10, Quantity: 1}
	original.LineItems = append(original.LineItems, stale)

	calculated := goodsCart(50)
	calculated.Behavior = cart.NewBehavior(cart.PermissionSkipPromotion)

	data := cart.NewDataCollection()
	err := NewProcessor().Process(context.Background(), data, original, calculated, grossContext())
	require.NoError(t, err)

	promos := calculated.LineItems.FilterType(cart.TypePromotion)
	require.Len(t, promos, 1)
	// The stale price survives untouched even though the goods total changed.
	require.InDelta(t, -10, promos[0].Price.TotalPrice, 0.001)
	require.Empty(t, calculated.Errors)
}

func TestProcessPassthroughFlagsLostAutoPromotions(t *testing.T) {
	original := goodsCart(100)
	original.LineItems = append(original.LineItems,
		promotionItem("promo-1", "code-1", price.PercentagePriceDefinition{Percentage: -10}),
		promotionItem("promo-2", "", price.PercentagePriceDefinition{Percentage: -5}),
	)

	calculated := goodsCart(100)

	err := NewProcessor().Process(context.Background(), cart.NewDataCollection(), original, calculated, grossContext())
	require.NoError(t, err)

	promos := calculated.LineItems.FilterType(cart.TypePromotion)
	require.Len(t, promos, 1)
	require.Equal(t, "promo-1", promos[0].ID)
	require.Len(t, calculated.Errors, 1)
	require.False(t, calculated.Errors[0].BlocksOrder())
}

func TestProcessPublishesGroupBuilder(t *testing.T) {
	data := cart.NewDataCollection()
	err := NewProcessor().Process(context.Background(), data, goodsCart(10), goodsCart(10), grossContext())
	require.NoError(t, err)

	_, ok := data.Get(cart.GroupBuilderKey)
	require.True(t, ok)
}

func TestCalculatePercentageDiscount(t *testing.T) {
	calculated := goodsCart(100)
	discounts := []Discount{{
		Item: promotionItem("promo-1", "code-1", price.PercentagePriceDefinition{Percentage: -10}),
	}}

	err := NewCalculator().Calculate(discounts, goodsCart(100), calculated, grossContext())
	require.NoError(t, err)

	promos := calculated.LineItems.FilterType(cart.TypePromotion)
	require.Len(t, promos, 1)
	require.InDelta(t, -10, promos[0].Price.TotalPrice, 0.001)
	// Tax composition mirrors the goods.
	require.Len(t, promos[0].Price.CalculatedTaxes, 1)
	require.InDelta(t, 19, promos[0].Price.CalculatedTaxes[0].TaxRate, 0.001)
}

func TestCalculateAbsoluteDiscountCappedAtGoodsTotal(t *testing.T) {
	calculated := goodsCart(30)
	discounts := []Discount{{
		Item: promotionItem("promo-1", "code-1", price.AbsolutePriceDefinition{Amount: -50}),
	}}

	err := NewCalculator().Calculate(discounts, goodsCart(30), calculated, grossContext())
	require.NoError(t, err)

	promos := calculated.LineItems.FilterType(cart.TypePromotion)
	require.Len(t, promos, 1)
	require.InDelta(t, -30, promos[0].Price.TotalPrice, 0.001)
}

func TestCalculateZeroDiscountDropped(t *testing.T) {
	calculated := goodsCart(100)
	discounts := []Discount{{
		Item: promotionItem("promo-1", "code-1", price.AbsolutePriceDefinition{Amount: 0}),
	}}

	err := NewCalculator().Calculate(discounts, goodsCart(100), calculated, grossContext())
	require.NoError(t, err)
	require.Empty(t, calculated.LineItems.FilterType(cart.TypePromotion))
}

func TestCalculateRequirementGatesDiscount(t *testing.T) {
	calculated := goodsCart(100)
	discounts := []Discount{{
		Item:        promotionItem("promo-1", "code-1", price.PercentagePriceDefinition{Percentage: -10}),
		Requirement: rule.CartWeightRule{Operator: rule.OpGreaterThanEq, Weight: 5},
	}}

	err := NewCalculator().Calculate(discounts, goodsCart(100), calculated, grossContext())
	require.NoError(t, err)
	require.Empty(t, calculated.LineItems.FilterType(cart.TypePromotion))
}
