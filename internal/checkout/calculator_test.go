package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/checkout-core/internal/cart"
	"github.com/noah-isme/checkout-core/internal/channel"
	"github.com/noah-isme/checkout-core/internal/delivery"
	"github.com/noah-isme/checkout-core/internal/price"
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

func productItem(id string, quantity int, unitPrice float64) *cart.LineItem {
	return &cart.LineItem{
		ID:       id,
		Type:     cart.TypeProduct,
		Quantity: quantity,
		Good:     true,
		PriceDefinition: price.QuantityPriceDefinition{
			UnitPrice: unitPrice,
			TaxRules:  price.TaxRuleCollection{price.NewTaxRule(19)},
		},
		DeliveryInformation: &cart.DeliveryInformation{},
	}
}

type staticShippingProcessor struct {
	cost float64
}

func (p staticShippingProcessor) Process(_ context.Context, _ *cart.DataCollection, _, calculated *cart.Cart, channelCtx *channel.Context) error {
	var calc price.QuantityPriceCalculator
	costs, err := calc.Calculate(price.QuantityPriceDefinition{
		UnitPrice: p.cost,
		TaxRules:  price.TaxRuleCollection{price.NewTaxRule(19)},
		Quantity:  1,
	}, channelCtx.PriceContext())
	if err != nil {
		return err
	}
	calculated.Deliveries = []*cart.Delivery{{
		ShippingMethod: channelCtx.ShippingMethod,
		ShippingCosts:  costs,
	}}
	return nil
}

type failingProcessor struct{ err error }

func (p failingProcessor) Process(context.Context, *cart.DataCollection, *cart.Cart, *cart.Cart, *channel.Context) error {
	return p.err
}

func TestCalculatePricesLineItemsAndTotals(t *testing.T) {
	original := cart.New("token")
	original.LineItems = cart.LineItemCollection{productItem("a", 2, 19.99)}

	calc := NewCalculatorWith(staticShippingProcessor{cost: 4.99})
	calculated, err := calc.Calculate(context.Background(), original, grossContext(), cart.NewDataCollection(), cart.NewBehavior())
	require.NoError(t, err)

	require.Len(t, calculated.LineItems, 1)
	require.NotNil(t, calculated.LineItems[0].Price)
	require.InDelta(t, 39.98, calculated.LineItems[0].Price.TotalPrice, 0.001)

	require.InDelta(t, 39.98, calculated.Price.PositionPrice, 0.001)
	require.InDelta(t, 44.97, calculated.Price.TotalPrice, 0.001)
	require.InDelta(t, 44.97-calculated.Price.CalculatedTaxes.Total(), calculated.Price.NetPrice, 0.001)
	require.Equal(t, price.TaxStateGross, calculated.Price.TaxState)
}

func TestCalculateOriginalCartUntouched(t *testing.T) {
	original := cart.New("token")
	original.LineItems = cart.LineItemCollection{productItem("a", 1, 10)}

	calc := NewCalculatorWith()
	_, err := calc.Calculate(context.Background(), original, grossContext(), cart.NewDataCollection(), cart.NewBehavior())
	require.NoError(t, err)
	require.Nil(t, original.LineItems[0].Price)
	require.Empty(t, original.Deliveries)
}

func TestCalculateHardErrorAborts(t *testing.T) {
	original := cart.New("token")
	boom := errors.New("boom")

	calc := NewCalculatorWith(failingProcessor{err: boom})
	_, err := calc.Calculate(context.Background(), original, grossContext(), cart.NewDataCollection(), cart.NewBehavior())
	require.ErrorIs(t, err, boom)
}

func TestCalculateSoftErrorsSurviveOnCart(t *testing.T) {
	method := cart.ShippingMethod{
		ID:      "standard",
		Name:    "Standard",
		TaxType: cart.ShippingTaxHighest,
		// No tiers, so nothing can match.
	}
	ctx := grossContext()
	ctx.ShippingMethod = method

	data := cart.NewDataCollection()
	data.Set(delivery.DataKey(method.ID), method)

	original := cart.New("token")
	original.LineItems = cart.LineItemCollection{productItem("a", 1, 10)}

	calc := NewCalculatorWith(delivery.NewProcessor())
	calculated, err := calc.Calculate(context.Background(), original, ctx, data, cart.NewBehavior())
	require.NoError(t, err)
	require.True(t, calculated.Errors.Blocking())
}

func TestCalculateNetTaxState(t *testing.T) {
	ctx := grossContext()
	ctx.TaxState = price.TaxStateNet

	original := cart.New("token")
	original.LineItems = cart.LineItemCollection{productItem("a", 1, 100)}

	calc := NewCalculatorWith()
	calculated, err := calc.Calculate(context.Background(), original, ctx, cart.NewDataCollection(), cart.NewBehavior())
	require.NoError(t, err)

	require.InDelta(t, 100, calculated.Price.NetPrice, 0.001)
	require.InDelta(t, 119, calculated.Price.TotalPrice, 0.001)
}
