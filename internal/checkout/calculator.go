package checkout

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/checkout-core/internal/cart"
	"github.com/noah-isme/checkout-core/internal/channel"
	"github.com/noah-isme/checkout-core/internal/delivery"
	"github.com/noah-isme/checkout-core/internal/obs"
	"github.com/noah-isme/checkout-core/internal/price"
	"github.com/noah-isme/checkout-core/internal/promotion"
)

// Processor is one stage of the calculation pipeline. Implementations
// mutate the calculated cart and record soft errors on it; a returned
// error is a hard failure that aborts the run.
type Processor interface {
	Process(ctx context.Context, data *cart.DataCollection, original, calculated *cart.Cart, channelCtx *channel.Context) error
}

// Calculator runs the full cart calculation pipeline over a fresh draft.
type Calculator struct {
	quantity   price.QuantityPriceCalculator
	amount     AmountCalculator
	processors []Processor
}

// NewCalculator wires the default processor chain: deliveries first, then
// promotions on top of the priced cart.
func NewCalculator() *Calculator {
	return &Calculator{
		processors: []Processor{
			delivery.NewProcessor(),
			promotion.NewProcessor(),
		},
	}
}

// NewCalculatorWith builds a calculator over an explicit processor chain.
func NewCalculatorWith(processors ...Processor) *Calculator {
	return &Calculator{processors: processors}
}

// Calculate produces a freshly calculated cart from the original draft.
// The original cart is never mutated; soft business errors accumulate on
// the returned cart's error collection.
func (c *Calculator) Calculate(ctx context.Context, original *cart.Cart, channelCtx *channel.Context, data *cart.DataCollection, behavior *cart.Behavior) (*cart.Cart, error) {
	ctx, span := otel.Tracer("checkout.Calculator").Start(ctx, "cart.calculate")
	defer span.End()

	start := time.Now()
	result := "ok"
	defer func() {
		span.SetAttributes(
			attribute.String("cart.token", original.Token),
			attribute.String("cart.result", result),
			attribute.Float64("cart.duration_ms", obs.DurationMillis(time.Since(start))),
		)
		if obs.CartCalculationsTotal != nil {
			obs.CartCalculationsTotal.WithLabelValues(result).Inc()
		}
		if obs.CartCalculationDuration != nil {
			obs.CartCalculationDuration.WithLabelValues(result).Observe(obs.DurationMillis(time.Since(start)))
		}
	}()

	calculated := cart.New(original.Token)
	calculated.Behavior = behavior
	calculated.ManualShippingCost = original.ManualShippingCost

	if err := c.calculateLineItems(original, calculated, channelCtx); err != nil {
		result = "error"
		return nil, err
	}

	for _, processor := range c.processors {
		if err := processor.Process(ctx, data, original, calculated, channelCtx); err != nil {
			result = "error"
			return nil, fmt.Errorf("cart processor: %w", err)
		}
	}

	c.applyAmount(calculated, channelCtx)
	if calculated.Errors.Blocking() {
		result = "blocked"
	}
	return calculated, nil
}

// calculateLineItems prices every non-promotion item of the original cart
// into the draft. Items carrying a quantity definition are recalculated;
// already priced items without one keep their price.
func (c *Calculator) calculateLineItems(original, calculated *cart.Cart, channelCtx *channel.Context) error {
	for _, item := range original.LineItems {
		if item.Type == cart.TypePromotion {
			// Promotions re-enter through their own processor.
			continue
		}
		priced := *item
		if def, ok := item.PriceDefinition.(price.QuantityPriceDefinition); ok {
			def.Quantity = item.Quantity
			p, err := c.quantity.Calculate(def, channelCtx.PriceContext())
			if err != nil {
				return fmt.Errorf("price line item %s: %w", item.ID, err)
			}
			priced.Price = &p
		}
		calculated.LineItems = append(calculated.LineItems, &priced)
	}
	return nil
}

// applyAmount recomputes the cart price summary from the current items and
// deliveries.
func (c *Calculator) applyAmount(calculated *cart.Cart, channelCtx *channel.Context) {
	shipping := make([]price.CalculatedPrice, 0, len(calculated.Deliveries))
	for _, d := range calculated.Deliveries {
		shipping = append(shipping, d.ShippingCosts)
	}
	calculated.Price = c.amount.Calculate(calculated.LineItems.Prices(), shipping, channelCtx)
}
