package delivery

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/checkout-core/internal/cart"
	"github.com/noah-isme/checkout-core/internal/channel"
	"github.com/noah-isme/checkout-core/internal/price"
)

// Builder creates the delivery set for a cart from its shippable goods and
// the context shipping method.
type Builder struct{}

// Build returns a single delivery carrying every shippable good as a
// position, or nil when nothing in the cart ships.
func (Builder) Build(cr *cart.Cart, ctx *channel.Context) []*cart.Delivery {
	items := cr.ShippableItems()
	if len(items) == 0 {
		return nil
	}

	positions := make([]cart.DeliveryPosition, 0, len(items))
	for _, item := range items {
		pos := cart.DeliveryPosition{LineItem: item, Quantity: item.Quantity}
		if item.Price != nil {
			pos.Price = *item.Price
		}
		positions = append(positions, pos)
	}

	return []*cart.Delivery{{
		ShippingMethod: ctx.ShippingMethod,
		Positions:      positions,
	}}
}

// Processor builds deliveries for the calculated cart and prices their
// shipping costs.
type Processor struct {
	builder    Builder
	calculator *Calculator
}

// NewProcessor returns a ready processor.
func NewProcessor() *Processor {
	return &Processor{calculator: NewCalculator()}
}

// Process attaches freshly built deliveries to the cart and calculates
// their shipping costs. During recalculation with the skip-delivery
// permission the original deliveries survive untouched except for pricing.
func (p *Processor) Process(ctx context.Context, data *cart.DataCollection, original, calculated *cart.Cart, channelCtx *channel.Context) error {
	_, span := otel.Tracer("delivery.Processor").Start(ctx, "cart.delivery.process")
	defer span.End()

	deliveries := p.builder.Build(calculated, channelCtx)

	if calculated.Behavior.HasPermission(cart.PermissionSkipDeliveryRecalculation) && len(original.Deliveries) > 0 {
		deliveries = original.Deliveries
	}
	if len(deliveries) > 0 && original.ManualShippingCost != nil {
		calculated.ManualShippingCost = original.ManualShippingCost
	}

	span.SetAttributes(attribute.Int("delivery.count", len(deliveries)))
	if err := p.calculator.Calculate(data, calculated, deliveries, channelCtx); err != nil {
		return err
	}
	calculated.Deliveries = deliveries
	return nil
}

// ShippingSum totals the shipping costs of all deliveries.
func ShippingSum(deliveries []*cart.Delivery) price.CalculatedPrice {
	prices := make([]price.CalculatedPrice, 0, len(deliveries))
	for _, d := range deliveries {
		prices = append(prices, d.ShippingCosts)
	}
	return price.SumPrices(prices)
}
