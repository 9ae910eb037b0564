// Package promotion merges externally resolved discount line items into a
// cart during calculation. Resolving which promotions a cart qualifies for
// happens upstream; this package only prices and attaches the results.
package promotion

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/checkout-core/internal/cart"
	"github.com/noah-isme/checkout-core/internal/channel"
	"github.com/noah-isme/checkout-core/internal/obs"
)

// DataKey is the data collection key resolved discounts are published
// under before the processor runs.
const DataKey = "promotions"

// Processor merges promotion line items into the calculated cart.
type Processor struct {
	calculator *Calculator
}

// NewProcessor returns a ready processor.
func NewProcessor() *Processor {
	return &Processor{calculator: NewCalculator()}
}

// Process applies promotions to the calculated cart. With the
// skip-promotion permission the original promotion items are copied over
// untouched. Without resolved discounts in the data bag the original items
// pass through, flagging the ones whose promotion vanished.
func (p *Processor) Process(ctx context.Context, data *cart.DataCollection, original, calculated *cart.Cart, channelCtx *channel.Context) error {
	_, span := otel.Tracer("promotion.Processor").Start(ctx, "cart.promotion.process")
	defer span.End()

	// Group definitions are always available to discount rules, whether or
	// not any promotion survives this run.
	data.Set(cart.GroupBuilderKey, &cart.GroupBuilder{})

	if calculated.Behavior.HasPermission(cart.PermissionSkipPromotion) {
		items := original.LineItems.FilterType(cart.TypePromotion)
		span.SetAttributes(attribute.Int("promotion.copied", len(items)))
		calculated.LineItems = append(calculated.LineItems, items...)
		observeOutcome("copied", len(items))
		return nil
	}

	value, ok := data.Get(DataKey)
	if !ok {
		p.passthrough(original, calculated, span)
		return nil
	}
	discounts, ok := value.([]Discount)
	if !ok {
		p.passthrough(original, calculated, span)
		return nil
	}

	span.SetAttributes(attribute.Int("promotion.resolved", len(discounts)))
	observeOutcome("resolved", len(discounts))
	return p.calculator.Calculate(discounts, original, calculated, channelCtx)
}

// passthrough keeps the original promotion items when no resolver ran.
// Items with an empty reference belonged to an automatic promotion that no
// longer exists; they are dropped with a notice.
func (p *Processor) passthrough(original, calculated *cart.Cart, span trace.Span) {
	items := original.LineItems.FilterType(cart.TypePromotion)
	kept := 0
	for _, item := range items {
		if item.ReferencedID == "" {
			label := item.Label
			if label == "" {
				label = item.ID
			}
			calculated.AddError(&AutoPromotionNotFoundError{Label: label})
			observeOutcome("lost", 1)
			continue
		}
		calculated.LineItems = append(calculated.LineItems, item)
		kept++
	}
	span.SetAttributes(attribute.Int("promotion.passthrough", kept))
	observeOutcome("passthrough", kept)
}

func observeOutcome(outcome string, n int) {
	if obs.PromotionOutcomeTotal != nil && n > 0 {
		obs.PromotionOutcomeTotal.WithLabelValues(outcome).Add(float64(n))
	}
}
