package store_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/checkout-core/internal/cart"
	"github.com/noah-isme/checkout-core/internal/price"
	"github.com/noah-isme/checkout-core/internal/store"
)

func newStore(t *testing.T) (*store.CartStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return store.NewCartStore(client, time.Hour), mr
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	c := cart.New("token-1")
	c.LineItems = cart.LineItemCollection{{
		ID:           "item-1",
		Type:         cart.TypeProduct,
		ReferencedID: "product-1",
		Quantity:     2,
		Good:         true,
		Stackable:    true,
		Removable:    true,
		PriceDefinition: price.QuantityPriceDefinition{
			UnitPrice: 19.99,
			TaxRules:  price.TaxRuleCollection{price.NewTaxRule(19)},
		},
	}}

	require.NoError(t, s.Save(ctx, c))

	loaded, err := s.Load(ctx, "token-1")
	require.NoError(t, err)
	require.Equal(t, "token-1", loaded.Token)
	require.Len(t, loaded.LineItems, 1)

	def, ok := loaded.LineItems[0].PriceDefinition.(price.QuantityPriceDefinition)
	require.True(t, ok)
	require.InDelta(t, 19.99, def.UnitPrice, 0.001)
}

func TestLoadMissingCart(t *testing.T) {
	s, _ := newStore(t)

	_, err := s.Load(context.Background(), "nope")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteCart(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, cart.New("token-1")))
	require.NoError(t, s.Delete(ctx, "token-1"))

	_, err := s.Load(ctx, "token-1")
	require.ErrorIs(t, err, store.ErrNotFound)

	// Deleting twice stays quiet.
	require.NoError(t, s.Delete(ctx, "token-1"))
}

func TestSaveAppliesTTL(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, cart.New("token-1")))

	mr.FastForward(2 * time.Hour)
	_, err := s.Load(ctx, "token-1")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDiscountDefinitionsSurviveRoundTrip(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	c := cart.New("token-1")
	c.LineItems = cart.LineItemCollection{
		{ID: "promo-1", Type: cart.TypePromotion, ReferencedID: "code", Quantity: 1,
			PriceDefinition: price.PercentagePriceDefinition{Percentage: -10}},
		{ID: "credit-1", Type: cart.TypeCredit, Quantity: 1,
			PriceDefinition: price.AbsolutePriceDefinition{Amount: -5}},
	}

	require.NoError(t, s.Save(ctx, c))
	loaded, err := s.Load(ctx, "token-1")
	require.NoError(t, err)

	pct, ok := loaded.LineItems[0].PriceDefinition.(price.PercentagePriceDefinition)
	require.True(t, ok)
	require.InDelta(t, -10, pct.Percentage, 0.001)

	abs, ok := loaded.LineItems[1].PriceDefinition.(price.AbsolutePriceDefinition)
	require.True(t, ok)
	require.InDelta(t, -5, abs.Amount, 0.001)
}
