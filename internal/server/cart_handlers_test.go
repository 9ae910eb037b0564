package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/checkout-core/internal/cart"
	"github.com/noah-isme/checkout-core/internal/checkout"
	"github.com/noah-isme/checkout-core/internal/config"
	"github.com/noah-isme/checkout-core/internal/delivery"
	"github.com/noah-isme/checkout-core/internal/health"
	"github.com/noah-isme/checkout-core/internal/price"
	"github.com/noah-isme/checkout-core/internal/queue"
	"github.com/noah-isme/checkout-core/internal/repo"
	"github.com/noah-isme/checkout-core/internal/store"
)

type staticReference struct {
	methods []cart.ShippingMethod
	rules   []repo.RuleRow
}

func (r staticReference) LoadCalculationData(_ context.Context, data *cart.DataCollection) error {
	for _, method := range r.methods {
		data.Set(delivery.DataKey(method.ID), method)
	}
	return nil
}

func (r staticReference) ShippingMethods(context.Context) ([]cart.ShippingMethod, error) {
	return r.methods, nil
}

func (r staticReference) ActiveRules(context.Context) ([]repo.RuleRow, error) {
	return r.rules, nil
}

func float(v float64) *float64 { return &v }

func testHandler(t *testing.T) (*CartHandler, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	methods := []cart.ShippingMethod{{
		ID:      "standard",
		Name:    "Standard",
		TaxType: cart.ShippingTaxHighest,
		Prices: []cart.ShippingPriceTier{{
			Calculation:    cart.CalculationByPrice,
			QuantityStart:  float(0),
			CurrencyPrices: price.CurrencyCollection{{CurrencyID: price.DefaultCurrencyID, Gross: 4.99, Net: 4.19}},
		}},
	}}

	return &CartHandler{
		Store:      store.NewCartStore(client, time.Hour),
		Ref:        staticReference{methods: methods},
		Calculator: checkout.NewCalculator(),
		Enqueuer:   queue.Enqueuer{R: client},
		Factories:  cart.NewFactoryRegistry(),
		Defaults: ChannelDefaults{
			CurrencyID:     price.DefaultCurrencyID,
			CurrencyFactor: 1,
			TaxState:       price.TaxStateGross,
			ItemRounding:   price.DefaultRounding(),
			TotalRounding:  price.DefaultRounding(),
		},
	}, client
}

func testRouter(t *testing.T, h *CartHandler) http.Handler {
	t.Helper()
	router, err := NewRouter(Options{
		Config: &config.Config{},
		Logger: zerolog.Nop(),
		Health: health.Handler{},
		Carts:  h,
	})
	require.NoError(t, err)
	return router
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createCart(t *testing.T, router http.Handler) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/v1/carts", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.Token)
	return created.Token
}

func TestCartLifecycle(t *testing.T) {
	h, _ := testHandler(t)
	router := testRouter(t, h)
	token := createCart(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/carts/"+token+"/items", addItemRequest{
		Type:         cart.TypeProduct,
		ReferencedID: "product-1",
		Label:        "Widget",
		Quantity:     2,
		PriceDefinition: &priceDefinitionPayload{
			Type:      "quantity",
			UnitPrice: 19.99,
			TaxRules:  price.TaxRuleCollection{price.NewTaxRule(19)},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/carts/"+token+"/calculate", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var calculated struct {
		Price struct {
			TotalPrice    float64 `json:"totalPrice"`
			PositionPrice float64 `json:"positionPrice"`
		} `json:"price"`
		Deliveries []struct {
			ShippingCosts struct {
				TotalPrice float64 `json:"totalPrice"`
			} `json:"shippingCosts"`
		} `json:"deliveries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &calculated))
	require.InDelta(t, 39.98, calculated.Price.PositionPrice, 0.001)
	require.InDelta(t, 44.97, calculated.Price.TotalPrice, 0.001)
	require.Len(t, calculated.Deliveries, 1)
	require.InDelta(t, 4.99, calculated.Deliveries[0].ShippingCosts.TotalPrice, 0.001)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/carts/"+token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/carts/"+token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/carts/"+token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestManualShippingCostOverridesTiers(t *testing.T) {
	h, _ := testHandler(t)
	router := testRouter(t, h)
	token := createCart(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/carts/"+token+"/items", addItemRequest{
		Type: cart.TypeProduct, ReferencedID: "product-1", Quantity: 1,
		PriceDefinition: &priceDefinitionPayload{
			Type: "quantity", UnitPrice: 10,
			TaxRules: price.TaxRuleCollection{price.NewTaxRule(19)},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPut, "/api/v1/carts/"+token+"/shipping-cost", shippingCostRequest{Amount: 1.50})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/carts/"+token+"/calculate", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var calculated struct {
		Deliveries []struct {
			ShippingCosts struct {
				TotalPrice float64 `json:"totalPrice"`
			} `json:"shippingCosts"`
		} `json:"deliveries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &calculated))
	require.Len(t, calculated.Deliveries, 1)
	require.InDelta(t, 1.50, calculated.Deliveries[0].ShippingCosts.TotalPrice, 0.001)
}

func TestRemoveItemRespectsRemovable(t *testing.T) {
	h, _ := testHandler(t)
	router := testRouter(t, h)
	token := createCart(t, router)

	c, err := h.Store.Load(context.Background(), token)
	require.NoError(t, err)
	c.Add(&cart.LineItem{ID: "pinned", Type: cart.TypeProduct, Quantity: 1, Good: true, Removable: false})
	require.NoError(t, h.Store.Save(context.Background(), c))

	rec := doJSON(t, router, http.MethodDelete, "/api/v1/carts/"+token+"/items/pinned", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestRecalculateEnqueuesToken(t *testing.T) {
	h, client := testHandler(t)
	router := testRouter(t, h)
	token := createCart(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/carts/"+token+"/recalculate", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	keys, err := client.Keys(context.Background(), "queue:*").Result()
	require.NoError(t, err)
	require.NotEmpty(t, keys)
}

func TestUnknownShippingMethodFailsCalculation(t *testing.T) {
	h, _ := testHandler(t)
	router := testRouter(t, h)
	token := createCart(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/carts/"+token+"/calculate", calculateRequest{ShippingMethodID: "nope"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, "UNKNOWN_SHIPPING_METHOD", payload.Error.Code)
}

func TestCreditItemRequiresPermission(t *testing.T) {
	h, _ := testHandler(t)
	router := testRouter(t, h)
	token := createCart(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/carts/"+token+"/items", addItemRequest{
		Type: cart.TypeCredit, Label: "Goodwill", Quantity: 1,
		PriceDefinition: &priceDefinitionPayload{Type: "absolute", Amount: -5},
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
}
