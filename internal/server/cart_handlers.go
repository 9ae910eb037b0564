package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/checkout-core/internal/cart"
	"github.com/noah-isme/checkout-core/internal/channel"
	"github.com/noah-isme/checkout-core/internal/checkout"
	"github.com/noah-isme/checkout-core/internal/common"
	"github.com/noah-isme/checkout-core/internal/lock"
	"github.com/noah-isme/checkout-core/internal/price"
	"github.com/noah-isme/checkout-core/internal/queue"
	"github.com/noah-isme/checkout-core/internal/repo"
	"github.com/noah-isme/checkout-core/internal/rule"
	"github.com/noah-isme/checkout-core/internal/store"
)

// ReferenceLoader provides the pre-loaded data a calculation run needs.
type ReferenceLoader interface {
	LoadCalculationData(ctx context.Context, data *cart.DataCollection) error
	ShippingMethods(ctx context.Context) ([]cart.ShippingMethod, error)
	ActiveRules(ctx context.Context) ([]repo.RuleRow, error)
}

// ChannelDefaults are the sales-channel facts applied to every request.
type ChannelDefaults struct {
	CurrencyID     string
	CurrencyFactor float64
	TaxState       price.TaxState
	ItemRounding   price.CashRoundingConfig
	TotalRounding  price.CashRoundingConfig
}

// CartHandler wires the cart store and the calculation pipeline to HTTP.
type CartHandler struct {
	Store      *store.CartStore
	Ref        ReferenceLoader
	Calculator *checkout.Calculator
	Enqueuer   queue.Enqueuer
	Locks      lock.Locker
	Factories  *cart.FactoryRegistry
	Defaults   ChannelDefaults
}

type addItemRequest struct {
	Type         string `json:"type"`
	ID           string `json:"id"`
	ReferencedID string `json:"referencedId"`
	Label        string `json:"label"`
	Quantity     int    `json:"quantity"`

	PriceDefinition *priceDefinitionPayload   `json:"priceDefinition,omitempty"`
	DeliveryInfo    *cart.DeliveryInformation `json:"deliveryInformation,omitempty"`
}

// priceDefinitionPayload is the wire form of the price definition union.
type priceDefinitionPayload struct {
	Type       string                  `json:"type"`
	UnitPrice  float64                 `json:"unitPrice,omitempty"`
	TaxRules   price.TaxRuleCollection `json:"taxRules,omitempty"`
	Percentage float64                 `json:"percentage,omitempty"`
	Amount     float64                 `json:"amount,omitempty"`
}

func (p *priceDefinitionPayload) definition() (price.Definition, error) {
	if p == nil {
		return nil, nil
	}
	switch p.Type {
	case "quantity":
		return price.QuantityPriceDefinition{UnitPrice: p.UnitPrice, TaxRules: p.TaxRules}, nil
	case "percentage":
		return price.PercentagePriceDefinition{Percentage: p.Percentage}, nil
	case "absolute":
		return price.AbsolutePriceDefinition{Amount: p.Amount}, nil
	}
	return nil, errors.New("unknown price definition type")
}

type calculateRequest struct {
	ShippingMethodID string `json:"shippingMethodId"`
}

type shippingCostRequest struct {
	Amount float64 `json:"amount"`
}

// Create opens a new empty cart and returns it with its token.
func (h *CartHandler) Create(w http.ResponseWriter, r *http.Request) {
	c := cart.New(uuid.NewString())
	if err := h.Store.Save(r.Context(), c); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "could not create cart", nil)
		return
	}
	common.JSON(w, http.StatusCreated, c)
}

// Get returns the cart stored under the token.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadCart(w, r)
	if !ok {
		return
	}
	common.JSON(w, http.StatusOK, c)
}

// Delete removes the cart.
func (h *CartHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Delete(r.Context(), chi.URLParam(r, "token")); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "could not delete cart", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddItem creates a line item through the type factories and stores it.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadCart(w, r)
	if !ok {
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	def, err := req.PriceDefinition.definition()
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}

	item, err := h.Factories.Create(req.Type, cart.FactoryInput{
		ID:              req.ID,
		ReferencedID:    req.ReferencedID,
		Label:           req.Label,
		Quantity:        req.Quantity,
		PriceDefinition: def,
		DeliveryInfo:    req.DeliveryInfo,
	}, cart.NewBehavior())
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, cart.ErrInsufficientPermission) {
			status = http.StatusForbidden
		}
		common.JSONError(w, status, "INVALID_LINE_ITEM", err.Error(), nil)
		return
	}

	c.Add(item)
	if err := h.Store.Save(r.Context(), c); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "could not save cart", nil)
		return
	}
	common.JSON(w, http.StatusOK, c)
}

// RemoveItem deletes a removable line item from the cart.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadCart(w, r)
	if !ok {
		return
	}
	if !c.Remove(chi.URLParam(r, "itemID")) {
		common.JSONError(w, http.StatusConflict, "NOT_REMOVABLE", "line item is absent or not removable", nil)
		return
	}
	if err := h.Store.Save(r.Context(), c); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "could not save cart", nil)
		return
	}
	common.JSON(w, http.StatusOK, c)
}

// SetShippingCost pins the delivery cost to a manual amount.
func (h *CartHandler) SetShippingCost(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadCart(w, r)
	if !ok {
		return
	}
	var req shippingCostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if req.Amount < 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "shipping cost must not be negative", nil)
		return
	}
	c.ManualShippingCost = &req.Amount
	if err := h.Store.Save(r.Context(), c); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "could not save cart", nil)
		return
	}
	common.JSON(w, http.StatusOK, c)
}

// ClearShippingCost returns the cart to tier-based shipping calculation.
func (h *CartHandler) ClearShippingCost(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadCart(w, r)
	if !ok {
		return
	}
	c.ManualShippingCost = nil
	if err := h.Store.Save(r.Context(), c); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "could not save cart", nil)
		return
	}
	common.JSON(w, http.StatusOK, c)
}

// Calculate runs the full pipeline over the stored cart and persists the
// result. Soft business errors ride inside the returned cart.
func (h *CartHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadCart(w, r)
	if !ok {
		return
	}

	var req calculateRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
			return
		}
	}

	var calculated *cart.Cart
	err := h.withCartLock(r.Context(), c.Token, func(ctx context.Context) error {
		result, err := h.runPipeline(ctx, c, req.ShippingMethodID, cart.NewBehavior())
		if err != nil {
			return err
		}
		calculated = result
		return h.Store.Save(ctx, calculated)
	})
	if err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "CALCULATION_FAILED", err.Error(), nil)
		return
	}
	common.JSON(w, http.StatusOK, calculated)
}

// Recalculate schedules an asynchronous recalculation of the cart.
func (h *CartHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if _, err := h.Store.Load(r.Context(), token); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "could not load cart", nil)
		return
	}
	if err := h.Enqueuer.Enqueue(r.Context(), token); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "could not enqueue recalculation", nil)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// withCartLock serializes calculation and save for one token when a locker
// is configured, and runs fn directly otherwise.
func (h *CartHandler) withCartLock(ctx context.Context, token string, fn func(context.Context) error) error {
	if h.Locks.R == nil {
		return fn(ctx)
	}
	return h.Locks.WithLock(ctx, lock.CartKey(token), 30*time.Second, fn)
}

// RunPipeline loads reference data, resolves active rules and calculates
// the cart. Shared between the HTTP calculate endpoint and the worker.
func (h *CartHandler) RunPipeline(ctx context.Context, c *cart.Cart, shippingMethodID string, behavior *cart.Behavior) (*cart.Cart, error) {
	return h.runPipeline(ctx, c, shippingMethodID, behavior)
}

func (h *CartHandler) runPipeline(ctx context.Context, c *cart.Cart, shippingMethodID string, behavior *cart.Behavior) (*cart.Cart, error) {
	data := cart.NewDataCollection()
	if err := h.Ref.LoadCalculationData(ctx, data); err != nil {
		return nil, err
	}

	method, err := h.resolveShippingMethod(ctx, shippingMethodID)
	if err != nil {
		return nil, err
	}

	channelCtx := &channel.Context{
		Token:          c.Token,
		CurrencyID:     h.Defaults.CurrencyID,
		CurrencyFactor: h.Defaults.CurrencyFactor,
		TaxState:       h.Defaults.TaxState,
		ItemRounding:   h.Defaults.ItemRounding,
		TotalRounding:  h.Defaults.TotalRounding,
		ShippingMethod: method,
	}

	rules, err := h.Ref.ActiveRules(ctx)
	if err != nil {
		return nil, err
	}
	channelCtx.RuleIDs = repo.MatchingRuleIDs(rules, ruleScope(c, channelCtx))

	return h.Calculator.Calculate(ctx, c, channelCtx, data, behavior)
}

func (h *CartHandler) resolveShippingMethod(ctx context.Context, id string) (cart.ShippingMethod, error) {
	methods, err := h.Ref.ShippingMethods(ctx)
	if err != nil {
		return cart.ShippingMethod{}, err
	}
	if len(methods) == 0 {
		return cart.ShippingMethod{}, common.NewAppError("NO_SHIPPING_METHODS", "no shipping methods configured", http.StatusServiceUnavailable, nil)
	}
	if id == "" {
		return methods[0], nil
	}
	for _, method := range methods {
		if method.ID == id {
			return method, nil
		}
	}
	return cart.ShippingMethod{}, common.NewAppError("UNKNOWN_SHIPPING_METHOD", "unknown shipping method "+id, http.StatusBadRequest, nil)
}

func ruleScope(c *cart.Cart, channelCtx *channel.Context) rule.Scope {
	return rule.CartScope{Cart: c, Context: channelCtx}
}

func (h *CartHandler) loadCart(w http.ResponseWriter, r *http.Request) (*cart.Cart, bool) {
	c, err := h.Store.Load(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
			return nil, false
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "could not load cart", nil)
		return nil, false
	}
	return c, true
}
