// Package store persists cart drafts in Redis keyed by token. The cart is
// stored as a JSON snapshot; price definitions are interface values and
// travel as a tagged union next to the cart document.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/checkout-core/internal/cart"
	"github.com/noah-isme/checkout-core/internal/obs"
	"github.com/noah-isme/checkout-core/internal/price"
)

// ErrNotFound indicates no cart exists for the given token.
var ErrNotFound = errors.New("cart not found")

const keyPrefix = "cart:"

// CartStore saves and loads cart drafts with a fixed TTL.
type CartStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartStore constructs a store. A zero TTL keeps carts forever.
func NewCartStore(client *redis.Client, ttl time.Duration) *CartStore {
	return &CartStore{client: client, ttl: ttl}
}

func cartKey(token string) string { return keyPrefix + token }

// Save serialises the cart and refreshes its TTL.
func (s *CartStore) Save(ctx context.Context, c *cart.Cart) error {
	data, err := encodeCart(c)
	if err != nil {
		observePersist("save", "error")
		return fmt.Errorf("encode cart %s: %w", c.Token, err)
	}
	if err := s.client.Set(ctx, cartKey(c.Token), data, s.ttl).Err(); err != nil {
		observePersist("save", "error")
		return fmt.Errorf("save cart %s: %w", c.Token, err)
	}
	observePersist("save", "ok")
	return nil
}

// Load returns the cart stored under the token, or ErrNotFound.
func (s *CartStore) Load(ctx context.Context, token string) (*cart.Cart, error) {
	data, err := s.client.Get(ctx, cartKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			observePersist("load", "miss")
			return nil, ErrNotFound
		}
		observePersist("load", "error")
		return nil, fmt.Errorf("load cart %s: %w", token, err)
	}
	c, err := decodeCart(data)
	if err != nil {
		observePersist("load", "error")
		return nil, fmt.Errorf("decode cart %s: %w", token, err)
	}
	observePersist("load", "ok")
	return c, nil
}

// Delete removes the cart. Deleting a missing cart is not an error.
func (s *CartStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, cartKey(token)).Err(); err != nil {
		observePersist("delete", "error")
		return fmt.Errorf("delete cart %s: %w", token, err)
	}
	observePersist("delete", "ok")
	return nil
}

func observePersist(action, result string) {
	if obs.CartPersistTotal != nil {
		obs.CartPersistTotal.WithLabelValues(action, result).Inc()
	}
}

const (
	defQuantity   = "quantity"
	defPercentage = "percentage"
	defAbsolute   = "absolute"
)

type storedDefinition struct {
	Type       string                           `json:"type"`
	Quantity   *price.QuantityPriceDefinition   `json:"quantity,omitempty"`
	Percentage *price.PercentagePriceDefinition `json:"percentage,omitempty"`
	Absolute   *price.AbsolutePriceDefinition   `json:"absolute,omitempty"`
}

type storedCart struct {
	Cart *cart.Cart `json:"cart"`
	// Definitions maps line item ids to their price definitions, which the
	// cart document itself does not carry.
	Definitions map[string]storedDefinition `json:"definitions,omitempty"`
}

func encodeCart(c *cart.Cart) ([]byte, error) {
	defs := map[string]storedDefinition{}
	if err := collectDefinitions(c.LineItems, defs); err != nil {
		return nil, err
	}
	return json.Marshal(storedCart{Cart: c, Definitions: defs})
}

func collectDefinitions(items cart.LineItemCollection, defs map[string]storedDefinition) error {
	for _, item := range items {
		switch def := item.PriceDefinition.(type) {
		case nil:
		case price.QuantityPriceDefinition:
			defs[item.ID] = storedDefinition{Type: defQuantity, Quantity: &def}
		case price.PercentagePriceDefinition:
			defs[item.ID] = storedDefinition{Type: defPercentage, Percentage: &def}
		case price.AbsolutePriceDefinition:
			defs[item.ID] = storedDefinition{Type: defAbsolute, Absolute: &def}
		default:
			return fmt.Errorf("unsupported price definition on line item %s", item.ID)
		}
		if err := collectDefinitions(item.Children, defs); err != nil {
			return err
		}
	}
	return nil
}

func decodeCart(data []byte) (*cart.Cart, error) {
	var stored storedCart
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}
	if stored.Cart == nil {
		return nil, errors.New("empty cart document")
	}
	if err := attachDefinitions(stored.Cart.LineItems, stored.Definitions); err != nil {
		return nil, err
	}
	return stored.Cart, nil
}

func attachDefinitions(items cart.LineItemCollection, defs map[string]storedDefinition) error {
	for _, item := range items {
		if def, ok := defs[item.ID]; ok {
			switch {
			case def.Type == defQuantity && def.Quantity != nil:
				item.PriceDefinition = *def.Quantity
			case def.Type == defPercentage && def.Percentage != nil:
				item.PriceDefinition = *def.Percentage
			case def.Type == defAbsolute && def.Absolute != nil:
				item.PriceDefinition = *def.Absolute
			default:
				return fmt.Errorf("malformed price definition for line item %s", item.ID)
			}
		}
		if err := attachDefinitions(item.Children, defs); err != nil {
			return err
		}
	}
	return nil
}
