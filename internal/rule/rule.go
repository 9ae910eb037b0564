// Package rule implements the boolean predicates gating shipping price
// tiers and promotion eligibility. Rules are stateless apart from their
// configured operator and threshold; they are evaluated against a typed
// scope and must answer false, never panic, for scopes they do not apply
// to.
package rule

import (
	"github.com/noah-isme/checkout-core/internal/cart"
	"github.com/noah-isme/checkout-core/internal/channel"
)

// Scope is the evaluation target of a rule match.
type Scope interface {
	// ChannelContext exposes the sales-channel facts every scope carries.
	ChannelContext() *channel.Context
}

// CartScope evaluates rules against the whole cart.
type CartScope struct {
	Cart    *cart.Cart
	Context *channel.Context
}

// ChannelContext returns the scope's sales-channel context.
func (s CartScope) ChannelContext() *channel.Context { return s.Context }

// LineItemScope evaluates rules against a single line item.
type LineItemScope struct {
	LineItem *cart.LineItem
	Context  *channel.Context
}

// ChannelContext returns the scope's sales-channel context.
func (s LineItemScope) ChannelContext() *channel.Context { return s.Context }

// Rule is a boolean predicate over a scope.
type Rule interface {
	// Name identifies the rule variant for persistence and decoding.
	Name() string
	// Match reports whether the scope satisfies the rule. Incompatible
	// scope types yield false.
	Match(scope Scope) bool
	// Constraints describes the configuration schema for admin-side
	// validation.
	Constraints() map[string][]string
}
