package delivery

import (
	"fmt"

	"github.com/noah-isme/checkout-core/internal/cart"
)

// NotFoundError is the hard failure raised when a delivery references a
// shipping method that was never pre-loaded into the data collection. It
// signals a data-integrity bug upstream and aborts the whole calculation.
type NotFoundError struct {
	ShippingMethodID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("shipping method %q not found in calculation data", e.ShippingMethodID)
}

// BlockedError is the soft cart error recorded when no price tier of a
// shipping method matches the delivery. The pipeline continues; checkout is
// blocked until the customer picks a workable method.
type BlockedError struct {
	ShippingMethodName string
}

// Error implements the error interface.
func (e *BlockedError) Error() string {
	return fmt.Sprintf("shipping method %q is blocked for the current cart", e.ShippingMethodName)
}

// Key identifies the error for deduplication.
func (e *BlockedError) Key() string {
	return "shipping-method-blocked-" + e.ShippingMethodName
}

// Level grades the error.
func (e *BlockedError) Level() cart.ErrorLevel { return cart.LevelError }

// BlocksOrder reports that checkout cannot proceed.
func (e *BlockedError) BlocksOrder() bool { return true }
