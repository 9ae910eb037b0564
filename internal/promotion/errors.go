package promotion

import (
	"fmt"

	"github.com/noah-isme/checkout-core/internal/cart"
)

// AutoPromotionNotFoundError is recorded when a promotion line item lost
// its backing promotion, typically because an automatic promotion no longer
// applies. The item is dropped and the cart stays usable.
type AutoPromotionNotFoundError struct {
	Label string
}

// Error implements the error interface.
func (e *AutoPromotionNotFoundError) Error() string {
	return fmt.Sprintf("promotion %q no longer applies and was removed", e.Label)
}

// Key identifies the error for deduplication.
func (e *AutoPromotionNotFoundError) Key() string {
	return "auto-promotion-not-found-" + e.Label
}

// Level grades the error as a notice.
func (e *AutoPromotionNotFoundError) Level() cart.ErrorLevel { return cart.LevelNotice }

// BlocksOrder reports that checkout may proceed.
func (e *AutoPromotionNotFoundError) BlocksOrder() bool { return false }
