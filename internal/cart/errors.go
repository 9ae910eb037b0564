package cart

import "encoding/json"

// ErrorLevel grades a cart error.
type ErrorLevel int

const (
	// LevelNotice informs without affecting checkout.
	LevelNotice ErrorLevel = iota
	// LevelWarning signals a condition the customer should review.
	LevelWarning
	// LevelError blocks checkout until resolved.
	LevelError
)

// Error is a recoverable business condition recorded on the cart. Hard
// integrity violations are ordinary Go errors returned by processors; cart
// errors never abort the pipeline.
type Error interface {
	error
	// Key identifies the error for deduplication and API serialization.
	Key() string
	Level() ErrorLevel
	// BlocksOrder reports whether checkout must be blocked while the error
	// is present.
	BlocksOrder() bool
}

// ErrorCollection accumulates cart errors, keyed for deduplication.
type ErrorCollection []Error

// Add appends the error unless one with the same key is already present.
func (c *ErrorCollection) Add(err Error) {
	if err == nil {
		return
	}
	for _, existing := range *c {
		if existing.Key() == err.Key() {
			return
		}
	}
	*c = append(*c, err)
}

// Blocking reports whether any recorded error blocks the order.
func (c ErrorCollection) Blocking() bool {
	for _, err := range c {
		if err.BlocksOrder() {
			return true
		}
	}
	return false
}

// MarshalJSON serializes the collection as flat API-facing entries.
func (c ErrorCollection) MarshalJSON() ([]byte, error) {
	entries := make([]errorEntry, 0, len(c))
	for _, err := range c {
		entries = append(entries, errorEntry{
			Key:         err.Key(),
			Message:     err.Error(),
			Level:       err.Level(),
			BlocksOrder: err.BlocksOrder(),
		})
	}
	return json.Marshal(entries)
}

// UnmarshalJSON discards stored entries. Errors describe the last
// calculation run and are recomputed by the next one; keeping stale
// entries would let a resolved condition block checkout.
func (c *ErrorCollection) UnmarshalJSON([]byte) error {
	*c = nil
	return nil
}

type errorEntry struct {
	Key         string     `json:"key"`
	Message     string     `json:"message"`
	Level       ErrorLevel `json:"level"`
	BlocksOrder bool       `json:"blocksOrder"`
}
