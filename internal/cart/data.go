package cart

// DataCollection is the scratch bag shared across processors within one
// pipeline run. Reference data is pre-loaded before the run; processors
// read it with plain map lookups. Keys are written once: the first writer
// wins and later writes for the same key are ignored.
//
// Documented key conventions:
//
//	delivery-<shippingMethodID>  -> cart.ShippingMethod (tier data included)
//	promotions                   -> resolved discount items (promotion pkg)
//	line-item-group-builder      -> *cart.GroupBuilder
type DataCollection struct {
	entries map[string]any
}

// NewDataCollection returns an empty data collection.
func NewDataCollection() *DataCollection {
	return &DataCollection{entries: map[string]any{}}
}

// Set stores the value unless the key is already taken.
func (d *DataCollection) Set(key string, value any) {
	if _, exists := d.entries[key]; exists {
		return
	}
	d.entries[key] = value
}

// Get returns the value for key.
func (d *DataCollection) Get(key string) (any, bool) {
	value, ok := d.entries[key]
	return value, ok
}

// Has reports whether the key is present.
func (d *DataCollection) Has(key string) bool {
	_, ok := d.entries[key]
	return ok
}
