package cart

// Permissions controlling pipeline shortcuts during recalculation.
const (
	PermissionSkipDeliveryPriceRecalculation = "skipDeliveryPriceRecalculation"
	PermissionSkipDeliveryRecalculation      = "skipDeliveryRecalculation"
	PermissionSkipPromotion                  = "skipPromotion"
	PermissionAllowPriceOverwrites           = "allowPriceOverwrites"
)

// Behavior is the read-only permission set of a single pipeline run.
type Behavior struct {
	permissions     map[string]bool
	isRecalculation bool
}

// NewBehavior builds a behavior with the given permissions granted.
func NewBehavior(permissions ...string) *Behavior {
	return newBehavior(false, permissions)
}

// NewRecalculationBehavior builds a behavior for recalculating an existing
// order, with the given permissions granted.
func NewRecalculationBehavior(permissions ...string) *Behavior {
	return newBehavior(true, permissions)
}

func newBehavior(recalculation bool, permissions []string) *Behavior {
	granted := make(map[string]bool, len(permissions))
	for _, p := range permissions {
		granted[p] = true
	}
	return &Behavior{permissions: granted, isRecalculation: recalculation}
}

// HasPermission reports whether the named permission was granted. A nil
// behavior grants nothing.
func (b *Behavior) HasPermission(name string) bool {
	if b == nil {
		return false
	}
	return b.permissions[name]
}

// IsRecalculation reports whether this run recalculates an existing order.
func (b *Behavior) IsRecalculation() bool {
	return b != nil && b.isRecalculation
}
