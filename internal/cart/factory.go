package cart

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/noah-isme/checkout-core/internal/price"
)

// ErrInsufficientPermission is returned when a factory requires a behavior
// permission the current run does not grant.
var ErrInsufficientPermission = errors.New("insufficient permission for line item operation")

// FactoryInput is the untrusted payload a line item is created from.
type FactoryInput struct {
	ID              string
	ReferencedID    string
	Label           string
	Quantity        int
	Stackable       bool
	Removable       bool
	PriceDefinition price.Definition
	DeliveryInfo    *DeliveryInformation
}

// LineItemFactory creates line items of one specific type.
type LineItemFactory interface {
	Supports(itemType string) bool
	Create(input FactoryInput, behavior *Behavior) (*LineItem, error)
}

// ProductItemFactory creates stackable product goods.
type ProductItemFactory struct{}

// Supports reports whether the factory handles the type.
func (ProductItemFactory) Supports(itemType string) bool { return itemType == TypeProduct }

// Create builds a product line item from the input.
func (ProductItemFactory) Create(input FactoryInput, _ *Behavior) (*LineItem, error) {
	if input.Quantity <= 0 {
		return nil, price.ErrInvalidQuantity
	}
	return &LineItem{
		ID:                  idOrNew(input.ID),
		Type:                TypeProduct,
		ReferencedID:        input.ReferencedID,
		Label:               input.Label,
		Quantity:            input.Quantity,
		Good:                true,
		Stackable:           true,
		Removable:           true,
		PriceDefinition:     input.PriceDefinition,
		DeliveryInformation: input.DeliveryInfo,
	}, nil
}

// PromotionItemFactory creates discount placeholders resolved by the
// promotion pipeline.
type PromotionItemFactory struct{}

// Supports reports whether the factory handles the type.
func (PromotionItemFactory) Supports(itemType string) bool { return itemType == TypePromotion }

// Create builds a promotion line item. Quantity is pinned to one.
func (PromotionItemFactory) Create(input FactoryInput, _ *Behavior) (*LineItem, error) {
	return &LineItem{
		ID:              idOrNew(input.ID),
		Type:            TypePromotion,
		ReferencedID:    input.ReferencedID,
		Label:           input.Label,
		Quantity:        1,
		Removable:       true,
		PriceDefinition: input.PriceDefinition,
	}, nil
}

// CreditItemFactory creates free-form credit items. Only runs granted the
// price-overwrite permission may create them.
type CreditItemFactory struct{}

// Supports reports whether the factory handles the type.
func (CreditItemFactory) Supports(itemType string) bool { return itemType == TypeCredit }

// Create builds a credit line item after checking the permission.
func (CreditItemFactory) Create(input FactoryInput, behavior *Behavior) (*LineItem, error) {
	if !behavior.HasPermission(PermissionAllowPriceOverwrites) {
		return nil, ErrInsufficientPermission
	}
	return &LineItem{
		ID:              idOrNew(input.ID),
		Type:            TypeCredit,
		ReferencedID:    input.ReferencedID,
		Label:           input.Label,
		Quantity:        1,
		Removable:       true,
		PriceDefinition: input.PriceDefinition,
	}, nil
}

// FactoryRegistry dispatches creation to the factory supporting the type.
type FactoryRegistry struct {
	factories []LineItemFactory
}

// NewFactoryRegistry wires the default factories.
func NewFactoryRegistry() *FactoryRegistry {
	return &FactoryRegistry{factories: []LineItemFactory{
		ProductItemFactory{},
		PromotionItemFactory{},
		CreditItemFactory{},
	}}
}

// Create builds a line item of the requested type.
func (r *FactoryRegistry) Create(itemType string, input FactoryInput, behavior *Behavior) (*LineItem, error) {
	for _, factory := range r.factories {
		if factory.Supports(itemType) {
			return factory.Create(input, behavior)
		}
	}
	return nil, fmt.Errorf("no line item factory for type %q", itemType)
}

func idOrNew(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}
