package cart_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/checkout-core/internal/cart"
	"github.com/noah-isme/checkout-core/internal/price"
)

func TestFactoryRegistryCreatesProduct(t *testing.T) {
	reg := cart.NewFactoryRegistry()

	item, err := reg.Create(cart.TypeProduct, cart.FactoryInput{
		ReferencedID: "prod-1",
		Label:        "Widget",
		Quantity:     3,
		PriceDefinition: &price.QuantityPriceDefinition{
			UnitPrice: 9.99,
			TaxRules:  price.TaxRuleCollection{{TaxRate: 19, Percentage: 100}},
		},
	}, cart.NewBehavior())
	require.NoError(t, err)
	require.NotEmpty(t, item.ID)
	require.True(t, item.Good)
	require.True(t, item.Stackable)
	require.Equal(t, 3, item.Quantity)
}

func TestFactoryRegistryRejectsZeroQuantityProduct(t *testing.T) {
	reg := cart.NewFactoryRegistry()
	_, err := reg.Create(cart.TypeProduct, cart.FactoryInput{ReferencedID: "prod-1"}, cart.NewBehavior())
	require.ErrorIs(t, err, price.ErrInvalidQuantity)
}

func TestFactoryRegistryCreditNeedsPermission(t *testing.T) {
	reg := cart.NewFactoryRegistry()
	input := cart.FactoryInput{Label: "Goodwill", PriceDefinition: &price.AbsolutePriceDefinition{Amount: -5}}

	_, err := reg.Create(cart.TypeCredit, input, cart.NewBehavior())
	require.ErrorIs(t, err, cart.ErrInsufficientPermission)

	item, err := reg.Create(cart.TypeCredit, input, cart.NewBehavior(cart.PermissionAllowPriceOverwrites))
	require.NoError(t, err)
	require.Equal(t, cart.TypeCredit, item.Type)
}

func TestFactoryRegistryUnknownType(t *testing.T) {
	reg := cart.NewFactoryRegistry()
	_, err := reg.Create("bundle", cart.FactoryInput{}, cart.NewBehavior())
	require.Error(t, err)
}

func TestRemoveHonorsRemovableFlag(t *testing.T) {
	c := cart.New("tok")
	c.Add(&cart.LineItem{ID: "a", Type: cart.TypeProduct, Removable: true})
	c.Add(&cart.LineItem{ID: "b", Type: cart.TypeProduct})

	require.False(t, c.Remove("b"))
	require.Len(t, c.LineItems, 2)

	require.True(t, c.Remove("a"))
	require.Len(t, c.LineItems, 1)
	require.False(t, c.Remove("missing"))
}

type noticeError struct{ key string }

func (e noticeError) Error() string          { return e.key }
func (e noticeError) Key() string            { return e.key }
func (e noticeError) Level() cart.ErrorLevel { return cart.LevelNotice }
func (e noticeError) BlocksOrder() bool      { return false }

func TestErrorCollectionDeduplicatesByKey(t *testing.T) {
	var errs cart.ErrorCollection
	errs.Add(noticeError{key: "dup"})
	errs.Add(noticeError{key: "dup"})
	errs.Add(noticeError{key: "other"})

	require.Len(t, errs, 2)
	require.False(t, errs.Blocking())
}
