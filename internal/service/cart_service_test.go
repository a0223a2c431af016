package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storefront/storebot/internal/commerce"
)

type cartFixture struct {
	*cacheFixture
	carts CartService
}

func newCartFixture(t *testing.T, treatMissingAsRemoved bool) *cartFixture {
	t.Helper()
	f := newCacheFixture(t)
	f.api.products["p1"] = commerce.Product{ID: "p1", Name: "Salmon"}
	f.api.stock["p1"] = 5
	return &cartFixture{
		cacheFixture: f,
		carts:        NewCartService(f.cache, f.api, treatMissingAsRemoved, zap.NewNop()),
	}
}

func TestCurrentQuantityOnNewCartSkipsRemoteRead(t *testing.T) {
	f := newCartFixture(t, false)

	q, err := f.carts.CurrentQuantity(context.Background(), "42", "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, q)
	assert.Equal(t, 0, f.api.calls(&f.api.fetchCartCalls))
	assert.Equal(t, 1, f.api.calls(&f.api.createCartCalls))
}

func TestAddToCartThenCurrentQuantity(t *testing.T) {
	f := newCartFixture(t, false)
	ctx := context.Background()

	out, err := f.carts.AddToCart(ctx, "42", "p1", 3)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAdded, out.Kind)

	q, err := f.carts.CurrentQuantity(ctx, "42", "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, q)

	q, err = f.carts.CurrentQuantity(ctx, "42", "other")
	require.NoError(t, err)
	assert.Equal(t, 0, q)
}

func TestAddToCartExceedingStockReportsAvailability(t *testing.T) {
	f := newCartFixture(t, false)
	ctx := context.Background()

	out, err := f.carts.AddToCart(ctx, "42", "p1", 3)
	require.NoError(t, err)
	require.Equal(t, OutcomeAdded, out.Kind)

	out, err = f.carts.AddToCart(ctx, "42", "p1", 3)
	require.NoError(t, err)
	assert.Equal(t, OutcomeQuantityExceedsStock, out.Kind)
	assert.Equal(t, 5, out.Available)
	assert.Equal(t, 3, out.AlreadyInCart)
	assert.Equal(t, 1, f.api.calls(&f.api.createCartCalls))
}

func TestAddToCartRejectsNonPositiveQuantity(t *testing.T) {
	f := newCartFixture(t, false)

	_, err := f.carts.AddToCart(context.Background(), "42", "p1", 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Equal(t, 0, f.api.calls(&f.api.addCalls))
}

func TestAddToCartRemoteRejection(t *testing.T) {
	f := newCartFixture(t, false)
	f.api.addErr = &commerce.APIError{Endpoint: "add_cart_item", StatusCode: 500}

	out, err := f.carts.AddToCart(context.Background(), "42", "p1", 1)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRemoteError, out.Kind)
	assert.Error(t, out.Err)
}

func TestAddToCartTransportErrorPropagates(t *testing.T) {
	f := newCartFixture(t, false)
	f.api.addErr = errors.Join(commerce.ErrTransport, errors.New("connection refused"))

	_, err := f.carts.AddToCart(context.Background(), "42", "p1", 1)
	assert.ErrorIs(t, err, commerce.ErrTransport)
}

func TestRemoveFromCart(t *testing.T) {
	f := newCartFixture(t, false)
	ctx := context.Background()

	_, err := f.carts.AddToCart(ctx, "42", "p1", 2)
	require.NoError(t, err)

	out, err := f.carts.RemoveFromCart(ctx, "42", "item-p1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeRemoved, out.Kind)

	snapshot, err := f.carts.Cart(ctx, "42")
	require.NoError(t, err)
	assert.True(t, snapshot.Empty())
}

func TestRemoveMissingItem(t *testing.T) {
	tests := []struct {
		name                  string
		treatMissingAsRemoved bool
		want                  OutcomeKind
	}{
		{"reported", false, OutcomeItemNotFound},
		{"treated as removed", true, OutcomeRemoved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCartFixture(t, tt.treatMissingAsRemoved)
			ctx := context.Background()

			_, err := f.carts.AddToCart(ctx, "42", "p1", 1)
			require.NoError(t, err)

			out, err := f.carts.RemoveFromCart(ctx, "42", "nope")
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Kind)
		})
	}
}

func TestRemoveFromNewCartSkipsRemoteCall(t *testing.T) {
	f := newCartFixture(t, false)

	out, err := f.carts.RemoveFromCart(context.Background(), "42", "item-p1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeItemNotFound, out.Kind)
	assert.Equal(t, 0, f.api.calls(&f.api.removeCalls))
}

func TestCartSnapshot(t *testing.T) {
	f := newCartFixture(t, false)
	ctx := context.Background()

	empty, err := f.carts.Cart(ctx, "42")
	require.NoError(t, err)
	assert.True(t, empty.Empty())
	assert.Equal(t, "cart-1", empty.CartID)
	assert.Equal(t, 0, f.api.calls(&f.api.fetchCartCalls))

	_, err = f.carts.AddToCart(ctx, "42", "p1", 2)
	require.NoError(t, err)

	snapshot, err := f.carts.Cart(ctx, "42")
	require.NoError(t, err)
	require.Len(t, snapshot.Lines, 1)
	assert.Equal(t, CartLineSnapshot{
		ItemID: "item-p1", ProductID: "p1", Name: "Salmon", Quantity: 2, DisplayTotal: "$1.00",
	}, snapshot.Lines[0])
	assert.Equal(t, "$1.00", snapshot.GrandTotal)
}
