package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storefront/storebot/internal/commerce"
	"storefront/storebot/internal/repository"
)

type checkoutFixture struct {
	*cartFixture
	orders   repository.OrderRepository
	mailer   *fakeMailer
	checkout CheckoutService
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	cf := newCartFixture(t, false)
	orders := repository.NewMemoryOrderRepository()
	mailer := &fakeMailer{}
	return &checkoutFixture{
		cartFixture: cf,
		orders:      orders,
		mailer:      mailer,
		checkout:    NewCheckoutService(cf.cache, cf.carts, cf.api, orders, mailer, zap.NewNop()),
	}
}

func TestCheckoutPlacesOrderAndStartsNewCart(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	_, err := f.carts.AddToCart(ctx, "42", "p1", 2)
	require.NoError(t, err)

	out, err := f.checkout.Checkout(ctx, "42", "Ann", " ann@example.com ")
	require.NoError(t, err)
	assert.False(t, out.CustomerExisted)
	assert.Equal(t, "cart-1", out.Order.CartID)
	assert.Equal(t, "ann@example.com", out.Order.CustomerEmail)
	require.Len(t, out.Order.Items, 1)
	assert.Equal(t, 2, out.Order.Items[0].Quantity)

	orders, err := f.orders.ListByUser(ctx, "42")
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "ann@example.com", f.mailer.sent[0].to)
	assert.Contains(t, f.mailer.sent[0].body, "Salmon x2")

	snapshot, err := f.carts.Cart(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "cart-2", snapshot.CartID)
	assert.True(t, snapshot.Empty())
}

func TestCheckoutExistingCustomer(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	f.api.customers["ann@example.com"] = true

	_, err := f.carts.AddToCart(ctx, "42", "p1", 1)
	require.NoError(t, err)

	out, err := f.checkout.Checkout(ctx, "42", "Ann", "ann@example.com")
	require.NoError(t, err)
	assert.True(t, out.CustomerExisted)
	assert.True(t, out.Order.CustomerExisted)
}

func TestCheckoutRejectsInvalidEmail(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.checkout.Checkout(context.Background(), "42", "Ann", "not-an-email")
	assert.ErrorIs(t, err, ErrInvalidEmail)
	assert.Equal(t, 0, f.api.calls(&f.api.customerCalls))
}

func TestCheckoutRejectsEmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.checkout.Checkout(context.Background(), "42", "Ann", "ann@example.com")
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, 0, f.api.calls(&f.api.customerCalls))
}

func TestCheckoutCustomerFailureKeepsCart(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	f.api.customerErr = &commerce.APIError{Endpoint: "create_customer", StatusCode: 500}

	_, err := f.carts.AddToCart(ctx, "42", "p1", 1)
	require.NoError(t, err)

	_, err = f.checkout.Checkout(ctx, "42", "Ann", "ann@example.com")
	require.Error(t, err)

	lookup, err := f.cache.LookupCart(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, LookupHit, lookup.Status)
	assert.Equal(t, "cart-1", lookup.Entry.Value)
}

func TestCheckoutMailFailureIsNotFatal(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	f.mailer.err = errors.New("smtp down")

	_, err := f.carts.AddToCart(ctx, "42", "p1", 1)
	require.NoError(t, err)

	out, err := f.checkout.Checkout(ctx, "42", "", "Ann <ann@example.com>")
	require.NoError(t, err)
	assert.Equal(t, "Ann", out.Order.CustomerName)
}
