package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/storebot/internal/commerce"
)

func TestProductDetail(t *testing.T) {
	f := newCacheFixture(t)
	f.api.products["p1"] = commerce.Product{ID: "p1", Name: "Salmon", Description: "Fresh"}
	f.api.stock["p1"] = 7
	catalog := NewCatalogService(f.cache, f.api)

	detail, err := catalog.ProductDetail(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Salmon", detail.Product.Name)
	assert.Equal(t, 7, detail.Available)
}

func TestProductDetailNotFound(t *testing.T) {
	f := newCacheFixture(t)
	catalog := NewCatalogService(f.cache, f.api)

	_, err := catalog.ProductDetail(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestListProductsSharesToken(t *testing.T) {
	f := newCacheFixture(t)
	f.api.products["p1"] = commerce.Product{ID: "p1", Name: "Salmon"}
	catalog := NewCatalogService(f.cache, f.api)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		products, err := catalog.ListProducts(ctx)
		require.NoError(t, err)
		assert.Len(t, products, 1)
	}
	assert.Equal(t, 1, f.api.calls(&f.api.tokenCalls))
}

func TestAvailable(t *testing.T) {
	f := newCacheFixture(t)
	f.api.products["p1"] = commerce.Product{ID: "p1"}
	f.api.stock["p1"] = 3
	catalog := NewCatalogService(f.cache, f.api)
	ctx := context.Background()

	n, err := catalog.Available(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = catalog.Available(ctx, "missing")
	assert.ErrorIs(t, err, ErrProductNotFound)
}
