package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/storebot/internal/model"
)

func TestMemoryOrderRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryOrderRepository()

	first := &model.Order{UserID: "42", CartID: "c1", CreatedAt: time.Unix(100, 0)}
	second := &model.Order{UserID: "42", CartID: "c2", CreatedAt: time.Unix(200, 0)}
	other := &model.Order{UserID: "7", CartID: "c3"}

	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, repo.Create(ctx, other))

	assert.NotEqual(t, uuid.Nil, first.ID)

	orders, err := repo.ListByUser(ctx, "42")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "c2", orders[0].CartID)
	assert.Equal(t, "c1", orders[1].CartID)
}
