package repository

import (
	"context"

	"storefront/storebot/internal/model"
)

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	ListByUser(ctx context.Context, userID string) ([]model.Order, error)
}
