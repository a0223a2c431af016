package repository

import (
	"context"

	"gorm.io/gorm"

	"storefront/storebot/internal/model"
)

type pgOrderRepository struct {
	db *gorm.DB
}

func NewPGOrderRepository(db *gorm.DB) OrderRepository {
	return &pgOrderRepository{db: db}
}

func (r *pgOrderRepository) Create(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *pgOrderRepository) ListByUser(ctx context.Context, userID string) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	return orders, err
}
