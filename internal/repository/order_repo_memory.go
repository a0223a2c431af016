package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront/storebot/internal/model"
)

type memoryOrderRepository struct {
	mu     sync.RWMutex
	orders []model.Order
}

func NewMemoryOrderRepository() OrderRepository {
	return &memoryOrderRepository{}
}

func (r *memoryOrderRepository) Create(_ context.Context, order *model.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, *order)
	return nil
}

func (r *memoryOrderRepository) ListByUser(_ context.Context, userID string) ([]model.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []model.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
