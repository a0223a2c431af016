package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/storebot/internal/commerce"
	"storefront/storebot/internal/model"
	"storefront/storebot/internal/repository"
)

// CheckoutOutcome describes a finalized order. CustomerExisted is true when
// the commerce API already knew the email; that conflict is not an error.
type CheckoutOutcome struct {
	Order           *model.Order
	CustomerExisted bool
}

type CheckoutService interface {
	Checkout(ctx context.Context, userID, name, email string) (*CheckoutOutcome, error)
}

type checkoutService struct {
	cache  CacheManager
	carts  CartService
	client commerce.Client
	orders repository.OrderRepository
	mailer MailSender
	logger *zap.Logger
}

// NewCheckoutService wires checkout. mailer may be nil to skip confirmation mail.
func NewCheckoutService(
	cache CacheManager,
	carts CartService,
	client commerce.Client,
	orders repository.OrderRepository,
	mailer MailSender,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutService{
		cache:  cache,
		carts:  carts,
		client: client,
		orders: orders,
		mailer: mailer,
		logger: logger.Named("checkout"),
	}
}

func (s *checkoutService) Checkout(ctx context.Context, userID, name, email string) (*CheckoutOutcome, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return nil, ErrInvalidEmail
	}
	if name = strings.TrimSpace(name); name == "" {
		name = addr.Name
	}
	if name == "" {
		name = userID
	}

	snapshot, err := s.carts.Cart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if snapshot.Empty() {
		return nil, ErrEmptyCart
	}

	token, err := s.cache.GetOrRefreshToken(ctx)
	if err != nil {
		return nil, err
	}

	existed := false
	if err := s.client.CreateCustomer(ctx, token.Token, name, addr.Address); err != nil {
		if !commerce.IsConflict(err) {
			return nil, fmt.Errorf("create customer: %w", err)
		}
		existed = true
		s.logger.Info("customer already exists", zap.String("user_id", userID))
	}

	order := &model.Order{
		ID:              uuid.New(),
		UserID:          userID,
		CartID:          snapshot.CartID,
		CustomerName:    name,
		CustomerEmail:   addr.Address,
		CustomerExisted: existed,
		GrandTotal:      snapshot.GrandTotal,
		Items:           make(model.OrderLines, 0, len(snapshot.Lines)),
		CreatedAt:       time.Now(),
	}
	for _, line := range snapshot.Lines {
		order.Items = append(order.Items, model.OrderLine{
			ProductID:    line.ProductID,
			Name:         line.Name,
			Quantity:     line.Quantity,
			DisplayTotal: line.DisplayTotal,
		})
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("record order: %w", err)
	}

	if err := s.cache.InvalidateCart(ctx, userID); err != nil {
		return nil, err
	}

	s.logger.Info("order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", userID),
		zap.String("cart_id", order.CartID),
		zap.Int("lines", len(order.Items)),
	)

	if s.mailer != nil {
		if err := s.mailer.Send(ctx, order.CustomerEmail, "Your order "+order.ID.String(), confirmationBody(order)); err != nil {
			s.logger.Warn("order confirmation mail failed", zap.String("order_id", order.ID.String()), zap.Error(err))
		}
	}

	return &CheckoutOutcome{Order: order, CustomerExisted: existed}, nil
}

func confirmationBody(order *model.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\nwe received your order %s:\n\n", order.CustomerName, order.ID)
	for _, line := range order.Items {
		fmt.Fprintf(&b, "- %s x%d: %s\n", line.Name, line.Quantity, line.DisplayTotal)
	}
	fmt.Fprintf(&b, "\nTotal: %s\n\nA manager will contact you shortly.\n", order.GrandTotal)
	return b.String()
}

var _ CheckoutService = (*checkoutService)(nil)
