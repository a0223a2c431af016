package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"storefront/storebot/internal/commerce"
	"storefront/storebot/internal/metrics"
)

// CartLineSnapshot is a read-only view of one remote cart line.
type CartLineSnapshot struct {
	ItemID       string `json:"item_id"`
	ProductID    string `json:"product_id"`
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	UnitPrice    string `json:"unit_price"`
	DisplayTotal string `json:"display_total"`
}

// CartSnapshot is always read fresh from the commerce API and never cached.
type CartSnapshot struct {
	CartID     string             `json:"cart_id"`
	Lines      []CartLineSnapshot `json:"lines"`
	GrandTotal string             `json:"grand_total"`
}

func (s *CartSnapshot) Empty() bool {
	return len(s.Lines) == 0
}

type CartService interface {
	CurrentQuantity(ctx context.Context, userID, productID string) (int, error)
	AddToCart(ctx context.Context, userID, productID string, quantity int) (AddOutcome, error)
	RemoveFromCart(ctx context.Context, userID, itemID string) (RemoveOutcome, error)
	Cart(ctx context.Context, userID string) (*CartSnapshot, error)
}

type cartService struct {
	cache                 CacheManager
	client                commerce.Client
	treatMissingAsRemoved bool
	logger                *zap.Logger
}

// NewCartService builds the cart service. treatMissingAsRemoved maps a remote
// "item not found" on removal to OutcomeRemoved instead of OutcomeItemNotFound.
func NewCartService(cache CacheManager, client commerce.Client, treatMissingAsRemoved bool, logger *zap.Logger) CartService {
	return &cartService{
		cache:                 cache,
		client:                client,
		treatMissingAsRemoved: treatMissingAsRemoved,
		logger:                logger.Named("cart"),
	}
}

// session resolves the token and the user's cart in one step.
func (s *cartService) session(ctx context.Context, userID string) (AuthToken, CartHandle, bool, error) {
	token, err := s.cache.GetOrRefreshToken(ctx)
	if err != nil {
		return AuthToken{}, CartHandle{}, false, err
	}
	handle, created, err := s.cache.GetOrCreateCart(ctx, userID, token)
	if err != nil {
		return AuthToken{}, CartHandle{}, false, err
	}
	return token, handle, created, nil
}

func (s *cartService) CurrentQuantity(ctx context.Context, userID, productID string) (int, error) {
	token, handle, created, err := s.session(ctx, userID)
	if err != nil {
		return 0, err
	}
	// A cart created just now cannot hold anything yet.
	if created {
		return 0, nil
	}

	cart, err := s.client.FetchCart(ctx, token.Token, handle.CartID)
	if err != nil {
		return 0, fmt.Errorf("fetch cart: %w", err)
	}
	for _, item := range cart.Items {
		if item.ProductID == productID {
			return item.Quantity, nil
		}
	}
	return 0, nil
}

func (s *cartService) AddToCart(ctx context.Context, userID, productID string, quantity int) (AddOutcome, error) {
	if quantity < 1 {
		return AddOutcome{}, ErrInvalidQuantity
	}

	token, handle, _, err := s.session(ctx, userID)
	if err != nil {
		return AddOutcome{}, err
	}

	err = s.client.AddCartItem(ctx, token.Token, handle.CartID, productID, quantity)
	switch {
	case err == nil:
		metrics.IncCartOutcome("add", OutcomeAdded.String())
		return AddOutcome{Kind: OutcomeAdded}, nil

	case commerce.IsValidation(err):
		var (
			available int
			inCart    int
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			stock, err := s.client.FetchStock(gctx, token.Token, productID)
			if err != nil {
				return fmt.Errorf("fetch stock: %w", err)
			}
			available = stock.Available
			return nil
		})
		g.Go(func() error {
			q, err := s.CurrentQuantity(gctx, userID, productID)
			if err != nil {
				return err
			}
			inCart = q
			return nil
		})
		if err := g.Wait(); err != nil {
			return AddOutcome{}, err
		}

		s.logger.Info("add to cart rejected by stock limit",
			zap.String("user_id", userID),
			zap.String("product_id", productID),
			zap.Int("requested", quantity),
			zap.Int("available", available),
			zap.Int("in_cart", inCart),
		)
		metrics.IncCartOutcome("add", OutcomeQuantityExceedsStock.String())
		return AddOutcome{Kind: OutcomeQuantityExceedsStock, Available: available, AlreadyInCart: inCart}, nil

	default:
		if _, isAPI := commerce.StatusCode(err); isAPI {
			s.logger.Warn("add to cart rejected", zap.String("user_id", userID), zap.Error(err))
			metrics.IncCartOutcome("add", OutcomeRemoteError.String())
			return AddOutcome{Kind: OutcomeRemoteError, Err: err}, nil
		}
		return AddOutcome{}, fmt.Errorf("add cart item: %w", err)
	}
}

func (s *cartService) RemoveFromCart(ctx context.Context, userID, itemID string) (RemoveOutcome, error) {
	token, handle, created, err := s.session(ctx, userID)
	if err != nil {
		return RemoveOutcome{}, err
	}
	if created {
		return s.missingItem(userID, itemID), nil
	}

	err = s.client.RemoveCartItem(ctx, token.Token, handle.CartID, itemID)
	switch {
	case err == nil:
		metrics.IncCartOutcome("remove", OutcomeRemoved.String())
		return RemoveOutcome{Kind: OutcomeRemoved}, nil
	case commerce.IsNotFound(err):
		return s.missingItem(userID, itemID), nil
	default:
		if _, isAPI := commerce.StatusCode(err); isAPI {
			s.logger.Warn("remove from cart rejected", zap.String("user_id", userID), zap.Error(err))
			metrics.IncCartOutcome("remove", OutcomeRemoteError.String())
			return RemoveOutcome{Kind: OutcomeRemoteError, Err: err}, nil
		}
		return RemoveOutcome{}, fmt.Errorf("remove cart item: %w", err)
	}
}

func (s *cartService) missingItem(userID, itemID string) RemoveOutcome {
	s.logger.Warn("cart item to remove not found",
		zap.String("user_id", userID),
		zap.String("item_id", itemID),
		zap.Bool("treated_as_removed", s.treatMissingAsRemoved),
	)
	kind := OutcomeItemNotFound
	if s.treatMissingAsRemoved {
		kind = OutcomeRemoved
	}
	metrics.IncCartOutcome("remove", kind.String())
	return RemoveOutcome{Kind: kind}
}

func (s *cartService) Cart(ctx context.Context, userID string) (*CartSnapshot, error) {
	token, handle, created, err := s.session(ctx, userID)
	if err != nil {
		return nil, err
	}
	snapshot := &CartSnapshot{CartID: handle.CartID, Lines: []CartLineSnapshot{}}
	if created {
		return snapshot, nil
	}

	cart, err := s.client.FetchCart(ctx, token.Token, handle.CartID)
	if err != nil {
		return nil, fmt.Errorf("fetch cart: %w", err)
	}
	snapshot.GrandTotal = cart.GrandTotal
	for _, item := range cart.Items {
		snapshot.Lines = append(snapshot.Lines, CartLineSnapshot{
			ItemID:       item.ID,
			ProductID:    item.ProductID,
			Name:         item.Name,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			DisplayTotal: item.DisplayTotal,
		})
	}
	return snapshot, nil
}

var _ CartService = (*cartService)(nil)
