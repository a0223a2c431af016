package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"storefront/storebot/internal/commerce"
)

// ProductDetail is a product together with its current stock.
type ProductDetail struct {
	Product   commerce.Product `json:"product"`
	Available int              `json:"available"`
}

type CatalogService interface {
	ListProducts(ctx context.Context) ([]commerce.Product, error)
	ProductDetail(ctx context.Context, productID string) (*ProductDetail, error)
	Available(ctx context.Context, productID string) (int, error)
}

type catalogService struct {
	cache  CacheManager
	client commerce.Client
}

func NewCatalogService(cache CacheManager, client commerce.Client) CatalogService {
	return &catalogService{cache: cache, client: client}
}

func (s *catalogService) ListProducts(ctx context.Context) ([]commerce.Product, error) {
	token, err := s.cache.GetOrRefreshToken(ctx)
	if err != nil {
		return nil, err
	}
	products, err := s.client.FetchProducts(ctx, token.Token)
	if err != nil {
		return nil, fmt.Errorf("fetch products: %w", err)
	}
	return products, nil
}

func (s *catalogService) ProductDetail(ctx context.Context, productID string) (*ProductDetail, error) {
	token, err := s.cache.GetOrRefreshToken(ctx)
	if err != nil {
		return nil, err
	}

	var (
		product *commerce.Product
		stock   commerce.Stock
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.client.FetchProduct(gctx, token.Token, productID)
		if err != nil {
			if commerce.IsNotFound(err) {
				return ErrProductNotFound
			}
			return fmt.Errorf("fetch product: %w", err)
		}
		product = p
		return nil
	})
	g.Go(func() error {
		st, err := s.client.FetchStock(gctx, token.Token, productID)
		if err != nil {
			if commerce.IsNotFound(err) {
				return ErrProductNotFound
			}
			return fmt.Errorf("fetch stock: %w", err)
		}
		stock = st
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &ProductDetail{Product: *product, Available: stock.Available}, nil
}

func (s *catalogService) Available(ctx context.Context, productID string) (int, error) {
	token, err := s.cache.GetOrRefreshToken(ctx)
	if err != nil {
		return 0, err
	}
	stock, err := s.client.FetchStock(ctx, token.Token, productID)
	if err != nil {
		if commerce.IsNotFound(err) {
			return 0, ErrProductNotFound
		}
		return 0, fmt.Errorf("fetch stock: %w", err)
	}
	return stock.Available, nil
}

var _ CatalogService = (*catalogService)(nil)
