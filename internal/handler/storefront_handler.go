package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/storebot/internal/commerce"
	"storefront/storebot/internal/model"
	"storefront/storebot/internal/service"
	"storefront/storebot/pkg/response"
)

// StorefrontHandler exposes the catalog, cart and checkout over JSON for
// non-chat clients. The user id comes from the bearer token subject.
type StorefrontHandler struct {
	catalog  service.CatalogService
	carts    service.CartService
	checkout service.CheckoutService
	logger   *zap.Logger
}

func NewStorefrontHandler(
	catalog service.CatalogService,
	carts service.CartService,
	checkout service.CheckoutService,
	logger *zap.Logger,
) *StorefrontHandler {
	return &StorefrontHandler{
		catalog:  catalog,
		carts:    carts,
		checkout: checkout,
		logger:   logger.Named("storefront"),
	}
}

type ProductResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	ImageURL    string `json:"image_url,omitempty"`
	Available   *int   `json:"available,omitempty"`
}

func toProductResponse(p commerce.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.String(),
		Amount:      p.Price.Amount,
		Currency:    p.Price.Currency,
		ImageURL:    p.MainImageURL,
	}
}

type AddItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

type CheckoutRequest struct {
	Name  string `json:"name"`
	Email string `json:"email" binding:"required"`
}

type OrderResponse struct {
	Order           *model.Order `json:"order"`
	CustomerExisted bool         `json:"customer_existed"`
}

func (h *StorefrontHandler) ListProducts(c *gin.Context) {
	products, err := h.catalog.ListProducts(c.Request.Context())
	if err != nil {
		h.remoteFailure(c, "list products", err)
		return
	}
	out := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	response.Success(c, out)
}

func (h *StorefrontHandler) GetProduct(c *gin.Context) {
	detail, err := h.catalog.ProductDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		h.remoteFailure(c, "get product", err)
		return
	}
	out := toProductResponse(detail.Product)
	out.Available = &detail.Available
	response.Success(c, out)
}

func (h *StorefrontHandler) GetCart(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}
	snapshot, err := h.carts.Cart(c.Request.Context(), userID)
	if err != nil {
		h.remoteFailure(c, "get cart", err)
		return
	}
	response.Success(c, snapshot)
}

func (h *StorefrontHandler) AddItem(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}

	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	out, err := h.carts.AddToCart(c.Request.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		if errors.Is(err, service.ErrInvalidQuantity) {
			response.BadRequest(c, err.Error())
			return
		}
		h.remoteFailure(c, "add to cart", err)
		return
	}

	switch out.Kind {
	case service.OutcomeAdded:
		response.Success(c, gin.H{"outcome": out.Kind.String()})
	case service.OutcomeQuantityExceedsStock:
		response.ErrorWithData(c, http.StatusConflict, "quantity exceeds stock", gin.H{
			"outcome":         out.Kind.String(),
			"available":       out.Available,
			"already_in_cart": out.AlreadyInCart,
		})
	default:
		h.logger.Warn("add to cart rejected", zap.String("user_id", userID), zap.Error(out.Err))
		response.BadGateway(c, "commerce service rejected the item")
	}
}

func (h *StorefrontHandler) RemoveItem(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}

	out, err := h.carts.RemoveFromCart(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.remoteFailure(c, "remove from cart", err)
		return
	}

	switch out.Kind {
	case service.OutcomeRemoved:
		response.Success(c, gin.H{"outcome": out.Kind.String()})
	case service.OutcomeItemNotFound:
		response.NotFound(c, "cart item not found")
	default:
		h.logger.Warn("remove from cart rejected", zap.String("user_id", userID), zap.Error(out.Err))
		response.BadGateway(c, "commerce service rejected the removal")
	}
}

func (h *StorefrontHandler) Checkout(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	out, err := h.checkout.Checkout(c.Request.Context(), userID, req.Name, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail):
			response.BadRequest(c, err.Error())
		case errors.Is(err, service.ErrEmptyCart):
			response.Conflict(c, err.Error())
		default:
			h.remoteFailure(c, "checkout", err)
		}
		return
	}
	response.Success(c, OrderResponse{Order: out.Order, CustomerExisted: out.CustomerExisted})
}

// remoteFailure maps errors that reached the boundary: upstream trouble is
// a 502, everything else a 500.
func (h *StorefrontHandler) remoteFailure(c *gin.Context, op string, err error) {
	_ = c.Error(err)
	h.logger.Error(op+" failed", zap.Error(err))

	var apiErr *commerce.APIError
	if errors.Is(err, commerce.ErrTransport) || errors.Is(err, commerce.ErrMalformedResponse) || errors.As(err, &apiErr) {
		response.BadGateway(c, "commerce service unavailable")
		return
	}
	response.InternalError(c, op+" failed")
}
