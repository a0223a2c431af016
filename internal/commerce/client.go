package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"storefront/storebot/internal/config"
	"storefront/storebot/internal/metrics"
)

const maxErrorBody = 512

// Client is the typed contract of the remote commerce API.
type Client interface {
	FetchToken(ctx context.Context) (Token, error)
	FetchProducts(ctx context.Context, token string) ([]Product, error)
	FetchProduct(ctx context.Context, token, productID string) (*Product, error)
	FetchStock(ctx context.Context, token, productID string) (Stock, error)
	CreateCart(ctx context.Context, token, name string) (CartRef, error)
	FetchCart(ctx context.Context, token, cartID string) (*Cart, error)
	AddCartItem(ctx context.Context, token, cartID, productID string, quantity int) error
	RemoveCartItem(ctx context.Context, token, cartID, itemID string) error
	CreateCustomer(ctx context.Context, token, name, email string) error
}

type httpClient struct {
	baseURL       string
	clientID      string
	catalogNodeID string
	channel       string
	expiryLoc     *time.Location
	http          *http.Client
	limiter       *rate.Limiter
	logger        *zap.Logger
}

func NewClient(cfg config.CommerceConfig, logger *zap.Logger) (Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("commerce base_url is required")
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, fmt.Errorf("commerce client_id is required")
	}

	loc := time.UTC
	if cfg.CartExpiryLocation != "" {
		l, err := time.LoadLocation(cfg.CartExpiryLocation)
		if err != nil {
			return nil, fmt.Errorf("invalid commerce cart_expiry_location: %w", err)
		}
		loc = l
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	limit := rate.Inf
	burst := cfg.RateLimitBurst
	if cfg.RateLimitRPS > 0 {
		limit = rate.Limit(cfg.RateLimitRPS)
	}
	if burst < 1 {
		burst = 1
	}

	return &httpClient{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		clientID:      cfg.ClientID,
		catalogNodeID: cfg.CatalogNodeID,
		channel:       cfg.Channel,
		expiryLoc:     loc,
		http:          &http.Client{Timeout: timeout},
		limiter:       rate.NewLimiter(limit, burst),
		logger:        logger.Named("commerce"),
	}, nil
}

type request struct {
	endpoint string
	method   string
	path     string
	token    string
	query    url.Values
	headers  map[string]string
	form     url.Values
	body     any
}

func (c *httpClient) do(ctx context.Context, req request, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTransport, req.endpoint, err)
	}

	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case req.form != nil:
		body = strings.NewReader(req.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case req.body != nil:
		data, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", req.endpoint, err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", req.endpoint, err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		metrics.ObserveRemoteRequest(req.endpoint, 0, time.Since(start))
		c.logger.Warn("commerce request failed", zap.String("endpoint", req.endpoint), zap.Error(err))
		return fmt.Errorf("%w: %s: %w", ErrTransport, req.endpoint, err)
	}
	defer resp.Body.Close()
	metrics.ObserveRemoteRequest(req.endpoint, resp.StatusCode, time.Since(start))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read %s response: %w", ErrTransport, req.endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(respBody)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		c.logger.Debug("commerce request rejected",
			zap.String("endpoint", req.endpoint),
			zap.Int("status", resp.StatusCode),
		)
		return &APIError{Endpoint: req.endpoint, StatusCode: resp.StatusCode, Body: snippet}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrMalformedResponse, req.endpoint, err)
	}
	return nil
}

func (c *httpClient) FetchToken(ctx context.Context) (Token, error) {
	var resp struct {
		AccessToken string `json:"access_token"`
		Expires     int64  `json:"expires"`
	}
	err := c.do(ctx, request{
		endpoint: "fetch_token",
		method:   http.MethodPost,
		path:     "/oauth/access_token",
		form: url.Values{
			"client_id":  {c.clientID},
			"grant_type": {"implicit"},
		},
	}, &resp)
	if err != nil {
		return Token{}, err
	}
	if resp.AccessToken == "" || resp.Expires == 0 {
		return Token{}, fmt.Errorf("%w: fetch_token: missing access_token or expires", ErrMalformedResponse)
	}
	return Token{AccessToken: resp.AccessToken, ExpiresAt: time.Unix(resp.Expires, 0)}, nil
}

type priceEntry struct {
	Amount int64 `json:"amount"`
}

type productData struct {
	ID         string `json:"id"`
	Attributes struct {
		Name        string                `json:"name"`
		Description string                `json:"description"`
		Price       map[string]priceEntry `json:"price"`
	} `json:"attributes"`
}

func (d productData) toProduct() Product {
	return Product{
		ID:          d.ID,
		Name:        d.Attributes.Name,
		Description: d.Attributes.Description,
		Price:       pickPrice(d.Attributes.Price),
	}
}

// pickPrice prefers USD, otherwise the alphabetically first currency.
func pickPrice(prices map[string]priceEntry) Price {
	if p, ok := prices["USD"]; ok {
		return Price{Amount: p.Amount, Currency: "USD"}
	}
	currencies := make([]string, 0, len(prices))
	for cur := range prices {
		currencies = append(currencies, cur)
	}
	if len(currencies) == 0 {
		return Price{}
	}
	sort.Strings(currencies)
	return Price{Amount: prices[currencies[0]].Amount, Currency: currencies[0]}
}

func (c *httpClient) FetchProducts(ctx context.Context, token string) ([]Product, error) {
	if c.catalogNodeID == "" {
		return nil, fmt.Errorf("commerce catalog_node_id is required to list products")
	}
	var resp struct {
		Data []productData `json:"data"`
	}
	err := c.do(ctx, request{
		endpoint: "fetch_products",
		method:   http.MethodGet,
		path:     "/catalog/nodes/" + url.PathEscape(c.catalogNodeID) + "/relationships/products",
		token:    token,
		headers:  map[string]string{"EP-Channel": c.channel},
	}, &resp)
	if err != nil {
		return nil, err
	}

	products := make([]Product, 0, len(resp.Data))
	for _, d := range resp.Data {
		products = append(products, d.toProduct())
	}
	return products, nil
}

func (c *httpClient) FetchProduct(ctx context.Context, token, productID string) (*Product, error) {
	var resp struct {
		Data     productData `json:"data"`
		Included struct {
			MainImages []struct {
				Link struct {
					Href string `json:"href"`
				} `json:"link"`
			} `json:"main_images"`
		} `json:"included"`
	}
	err := c.do(ctx, request{
		endpoint: "fetch_product",
		method:   http.MethodGet,
		path:     "/catalog/products/" + url.PathEscape(productID),
		token:    token,
		query:    url.Values{"include": {"main_image"}},
	}, &resp)
	if err != nil {
		return nil, err
	}

	product := resp.Data.toProduct()
	if len(resp.Included.MainImages) > 0 {
		product.MainImageURL = resp.Included.MainImages[0].Link.Href
	}
	return &product, nil
}

func (c *httpClient) FetchStock(ctx context.Context, token, productID string) (Stock, error) {
	var resp struct {
		Data struct {
			Available int `json:"available"`
		} `json:"data"`
	}
	err := c.do(ctx, request{
		endpoint: "fetch_stock",
		method:   http.MethodGet,
		path:     "/v2/inventories/" + url.PathEscape(productID),
		token:    token,
	}, &resp)
	if err != nil {
		return Stock{}, err
	}
	return Stock{ProductID: productID, Available: resp.Data.Available}, nil
}

func (c *httpClient) CreateCart(ctx context.Context, token, name string) (CartRef, error) {
	payload := map[string]any{
		"data": map[string]any{"name": name},
	}
	var resp struct {
		Data struct {
			ID   string `json:"id"`
			Meta struct {
				Timestamps struct {
					ExpiresAt string `json:"expires_at"`
				} `json:"timestamps"`
			} `json:"meta"`
		} `json:"data"`
	}
	err := c.do(ctx, request{
		endpoint: "create_cart",
		method:   http.MethodPost,
		path:     "/v2/carts",
		token:    token,
		body:     payload,
	}, &resp)
	if err != nil {
		return CartRef{}, err
	}
	if resp.Data.ID == "" {
		return CartRef{}, fmt.Errorf("%w: create_cart: missing id", ErrMalformedResponse)
	}

	expiresAt, err := parseExpiry(resp.Data.Meta.Timestamps.ExpiresAt, c.expiryLoc)
	if err != nil {
		return CartRef{}, fmt.Errorf("%w: create_cart: %w", ErrMalformedResponse, err)
	}
	return CartRef{ID: resp.Data.ID, ExpiresAt: expiresAt}, nil
}

// parseExpiry accepts RFC 3339 timestamps and zone-less ones, which are
// interpreted in loc.
func parseExpiry(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("missing expires_at")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02T15:04:05.999999999", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse expires_at %q: %w", s, err)
	}
	return t, nil
}

type displayPrice struct {
	WithTax struct {
		Formatted string `json:"formatted"`
		Unit      struct {
			Formatted string `json:"formatted"`
		} `json:"unit"`
		Value struct {
			Formatted string `json:"formatted"`
		} `json:"value"`
	} `json:"with_tax"`
}

func (c *httpClient) FetchCart(ctx context.Context, token, cartID string) (*Cart, error) {
	var resp struct {
		Data struct {
			ID   string `json:"id"`
			Meta struct {
				DisplayPrice displayPrice `json:"display_price"`
			} `json:"meta"`
		} `json:"data"`
		Included struct {
			Items []struct {
				ID        string `json:"id"`
				ProductID string `json:"product_id"`
				Name      string `json:"name"`
				Quantity  int    `json:"quantity"`
				Meta      struct {
					DisplayPrice displayPrice `json:"display_price"`
				} `json:"meta"`
			} `json:"items"`
		} `json:"included"`
	}
	err := c.do(ctx, request{
		endpoint: "fetch_cart",
		method:   http.MethodGet,
		path:     "/v2/carts/" + url.PathEscape(cartID),
		token:    token,
		query:    url.Values{"include": {"items"}},
	}, &resp)
	if err != nil {
		return nil, err
	}

	cart := &Cart{
		ID:         cartID,
		GrandTotal: resp.Data.Meta.DisplayPrice.WithTax.Formatted,
		Items:      make([]CartItem, 0, len(resp.Included.Items)),
	}
	for _, it := range resp.Included.Items {
		cart.Items = append(cart.Items, CartItem{
			ID:           it.ID,
			ProductID:    it.ProductID,
			Name:         it.Name,
			Quantity:     it.Quantity,
			UnitPrice:    it.Meta.DisplayPrice.WithTax.Unit.Formatted,
			DisplayTotal: it.Meta.DisplayPrice.WithTax.Value.Formatted,
		})
	}
	return cart, nil
}

func (c *httpClient) AddCartItem(ctx context.Context, token, cartID, productID string, quantity int) error {
	payload := map[string]any{
		"data": map[string]any{
			"id":       productID,
			"type":     "cart_item",
			"quantity": quantity,
		},
	}
	return c.do(ctx, request{
		endpoint: "add_cart_item",
		method:   http.MethodPost,
		path:     "/v2/carts/" + url.PathEscape(cartID) + "/items",
		token:    token,
		body:     payload,
	}, nil)
}

func (c *httpClient) RemoveCartItem(ctx context.Context, token, cartID, itemID string) error {
	return c.do(ctx, request{
		endpoint: "remove_cart_item",
		method:   http.MethodDelete,
		path:     "/v2/carts/" + url.PathEscape(cartID) + "/items/" + url.PathEscape(itemID),
		token:    token,
	}, nil)
}

func (c *httpClient) CreateCustomer(ctx context.Context, token, name, email string) error {
	payload := map[string]any{
		"data": map[string]any{
			"type":  "customer",
			"name":  name,
			"email": email,
		},
	}
	return c.do(ctx, request{
		endpoint: "create_customer",
		method:   http.MethodPost,
		path:     "/v2/customers",
		token:    token,
		body:     payload,
	}, nil)
}

var _ Client = (*httpClient)(nil)
