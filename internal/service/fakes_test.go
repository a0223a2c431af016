package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storefront/storebot/internal/commerce"
)

// fakeCommerce is an in-memory commerce.Client that counts calls.
type fakeCommerce struct {
	mu sync.Mutex

	tokenTTL time.Duration
	cartTTL  time.Duration
	now      func() time.Time

	tokenCalls      int
	createCartCalls int
	fetchCartCalls  int
	addCalls        int
	removeCalls     int
	customerCalls   int

	products  map[string]commerce.Product
	stock     map[string]int
	carts     map[string]*commerce.Cart
	customers map[string]bool

	tokenErr    error
	addErr      error
	removeErr   error
	customerErr error
}

func newFakeCommerce(now func() time.Time) *fakeCommerce {
	return &fakeCommerce{
		tokenTTL:  time.Hour,
		cartTTL:   7 * 24 * time.Hour,
		now:       now,
		products:  map[string]commerce.Product{},
		stock:     map[string]int{},
		carts:     map[string]*commerce.Cart{},
		customers: map[string]bool{},
	}
}

func (f *fakeCommerce) calls(counter *int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *counter
}

func (f *fakeCommerce) FetchToken(context.Context) (commerce.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenCalls++
	if f.tokenErr != nil {
		return commerce.Token{}, f.tokenErr
	}
	return commerce.Token{
		AccessToken: fmt.Sprintf("token-%d", f.tokenCalls),
		ExpiresAt:   f.now().Add(f.tokenTTL),
	}, nil
}

func (f *fakeCommerce) FetchProducts(context.Context, string) ([]commerce.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]commerce.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeCommerce) FetchProduct(_ context.Context, _ string, productID string) (*commerce.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[productID]
	if !ok {
		return nil, &commerce.APIError{Endpoint: "product", StatusCode: 404}
	}
	return &p, nil
}

func (f *fakeCommerce) FetchStock(_ context.Context, _ string, productID string) (commerce.Stock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[productID]; !ok {
		return commerce.Stock{}, &commerce.APIError{Endpoint: "stock", StatusCode: 404}
	}
	return commerce.Stock{ProductID: productID, Available: f.stock[productID]}, nil
}

func (f *fakeCommerce) CreateCart(context.Context, string, string) (commerce.CartRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCartCalls++
	id := fmt.Sprintf("cart-%d", f.createCartCalls)
	f.carts[id] = &commerce.Cart{ID: id}
	return commerce.CartRef{ID: id, ExpiresAt: f.now().Add(f.cartTTL)}, nil
}

func (f *fakeCommerce) FetchCart(_ context.Context, _ string, cartID string) (*commerce.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCartCalls++
	cart, ok := f.carts[cartID]
	if !ok {
		return nil, &commerce.APIError{Endpoint: "cart", StatusCode: 404}
	}
	out := *cart
	out.Items = append([]commerce.CartItem(nil), cart.Items...)
	return &out, nil
}

func (f *fakeCommerce) AddCartItem(_ context.Context, _ string, cartID, productID string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls++
	if f.addErr != nil {
		return f.addErr
	}
	cart := f.carts[cartID]
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			if cart.Items[i].Quantity+quantity > f.stock[productID] {
				return &commerce.APIError{Endpoint: "add_cart_item", StatusCode: 400, Body: "insufficient stock"}
			}
			cart.Items[i].Quantity += quantity
			return nil
		}
	}
	if quantity > f.stock[productID] {
		return &commerce.APIError{Endpoint: "add_cart_item", StatusCode: 400, Body: "insufficient stock"}
	}
	cart.Items = append(cart.Items, commerce.CartItem{
		ID:           "item-" + productID,
		ProductID:    productID,
		Name:         f.products[productID].Name,
		Quantity:     quantity,
		DisplayTotal: "$1.00",
	})
	cart.GrandTotal = "$1.00"
	return nil
}

func (f *fakeCommerce) RemoveCartItem(_ context.Context, _ string, cartID, itemID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeCalls++
	if f.removeErr != nil {
		return f.removeErr
	}
	cart := f.carts[cartID]
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			return nil
		}
	}
	return &commerce.APIError{Endpoint: "remove_cart_item", StatusCode: 404}
}

func (f *fakeCommerce) CreateCustomer(_ context.Context, _ string, _ string, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.customerCalls++
	if f.customerErr != nil {
		return f.customerErr
	}
	if f.customers[email] {
		return &commerce.APIError{Endpoint: "create_customer", StatusCode: 409}
	}
	f.customers[email] = true
	return nil
}

var _ commerce.Client = (*fakeCommerce)(nil)

// fakeClock is a settable clock shared by the cache manager and the fake API.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}
