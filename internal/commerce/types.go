package commerce

import (
	"fmt"
	"time"
)

// Token is a bearer credential together with its absolute expiry.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Price is an amount in minor units of Currency.
type Price struct {
	Amount   int64
	Currency string
}

func (p Price) String() string {
	if p.Currency == "" {
		return ""
	}
	return fmt.Sprintf("%d.%02d %s", p.Amount/100, p.Amount%100, p.Currency)
}

type Product struct {
	ID           string
	Name         string
	Description  string
	Price        Price
	MainImageURL string
}

type Stock struct {
	ProductID string
	Available int
}

// CartRef identifies a remote cart and when the remote side will drop it.
type CartRef struct {
	ID        string
	ExpiresAt time.Time
}

type CartItem struct {
	ID           string
	ProductID    string
	Name         string
	Quantity     int
	UnitPrice    string
	DisplayTotal string
}

type Cart struct {
	ID         string
	Items      []CartItem
	GrandTotal string
}
