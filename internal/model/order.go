package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// OrderLine is one cart line captured at checkout.
type OrderLine struct {
	ProductID    string `json:"product_id"`
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	DisplayTotal string `json:"display_total"`
}

// OrderLines is stored as JSONB.
type OrderLines []OrderLine

func (l OrderLines) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *OrderLines) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("OrderLines.Scan: type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, l)
}

// Order is the local record of a finalized checkout. The remote commerce
// system stays authoritative; this table only serves support lookups.
type Order struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID          string     `gorm:"type:varchar(64);not null;index" json:"user_id"`
	CartID          string     `gorm:"type:varchar(128);not null" json:"cart_id"`
	CustomerName    string     `gorm:"type:varchar(256)" json:"customer_name"`
	CustomerEmail   string     `gorm:"type:varchar(320);not null" json:"customer_email"`
	CustomerExisted bool       `gorm:"not null;default:false" json:"customer_existed"`
	GrandTotal      string     `gorm:"type:varchar(64)" json:"grand_total"`
	Items           OrderLines `gorm:"type:jsonb" json:"items"`
	CreatedAt       time.Time  `json:"created_at"`
}

func (Order) TableName() string { return "orders" }
