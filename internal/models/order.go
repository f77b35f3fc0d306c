package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/jinzhu/gorm"
)

// OrderStatus represents the possible states of an order
type OrderStatus string

const (
	OrderStatusNew        OrderStatus = "novo"
	OrderStatusPreparing  OrderStatus = "preparo"
	OrderStatusDelivering OrderStatus = "entrega"
	OrderStatusCompleted  OrderStatus = "concluido"
	OrderStatusCancelled  OrderStatus = "cancelado"
)

// Terminal reports whether no further transitions are allowed from s.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// Valid reports whether s is a known status value.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusNew, OrderStatusPreparing, OrderStatusDelivering,
		OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderMeta holds the optional order metadata as named fields instead of
// a free-form blob. Stored as a single JSON column.
type OrderMeta struct {
	DeliveryFee    float64 `json:"delivery_fee,omitempty"`
	CouponCode     string  `json:"coupon,omitempty"`
	DiscountAmount float64 `json:"discount,omitempty"`
	ShippingMethod string  `json:"method,omitempty"`
	Notes          string  `json:"notes,omitempty"`
	Courier        string  `json:"courier,omitempty"`
}

// Value converts the metadata to a JSON string for storage
func (m OrderMeta) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan converts the database value back into metadata fields
func (m *OrderMeta) Scan(value interface{}) error {
	if value == nil {
		*m = OrderMeta{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return errors.New("unsupported type for OrderMeta")
	}
}

// Order represents a customer order
type Order struct {
	gorm.Model
	Code            string `gorm:"unique_index"` // public tracking code
	PlacedAt        time.Time
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	Status          OrderStatus `gorm:"default:'novo'"`
	CompletedAt     *time.Time
	PaymentMethod   string
	Total           float64
	Meta            OrderMeta   `gorm:"type:text"`
	Lines           []OrderLine `gorm:"foreignkey:OrderID"`
}

// OrderLine is one item of an order. ProductName is a snapshot so the
// line survives product deletion; ProductID is an optional back-link.
type OrderLine struct {
	gorm.Model
	OrderID     uint   `gorm:"not null"`
	ProductName string `gorm:"not null"`
	ProductID   *uint
	Quantity    int     `gorm:"not null"`
	UnitPrice   float64 `gorm:"not null"`
	Notes       string
}
