package models

import (
	"time"

	"github.com/jinzhu/gorm"
)

// Supplier represents an ingredient supplier
type Supplier struct {
	gorm.Model
	CompanyName string `gorm:"not null"`
	TaxID       string
	ContactName string
	Phone       string
	Email       string
}

// Purchase is a received supply order. Receiving it increments stock and
// refreshes each ingredient's unit cost inside the same transaction.
type Purchase struct {
	gorm.Model
	SupplierID    *uint
	PurchasedAt   time.Time
	InvoiceNumber string
	Total         float64
	Notes         string
	Items         []PurchaseItem `gorm:"foreignkey:PurchaseID"`
}

// PurchaseItem is one line of a purchase
type PurchaseItem struct {
	gorm.Model
	PurchaseID   uint    `gorm:"not null"`
	IngredientID uint    `gorm:"not null"`
	Quantity     float64 `gorm:"not null"`
	UnitPrice    float64 `gorm:"not null"`
	Subtotal     float64 `gorm:"not null"`
}
