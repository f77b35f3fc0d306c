package models

import (
	"time"

	"github.com/jinzhu/gorm"
)

// CouponKind represents how a coupon discount is computed
type CouponKind string

const (
	CouponKindPercentage CouponKind = "porcentagem"
	CouponKindFixed      CouponKind = "fixo"
)

// Coupon represents a discount code
type Coupon struct {
	gorm.Model
	Code        string     `gorm:"unique_index;not null"`
	Kind        CouponKind `gorm:"not null"`
	Value       float64    `gorm:"not null"`
	Description string
	Active      bool `gorm:"default:true"`
	ValidFrom   *time.Time
	ValidUntil  *time.Time
}

// CouponUsage is the audit trail of applied coupons, written at most
// once per order, at order creation.
type CouponUsage struct {
	gorm.Model
	CouponID uint `gorm:"not null"`
	OrderID  uint `gorm:"not null"`
	Discount float64
}
