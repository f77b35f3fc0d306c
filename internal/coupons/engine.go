// Package coupons validates discount codes and computes their effect on
// an order total. Usage is recorded exactly once, at order creation.
package coupons

import (
	"errors"
	"strings"
	"time"

	"github.com/jinzhu/gorm"

	"colonial/internal/models"
)

var (
	// ErrNotFound is returned for unknown or inactive codes.
	ErrNotFound = errors.New("coupon not found or inactive")
	// ErrNotStarted is returned before the coupon's validity window opens.
	ErrNotStarted = errors.New("coupon not yet valid")
	// ErrExpired is returned after the coupon's validity window closes.
	ErrExpired = errors.New("coupon expired")
)

// Engine validates coupon codes against the store.
type Engine struct {
	db *gorm.DB
}

// NewEngine creates a coupon engine backed by db.
func NewEngine(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

// Validate looks up a code and checks it against the activity flag and
// validity window at the given instant. Codes are matched uppercase.
func (e *Engine) Validate(code string, now time.Time) (*models.Coupon, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	var coupon models.Coupon
	err := e.db.Where("code = ? AND active = ?", code, true).First(&coupon).Error
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if coupon.ValidFrom != nil && now.Before(*coupon.ValidFrom) {
		return nil, ErrNotStarted
	}
	if coupon.ValidUntil != nil && now.After(*coupon.ValidUntil) {
		return nil, ErrExpired
	}
	return &coupon, nil
}

// Discount computes the amount a coupon takes off a total: percentage of
// the total or a fixed value, clamped so the resulting total never drops
// below zero.
func Discount(total float64, coupon *models.Coupon) float64 {
	var discount float64
	switch coupon.Kind {
	case models.CouponKindPercentage:
		discount = total * coupon.Value / 100
	case models.CouponKindFixed:
		discount = coupon.Value
	}
	if discount > total {
		discount = total
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}

// RecordUsage writes the audit row for an applied coupon inside the
// order-creation transaction.
func (e *Engine) RecordUsage(tx *gorm.DB, couponID, orderID uint, discount float64) error {
	usage := models.CouponUsage{
		CouponID: couponID,
		OrderID:  orderID,
		Discount: discount,
	}
	return tx.Create(&usage).Error
}
