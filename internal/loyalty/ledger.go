// Package loyalty tracks per-customer point balances keyed by phone
// number. One point accrues per currency unit of a completed order.
package loyalty

import (
	"errors"
	"strings"

	"github.com/jinzhu/gorm"

	"colonial/internal/models"
)

// ErrNoPhone is returned when a phone number has no digits to key on.
var ErrNoPhone = errors.New("phone number has no digits")

// NormalizePhone strips everything but digits so "(11) 99999-0000" and
// "11999990000" resolve to the same record.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Ledger is the loyalty point store.
type Ledger struct {
	db *gorm.DB
}

// NewLedger creates a loyalty ledger backed by db.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Points returns the balance for a phone number, zero when no record exists.
func (l *Ledger) Points(phone string) (int, error) {
	var rec models.LoyaltyRecord
	err := l.db.Where("phone = ?", NormalizePhone(phone)).First(&rec).Error
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return 0, nil
		}
		return 0, err
	}
	return rec.Points, nil
}

// Add accrues delta points inside tx, creating the record on first
// qualifying order. Returns the new balance.
func (l *Ledger) Add(tx *gorm.DB, phone string, delta int) (int, error) {
	normalized := NormalizePhone(phone)
	if normalized == "" {
		return 0, ErrNoPhone
	}

	var rec models.LoyaltyRecord
	err := tx.Where("phone = ?", normalized).First(&rec).Error
	if gorm.IsRecordNotFoundError(err) {
		rec = models.LoyaltyRecord{Phone: normalized, Points: delta}
		if err := tx.Create(&rec).Error; err != nil {
			return 0, err
		}
		return rec.Points, nil
	}
	if err != nil {
		return 0, err
	}

	rec.Points += delta
	if err := tx.Model(&rec).Update("points", rec.Points).Error; err != nil {
		return 0, err
	}
	return rec.Points, nil
}

// Set overwrites a balance outright. This is the separate admin
// correction path, distinct from accrual; callers audit it.
func (l *Ledger) Set(phone string, points int) (int, error) {
	normalized := NormalizePhone(phone)
	if normalized == "" {
		return 0, ErrNoPhone
	}

	var rec models.LoyaltyRecord
	err := l.db.Where("phone = ?", normalized).First(&rec).Error
	if gorm.IsRecordNotFoundError(err) {
		rec = models.LoyaltyRecord{Phone: normalized, Points: points}
		if err := l.db.Create(&rec).Error; err != nil {
			return 0, err
		}
		return rec.Points, nil
	}
	if err != nil {
		return 0, err
	}

	if err := l.db.Model(&rec).Update("points", points).Error; err != nil {
		return 0, err
	}
	return points, nil
}

// List returns records ordered by balance, optionally filtered by a
// phone substring.
func (l *Ledger) List(search string) ([]models.LoyaltyRecord, error) {
	query := l.db.Order("points desc")
	if search != "" {
		query = query.Where("phone LIKE ?", "%"+NormalizePhone(search)+"%")
	}
	var out []models.LoyaltyRecord
	if err := query.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
