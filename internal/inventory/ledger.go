package inventory

import (
	"fmt"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"

	"colonial/internal/models"
)

// Ledger is the single mutation path for ingredient stock. It is pure
// bookkeeping: it never enforces positivity, that is the caller's job
// through the availability policy.
type Ledger struct {
	db  *gorm.DB
	log *logrus.Entry
}

// NewLedger creates a stock ledger backed by db.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{
		db:  db,
		log: logrus.WithField("component", "stock_ledger"),
	}
}

// Quantity returns the current stock on hand for an ingredient.
func (l *Ledger) Quantity(ingredientID uint) (float64, error) {
	var ing models.Ingredient
	if err := l.db.First(&ing, ingredientID).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return 0, ErrIngredientNotFound
		}
		return 0, err
	}
	return ing.Quantity, nil
}

// BelowMinimum reports whether an ingredient has fallen to or under its
// reorder threshold.
func (l *Ledger) BelowMinimum(ingredientID uint) (bool, error) {
	var ing models.Ingredient
	if err := l.db.First(&ing, ingredientID).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return false, ErrIngredientNotFound
		}
		return false, err
	}
	return ing.Quantity <= ing.MinQuantity, nil
}

// Adjust applies delta to an ingredient's stock inside tx and returns the
// new quantity. The update is guarded by a version compare-and-swap so
// concurrent adjustments against the same row surface as
// ErrVersionConflict instead of silently overwriting each other.
func (l *Ledger) Adjust(tx *gorm.DB, ingredientID uint, delta float64) (float64, error) {
	var ing models.Ingredient
	if err := tx.First(&ing, ingredientID).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return 0, ErrIngredientNotFound
		}
		return 0, fmt.Errorf("load ingredient %d: %w", ingredientID, err)
	}

	newQty := ing.Quantity + delta
	res := tx.Model(&models.Ingredient{}).
		Where("id = ? AND version = ?", ing.ID, ing.Version).
		Updates(map[string]interface{}{
			"quantity": newQty,
			"version":  ing.Version + 1,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("adjust ingredient %d: %w", ingredientID, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, ErrVersionConflict
	}

	l.log.WithFields(logrus.Fields{
		"ingredient": ing.Name,
		"delta":      delta,
		"quantity":   newQty,
	}).Debug("stock adjusted")

	return newQty, nil
}

// ReceivePurchase applies a purchase receipt: each item increments its
// ingredient's stock and refreshes the unit cost to the latest purchase
// price, all inside the transaction that persists the purchase itself.
func (l *Ledger) ReceivePurchase(tx *gorm.DB, items []models.PurchaseItem) error {
	for _, item := range items {
		if _, err := l.Adjust(tx, item.IngredientID, item.Quantity); err != nil {
			return err
		}
		if err := tx.Model(&models.Ingredient{}).
			Where("id = ?", item.IngredientID).
			Update("unit_cost", item.UnitPrice).Error; err != nil {
			return fmt.Errorf("update unit cost for ingredient %d: %w", item.IngredientID, err)
		}
	}
	return nil
}

// LowStock returns every ingredient at or below its minimum threshold.
func (l *Ledger) LowStock() ([]models.Ingredient, error) {
	var out []models.Ingredient
	if err := l.db.Where("quantity <= min_quantity").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ExpiringBefore returns ingredients whose current lot expires before t.
func (l *Ledger) ExpiringBefore(t time.Time) ([]models.Ingredient, error) {
	var out []models.Ingredient
	if err := l.db.Where("expiry_date IS NOT NULL AND expiry_date < ?", t).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
