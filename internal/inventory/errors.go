package inventory

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIngredientNotFound is returned when a referenced ingredient does not exist.
	ErrIngredientNotFound = errors.New("ingredient not found")
	// ErrProductNotFound is returned when a referenced product does not exist.
	ErrProductNotFound = errors.New("product not found")
	// ErrVersionConflict signals a lost optimistic-lock race on a stock
	// adjustment; the caller should retry the whole operation.
	ErrVersionConflict = errors.New("ingredient version conflict")
)

// IsVersionConflict checks whether err is an optimistic-lock conflict.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// Shortage describes one order line that cannot be satisfied by current stock.
type Shortage struct {
	ProductName    string  `json:"product"`
	IngredientName string  `json:"ingredient"`
	Required       float64 `json:"required"`
	OnHand         float64 `json:"on_hand"`
}

// InsufficientStockError rejects an order with one entry per failing line.
type InsufficientStockError struct {
	Shortages []Shortage
}

func (e *InsufficientStockError) Error() string {
	names := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		names = append(names, fmt.Sprintf("%s (%s)", s.ProductName, s.IngredientName))
	}
	return "insufficient stock: " + strings.Join(names, ", ")
}

// IsInsufficientStock checks whether err reports a stock shortage.
func IsInsufficientStock(err error) bool {
	var target *InsufficientStockError
	return errors.As(err, &target)
}
