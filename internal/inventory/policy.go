package inventory

import (
	"fmt"

	"github.com/jinzhu/gorm"

	"colonial/internal/models"
)

// Policy governs whether stock checks run and whether they block sales.
// It is injected at construction; there is no ambient configuration.
//
// Three effective modes:
//   - disabled: no availability logic anywhere, everything sells
//   - enabled + negative allowed: display flags only, never blocks
//   - enabled + strict: display flags AND checkout/completion blocking
type Policy struct {
	Enabled       bool
	AllowNegative bool
}

// ChecksDisplay reports whether menu display should reflect stock state.
func (p Policy) ChecksDisplay() bool {
	return p.Enabled
}

// Blocks reports whether insufficient stock rejects checkout and completion.
func (p Policy) Blocks() bool {
	return p.Enabled && !p.AllowNegative
}

// LineRequest is one order line to validate against stock.
type LineRequest struct {
	ProductID uint
	Quantity  int
}

// Validator runs checkout- and completion-time stock validation under a policy.
type Validator struct {
	db       *gorm.DB
	resolver *Resolver
	policy   Policy
}

// NewValidator creates a stock validator.
func NewValidator(db *gorm.DB, resolver *Resolver, policy Policy) *Validator {
	return &Validator{db: db, resolver: resolver, policy: policy}
}

// Policy returns the active availability policy.
func (v *Validator) Policy() Policy {
	return v.policy
}

// ValidateLines checks every line against current stock. Requirements are
// summed across lines before comparing, so two lines drawing on the same
// ingredient cannot each pass individually while jointly overdrawing it.
// Under a non-blocking policy it always succeeds. Any shortage rejects
// the whole set; no partial orders.
func (v *Validator) ValidateLines(lines []LineRequest) error {
	if !v.policy.Blocks() {
		return nil
	}

	type demand struct {
		total    float64
		products []string
	}
	demands := make(map[uint]*demand)
	order := make([]uint, 0)

	for _, line := range lines {
		var product models.Product
		if err := v.db.First(&product, line.ProductID).Error; err != nil {
			if gorm.IsRecordNotFoundError(err) {
				return ErrProductNotFound
			}
			return err
		}

		reqs, err := v.resolver.Required(line.ProductID, line.Quantity)
		if err != nil {
			return err
		}
		for _, req := range reqs {
			d, ok := demands[req.IngredientID]
			if !ok {
				d = &demand{}
				demands[req.IngredientID] = d
				order = append(order, req.IngredientID)
			}
			d.total += req.Quantity
			d.products = append(d.products, product.Name)
		}
	}

	var shortages []Shortage
	for _, ingID := range order {
		d := demands[ingID]
		var ing models.Ingredient
		if err := v.db.First(&ing, ingID).Error; err != nil {
			if gorm.IsRecordNotFoundError(err) {
				return ErrIngredientNotFound
			}
			return fmt.Errorf("load ingredient %d: %w", ingID, err)
		}
		if ing.Quantity < d.total {
			shortages = append(shortages, Shortage{
				ProductName:    d.products[0],
				IngredientName: ing.Name,
				Required:       d.total,
				OnHand:         ing.Quantity,
			})
		}
	}

	if len(shortages) > 0 {
		return &InsufficientStockError{Shortages: shortages}
	}
	return nil
}
