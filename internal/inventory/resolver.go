package inventory

import (
	"fmt"

	"github.com/jinzhu/gorm"

	"colonial/internal/models"
)

// Availability represents the menu-display state of a product
type Availability int

const (
	// Available is listed and sellable
	Available Availability = iota
	// SoldOut stays listed but flagged; manufactured items keep visibility
	// so staff can see near-miss stock situations
	SoldOut
	// Unavailable is hidden from the menu entirely; a resale item with no
	// stock has nothing else to offer
	Unavailable
)

// String returns the display label of the availability state
func (a Availability) String() string {
	switch a {
	case Available:
		return "available"
	case SoldOut:
		return "sold_out"
	case Unavailable:
		return "unavailable"
	}
	return "unknown"
}

// Kind is the resolved stock-tracking variant of a product. Exactly one
// of the concrete types below is returned per product.
type Kind interface {
	isKind()
}

// Resale tracks stock 1:1 through a single linked ingredient
type Resale struct {
	IngredientID uint
}

// Manufactured tracks stock through recipe lines (ficha técnica)
type Manufactured struct {
	Lines []models.RecipeLine
}

// Untracked applies no stock tracking at all
type Untracked struct{}

func (Resale) isKind()       {}
func (Manufactured) isKind() {}
func (Untracked) isKind()    {}

// Requirement is one (ingredient, quantity) pair needed to fulfil a line.
type Requirement struct {
	IngredientID uint
	Quantity     float64
}

// Resolver determines how a product maps onto tracked stock.
type Resolver struct {
	db *gorm.DB
}

// NewResolver creates a recipe resolver backed by db.
func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// Kind resolves the stock-tracking variant of a product. A resale product
// without its ingredient link and a manufactured product without recipe
// lines both come back Untracked.
func (r *Resolver) Kind(product *models.Product) (Kind, error) {
	switch product.Kind {
	case models.ProductKindResale:
		if product.IngredientID == nil {
			return Untracked{}, nil
		}
		return Resale{IngredientID: *product.IngredientID}, nil
	case models.ProductKindManufactured:
		var lines []models.RecipeLine
		if err := r.db.Where("product_id = ?", product.ID).Find(&lines).Error; err != nil {
			return nil, fmt.Errorf("load recipe for product %d: %w", product.ID, err)
		}
		if len(lines) == 0 {
			return Untracked{}, nil
		}
		return Manufactured{Lines: lines}, nil
	}
	return Untracked{}, nil
}

// Required computes the ingredients needed to sell qty units of a product.
// Untracked products return no requirements.
func (r *Resolver) Required(productID uint, qty int) ([]Requirement, error) {
	var product models.Product
	if err := r.db.First(&product, productID).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	kind, err := r.Kind(&product)
	if err != nil {
		return nil, err
	}

	switch k := kind.(type) {
	case Resale:
		return []Requirement{{IngredientID: k.IngredientID, Quantity: float64(qty)}}, nil
	case Manufactured:
		reqs := make([]Requirement, 0, len(k.Lines))
		for _, line := range k.Lines {
			reqs = append(reqs, Requirement{
				IngredientID: line.IngredientID,
				Quantity:     line.Quantity * float64(qty),
			})
		}
		return reqs, nil
	case Untracked:
		return nil, nil
	}
	return nil, nil
}

// Availability inspects current stock against per-unit requirements.
// Resale at zero stock is Unavailable (hidden); manufactured with any
// exhausted recipe ingredient is SoldOut (listed, flagged).
func (r *Resolver) Availability(product *models.Product) (Availability, error) {
	kind, err := r.Kind(product)
	if err != nil {
		return Available, err
	}

	switch k := kind.(type) {
	case Resale:
		var ing models.Ingredient
		if err := r.db.First(&ing, k.IngredientID).Error; err != nil {
			if gorm.IsRecordNotFoundError(err) {
				return Available, ErrIngredientNotFound
			}
			return Available, err
		}
		if ing.Quantity <= 0 {
			return Unavailable, nil
		}
		return Available, nil
	case Manufactured:
		for _, line := range k.Lines {
			var ing models.Ingredient
			if err := r.db.First(&ing, line.IngredientID).Error; err != nil {
				if gorm.IsRecordNotFoundError(err) {
					return Available, ErrIngredientNotFound
				}
				return Available, err
			}
			if ing.Quantity <= 0 {
				return SoldOut, nil
			}
		}
		return Available, nil
	case Untracked:
		return Available, nil
	}
	return Available, nil
}
