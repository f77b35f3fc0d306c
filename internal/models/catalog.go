package models

import (
	"time"

	"github.com/jinzhu/gorm"
)

// Category groups products on the public menu
type Category struct {
	gorm.Model
	Name      string `gorm:"unique;not null"`
	SortOrder int
	Visible   bool `gorm:"default:true"`
	ShowPrice bool `gorm:"default:true"`
	PhotoURL  string
	Products  []Product `gorm:"foreignkey:CategoryID"`
}

// IngredientKind tells whether a stock item is a raw input or resold as-is
type IngredientKind string

const (
	IngredientKindInput  IngredientKind = "insumo"
	IngredientKindResale IngredientKind = "revenda"
)

// Ingredient is a tracked stock item. Quantity may go negative when the
// inventory policy allows it; the ledger is the only mutation path.
// Version backs the optimistic lock on stock adjustments.
type Ingredient struct {
	gorm.Model
	Name        string         `gorm:"not null"`
	Unit        string         `gorm:"not null"` // kg, g, l, ml, un
	Kind        IngredientKind `gorm:"default:'insumo'"`
	Quantity    float64
	MinQuantity float64 `gorm:"default:1"`
	UnitCost    float64 // last purchase price
	Supplier    string
	ExpiryDate  *time.Time
	Version     int `gorm:"default:0"`
}

// ProductKind tells how a product's sellable quantity is derived
type ProductKind string

const (
	// Manufactured via recipe; availability is the minimum across recipe lines
	ProductKindManufactured ProductKind = "fabricado"
	// Resold directly; availability follows the linked ingredient 1:1
	ProductKindResale ProductKind = "revenda"
)

// Product is a sellable menu entry
type Product struct {
	gorm.Model
	CategoryID   uint   `gorm:"not null"`
	Name         string `gorm:"not null"`
	Description  string
	Price        float64 `gorm:"not null"`
	PhotoURL     string
	Visible      bool         `gorm:"default:true"`
	SoldOut      bool         `gorm:"default:false"` // manual flag, OR-ed with stock-derived state
	Kind         ProductKind  `gorm:"default:'fabricado'"`
	IngredientID *uint        // direct stock link, meaningful only for resale products
	Recipe       []RecipeLine `gorm:"foreignkey:ProductID"`
}

// RecipeLine links a manufactured product to one required ingredient.
// Unique per (product, ingredient); re-adding updates the quantity.
type RecipeLine struct {
	gorm.Model
	ProductID    uint    `gorm:"not null"`
	IngredientID uint    `gorm:"not null"`
	Quantity     float64 `gorm:"not null"` // amount consumed per unit sold
	Ingredient   Ingredient
}

// TableName sets the table name for RecipeLine
func (RecipeLine) TableName() string {
	return "recipe_lines"
}
