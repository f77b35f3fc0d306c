package database

import (
	"time"

	"github.com/jinzhu/gorm"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"colonial/internal/models"
)

var db *gorm.DB

// InitDB initializes the database connection
func InitDB(dbPath string) (*gorm.DB, error) {
	var err error
	db, err = gorm.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	db.DB().SetMaxIdleConns(10)
	db.DB().SetMaxOpenConns(100)
	db.DB().SetConnMaxLifetime(time.Hour)

	return db, nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return db
}

// CloseDB closes the database connection
func CloseDB() error {
	if db != nil {
		return db.Close()
	}
	return nil
}

// Migrate creates and updates all required tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Category{},
		&models.Product{},
		&models.Ingredient{},
		&models.RecipeLine{},
		&models.Order{},
		&models.OrderLine{},
		&models.Coupon{},
		&models.CouponUsage{},
		&models.LoyaltyRecord{},
		&models.Supplier{},
		&models.Purchase{},
		&models.PurchaseItem{},
		&models.Reservation{},
		&models.Banner{},
		&models.ActivityEntry{},
	).Error
}

// SeedDefaults ensures essential catalog data exists in the database
func SeedDefaults(db *gorm.DB) error {
	var categoryCount int64
	if err := db.Model(&models.Category{}).Count(&categoryCount).Error; err != nil {
		return err
	}
	if categoryCount == 0 {
		defaultCategories := []models.Category{
			{Name: "Pizzas", SortOrder: 1, Visible: true, ShowPrice: true},
			{Name: "Bebidas", SortOrder: 2, Visible: true, ShowPrice: true},
			{Name: "Sobremesas", SortOrder: 3, Visible: true, ShowPrice: true},
		}
		for _, cat := range defaultCategories {
			if err := db.Create(&cat).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
