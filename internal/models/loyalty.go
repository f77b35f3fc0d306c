package models

import "github.com/jinzhu/gorm"

// LoyaltyRecord accumulates points per customer phone number. The phone
// is stored digits-only so formatting differences share one balance.
type LoyaltyRecord struct {
	gorm.Model
	Phone  string `gorm:"unique_index;not null"`
	Points int
}

// TableName sets the table name for LoyaltyRecord
func (LoyaltyRecord) TableName() string {
	return "loyalty_records"
}
