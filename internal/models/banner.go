package models

import "github.com/jinzhu/gorm"

// Banner is a rotating promotional image on the public home page
type Banner struct {
	gorm.Model
	Title       string
	Description string
	ImageURL    string `gorm:"not null"`
	LinkURL     string
	LinkText    string
	SortOrder   int
	Active      bool `gorm:"default:true"`
}
