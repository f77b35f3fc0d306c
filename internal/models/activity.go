package models

import (
	"time"

	"github.com/jinzhu/gorm"
)

// ActivityEntry is one row of the append-only back-office activity log.
// Written best-effort after the primary operation commits.
type ActivityEntry struct {
	gorm.Model
	Timestamp time.Time
	Actor     string
	Action    string
}

// TableName sets the table name for ActivityEntry
func (ActivityEntry) TableName() string {
	return "activity_log"
}
