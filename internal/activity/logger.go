// Package activity keeps the append-only back-office audit trail. It is
// best-effort: a failed write is logged and never aborts the operation
// that triggered it.
package activity

import (
	"time"

	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"

	"colonial/internal/models"
)

// Logger appends entries to the activity log.
type Logger struct {
	db  *gorm.DB
	log *logrus.Entry
}

// NewLogger creates an activity logger backed by db.
func NewLogger(db *gorm.DB) *Logger {
	return &Logger{
		db:  db,
		log: logrus.WithField("component", "activity"),
	}
}

// Record appends one entry. Runs outside any caller transaction so a
// logging failure cannot roll back the primary operation.
func (l *Logger) Record(actor, action string) {
	entry := models.ActivityEntry{
		Timestamp: time.Now(),
		Actor:     actor,
		Action:    action,
	}
	if err := l.db.Create(&entry).Error; err != nil {
		l.log.WithError(err).WithField("action", action).Warn("activity log write failed")
	}
}

// Recent returns the newest entries, capped at limit.
func (l *Logger) Recent(limit int) ([]models.ActivityEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []models.ActivityEntry
	if err := l.db.Order("timestamp desc").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
