package models

import (
	"time"

	"github.com/jinzhu/gorm"
)

// ReservationStatus represents the state of a table reservation
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "Pendente"
	ReservationConfirmed ReservationStatus = "Confirmada"
	ReservationCancelled ReservationStatus = "Cancelada"
	ReservationDone      ReservationStatus = "Concluida"
)

// Reservation represents a table reservation request
type Reservation struct {
	gorm.Model
	CustomerName string    `gorm:"not null"`
	Phone        string    `gorm:"not null"`
	Date         time.Time `gorm:"not null"`
	Time         string    `gorm:"not null"`
	PartySize    int       `gorm:"not null"`
	Notes        string
	Status       ReservationStatus `gorm:"default:'Pendente'"`
}
