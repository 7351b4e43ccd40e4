package models

import (
	"fmt"
	"strings"
	"time"
)

// Table is a physical seating unit on the floor.
type Table struct {
	Base
	Number   uint `gorm:"not null;unique_index" json:"number"`
	StatusID uint `gorm:"not null;index" json:"status_id"`

	// Status is the resolved code of StatusID, filled by the services.
	Status TableState `gorm:"-" json:"status,omitempty"`
}

func (Table) TableName() string {
	return "tables"
}

// Reservation books a table for a named client at a date-time.
type Reservation struct {
	Base
	TableID     uint      `gorm:"not null;index" json:"table_id"`
	ClientName  string    `gorm:"size:250;not null" json:"client_name"`
	ClientPhone string    `gorm:"size:20;not null" json:"client_phone"`
	Datetime    time.Time `gorm:"column:datetime;not null;index" json:"datetime"`
	GuestCount  uint      `gorm:"not null;default:1" json:"guest_count"`
	Comment     *string   `gorm:"type:text" json:"comment"`
}

func (Reservation) TableName() string {
	return "reservations"
}

// ValidateReservation checks the client-supplied fields of a reservation.
func ValidateReservation(r *Reservation) error {
	if r.TableID == 0 {
		return fmt.Errorf("table is required")
	}
	if strings.TrimSpace(r.ClientName) == "" {
		return fmt.Errorf("client name is required")
	}
	phone := strings.TrimSpace(r.ClientPhone)
	if phone == "" {
		return fmt.Errorf("client phone is required")
	}
	if len(phone) > 20 {
		return fmt.Errorf("client phone must be at most 20 characters")
	}
	if r.Datetime.IsZero() {
		return fmt.Errorf("reservation date and time are required")
	}
	if r.GuestCount == 0 {
		return fmt.Errorf("guest count must be at least 1")
	}
	return nil
}
