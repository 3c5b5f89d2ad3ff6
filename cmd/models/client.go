package models

import "time"

// Client is the lightweight CRM record maintained from bookings: one row per
// distinct email address, updated each time that person books again.
type Client struct {
	ID               uint       `gorm:"primarykey" json:"id"`
	Name             string     `gorm:"size:255;not null" json:"name"`
	Email            string     `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Phone            string     `gorm:"size:50" json:"phone"`
	Notes            string     `gorm:"type:text" json:"notes,omitempty"`
	AppointmentCount int        `gorm:"not null;default:0" json:"appointment_count"`
	LastAppointment  *time.Time `json:"last_appointment,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (Client) TableName() string {
	return "clients"
}
