package models

import (
	"time"
)

// Appointment statuses. The strings are significant: they are stored as-is and
// mirrored by the public site and the admin console.
const (
	AppointmentPending     = "pending"
	AppointmentConfirmed   = "confirmed"
	AppointmentRescheduled = "rescheduled"
	AppointmentCancelled   = "cancelled"
	AppointmentCompleted   = "completed"
)

// OccupyingStatuses are the statuses that block a slot for new bookings.
// Cancelled appointments free their slot; completed ones are in the past.
var OccupyingStatuses = []string{
	AppointmentPending,
	AppointmentConfirmed,
	AppointmentRescheduled,
}

type Appointment struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	ClientName      string    `gorm:"size:255;not null" json:"client_name"`
	ClientEmail     string    `gorm:"size:255;not null" json:"client_email"`
	ClientPhone     string    `gorm:"size:50;not null" json:"client_phone"`
	Subject         string    `gorm:"size:255" json:"subject"`
	Reason          string    `gorm:"size:255" json:"reason"`
	Department      string    `gorm:"size:100" json:"department"`
	AppointmentDate time.Time `gorm:"not null;index" json:"appointment_date"`
	AppointmentTime string    `gorm:"size:5;not null" json:"appointment_time"`
	Status          string    `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Notes           string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// appointmentTransitions lists the staff-driven moves out of each status.
// Cancelled and completed are terminal; only notes editing and deletion
// remain available there.
var appointmentTransitions = map[string][]string{
	AppointmentPending:     {AppointmentConfirmed, AppointmentCancelled, AppointmentRescheduled},
	AppointmentConfirmed:   {AppointmentCompleted, AppointmentRescheduled},
	AppointmentRescheduled: {AppointmentCompleted, AppointmentRescheduled},
	AppointmentCancelled:   {},
	AppointmentCompleted:   {},
}

func ValidAppointmentStatus(status string) bool {
	_, ok := appointmentTransitions[status]
	return ok
}

// CanTransitionTo reports whether the appointment may move to the target
// status. Re-issuing the current status is always allowed so repeated admin
// actions stay idempotent.
func (a *Appointment) CanTransitionTo(status string) bool {
	if status == a.Status {
		return true
	}
	for _, next := range appointmentTransitions[a.Status] {
		if next == status {
			return true
		}
	}
	return false
}

// Occupies reports whether this appointment blocks its (date, time) slot.
func (a *Appointment) Occupies() bool {
	for _, s := range OccupyingStatuses {
		if a.Status == s {
			return true
		}
	}
	return false
}
