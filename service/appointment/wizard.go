package appointment

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/carelinkhq/carelink-server/cmd/models"
	"github.com/carelinkhq/carelink-server/service/availability"
)

// Step is a stage of the public booking flow.
type Step string

const (
	StepDateSelection Step = "date-selection"
	StepTimeSelection Step = "time-selection"
	StepDetailEntry   Step = "detail-entry"
	StepConfirmed     Step = "confirmed"
)

var (
	ErrWrongStep     = errors.New("action not valid for current step")
	ErrPastDate      = errors.New("past dates cannot be selected")
	ErrDateBooked    = errors.New("date is fully booked")
	ErrUnknownSlot   = errors.New("time is not a bookable slot")
	ErrSlotBooked    = errors.New("time slot is already booked")
	ErrMissingFields = errors.New("name, email and phone are required")
	ErrInvalidEmail  = errors.New("email address is not valid")
	ErrMissingReason = errors.New("please specify your reason for the appointment")
)

// BookingReasons mirrors the public form's dropdown.
var BookingReasons = []string{
	"Personal Care",
	"Domiciliary Care",
	"Sitting Services",
	"Live-in Care",
	"Supported Living",
	"General Inquiry",
	"Other",
}

const (
	reasonOther       = "Other"
	defaultReason     = "Appointment Booking"
	defaultDepartment = "General Inquiry"
)

// Details is the contact information collected at the detail-entry step.
type Details struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Reason      string `json:"reason"`
	OtherReason string `json:"other_reason"`
}

// Recorder persists a confirmed booking.
type Recorder interface {
	CreateAppointment(apt *models.Appointment) error
}

// Wizard is the booking state machine:
// date-selection -> time-selection -> detail-entry -> confirmed, with
// explicit backward navigation and a reset from confirmed.
type Wizard struct {
	calendar *availability.Calendar
	store    Recorder

	step     Step
	date     time.Time
	timeSlot string
	created  *models.Appointment
}

func NewWizard(calendar *availability.Calendar, store Recorder) *Wizard {
	return &Wizard{
		calendar: calendar,
		store:    store,
		step:     StepDateSelection,
	}
}

func (w *Wizard) Step() Step {
	return w.step
}

// SelectDate moves to time-selection. Availability is re-validated at
// selection time, not just at render time: it may have changed between the
// calendar being shown and the click.
func (w *Wizard) SelectDate(date time.Time) error {
	if w.step != StepDateSelection {
		return ErrWrongStep
	}

	w.calendar.Refresh()
	if w.calendar.IsPast(date) {
		return ErrPastDate
	}
	if w.calendar.IsDateBooked(date) {
		return ErrDateBooked
	}

	w.date = date
	w.step = StepTimeSelection
	return nil
}

// SelectTime moves to detail-entry.
func (w *Wizard) SelectTime(timeSlot string) error {
	if w.step != StepTimeSelection {
		return ErrWrongStep
	}
	if !availability.ValidSlot(timeSlot) {
		return ErrUnknownSlot
	}
	if w.calendar.IsTimeSlotBooked(w.date, timeSlot) {
		return ErrSlotBooked
	}

	w.timeSlot = timeSlot
	w.step = StepDetailEntry
	return nil
}

// Back navigates one step backward: time-selection to date-selection, or
// detail-entry to time-selection.
func (w *Wizard) Back() error {
	switch w.step {
	case StepTimeSelection:
		w.timeSlot = ""
		w.step = StepDateSelection
	case StepDetailEntry:
		w.step = StepTimeSelection
	default:
		return ErrWrongStep
	}
	return nil
}

// Confirm validates the contact details and creates the appointment with
// status pending. On success the wizard enters confirmed and the calendar is
// refreshed so the new occupancy shows immediately; on failure the wizard
// stays in detail-entry.
func (w *Wizard) Confirm(d Details) error {
	if w.step != StepDetailEntry {
		return ErrWrongStep
	}

	name := strings.TrimSpace(d.Name)
	email := strings.TrimSpace(d.Email)
	phone := strings.TrimSpace(d.Phone)
	if name == "" || email == "" || phone == "" {
		return ErrMissingFields
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}

	reason := strings.TrimSpace(d.Reason)
	if reason == reasonOther {
		reason = strings.TrimSpace(d.OtherReason)
		if reason == "" {
			return ErrMissingReason
		}
	}
	if reason == "" {
		reason = defaultReason
	}

	apt := &models.Appointment{
		ClientName:      name,
		ClientEmail:     email,
		ClientPhone:     phone,
		Subject:         reason,
		Reason:          reason,
		Department:      defaultDepartment,
		AppointmentDate: w.date,
		AppointmentTime: w.timeSlot,
		Status:          models.AppointmentPending,
	}
	if err := w.store.CreateAppointment(apt); err != nil {
		return err
	}

	w.created = apt
	w.step = StepConfirmed
	w.calendar.Refresh()
	return nil
}

// Created returns the appointment made by Confirm, or nil.
func (w *Wizard) Created() *models.Appointment {
	return w.created
}

// Reset clears all wizard state and re-enters date-selection with a fresh
// availability fetch.
func (w *Wizard) Reset() {
	w.date = time.Time{}
	w.timeSlot = ""
	w.created = nil
	w.step = StepDateSelection
	w.calendar.Refresh()
}
