package appointment

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/carelinkhq/carelink-server/cmd/models"
	"github.com/carelinkhq/carelink-server/cmd/utils"
	"github.com/carelinkhq/carelink-server/service/availability"
	"github.com/carelinkhq/carelink-server/service/realtime"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrSlotTaken is returned when the conflict re-check inside the booking
// transaction finds an active appointment already holding the slot. This
// narrows the check-then-act window but cannot close it; that needs a unique
// constraint in the store.
var ErrSlotTaken = errors.New("slot already has an active appointment")

const appointmentsTable = "appointments"

type AppointmentHandler struct {
	db       *gorm.DB
	calendar *availability.Calendar
	hub      *realtime.Hub
	logger   *zap.Logger
}

func NewAppointmentHandler(db *gorm.DB, calendar *availability.Calendar, hub *realtime.Hub) *AppointmentHandler {
	return &AppointmentHandler{
		db:       db,
		calendar: calendar,
		hub:      hub,
		logger:   utils.GetLogger(),
	}
}

func (h *AppointmentHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/appointments/book", h.BookAppointment).Methods("POST")
	router.HandleFunc("/appointments", h.GetAllAppointments).Methods("GET")
	router.HandleFunc("/appointments", h.CreateAppointment).Methods("POST")
	router.HandleFunc("/appointments/{id:[0-9]+}", h.GetAppointment).Methods("GET")
	router.HandleFunc("/appointments/{id:[0-9]+}/status", h.UpdateStatus).Methods("PATCH")
	router.HandleFunc("/appointments/{id:[0-9]+}/reschedule", h.Reschedule).Methods("PATCH")
	router.HandleFunc("/appointments/{id:[0-9]+}/notes", h.UpdateNotes).Methods("PATCH")
	router.HandleFunc("/appointments/{id:[0-9]+}", h.DeleteAppointment).Methods("DELETE")
	router.HandleFunc("/clients", h.ListClients).Methods("GET")
}

// gormRecorder creates the booking inside a transaction with a conflict
// re-check on the exact slot.
type gormRecorder struct {
	db *gorm.DB
}

func (r gormRecorder) CreateAppointment(apt *models.Appointment) error {
	tx := r.db.Begin()

	var existing models.Appointment
	err := tx.Where("appointment_date = ? AND appointment_time = ? AND status IN ?",
		apt.AppointmentDate, apt.AppointmentTime, models.OccupyingStatuses).
		First(&existing).Error
	if err == nil {
		tx.Rollback()
		return ErrSlotTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		tx.Rollback()
		return err
	}

	if err := tx.Create(apt).Error; err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

// BookAppointment is the public booking endpoint. It drives the wizard end
// to end so every guard of the multi-step flow applies to the one-shot API
// submission as well.
func (h *AppointmentHandler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	var bookingRequest struct {
		Name        string `json:"name"`
		Email       string `json:"email"`
		Phone       string `json:"phone"`
		Reason      string `json:"reason"`
		OtherReason string `json:"other_reason"`
		Date        string `json:"date"`
		Time        string `json:"time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&bookingRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	date, err := time.Parse(availability.DateLayout, bookingRequest.Date)
	if err != nil {
		http.Error(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	wizard := NewWizard(h.calendar, gormRecorder{db: h.db})

	if err := wizard.SelectDate(date); err != nil {
		switch {
		case errors.Is(err, ErrPastDate):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrDateBooked):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, "Error validating date", http.StatusInternalServerError)
		}
		return
	}

	if err := wizard.SelectTime(bookingRequest.Time); err != nil {
		switch {
		case errors.Is(err, ErrUnknownSlot):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrSlotBooked):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, "Error validating time slot", http.StatusInternalServerError)
		}
		return
	}

	err = wizard.Confirm(Details{
		Name:        bookingRequest.Name,
		Email:       bookingRequest.Email,
		Phone:       bookingRequest.Phone,
		Reason:      bookingRequest.Reason,
		OtherReason: bookingRequest.OtherReason,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingFields), errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrMissingReason):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrSlotTaken):
			http.Error(w, "Time slot already booked", http.StatusConflict)
		default:
			h.logger.Error("booking create failed", zap.Error(err))
			http.Error(w, "Error creating appointment", http.StatusInternalServerError)
		}
		return
	}

	apt := wizard.Created()
	if err := upsertClient(h.db, apt); err != nil {
		h.logger.Warn("client upsert failed", zap.String("email", apt.ClientEmail), zap.Error(err))
	}
	h.hub.Broadcast(appointmentsTable, realtime.ActionInsert, apt)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(apt)
}

// CreateAppointment is the admin-side create: same record shape, no wizard
// guards beyond basic validation.
func (h *AppointmentHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var createRequest struct {
		ClientName  string `json:"client_name"`
		ClientEmail string `json:"client_email"`
		ClientPhone string `json:"client_phone"`
		Subject     string `json:"subject"`
		Reason      string `json:"reason"`
		Department  string `json:"department"`
		Date        string `json:"date"`
		Time        string `json:"time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&createRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if createRequest.ClientName == "" || createRequest.ClientEmail == "" || createRequest.ClientPhone == "" {
		http.Error(w, "Client name, email and phone are required", http.StatusBadRequest)
		return
	}
	date, err := time.Parse(availability.DateLayout, createRequest.Date)
	if err != nil {
		http.Error(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	if !availability.ValidSlot(createRequest.Time) {
		http.Error(w, "Time is not a bookable slot", http.StatusBadRequest)
		return
	}

	apt := models.Appointment{
		ClientName:      createRequest.ClientName,
		ClientEmail:     createRequest.ClientEmail,
		ClientPhone:     createRequest.ClientPhone,
		Subject:         createRequest.Subject,
		Reason:          createRequest.Reason,
		Department:      createRequest.Department,
		AppointmentDate: date,
		AppointmentTime: createRequest.Time,
		Status:          models.AppointmentPending,
	}
	if err := (gormRecorder{db: h.db}).CreateAppointment(&apt); err != nil {
		if errors.Is(err, ErrSlotTaken) {
			http.Error(w, "Time slot already booked", http.StatusConflict)
			return
		}
		http.Error(w, "Error creating appointment", http.StatusInternalServerError)
		return
	}

	if err := upsertClient(h.db, &apt); err != nil {
		h.logger.Warn("client upsert failed", zap.String("email", apt.ClientEmail), zap.Error(err))
	}
	h.hub.Broadcast(appointmentsTable, realtime.ActionInsert, &apt)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(apt)
}

func (h *AppointmentHandler) GetAllAppointments(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 100

	query := h.db.Model(&models.Appointment{})

	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if date := r.URL.Query().Get("date"); date != "" {
		day, err := time.Parse(availability.DateLayout, date)
		if err != nil {
			http.Error(w, "Invalid date filter, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		query = query.Where("appointment_date >= ? AND appointment_date < ?", day, day.AddDate(0, 0, 1))
	}
	if department := r.URL.Query().Get("department"); department != "" {
		query = query.Where("department = ?", department)
	}

	var total int64
	query.Count(&total)

	var appointments []models.Appointment
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).
		Order("appointment_date DESC, appointment_time DESC").Find(&appointments).Error; err != nil {
		http.Error(w, "Error retrieving appointments", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"appointments": appointments,
		"total":        total,
		"page":         page,
		"page_size":    pageSize,
		"total_pages":  (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

func (h *AppointmentHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid appointment ID", http.StatusBadRequest)
		return
	}

	var apt models.Appointment
	if err := h.db.First(&apt, appointmentID).Error; err != nil {
		http.Error(w, "Appointment not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apt)
}

// UpdateStatus applies a staff-driven status transition. Re-issuing the
// current status is an idempotent no-op that only stamps updated_at.
func (h *AppointmentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid appointment ID", http.StatusBadRequest)
		return
	}

	var statusUpdate struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&statusUpdate); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !models.ValidAppointmentStatus(statusUpdate.Status) {
		http.Error(w, "Unknown appointment status", http.StatusBadRequest)
		return
	}

	var apt models.Appointment
	if err := h.db.First(&apt, appointmentID).Error; err != nil {
		http.Error(w, "Appointment not found", http.StatusNotFound)
		return
	}

	if !apt.CanTransitionTo(statusUpdate.Status) {
		http.Error(w, fmt.Sprintf("Cannot move appointment from %s to %s", apt.Status, statusUpdate.Status), http.StatusConflict)
		return
	}

	if err := h.db.Model(&apt).Update("status", statusUpdate.Status).Error; err != nil {
		http.Error(w, "Error updating appointment status", http.StatusInternalServerError)
		return
	}

	h.hub.Broadcast(appointmentsTable, realtime.ActionUpdate, &apt)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apt)
}

// Reschedule moves the appointment to a new (date, time) and sets status
// rescheduled. The old slot is freed; the target slot must not be held by
// another active appointment.
func (h *AppointmentHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid appointment ID", http.StatusBadRequest)
		return
	}

	var rescheduleRequest struct {
		Date string `json:"date"`
		Time string `json:"time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&rescheduleRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	date, err := time.Parse(availability.DateLayout, rescheduleRequest.Date)
	if err != nil {
		http.Error(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	if !availability.ValidSlot(rescheduleRequest.Time) {
		http.Error(w, "Time is not a bookable slot", http.StatusBadRequest)
		return
	}

	var apt models.Appointment
	if err := h.db.First(&apt, appointmentID).Error; err != nil {
		http.Error(w, "Appointment not found", http.StatusNotFound)
		return
	}
	if !apt.CanTransitionTo(models.AppointmentRescheduled) {
		http.Error(w, fmt.Sprintf("Cannot reschedule a %s appointment", apt.Status), http.StatusConflict)
		return
	}

	var conflicting models.Appointment
	err = h.db.Where("appointment_date = ? AND appointment_time = ? AND status IN ? AND id != ?",
		date, rescheduleRequest.Time, models.OccupyingStatuses, apt.ID).
		First(&conflicting).Error
	if err == nil {
		http.Error(w, "Time slot already booked", http.StatusConflict)
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		http.Error(w, "Error checking slot availability", http.StatusInternalServerError)
		return
	}

	updates := map[string]interface{}{
		"appointment_date": date,
		"appointment_time": rescheduleRequest.Time,
		"status":           models.AppointmentRescheduled,
	}
	if err := h.db.Model(&apt).Updates(updates).Error; err != nil {
		http.Error(w, "Error rescheduling appointment", http.StatusInternalServerError)
		return
	}

	h.hub.Broadcast(appointmentsTable, realtime.ActionUpdate, &apt)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apt)
}

// UpdateNotes is available from every status, including terminal ones.
func (h *AppointmentHandler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid appointment ID", http.StatusBadRequest)
		return
	}

	var notesUpdate struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&notesUpdate); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var apt models.Appointment
	if err := h.db.First(&apt, appointmentID).Error; err != nil {
		http.Error(w, "Appointment not found", http.StatusNotFound)
		return
	}

	if err := h.db.Model(&apt).Update("notes", notesUpdate.Notes).Error; err != nil {
		http.Error(w, "Error updating notes", http.StatusInternalServerError)
		return
	}

	h.hub.Broadcast(appointmentsTable, realtime.ActionUpdate, &apt)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apt)
}

// DeleteAppointment is an unconditional hard delete, available from any
// status. The confirmation prompt lives in the admin UI.
func (h *AppointmentHandler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid appointment ID", http.StatusBadRequest)
		return
	}

	result := h.db.Delete(&models.Appointment{}, appointmentID)
	if result.Error != nil {
		http.Error(w, "Error deleting appointment", http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		http.Error(w, "Appointment not found", http.StatusNotFound)
		return
	}

	h.hub.Broadcast(appointmentsTable, realtime.ActionDelete, map[string]interface{}{"id": appointmentID})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Appointment deleted successfully",
	})
}

func (h *AppointmentHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 100

	query := h.db.Model(&models.Client{})

	var total int64
	query.Count(&total)

	var clients []models.Client
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).
		Order("last_appointment DESC").Find(&clients).Error; err != nil {
		http.Error(w, "Error retrieving clients", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"clients":   clients,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}
