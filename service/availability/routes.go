package availability

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

type AvailabilityHandler struct {
	calendar *Calendar
}

func NewAvailabilityHandler(calendar *Calendar) *AvailabilityHandler {
	return &AvailabilityHandler{calendar: calendar}
}

func (h *AvailabilityHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/availability", h.GetAvailability).Methods("GET")
	router.HandleFunc("/availability/slots", h.GetDaySlots).Methods("GET")
}

// GetAvailability returns the occupied dates and slots of the booking window.
func (h *AvailabilityHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	h.calendar.Refresh()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"window_days":  h.calendar.WindowDays(),
		"booked_dates": h.calendar.BookedDates(),
		"booked_slots": h.calendar.BookedSlots(),
	})
}

type daySlot struct {
	Time   string `json:"time"`
	Booked bool   `json:"booked"`
}

// GetDaySlots returns the bookable grid for one day with per-slot occupancy.
func (h *AvailabilityHandler) GetDaySlots(w http.ResponseWriter, r *http.Request) {
	dateParam := r.URL.Query().Get("date")
	date, err := time.Parse(DateLayout, dateParam)
	if err != nil {
		http.Error(w, "Invalid or missing date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	h.calendar.Refresh()

	slots := make([]daySlot, 0, len(TimeSlots))
	for _, t := range TimeSlots {
		slots = append(slots, daySlot{Time: t, Booked: h.calendar.IsTimeSlotBooked(date, t)})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"date":       dateParam,
		"selectable": h.calendar.IsDateSelectable(date),
		"booked":     h.calendar.IsDateBooked(date),
		"slots":      slots,
	})
}
