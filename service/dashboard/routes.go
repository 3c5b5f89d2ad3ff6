package dashboard

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/carelinkhq/carelink-server/cmd/models"
	"github.com/carelinkhq/carelink-server/cmd/utils"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type DashboardHandler struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewDashboardHandler(db *gorm.DB) *DashboardHandler {
	return &DashboardHandler{
		db:     db,
		logger: utils.GetLogger(),
		now:    time.Now,
	}
}

func (h *DashboardHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/dashboard/stats", h.GetStats).Methods("GET")
}

// GetStats returns the row counts the admin overview page shows.
func (h *DashboardHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	var stats struct {
		TotalAppointments   int64 `json:"total_appointments"`
		PendingAppointments int64 `json:"pending_appointments"`
		AppointmentsToday   int64 `json:"appointments_today"`
		ActiveJobs          int64 `json:"active_jobs"`
		PendingApplications int64 `json:"pending_applications"`
		NewMessages         int64 `json:"new_messages"`
	}

	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&stats.TotalAppointments, h.db.Model(&models.Appointment{})},
		{&stats.PendingAppointments, h.db.Model(&models.Appointment{}).
			Where("status = ?", models.AppointmentPending)},
		{&stats.AppointmentsToday, h.todayQuery()},
		{&stats.ActiveJobs, h.db.Model(&models.JobPost{}).
			Where("is_active = ?", true)},
		{&stats.PendingApplications, h.db.Model(&models.JobApplication{}).
			Where("status = ?", models.ApplicationPending)},
		{&stats.NewMessages, h.db.Model(&models.Message{}).
			Where("status = ?", models.MessageNew)},
	}

	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			h.logger.Error("dashboard count failed", zap.Error(err))
			http.Error(w, "Error computing dashboard stats", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

func (h *DashboardHandler) todayQuery() *gorm.DB {
	now := h.now().UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return h.db.Model(&models.Appointment{}).
		Where("appointment_date >= ? AND appointment_date < ?", day, day.AddDate(0, 0, 1))
}
