package availability

import (
	"time"

	"github.com/carelinkhq/carelink-server/cmd/models"
	"gorm.io/gorm"
)

// GormSource reads occupied slots from the appointments table.
type GormSource struct {
	db *gorm.DB
}

func NewGormSource(db *gorm.DB) *GormSource {
	return &GormSource{db: db}
}

func (s *GormSource) OccupiedSlots(start, end time.Time) ([]Slot, error) {
	var appointments []models.Appointment
	err := s.db.
		Where("status IN ?", models.OccupyingStatuses).
		Where("appointment_date >= ? AND appointment_date < ?", start, end).
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}

	slots := make([]Slot, 0, len(appointments))
	for _, apt := range appointments {
		slots = append(slots, Slot{Date: apt.AppointmentDate, Time: apt.AppointmentTime})
	}
	return slots, nil
}
