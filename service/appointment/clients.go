package appointment

import (
	"errors"

	"github.com/carelinkhq/carelink-server/cmd/models"
	"gorm.io/gorm"
)

// upsertClient keeps the clients table in step with bookings: one row per
// email, with a running appointment count and the most recent booking date.
func upsertClient(db *gorm.DB, apt *models.Appointment) error {
	var client models.Client
	err := db.Where("email = ?", apt.ClientEmail).First(&client).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		client = models.Client{
			Name:             apt.ClientName,
			Email:            apt.ClientEmail,
			Phone:            apt.ClientPhone,
			AppointmentCount: 1,
			LastAppointment:  &apt.AppointmentDate,
		}
		return db.Create(&client).Error
	}
	if err != nil {
		return err
	}

	return db.Model(&client).Updates(map[string]interface{}{
		"appointment_count": gorm.Expr("appointment_count + 1"),
		"last_appointment":  apt.AppointmentDate,
		"phone":             apt.ClientPhone,
	}).Error
}
