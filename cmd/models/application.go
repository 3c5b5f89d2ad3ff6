package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

const (
	ApplicationPending  = "pending"
	ApplicationReviewed = "reviewed"
	ApplicationApproved = "approved"
	ApplicationDeclined = "declined"
)

type JobApplication struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	JobID           uint           `gorm:"not null;index" json:"job_id"`
	ApplicantName   string         `gorm:"size:255;not null" json:"applicant_name"`
	ApplicantEmail  string         `gorm:"size:255;not null" json:"applicant_email"`
	ApplicantPhone  string         `gorm:"size:50;not null" json:"applicant_phone"`
	CoverLetter     string         `gorm:"type:text" json:"cover_letter,omitempty"`
	Files           pq.StringArray `gorm:"type:text[]" json:"files"`
	CustomResponses datatypes.JSON `json:"custom_responses,omitempty"`
	Status          string         `gorm:"size:20;not null;default:'pending';index" json:"status"`
	AdminNotes      string         `gorm:"type:text" json:"admin_notes,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`

	Job *JobPost `gorm:"foreignKey:JobID" json:"job,omitempty"`
}

func (JobApplication) TableName() string {
	return "job_applications"
}

var applicationTransitions = map[string][]string{
	ApplicationPending:  {ApplicationReviewed, ApplicationApproved, ApplicationDeclined},
	ApplicationReviewed: {ApplicationApproved, ApplicationDeclined},
	ApplicationApproved: {},
	ApplicationDeclined: {},
}

func ValidApplicationStatus(status string) bool {
	_, ok := applicationTransitions[status]
	return ok
}

func (a *JobApplication) CanTransitionTo(status string) bool {
	if status == a.Status {
		return true
	}
	for _, next := range applicationTransitions[a.Status] {
		if next == status {
			return true
		}
	}
	return false
}
