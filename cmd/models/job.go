package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

const (
	JobFullTime  = "Full-time"
	JobPartTime  = "Part-time"
	JobContract  = "Contract"
	JobTemporary = "Temporary"
)

var JobTypes = []string{JobFullTime, JobPartTime, JobContract, JobTemporary}

// ApplicationField describes one input of a job's custom application form.
type ApplicationField struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"` // text, textarea, file, select, checkbox
	Label       string   `json:"label"`
	Required    bool     `json:"required"`
	Placeholder string   `json:"placeholder,omitempty"`
	Options     []string `json:"options,omitempty"`
	Accept      string   `json:"accept,omitempty"`
	MaxFiles    int      `json:"maxFiles,omitempty"`
}

type JobPost struct {
	ID                uint           `gorm:"primarykey" json:"id"`
	Title             string         `gorm:"size:255;not null" json:"title"`
	Slug              string         `gorm:"size:255;not null;uniqueIndex" json:"slug"`
	Department        string         `gorm:"size:100;not null" json:"department"`
	Location          string         `gorm:"size:255;not null" json:"location"`
	Type              string         `gorm:"size:20;not null;default:'Full-time'" json:"type"`
	Description       string         `gorm:"type:text" json:"description"`
	Requirements      pq.StringArray `gorm:"type:text[]" json:"requirements"`
	Responsibilities  pq.StringArray `gorm:"type:text[]" json:"responsibilities"`
	ApplicationLink   string         `gorm:"size:512" json:"application_link,omitempty"`
	SalaryRange       string         `gorm:"size:100" json:"salary_range,omitempty"`
	ApplicationFields datatypes.JSON `json:"application_fields,omitempty"`
	IsActive          bool           `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

func (JobPost) TableName() string {
	return "jobs"
}

// Fields decodes the job's custom application form definition. A job without
// custom fields returns an empty slice.
func (j *JobPost) Fields() ([]ApplicationField, error) {
	if len(j.ApplicationFields) == 0 {
		return nil, nil
	}
	var fields []ApplicationField
	if err := json.Unmarshal(j.ApplicationFields, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func ValidJobType(jobType string) bool {
	for _, t := range JobTypes {
		if t == jobType {
			return true
		}
	}
	return false
}

// GenerateSlug builds a URL slug from a job title: lowercased, with runs of
// non-alphanumeric characters collapsed to single hyphens.
func GenerateSlug(title string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
