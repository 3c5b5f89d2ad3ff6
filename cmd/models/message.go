package models

import "time"

const (
	MessageNew      = "new"
	MessageRead     = "read"
	MessageReplied  = "replied"
	MessageArchived = "archived"
)

type Message struct {
	ID          uint       `gorm:"primarykey" json:"id"`
	Name        string     `gorm:"size:255;not null" json:"name"`
	Email       string     `gorm:"size:255;not null" json:"email"`
	Content     string     `gorm:"column:message;type:text;not null" json:"message"`
	Status      string     `gorm:"size:20;not null;default:'new';index" json:"status"`
	Response    string     `gorm:"type:text" json:"response,omitempty"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Message) TableName() string {
	return "messages"
}

var messageTransitions = map[string][]string{
	MessageNew:      {MessageRead, MessageReplied, MessageArchived},
	MessageRead:     {MessageReplied, MessageArchived},
	MessageReplied:  {MessageArchived},
	MessageArchived: {},
}

func ValidMessageStatus(status string) bool {
	_, ok := messageTransitions[status]
	return ok
}

func (m *Message) CanTransitionTo(status string) bool {
	if status == m.Status {
		return true
	}
	for _, next := range messageTransitions[m.Status] {
		if next == status {
			return true
		}
	}
	return false
}
