package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppointmentTransitions(t *testing.T) {
	cases := []struct {
		from    string
		to      string
		allowed bool
	}{
		{AppointmentPending, AppointmentConfirmed, true},
		{AppointmentPending, AppointmentCancelled, true},
		{AppointmentPending, AppointmentRescheduled, true},
		{AppointmentPending, AppointmentCompleted, false},
		{AppointmentConfirmed, AppointmentCompleted, true},
		{AppointmentConfirmed, AppointmentRescheduled, true},
		{AppointmentConfirmed, AppointmentCancelled, false},
		{AppointmentRescheduled, AppointmentRescheduled, true},
		{AppointmentRescheduled, AppointmentCompleted, true},
		{AppointmentCancelled, AppointmentConfirmed, false},
		{AppointmentCompleted, AppointmentRescheduled, false},
		// Re-issuing the current status is idempotent.
		{AppointmentConfirmed, AppointmentConfirmed, true},
		{AppointmentCancelled, AppointmentCancelled, true},
	}

	for _, tc := range cases {
		apt := Appointment{Status: tc.from}
		assert.Equal(t, tc.allowed, apt.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestAppointmentOccupies(t *testing.T) {
	for _, status := range []string{AppointmentPending, AppointmentConfirmed, AppointmentRescheduled} {
		apt := Appointment{Status: status}
		assert.True(t, apt.Occupies(), status)
	}
	for _, status := range []string{AppointmentCancelled, AppointmentCompleted} {
		apt := Appointment{Status: status}
		assert.False(t, apt.Occupies(), status)
	}
}

func TestApplicationTransitions(t *testing.T) {
	app := JobApplication{Status: ApplicationPending}
	assert.True(t, app.CanTransitionTo(ApplicationReviewed))
	assert.True(t, app.CanTransitionTo(ApplicationDeclined))

	app.Status = ApplicationApproved
	assert.False(t, app.CanTransitionTo(ApplicationReviewed))
	assert.True(t, app.CanTransitionTo(ApplicationApproved))
}

func TestMessageTransitions(t *testing.T) {
	msg := Message{Status: MessageNew}
	assert.True(t, msg.CanTransitionTo(MessageRead))
	assert.True(t, msg.CanTransitionTo(MessageArchived))

	msg.Status = MessageArchived
	assert.False(t, msg.CanTransitionTo(MessageRead))
}

func TestGenerateSlug(t *testing.T) {
	assert.Equal(t, "senior-care-assistant", GenerateSlug("Senior Care Assistant"))
	assert.Equal(t, "live-in-carer-nights", GenerateSlug("Live-in Carer (Nights)"))
	assert.Equal(t, "registered-nurse-band-5", GenerateSlug("  Registered Nurse — Band 5  "))
	assert.Equal(t, "", GenerateSlug("!!!"))
}

func TestJobFields(t *testing.T) {
	job := JobPost{}
	fields, err := job.Fields()
	assert.NoError(t, err)
	assert.Empty(t, fields)

	job.ApplicationFields = []byte(`[{"id":"cv","type":"file","label":"CV","required":true,"maxFiles":2}]`)
	fields, err = job.Fields()
	assert.NoError(t, err)
	if assert.Len(t, fields, 1) {
		assert.Equal(t, "cv", fields[0].ID)
		assert.True(t, fields[0].Required)
		assert.Equal(t, 2, fields[0].MaxFiles)
	}
}
