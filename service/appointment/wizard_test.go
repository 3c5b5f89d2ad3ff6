package appointment

import (
	"errors"
	"testing"
	"time"

	"github.com/carelinkhq/carelink-server/cmd/models"
	"github.com/carelinkhq/carelink-server/service/availability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSource struct {
	slots []availability.Slot
	err   error
}

func (f *fakeSource) OccupiedSlots(start, end time.Time) ([]availability.Slot, error) {
	return f.slots, f.err
}

type fakeRecorder struct {
	created []*models.Appointment
	err     error
}

func (f *fakeRecorder) CreateAppointment(apt *models.Appointment) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, apt)
	return nil
}

func testClock(day string) func() time.Time {
	return func() time.Time {
		t, _ := time.Parse(availability.DateLayout, day)
		return t.Add(9 * time.Hour)
	}
}

func testCalendar(source *fakeSource, today string) *availability.Calendar {
	return availability.NewCalendar(source, zap.NewNop(), availability.WithClock(testClock(today)))
}

func parseDay(t *testing.T, day string) time.Time {
	t.Helper()
	date, err := time.Parse(availability.DateLayout, day)
	require.NoError(t, err)
	return date
}

func TestWizardHappyPath(t *testing.T) {
	recorder := &fakeRecorder{}
	wizard := NewWizard(testCalendar(&fakeSource{}, "2025-06-01"), recorder)

	assert.Equal(t, StepDateSelection, wizard.Step())

	require.NoError(t, wizard.SelectDate(parseDay(t, "2025-06-10")))
	assert.Equal(t, StepTimeSelection, wizard.Step())

	require.NoError(t, wizard.SelectTime("10:00"))
	assert.Equal(t, StepDetailEntry, wizard.Step())

	require.NoError(t, wizard.Confirm(Details{
		Name:   "Ama Mensah",
		Email:  "ama@example.com",
		Phone:  "0200000000",
		Reason: "Personal Care",
	}))
	assert.Equal(t, StepConfirmed, wizard.Step())

	require.Len(t, recorder.created, 1)
	apt := recorder.created[0]
	assert.Equal(t, models.AppointmentPending, apt.Status)
	assert.Equal(t, "Personal Care", apt.Reason)
	assert.Equal(t, "Personal Care", apt.Subject)
	assert.Equal(t, "General Inquiry", apt.Department)
	assert.Equal(t, "10:00", apt.AppointmentTime)
	assert.Equal(t, "2025-06-10", apt.AppointmentDate.Format(availability.DateLayout))
	assert.Same(t, apt, wizard.Created())
}

func TestWizardStepGuards(t *testing.T) {
	wizard := NewWizard(testCalendar(&fakeSource{}, "2025-06-01"), &fakeRecorder{})

	assert.ErrorIs(t, wizard.SelectTime("10:00"), ErrWrongStep)
	assert.ErrorIs(t, wizard.Confirm(Details{}), ErrWrongStep)
	assert.ErrorIs(t, wizard.Back(), ErrWrongStep)
}

func TestWizardRejectsPastAndBookedDates(t *testing.T) {
	source := &fakeSource{slots: []availability.Slot{
		{Date: parseDay(t, "2025-06-10"), Time: "10:00"},
	}}
	wizard := NewWizard(testCalendar(source, "2025-06-05"), &fakeRecorder{})

	assert.ErrorIs(t, wizard.SelectDate(parseDay(t, "2025-06-04")), ErrPastDate)
	assert.ErrorIs(t, wizard.SelectDate(parseDay(t, "2025-06-10")), ErrDateBooked)
	assert.Equal(t, StepDateSelection, wizard.Step())

	assert.NoError(t, wizard.SelectDate(parseDay(t, "2025-06-11")))
}

func TestWizardRevalidatesAtSelectionTime(t *testing.T) {
	// The date is free when rendered but taken before the user clicks.
	source := &fakeSource{}
	wizard := NewWizard(testCalendar(source, "2025-06-01"), &fakeRecorder{})

	source.slots = []availability.Slot{{Date: parseDay(t, "2025-06-10"), Time: "09:00"}}
	assert.ErrorIs(t, wizard.SelectDate(parseDay(t, "2025-06-10")), ErrDateBooked)
}

func TestWizardTimeSlotValidation(t *testing.T) {
	source := &fakeSource{slots: []availability.Slot{
		{Date: parseDay(t, "2025-06-11"), Time: "10:00"},
	}}
	wizard := NewWizard(testCalendar(source, "2025-06-01"), &fakeRecorder{})

	// The day has one occupied slot but is still reachable for other times
	// only through the slot predicate; the date step blocks the whole day.
	assert.ErrorIs(t, wizard.SelectDate(parseDay(t, "2025-06-11")), ErrDateBooked)

	require.NoError(t, wizard.SelectDate(parseDay(t, "2025-06-12")))
	assert.ErrorIs(t, wizard.SelectTime("08:00"), ErrUnknownSlot)
	require.NoError(t, wizard.SelectTime("10:30"))
}

func TestWizardBackNavigation(t *testing.T) {
	wizard := NewWizard(testCalendar(&fakeSource{}, "2025-06-01"), &fakeRecorder{})

	require.NoError(t, wizard.SelectDate(parseDay(t, "2025-06-10")))
	require.NoError(t, wizard.SelectTime("10:00"))

	require.NoError(t, wizard.Back())
	assert.Equal(t, StepTimeSelection, wizard.Step())
	require.NoError(t, wizard.Back())
	assert.Equal(t, StepDateSelection, wizard.Step())
}

func TestWizardConfirmValidation(t *testing.T) {
	recorder := &fakeRecorder{}
	wizard := NewWizard(testCalendar(&fakeSource{}, "2025-06-01"), recorder)
	require.NoError(t, wizard.SelectDate(parseDay(t, "2025-06-10")))
	require.NoError(t, wizard.SelectTime("10:00"))

	assert.ErrorIs(t, wizard.Confirm(Details{Name: "A", Email: "a@x.com"}), ErrMissingFields)
	assert.ErrorIs(t, wizard.Confirm(Details{Name: "A", Email: "not-an-email", Phone: "1"}), ErrInvalidEmail)
	assert.ErrorIs(t, wizard.Confirm(Details{Name: "A", Email: "a@x.com", Phone: "1", Reason: "Other"}), ErrMissingReason)

	// Validation failures keep the wizard in detail-entry.
	assert.Equal(t, StepDetailEntry, wizard.Step())
	assert.Empty(t, recorder.created)
}

func TestWizardOtherReasonElaboration(t *testing.T) {
	recorder := &fakeRecorder{}
	wizard := NewWizard(testCalendar(&fakeSource{}, "2025-06-01"), recorder)
	require.NoError(t, wizard.SelectDate(parseDay(t, "2025-06-10")))
	require.NoError(t, wizard.SelectTime("10:00"))

	require.NoError(t, wizard.Confirm(Details{
		Name: "A", Email: "a@x.com", Phone: "1",
		Reason: "Other", OtherReason: "Medication review",
	}))
	require.Len(t, recorder.created, 1)
	assert.Equal(t, "Medication review", recorder.created[0].Reason)
}

func TestWizardDefaultReason(t *testing.T) {
	recorder := &fakeRecorder{}
	wizard := NewWizard(testCalendar(&fakeSource{}, "2025-06-01"), recorder)
	require.NoError(t, wizard.SelectDate(parseDay(t, "2025-06-10")))
	require.NoError(t, wizard.SelectTime("10:00"))

	require.NoError(t, wizard.Confirm(Details{Name: "A", Email: "a@x.com", Phone: "1"}))
	require.Len(t, recorder.created, 1)
	assert.Equal(t, "Appointment Booking", recorder.created[0].Reason)
}

func TestWizardStoreFailureStaysInDetailEntry(t *testing.T) {
	recorder := &fakeRecorder{err: errors.New("insert failed")}
	wizard := NewWizard(testCalendar(&fakeSource{}, "2025-06-01"), recorder)
	require.NoError(t, wizard.SelectDate(parseDay(t, "2025-06-10")))
	require.NoError(t, wizard.SelectTime("10:00"))

	err := wizard.Confirm(Details{Name: "A", Email: "a@x.com", Phone: "1"})
	assert.Error(t, err)
	assert.Equal(t, StepDetailEntry, wizard.Step())
	assert.Nil(t, wizard.Created())
}

func TestWizardReset(t *testing.T) {
	recorder := &fakeRecorder{}
	wizard := NewWizard(testCalendar(&fakeSource{}, "2025-06-01"), recorder)
	require.NoError(t, wizard.SelectDate(parseDay(t, "2025-06-10")))
	require.NoError(t, wizard.SelectTime("10:00"))
	require.NoError(t, wizard.Confirm(Details{Name: "A", Email: "a@x.com", Phone: "1"}))

	wizard.Reset()
	assert.Equal(t, StepDateSelection, wizard.Step())
	assert.Nil(t, wizard.Created())
	require.NoError(t, wizard.SelectDate(parseDay(t, "2025-06-12")))
}
