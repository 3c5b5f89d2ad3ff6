package availability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/carelinkhq/carelink-server/cmd/models"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fakeSource struct {
	slots []Slot
	err   error
}

func (f *fakeSource) OccupiedSlots(start, end time.Time) ([]Slot, error) {
	return f.slots, f.err
}

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	date, err := time.Parse(DateLayout, value)
	require.NoError(t, err)
	return date
}

func fixedClock(value string) func() time.Time {
	return func() time.Time {
		t, _ := time.Parse(DateLayout, value)
		return t.Add(8 * time.Hour)
	}
}

func TestEmptyWindowIsFullyAvailable(t *testing.T) {
	cal := NewCalendar(&fakeSource{}, zap.NewNop(), WithClock(fixedClock("2025-06-05")))
	cal.Refresh()

	candidate := mustDate(t, "2025-06-10") // today + 5
	assert.False(t, cal.IsDateBooked(candidate))
	assert.True(t, cal.IsDateSelectable(candidate))
	for _, slot := range TimeSlots {
		assert.False(t, cal.IsTimeSlotBooked(candidate, slot), slot)
	}
}

func TestSingleAppointmentBlocksDayAndSlot(t *testing.T) {
	source := &fakeSource{slots: []Slot{{Date: mustDate(t, "2025-06-10"), Time: "10:00"}}}
	cal := NewCalendar(source, zap.NewNop(), WithClock(fixedClock("2025-06-01")))
	cal.Refresh()

	day := mustDate(t, "2025-06-10")
	assert.True(t, cal.IsTimeSlotBooked(day, "10:00"))
	assert.False(t, cal.IsTimeSlotBooked(day, "10:30"))
	assert.True(t, cal.IsDateBooked(day))
	assert.False(t, cal.IsDateSelectable(day))
	assert.Equal(t, []string{"2025-06-10"}, cal.BookedDates())
}

func TestPastDatesNeverSelectable(t *testing.T) {
	cal := NewCalendar(&fakeSource{}, zap.NewNop(), WithClock(fixedClock("2025-06-05")))
	cal.Refresh()

	past := mustDate(t, "2025-06-04")
	assert.False(t, cal.IsDateBooked(past), "past dates are rejected by selection, not occupancy")
	assert.False(t, cal.IsDateSelectable(past))
	assert.True(t, cal.IsDateSelectable(mustDate(t, "2025-06-05")), "today itself is selectable")
}

func TestUnloadedCalendarReportsNothingBooked(t *testing.T) {
	source := &fakeSource{slots: []Slot{{Date: mustDate(t, "2025-06-10"), Time: "10:00"}}}
	cal := NewCalendar(source, zap.NewNop(), WithClock(fixedClock("2025-06-01")))

	// No Refresh yet: fail open toward availability.
	day := mustDate(t, "2025-06-10")
	assert.False(t, cal.IsDateBooked(day))
	assert.False(t, cal.IsTimeSlotBooked(day, "10:00"))
}

func TestFetchErrorFailsOpenAndLogs(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	source := &fakeSource{err: errors.New("permission denied for table appointments")}
	cal := NewCalendar(source, zap.New(core), WithClock(fixedClock("2025-06-01")))
	cal.Refresh()

	day := mustDate(t, "2025-06-10")
	assert.False(t, cal.IsDateBooked(day))
	assert.True(t, cal.IsDateSelectable(day))
	assert.Empty(t, cal.BookedDates())
	require.Equal(t, 1, logs.Len(), "fail-open degradation must be logged")
	assert.Contains(t, logs.All()[0].Message, "availability fetch failed")
}

func TestRefreshReflectsReschedule(t *testing.T) {
	source := &fakeSource{slots: []Slot{{Date: mustDate(t, "2025-06-10"), Time: "10:00"}}}
	cal := NewCalendar(source, zap.NewNop(), WithClock(fixedClock("2025-06-01")))
	cal.Refresh()

	assert.True(t, cal.IsTimeSlotBooked(mustDate(t, "2025-06-10"), "10:00"))

	// The appointment moves to a new slot.
	source.slots = []Slot{{Date: mustDate(t, "2025-06-12"), Time: "14:00"}}
	cal.Refresh()

	assert.False(t, cal.IsTimeSlotBooked(mustDate(t, "2025-06-10"), "10:00"))
	assert.False(t, cal.IsDateBooked(mustDate(t, "2025-06-10")))
	assert.True(t, cal.IsTimeSlotBooked(mustDate(t, "2025-06-12"), "14:00"))
	assert.True(t, cal.IsDateBooked(mustDate(t, "2025-06-12")))
}

func TestValidSlot(t *testing.T) {
	assert.True(t, ValidSlot("09:00"))
	assert.True(t, ValidSlot("17:00"))
	assert.False(t, ValidSlot("17:30"))
	assert.False(t, ValidSlot("9:00"))
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Appointment{}))
	return db
}

func TestGormSourceFiltersTerminalStatuses(t *testing.T) {
	db := newTestDB(t)
	day := mustDate(t, "2025-06-10")

	seed := []models.Appointment{
		{ClientName: "A", ClientEmail: "a@x.com", ClientPhone: "1", AppointmentDate: day, AppointmentTime: "10:00", Status: models.AppointmentPending},
		{ClientName: "B", ClientEmail: "b@x.com", ClientPhone: "1", AppointmentDate: day, AppointmentTime: "11:00", Status: models.AppointmentCancelled},
		{ClientName: "C", ClientEmail: "c@x.com", ClientPhone: "1", AppointmentDate: day, AppointmentTime: "12:00", Status: models.AppointmentCompleted},
		{ClientName: "D", ClientEmail: "d@x.com", ClientPhone: "1", AppointmentDate: mustDate(t, "2025-09-01"), AppointmentTime: "09:00", Status: models.AppointmentConfirmed},
	}
	for i := range seed {
		require.NoError(t, db.Create(&seed[i]).Error)
	}

	source := NewGormSource(db)
	start := mustDate(t, "2025-06-01")
	slots, err := source.OccupiedSlots(start, start.AddDate(0, 0, 60))
	require.NoError(t, err)

	// Cancelled and completed do not occupy; the September one is outside
	// the window.
	require.Len(t, slots, 1)
	assert.Equal(t, "10:00", slots[0].Time)
	assert.Equal(t, "2025-06-10", slots[0].Date.Format(DateLayout))
}

func TestRefreshWindowCoversTodayWestOfUTC(t *testing.T) {
	db := newTestDB(t)
	today := mustDate(t, "2025-06-10") // stored as UTC midnight
	require.NoError(t, db.Create(&models.Appointment{
		ClientName: "A", ClientEmail: "a@x.com", ClientPhone: "1",
		AppointmentDate: today, AppointmentTime: "10:00", Status: models.AppointmentPending,
	}).Error)

	// 09:00 local in a UTC-5 zone is after UTC midnight of the same day; a
	// locally anchored window start would exclude today's appointments.
	westernClock := func() time.Time {
		return time.Date(2025, 6, 10, 9, 0, 0, 0, time.FixedZone("UTC-5", -5*3600))
	}
	cal := NewCalendar(NewGormSource(db), zap.NewNop(), WithClock(westernClock))
	cal.Refresh()

	assert.True(t, cal.IsDateBooked(today), "today's pending appointment must report the day booked")
	assert.True(t, cal.IsTimeSlotBooked(today, "10:00"))
	assert.False(t, cal.IsPast(today), "today is not past")
	assert.False(t, cal.IsDateSelectable(today))
}

func TestGetDaySlotsEndpoint(t *testing.T) {
	db := newTestDB(t)
	day := mustDate(t, "2025-06-10")
	require.NoError(t, db.Create(&models.Appointment{
		ClientName: "A", ClientEmail: "a@x.com", ClientPhone: "1",
		AppointmentDate: day, AppointmentTime: "10:00", Status: models.AppointmentPending,
	}).Error)

	cal := NewCalendar(NewGormSource(db), zap.NewNop(), WithClock(fixedClock("2025-06-01")))
	router := mux.NewRouter()
	NewAvailabilityHandler(cal).RegisterRoutes(router)

	req := httptest.NewRequest("GET", "/availability/slots?date=2025-06-10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"booked":true`)
	assert.Contains(t, rec.Body.String(), `"selectable":false`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/availability/slots?date=bogus", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
