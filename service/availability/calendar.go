package availability

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DateLayout is the calendar-day representation used everywhere a date
	// is compared or serialized. Comparing formatted days rather than
	// time.Time values avoids timezone-offset mismatches between date-only
	// and timestamp values.
	DateLayout = "2006-01-02"

	// DefaultWindowDays is how far ahead the booking calendar looks.
	DefaultWindowDays = 60
)

// TimeSlots is the canonical bookable grid: 09:00 through 17:00 at
// half-hour steps.
var TimeSlots = []string{
	"09:00", "09:30", "10:00", "10:30", "11:00", "11:30",
	"12:00", "12:30", "13:00", "13:30", "14:00", "14:30",
	"15:00", "15:30", "16:00", "16:30", "17:00",
}

// Slot is a (calendar day, time string) pair a client can request.
type Slot struct {
	Date time.Time `json:"-"`
	Time string    `json:"time"`
}

// AppointmentSource provides the occupied slots inside a window: every
// appointment whose status still blocks new bookings.
type AppointmentSource interface {
	OccupiedSlots(start, end time.Time) ([]Slot, error)
}

// Calendar decides which dates and time slots can be offered to a new
// booker, based on a cached window of occupied slots.
//
// It fails open: if the source errors, the window is treated as completely
// free and the error is logged. A calendar that blocks every date is worse
// than occasionally offering a slot the admin has to reject manually.
type Calendar struct {
	source AppointmentSource
	logger *zap.Logger
	window int
	now    func() time.Time

	mu     sync.RWMutex
	booked map[string][]string // "2006-01-02" -> occupied time strings
	loaded bool
}

type Option func(*Calendar)

// WithWindow overrides the lookahead window in days.
func WithWindow(days int) Option {
	return func(c *Calendar) {
		if days > 0 {
			c.window = days
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Calendar) { c.now = now }
}

func NewCalendar(source AppointmentSource, logger *zap.Logger, opts ...Option) *Calendar {
	c := &Calendar{
		source: source,
		logger: logger,
		window: DefaultWindowDays,
		now:    time.Now,
		booked: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refresh reloads the occupied slots for the current window. The window is
// anchored to the UTC day because appointment dates are stored as UTC
// midnights; a locally anchored start would exclude today's rows on servers
// west of UTC.
func (c *Calendar) Refresh() {
	start := dayStart(c.now().UTC())
	end := start.AddDate(0, 0, c.window)

	slots, err := c.source.OccupiedSlots(start, end)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = true
	c.booked = make(map[string][]string)
	if err != nil {
		c.logger.Warn("availability fetch failed, treating window as free",
			zap.Error(err),
			zap.Time("window_start", start),
			zap.Int("window_days", c.window))
		return
	}
	for _, s := range slots {
		key := s.Date.Format(DateLayout)
		c.booked[key] = append(c.booked[key], s.Time)
	}
}

// IsDateBooked reports whether any occupied appointment exists on the given
// calendar day. One occupied slot blocks the whole day: the provider sends a
// single carer per day, so day granularity is the capacity model here.
// While the window has not loaded yet, no date reports as booked.
func (c *Calendar) IsDateBooked(date time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded {
		return false
	}
	return len(c.booked[date.Format(DateLayout)]) > 0
}

// IsTimeSlotBooked reports whether an occupied appointment exists at the
// exact (day, time string) pair.
func (c *Calendar) IsTimeSlotBooked(date time.Time, timeSlot string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded {
		return false
	}
	for _, t := range c.booked[date.Format(DateLayout)] {
		if t == timeSlot {
			return true
		}
	}
	return false
}

// IsPast reports whether the date's calendar day is strictly before today.
// Today is the UTC day, matching the fetch window anchor.
func (c *Calendar) IsPast(date time.Time) bool {
	return date.Format(DateLayout) < c.now().UTC().Format(DateLayout)
}

// IsDateSelectable reports whether the date can be offered to a new booker:
// not in the past and not already booked.
func (c *Calendar) IsDateSelectable(date time.Time) bool {
	return !c.IsPast(date) && !c.IsDateBooked(date)
}

// BookedDates returns the occupied days of the window as sorted
// "2006-01-02" strings.
func (c *Calendar) BookedDates() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	dates := make([]string, 0, len(c.booked))
	for date := range c.booked {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}

// BookedSlots returns every occupied (date, time) pair of the window, keyed
// by day.
func (c *Calendar) BookedSlots() map[string][]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string][]string, len(c.booked))
	for date, times := range c.booked {
		copied := make([]string, len(times))
		copy(copied, times)
		out[date] = copied
	}
	return out
}

// WindowDays is the lookahead window length.
func (c *Calendar) WindowDays() int {
	return c.window
}

// ValidSlot reports whether the time string is on the bookable grid.
func ValidSlot(timeSlot string) bool {
	for _, t := range TimeSlots {
		if t == timeSlot {
			return true
		}
	}
	return false
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
