package scheduling

import (
	"time"

	"github.com/jwalitptl/consult-api/internal/model"
	"github.com/jwalitptl/consult-api/pkg/errors"
)

const (
	monthLayout = "2006-01"
	dayLayout   = "2006-01-02"

	// A day with more than fullyBookedAbove completed appointments is full;
	// more than gettingFilledAbove is filling up.
	fullyBookedAbove   = 10
	gettingFilledAbove = 5
)

// ParseMonth parses a YYYY-MM string into the first instant of that month.
func ParseMonth(s string, loc *time.Location) (time.Time, error) {
	m, err := time.ParseInLocation(monthLayout, s, loc)
	if err != nil {
		return time.Time{}, errors.Validation("month must be formatted as YYYY-MM", err)
	}
	return m, nil
}

// MonthRange returns [first day, first day of next month).
func MonthRange(month time.Time) (time.Time, time.Time) {
	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, month.Location())
	return start, start.AddDate(0, 1, 0)
}

func ClassifyDay(count int) model.BookingStatus {
	switch {
	case count > fullyBookedAbove:
		return model.BookingFullyBooked
	case count > gettingFilledAbove:
		return model.BookingGettingFilled
	default:
		return model.BookingNoAppointment
	}
}

// ClassifyMonth emits one record per calendar day of month in ascending order.
// counts is keyed by YYYY-MM-DD; missing days count as zero.
func ClassifyMonth(month time.Time, counts map[string]int) []model.DayStatus {
	start, end := MonthRange(month)
	days := make([]model.DayStatus, 0, 31)
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		key := d.Format(dayLayout)
		n := counts[key]
		if n < 0 {
			n = 0
		}
		days = append(days, model.DayStatus{
			Date:   key,
			Count:  n,
			Status: ClassifyDay(n),
		})
	}
	return days
}

// ParseSlot combines a YYYY-MM-DD date and HH:MM time in loc.
func ParseSlot(date, clock string, loc *time.Location) (time.Time, error) {
	at, err := time.ParseInLocation(dayLayout+" 15:04", date+" "+clock, loc)
	if err != nil {
		return time.Time{}, errors.Validation("date must be YYYY-MM-DD and time HH:MM", err)
	}
	return at, nil
}

// ParseAppointmentDate accepts RFC3339 or a "YYYY-MM-DD HH:MM" wall-clock
// time in loc.
func ParseAppointmentDate(s string, loc *time.Location) (time.Time, error) {
	if at, err := time.Parse(time.RFC3339, s); err == nil {
		return at, nil
	}
	at, err := time.ParseInLocation(dayLayout+" 15:04", s, loc)
	if err != nil {
		return time.Time{}, errors.Validation("appointment_date must be RFC3339 or YYYY-MM-DD HH:MM", err)
	}
	return at, nil
}
