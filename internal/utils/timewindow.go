package utils

import (
	"errors"
	"fmt"
	"time"
)

// ErrMalformedTimeInput is returned when a date or time-of-day cannot be parsed.
var ErrMalformedTimeInput = errors.New("malformed date or time")

const (
	// DateLayout is the calendar date format accepted from clients.
	DateLayout = "2006-01-02"
	// ClockLayout is the 24-hour time-of-day format accepted from clients.
	ClockLayout = "15:04"
)

// Combine joins a YYYY-MM-DD date and an HH:MM time into one instant in loc.
// A nil loc means time.Local.
func Combine(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if len(date) != len(DateLayout) || len(clock) != len(ClockLayout) {
		return time.Time{}, fmt.Errorf("%w: %q %q", ErrMalformedTimeInput, date, clock)
	}
	t, err := time.ParseInLocation(DateLayout+" "+ClockLayout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrMalformedTimeInput, err)
	}
	return t, nil
}

// Window returns the interval a party seated at date/clock occupies.
func Window(date, clock string, dwell time.Duration, loc *time.Location) (start, end time.Time, err error) {
	start, err = Combine(date, clock, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.Add(dwell), nil
}

// Overlaps reports whether the half-open intervals [aStart,aEnd) and
// [bStart,bEnd) intersect.  Intervals that only touch do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// ValidSlot checks a date/time pair without building a window.
func ValidSlot(date, clock string) error {
	_, err := Combine(date, clock, time.UTC)
	return err
}
