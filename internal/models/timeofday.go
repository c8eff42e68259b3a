package models

import (
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

// TimeOfDay is a wall-clock time without a date, in minutes since midnight.
type TimeOfDay int

// ParseTimeOfDay parses a 12-hour clock value such as "8:05 AM". Hour and
// minute take one or two digits, so "8:5 AM" is 08:05. The AM/PM marker is
// case-insensitive; surrounding whitespace is ignored.
func ParseTimeOfDay(raw string) (TimeOfDay, bool) {
	fields := strings.Fields(strings.ToUpper(raw))
	if len(fields) != 2 {
		return 0, false
	}
	clock, marker := fields[0], fields[1]
	if marker != "AM" && marker != "PM" {
		return 0, false
	}
	hourText, minuteText, ok := strings.Cut(clock, ":")
	if !ok {
		return 0, false
	}
	hour, ok := clockNumber(hourText)
	// 12-hour clocks have no hour zero.
	if !ok || hour < 1 || hour > 12 {
		return 0, false
	}
	minute, ok := clockNumber(minuteText)
	if !ok || minute > 59 {
		return 0, false
	}
	hour %= 12
	if marker == "PM" {
		hour += 12
	}
	return TimeOfDay(hour*60 + minute), true
}

// clockNumber parses one or two ASCII digits.
func clockNumber(text string) (int, bool) {
	if len(text) < 1 || len(text) > 2 {
		return 0, false
	}
	n := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// NewTimeOfDay builds a TimeOfDay from a 24-hour hour and minute.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute).normalize()
}

// TimeOfDayFrom drops the date part of t.
func TimeOfDayFrom(t time.Time) TimeOfDay {
	return NewTimeOfDay(t.Hour(), t.Minute())
}

// Add shifts the time by the given minutes, wrapping at midnight.
func (t TimeOfDay) Add(minutes int) TimeOfDay {
	return (t + TimeOfDay(minutes)).normalize()
}

func (t TimeOfDay) normalize() TimeOfDay {
	m := int(t) % minutesPerDay
	if m < 0 {
		m += minutesPerDay
	}
	return TimeOfDay(m)
}

// Hour returns the 24-hour clock hour.
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute within the hour.
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// Format renders the time as "03:04 PM".
func (t TimeOfDay) Format() string {
	return t.clock().Format("03:04 PM")
}

// Short renders the time as "3:04 PM", the form stamped by the RFID reader.
func (t TimeOfDay) Short() string {
	return t.clock().Format("3:04 PM")
}

func (t TimeOfDay) clock() time.Time {
	return time.Date(2000, time.January, 1, t.Hour(), t.Minute(), 0, 0, time.UTC)
}
