package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		raw  string
		want TimeOfDay
		ok   bool
	}{
		{raw: "8:05 AM", want: NewTimeOfDay(8, 5), ok: true},
		{raw: "08:05 AM", want: NewTimeOfDay(8, 5), ok: true},
		{raw: "  3:00 pm ", want: NewTimeOfDay(15, 0), ok: true},
		{raw: "12:00 AM", want: NewTimeOfDay(0, 0), ok: true},
		{raw: "12:30 PM", want: NewTimeOfDay(12, 30), ok: true},
		{raw: "", ok: false},
		{raw: "not a time", ok: false},
		{raw: "13:00 PM", ok: false},
		{raw: "0:15 AM", ok: false},
		{raw: "8:05", ok: false},
		{raw: "8:5 AM", want: NewTimeOfDay(8, 5), ok: true},
		{raw: "08:5 pm", want: NewTimeOfDay(20, 5), ok: true},
		{raw: "8:60 AM", ok: false},
		{raw: "8:005 AM", ok: false},
		{raw: "008:05 AM", ok: false},
		{raw: "8:05AM", ok: false},
		{raw: "8:05 XM", ok: false},
		{raw: "+8:05 AM", ok: false},
	}

	for _, tc := range cases {
		got, ok := ParseTimeOfDay(tc.raw)
		assert.Equal(t, tc.ok, ok, tc.raw)
		if tc.ok {
			assert.Equal(t, tc.want, got, tc.raw)
		}
	}
}

func TestTimeOfDayArithmeticAndFormat(t *testing.T) {
	start, ok := ParseTimeOfDay("08:00 AM")
	require.True(t, ok)

	assert.Equal(t, "08:05 AM", start.Add(5).Format())
	assert.Equal(t, "03:00 PM", start.Add(420).Format())
	assert.Equal(t, "3:00 PM", start.Add(420).Short())
	assert.Equal(t, "12:10 AM", NewTimeOfDay(23, 50).Add(20).Format())
	assert.True(t, start < start.Add(1))
}

func TestClassScheduleLateThreshold(t *testing.T) {
	label, ok := ClassSchedule{Start: "8:00 AM", End: "3:00 PM", GraceMinutes: 15}.LateThreshold()
	require.True(t, ok)
	assert.Equal(t, "08:15 AM", label)

	_, ok = ClassSchedule{Start: "soon"}.LateThreshold()
	assert.False(t, ok)
}

func TestSettingsSchedule(t *testing.T) {
	settings := Settings{ClassStartTime: "08:00 AM", ClassDurationMinutes: 420, ClassesPerQuarter: 20, GraceMinutes: 5}

	schedule := settings.Schedule()
	assert.Equal(t, ClassSchedule{Start: "08:00 AM", End: "03:00 PM", GraceMinutes: 5}, schedule)
	assert.Len(t, settings.Values(), 4)
}

func TestSettingsEndsSameDay(t *testing.T) {
	assert.True(t, Settings{ClassStartTime: "08:00 AM", ClassDurationMinutes: 420, GraceMinutes: 5}.EndsSameDay())
	assert.True(t, Settings{ClassStartTime: "06:00 PM", ClassDurationMinutes: 359}.EndsSameDay())
	assert.False(t, Settings{ClassStartTime: "06:00 PM", ClassDurationMinutes: 360}.EndsSameDay())
	assert.False(t, Settings{ClassStartTime: "06:00 PM", ClassDurationMinutes: 420}.EndsSameDay())
	assert.False(t, Settings{ClassStartTime: "11:00 PM", ClassDurationMinutes: 30, GraceMinutes: 60}.EndsSameDay())
	assert.False(t, Settings{ClassStartTime: "later", ClassDurationMinutes: 30}.EndsSameDay())
}

func TestAttendanceStatusAttending(t *testing.T) {
	assert.True(t, AttendanceStatusPresent.Attending())
	assert.True(t, AttendanceStatusLate.Attending())
	assert.False(t, AttendanceStatusAbsent.Attending())
	assert.False(t, AttendanceStatus("").Attending())
	assert.False(t, AttendanceStatus("").Valid())
}
