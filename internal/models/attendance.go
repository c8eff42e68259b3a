package models

import "time"

// AttendanceStatus is the derived daily status of a student.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "Present"
	AttendanceStatusLate    AttendanceStatus = "Late"
	AttendanceStatusAbsent  AttendanceStatus = "Absent"
)

// Valid returns true when the status is one of the three known values.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusLate, AttendanceStatusAbsent:
		return true
	default:
		return false
	}
}

// Attending reports whether the status counts towards ClassesAttended.
func (s AttendanceStatus) Attending() bool {
	return s == AttendanceStatusPresent || s == AttendanceStatusLate
}

// AttendanceRecord is one row of the record store.
type AttendanceRecord struct {
	ID              string           `db:"id" json:"id"`
	Name            string           `db:"name" json:"name"`
	Status          AttendanceStatus `db:"status" json:"status"`
	ClassesAttended int              `db:"classes_attended" json:"classes_attended"`
	TimeIn          string           `db:"time_in" json:"time_in"`
	TimeOut         string           `db:"time_out" json:"time_out"`
	ImgPath         string           `db:"img_path" json:"img_path"`
}

// ClassSchedule is the schedule a sync classifies check-ins against.
// Start and End use the "03:04 PM" clock format.
type ClassSchedule struct {
	Start        string `json:"start"`
	End          string `json:"end"`
	GraceMinutes int    `json:"grace_minutes"`
}

// LateThreshold returns Start + GraceMinutes formatted for display.
func (s ClassSchedule) LateThreshold() (string, bool) {
	start, ok := ParseTimeOfDay(s.Start)
	if !ok {
		return "", false
	}
	return start.Add(s.GraceMinutes).Format(), true
}

// StatusChange captures a record's status before and after a sync.
type StatusChange struct {
	Old AttendanceStatus `json:"old"`
	New AttendanceStatus `json:"new"`
}

// SyncResult summarises one batch synchronization.
type SyncResult struct {
	Updated  int                     `json:"updated"`
	Changed  map[string]StatusChange `json:"changed"`
	Errors   []string                `json:"errors"`
	Schedule ClassSchedule           `json:"schedule"`
	SyncedAt time.Time               `json:"synced_at"`
}

// NewSyncResult returns an empty result for schedule.
func NewSyncResult(schedule ClassSchedule) *SyncResult {
	return &SyncResult{
		Changed:  make(map[string]StatusChange),
		Errors:   []string{},
		Schedule: schedule,
	}
}

// FinalizeResult reports the logout finalize pass.
type FinalizeResult struct {
	Status           string   `json:"status"`
	RecordsFinalized int      `json:"records_finalized"`
	Errors           []string `json:"errors"`
}
