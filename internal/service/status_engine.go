package service

import (
	"fmt"
	"strings"

	"github.com/noah-isme/recordsync/internal/models"
)

// DefaultGraceMinutes is the grace period applied when a caller has no
// explicit setting.
const DefaultGraceMinutes = 5

// DetermineStatus classifies a check-in time against a class schedule.
// Blank or unparseable input is Absent, as is a check-in after classEnd.
// A check-in no later than classStart+graceMinutes is Present, anything
// else Late.
func DetermineStatus(timeIn, classStart, classEnd string, graceMinutes int) (status models.AttendanceStatus) {
	defer func() {
		if recover() != nil {
			status = models.AttendanceStatusAbsent
		}
	}()

	if strings.TrimSpace(timeIn) == "" {
		return models.AttendanceStatusAbsent
	}
	checkIn, ok := models.ParseTimeOfDay(timeIn)
	if !ok {
		return models.AttendanceStatusAbsent
	}
	start, ok := models.ParseTimeOfDay(classStart)
	if !ok {
		return models.AttendanceStatusAbsent
	}
	end, ok := models.ParseTimeOfDay(classEnd)
	if !ok {
		return models.AttendanceStatusAbsent
	}

	if checkIn > end {
		return models.AttendanceStatusAbsent
	}
	if checkIn <= start.Add(graceMinutes) {
		return models.AttendanceStatusPresent
	}
	return models.AttendanceStatusLate
}

// ApplyStatuses recomputes the status of every record in place and bumps
// ClassesAttended on a transition into an attending status. A record that
// fails is reported in the result and left unchanged.
func ApplyStatuses(records []models.AttendanceRecord, schedule models.ClassSchedule) *models.SyncResult {
	result := models.NewSyncResult(schedule)
	for i := range records {
		change, err := applyStatus(&records[i], schedule)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row update error (%s): %v", records[i].ID, err))
			continue
		}
		result.Changed[records[i].ID] = change
		result.Updated++
	}
	return result
}

func applyStatus(record *models.AttendanceRecord, schedule models.ClassSchedule) (change models.StatusChange, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	updated := *record
	oldStatus := models.AttendanceStatus(strings.TrimSpace(string(updated.Status)))
	newStatus := DetermineStatus(updated.TimeIn, schedule.Start, schedule.End, schedule.GraceMinutes)

	if newStatus.Attending() && !oldStatus.Attending() {
		if updated.ClassesAttended < 0 {
			updated.ClassesAttended = 0
		}
		updated.ClassesAttended++
	}
	updated.Status = newStatus
	*record = updated

	return models.StatusChange{Old: oldStatus, New: newStatus}, nil
}
