package export

import (
	"strconv"

	"github.com/noah-isme/recordsync/internal/models"
)

// Dataset defines tabular export content.
type Dataset struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// AttendanceHeaders are the columns of an attendance export.
var AttendanceHeaders = []string{"ID", "Name", "Status", "Classes Attended", "Time In", "Time Out"}

// AttendanceDataset flattens records into export rows. Records without a
// status yet are shown as "Unsynced".
func AttendanceDataset(title string, records []models.AttendanceRecord) Dataset {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		status := string(r.Status)
		if status == "" {
			status = "Unsynced"
		}
		rows = append(rows, []string{
			r.ID,
			r.Name,
			status,
			strconv.Itoa(r.ClassesAttended),
			r.TimeIn,
			r.TimeOut,
		})
	}
	return Dataset{Title: title, Headers: AttendanceHeaders, Rows: rows}
}
