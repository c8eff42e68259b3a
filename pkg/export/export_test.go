package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/recordsync/internal/models"
)

func sampleRecords() []models.AttendanceRecord {
	return []models.AttendanceRecord{
		{ID: "00-001", Name: "Ana Reyes", Status: models.AttendanceStatusPresent, ClassesAttended: 3, TimeIn: "8:01 AM"},
		{ID: "00-002", Name: "Ben Cruz", ClassesAttended: 0},
	}
}

func TestAttendanceDataset(t *testing.T) {
	data := AttendanceDataset("Attendance", sampleRecords())

	require.Len(t, data.Rows, 2)
	assert.Equal(t, []string{"00-001", "Ana Reyes", "Present", "3", "8:01 AM", ""}, data.Rows[0])
	assert.Equal(t, "Unsynced", data.Rows[1][2])
}

func TestCSVExporterWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewCSVExporter().Write(&buf, AttendanceDataset("", sampleRecords())))

	assert.Equal(t,
		"ID,Name,Status,Classes Attended,Time In,Time Out\n"+
			"00-001,Ana Reyes,Present,3,8:01 AM,\n"+
			"00-002,Ben Cruz,Unsynced,0,,\n",
		buf.String())
}

func TestCSVExporterRejectsRaggedRows(t *testing.T) {
	err := NewCSVExporter().Write(&bytes.Buffer{}, Dataset{Headers: []string{"a", "b"}, Rows: [][]string{{"1"}}})
	assert.Error(t, err)
}

func TestPDFExporterWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPDFExporter().Write(&buf, AttendanceDataset("Attendance", sampleRecords())))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))

	assert.Error(t, NewPDFExporter().Write(&buf, Dataset{}))
}
