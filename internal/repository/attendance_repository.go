package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/recordsync/internal/models"
)

// Record store columns, in file order.
const (
	colID              = "ID"
	colName            = "Name"
	colStatus          = "Status"
	colClassesAttended = "ClassesAttended"
	colTimeIn          = "TimeIn"
	colTimeOut         = "TimeOut"
	colImgPath         = "Img_Path"
)

var attendanceColumns = []string{colID, colName, colStatus, colClassesAttended, colTimeIn, colTimeOut, colImgPath}

// MutateFunc receives the current records and any per-row read warnings
// and returns the records to persist. Returning an error skips the write.
type MutateFunc func(records []models.AttendanceRecord, warnings []string) ([]models.AttendanceRecord, error)

// AttendanceStore is the whole-collection record store shared by the CSV
// and Postgres backends. Every write replaces the whole collection.
type AttendanceStore interface {
	ReadAll(ctx context.Context) ([]models.AttendanceRecord, []string, error)
	Mutate(ctx context.Context, fn MutateFunc) error
}

// CSVAttendanceRepository stores attendance records in Students_Data.csv.
// All access within the process is serialized by one mutex.
type CSVAttendanceRepository struct {
	table     csvTable
	mu        sync.Mutex
	lastWrite time.Time
}

// NewCSVAttendanceRepository binds the repository to path.
func NewCSVAttendanceRepository(path string) *CSVAttendanceRepository {
	return &CSVAttendanceRepository{table: csvTable{path: path, columns: attendanceColumns}}
}

// Path returns the backing file location.
func (r *CSVAttendanceRepository) Path() string { return r.table.path }

// ReadAll loads every record. A missing file is an empty roster. Warnings
// describe rows whose ClassesAttended could not be parsed and was read as 0.
func (r *CSVAttendanceRepository) ReadAll(ctx context.Context) ([]models.AttendanceRecord, []string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readLocked()
}

// LastWrite returns the modification time produced by this repository's
// most recent write, or the zero time before the first one.
func (r *CSVAttendanceRepository) LastWrite() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastWrite
}

// Mutate runs a read-modify-write cycle under the repository lock.
func (r *CSVAttendanceRepository) Mutate(ctx context.Context, fn MutateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	records, warnings, err := r.readLocked()
	if err != nil {
		return err
	}
	updated, err := fn(records, warnings)
	if err != nil {
		return err
	}
	return r.writeLocked(updated)
}

func (r *CSVAttendanceRepository) readLocked() ([]models.AttendanceRecord, []string, error) {
	rows, err := r.table.read()
	if err != nil {
		return nil, nil, fmt.Errorf("read attendance records: %w", err)
	}
	records := make([]models.AttendanceRecord, 0, len(rows))
	var warnings []string
	for i, row := range rows {
		record := models.AttendanceRecord{
			ID:      strings.TrimSpace(row[colID]),
			Name:    row[colName],
			Status:  models.AttendanceStatus(strings.TrimSpace(row[colStatus])),
			TimeIn:  strings.TrimSpace(row[colTimeIn]),
			TimeOut: row[colTimeOut],
			ImgPath: row[colImgPath],
		}
		if raw := strings.TrimSpace(row[colClassesAttended]); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				warnings = append(warnings, fmt.Sprintf("row %d (%s): invalid ClassesAttended %q, using 0", i+1, record.ID, raw))
				n = 0
			}
			record.ClassesAttended = n
		}
		records = append(records, record)
	}
	return records, warnings, nil
}

func (r *CSVAttendanceRepository) writeLocked(records []models.AttendanceRecord) error {
	rows := make([]map[string]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, map[string]string{
			colID:              record.ID,
			colName:            record.Name,
			colStatus:          string(record.Status),
			colClassesAttended: strconv.Itoa(record.ClassesAttended),
			colTimeIn:          record.TimeIn,
			colTimeOut:         record.TimeOut,
			colImgPath:         record.ImgPath,
		})
	}
	written, err := r.table.write(rows)
	if err != nil {
		return fmt.Errorf("write attendance records: %w", err)
	}
	r.lastWrite = written
	return nil
}
