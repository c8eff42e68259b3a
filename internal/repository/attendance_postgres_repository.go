package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/recordsync/internal/models"
)

const (
	selectAttendanceQuery = `SELECT id, name, status, classes_attended, time_in, time_out, img_path
FROM attendance_records ORDER BY position ASC`
	deleteAttendanceQuery = `DELETE FROM attendance_records`
	insertAttendanceQuery = `INSERT INTO attendance_records (position, id, name, status, classes_attended, time_in, time_out, img_path)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
)

// PostgresAttendanceRepository keeps the record collection in the
// attendance_records table. Mutate replaces the table inside a transaction.
type PostgresAttendanceRepository struct {
	db *sqlx.DB
	mu sync.Mutex
}

// NewPostgresAttendanceRepository constructs the repository.
func NewPostgresAttendanceRepository(db *sqlx.DB) *PostgresAttendanceRepository {
	return &PostgresAttendanceRepository{db: db}
}

// ReadAll returns every record in insertion order.
func (r *PostgresAttendanceRepository) ReadAll(ctx context.Context) ([]models.AttendanceRecord, []string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := selectAttendance(ctx, r.db)
	if err != nil {
		return nil, nil, err
	}
	return records, nil, nil
}

// Mutate reads, transforms and rewrites the records in one transaction.
func (r *PostgresAttendanceRepository) Mutate(ctx context.Context, fn MutateFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attendance tx: %w", err)
	}
	records, err := selectAttendance(ctx, tx)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	updated, err := fn(records, nil)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := replaceAttendance(ctx, tx, updated); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit attendance tx: %w", err)
	}
	return nil
}

func selectAttendance(ctx context.Context, q sqlx.QueryerContext) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	if err := sqlx.SelectContext(ctx, q, &records, selectAttendanceQuery); err != nil {
		return nil, fmt.Errorf("list attendance records: %w", err)
	}
	return records, nil
}

func replaceAttendance(ctx context.Context, tx *sqlx.Tx, records []models.AttendanceRecord) error {
	if _, err := tx.ExecContext(ctx, deleteAttendanceQuery); err != nil {
		return fmt.Errorf("clear attendance records: %w", err)
	}
	for i, record := range records {
		if _, err := tx.ExecContext(ctx, insertAttendanceQuery,
			i,
			record.ID,
			record.Name,
			string(record.Status),
			record.ClassesAttended,
			record.TimeIn,
			record.TimeOut,
			record.ImgPath,
		); err != nil {
			return fmt.Errorf("insert attendance record %s: %w", record.ID, err)
		}
	}
	return nil
}
