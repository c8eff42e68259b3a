package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/recordsync/internal/models"
	"github.com/noah-isme/recordsync/internal/repository"
	appErrors "github.com/noah-isme/recordsync/pkg/errors"
)

type memAttendanceStore struct {
	mu       sync.Mutex
	records  []models.AttendanceRecord
	warnings []string
	readErr  error
	writeErr error
	writes   int
}

func (m *memAttendanceStore) ReadAll(ctx context.Context) ([]models.AttendanceRecord, []string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, nil, m.readErr
	}
	return append([]models.AttendanceRecord(nil), m.records...), m.warnings, nil
}

func (m *memAttendanceStore) Mutate(ctx context.Context, fn repository.MutateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return m.readErr
	}
	updated, err := fn(append([]models.AttendanceRecord(nil), m.records...), m.warnings)
	if err != nil {
		return err
	}
	if m.writeErr != nil {
		return m.writeErr
	}
	m.records = updated
	m.writes++
	return nil
}

func TestAttendanceServiceUpdateStatuses(t *testing.T) {
	store := &memAttendanceStore{records: []models.AttendanceRecord{
		{ID: "00-001", Name: "Ana", TimeIn: "8:00 AM"},
		{ID: "00-002", Name: "Ben", TimeIn: "10:00 AM", Status: models.AttendanceStatusAbsent, ClassesAttended: 2},
	}}
	hub := NewRefreshHub(1)
	events, cancel := hub.Subscribe()
	defer cancel()
	metrics := NewMetricsService()
	svc := NewAttendanceService(store, nil, metrics, hub, nil)

	result, err := svc.UpdateStatuses(context.Background(), testSchedule)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Updated)
	assert.Empty(t, result.Errors)
	assert.Equal(t, models.StatusChange{Old: "", New: models.AttendanceStatusPresent}, result.Changed["00-001"])
	assert.Equal(t, 1, store.writes)
	assert.Equal(t, 1, store.records[0].ClassesAttended)
	assert.Equal(t, models.AttendanceStatusLate, store.records[1].Status)
	assert.Equal(t, 3, store.records[1].ClassesAttended)

	event := <-events
	assert.Equal(t, "sync", event.Type)
	assert.Equal(t, 2, event.Updated)
	assert.Equal(t, uint64(1), metrics.Snapshot().SyncRuns)
}

func TestAttendanceServiceSyncReportsStoreWarnings(t *testing.T) {
	store := &memAttendanceStore{
		records:  []models.AttendanceRecord{{ID: "00-001", TimeIn: "8:00 AM"}},
		warnings: []string{"row 1 (00-001): invalid ClassesAttended \"x\", using 0"},
	}
	svc := NewAttendanceService(store, nil, nil, nil, nil)

	result, err := svc.SyncStudentsData(context.Background(), testSchedule)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "invalid ClassesAttended")
	assert.Equal(t, 1, store.records[0].ClassesAttended)
}

func TestAttendanceServiceSyncPersistFailure(t *testing.T) {
	store := &memAttendanceStore{
		records:  []models.AttendanceRecord{{ID: "00-001", TimeIn: "8:00 AM"}},
		writeErr: errors.New("disk full"),
	}
	svc := NewAttendanceService(store, nil, nil, nil, nil)

	result, err := svc.UpdateStatuses(context.Background(), testSchedule)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, models.AttendanceStatusPresent, result.Changed["00-001"].New)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "disk full")
	assert.Equal(t, 0, store.writes)
}

func TestAttendanceServiceSyncReadFailure(t *testing.T) {
	svc := NewAttendanceService(&memAttendanceStore{readErr: errors.New("permission denied")}, nil, nil, nil, nil)

	result, err := svc.UpdateStatuses(context.Background(), testSchedule)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Updated)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "permission denied")
}

func TestAttendanceServiceSyncCancelled(t *testing.T) {
	svc := NewAttendanceService(&memAttendanceStore{}, nil, nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.UpdateStatuses(ctx, testSchedule)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAttendanceServiceFinalize(t *testing.T) {
	store := &memAttendanceStore{records: []models.AttendanceRecord{{ID: "00-001"}, {ID: "00-002"}}}
	svc := NewAttendanceService(store, nil, nil, nil, nil)

	result := svc.Finalize(context.Background())
	assert.Equal(t, "success", result.Status)
	assert.Equal(t, 2, result.RecordsFinalized)
	assert.Equal(t, 1, store.writes)

	store.writeErr = errors.New("locked")
	result = svc.Finalize(context.Background())
	assert.Equal(t, "error", result.Status)
	assert.Equal(t, 0, result.RecordsFinalized)
	assert.Len(t, result.Errors, 1)
}

func TestAttendanceServiceFindByName(t *testing.T) {
	store := &memAttendanceStore{records: []models.AttendanceRecord{{ID: "00-001", Name: "Ana Reyes"}}}
	svc := NewAttendanceService(store, nil, nil, nil, nil)

	record, err := svc.FindByName(context.Background(), "  ana reyes ")
	require.NoError(t, err)
	assert.Equal(t, "00-001", record.ID)

	_, err = svc.FindByName(context.Background(), "nobody")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))

	_, err = svc.FindByName(context.Background(), " ")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func TestAttendanceServiceListStorageError(t *testing.T) {
	svc := NewAttendanceService(&memAttendanceStore{readErr: errors.New("io")}, nil, nil, nil, nil)

	_, err := svc.List(context.Background())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrStorage.Code))
}

func TestAttendanceServiceBreakdown(t *testing.T) {
	store := &memAttendanceStore{records: []models.AttendanceRecord{
		{ID: "1", Status: models.AttendanceStatusPresent},
		{ID: "2", Status: models.AttendanceStatusLate},
		{ID: "3", Status: models.AttendanceStatusAbsent},
		{ID: "4"},
	}}
	svc := NewAttendanceService(store, nil, nil, nil, nil)

	breakdown, err := svc.Breakdown(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StatusBreakdown{Present: 1, Late: 1, Absent: 1, Unsynced: 1}, breakdown)
}

const csvHeader = "ID,Name,Status,ClassesAttended,TimeIn,TimeOut,Img_Path\n"

func syncCSV(t *testing.T, body string) (*models.SyncResult, []models.AttendanceRecord) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Students_Data.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	repo := repository.NewCSVAttendanceRepository(path)
	svc := NewAttendanceService(repo, nil, nil, nil, nil)

	result, err := svc.UpdateStatuses(context.Background(), models.ClassSchedule{Start: "08:00 AM", End: "03:00 PM", GraceMinutes: 5})
	require.NoError(t, err)

	records, _, err := repo.ReadAll(context.Background())
	require.NoError(t, err)
	return result, records
}

func TestUpdateStatusesCSVNoCheckIn(t *testing.T) {
	result, records := syncCSV(t, csvHeader+"00-001,A,,0,,,\n")

	assert.Equal(t, 1, result.Updated)
	assert.Empty(t, result.Errors)
	require.Len(t, records, 1)
	assert.Equal(t, models.AttendanceStatusAbsent, records[0].Status)
	assert.Equal(t, 0, records[0].ClassesAttended)
}

func TestUpdateStatusesCSVOnTime(t *testing.T) {
	result, records := syncCSV(t, csvHeader+"00-001,A,,0,08:03 AM,,\n")

	assert.Equal(t, 1, result.Updated)
	assert.Empty(t, result.Errors)
	assert.Equal(t, models.AttendanceStatusPresent, records[0].Status)
	assert.Equal(t, 1, records[0].ClassesAttended)
}

func TestUpdateStatusesCSVMissingFile(t *testing.T) {
	repo := repository.NewCSVAttendanceRepository(filepath.Join(t.TempDir(), "none", "Students_Data.csv"))
	svc := NewAttendanceService(repo, nil, nil, nil, nil)

	result, err := svc.UpdateStatuses(context.Background(), testSchedule)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Updated)
	assert.Empty(t, result.Errors)
}
