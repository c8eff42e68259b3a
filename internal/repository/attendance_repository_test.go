package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/recordsync/internal/models"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestCSVAttendanceRepositoryMissingFile(t *testing.T) {
	repo := NewCSVAttendanceRepository(filepath.Join(t.TempDir(), "Students_Data.csv"))

	records, warnings, err := repo.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Empty(t, warnings)
}

func TestCSVAttendanceRepositoryReadAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Students_Data.csv")
	writeFile(t, path, "ID,Name,Status,ClassesAttended,TimeIn,TimeOut,Img_Path\n"+
		"00-001,Ana Reyes,Present,4,8:01 AM,,assets/profiles/AnaReyes.jpeg\n"+
		"00-002,Ben Cruz, Absent ,abc,,,\n"+
		"00-003,Cy Lim,,,,\n")
	repo := NewCSVAttendanceRepository(path)

	records, warnings, err := repo.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, models.AttendanceRecord{
		ID:              "00-001",
		Name:            "Ana Reyes",
		Status:          models.AttendanceStatusPresent,
		ClassesAttended: 4,
		TimeIn:          "8:01 AM",
		ImgPath:         "assets/profiles/AnaReyes.jpeg",
	}, records[0])
	assert.Equal(t, models.AttendanceStatusAbsent, records[1].Status)
	assert.Equal(t, 0, records[1].ClassesAttended)
	assert.Equal(t, 0, records[2].ClassesAttended)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "00-002")
}

func TestCSVAttendanceRepositoryMutateRewritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "Students_Data.csv")
	repo := NewCSVAttendanceRepository(path)
	assert.True(t, repo.LastWrite().IsZero())

	err := repo.Mutate(context.Background(), func(records []models.AttendanceRecord, _ []string) ([]models.AttendanceRecord, error) {
		return append(records, models.AttendanceRecord{ID: "00-001", Name: "Ana, Reyes", Status: models.AttendanceStatusLate, ClassesAttended: 2, TimeIn: "8:20 AM"}), nil
	})
	require.NoError(t, err)

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ID,Name,Status,ClassesAttended,TimeIn,TimeOut,Img_Path\n"+
		"00-001,\"Ana, Reyes\",Late,2,8:20 AM,,\n", string(body))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, repo.LastWrite().Equal(info.ModTime()))

	records, _, err := repo.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ana, Reyes", records[0].Name)
}

func TestCSVAttendanceRepositoryMutate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Students_Data.csv")
	repo := NewCSVAttendanceRepository(path)
	ctx := context.Background()

	require.NoError(t, repo.Mutate(ctx, func(records []models.AttendanceRecord, _ []string) ([]models.AttendanceRecord, error) {
		return append(records, models.AttendanceRecord{ID: "00-001", Name: "Ana"}), nil
	}))

	boom := errors.New("boom")
	err := repo.Mutate(ctx, func(records []models.AttendanceRecord, _ []string) ([]models.AttendanceRecord, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	records, _, err := repo.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Ana", records[0].Name)
}

func TestCSVAttendanceRepositoryCancelledContext(t *testing.T) {
	repo := NewCSVAttendanceRepository(filepath.Join(t.TempDir(), "x.csv"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := repo.ReadAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
