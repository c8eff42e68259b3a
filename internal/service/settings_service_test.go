package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/recordsync/internal/dto"
	"github.com/noah-isme/recordsync/internal/models"
	appErrors "github.com/noah-isme/recordsync/pkg/errors"
)

type mockSettingsRepo struct {
	values  map[string]models.Configuration
	listErr error
	saveErr error
	saves   int
}

func (m *mockSettingsRepo) List(ctx context.Context) ([]models.Configuration, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]models.Configuration, 0, len(m.values))
	for _, v := range m.values {
		out = append(out, v)
	}
	return out, nil
}

func (m *mockSettingsRepo) BulkUpsert(ctx context.Context, cfgs []models.Configuration) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	if m.values == nil {
		m.values = make(map[string]models.Configuration)
	}
	for _, cfg := range cfgs {
		m.values[cfg.Key] = cfg
	}
	m.saves++
	return nil
}

var testDefaults = models.Settings{ClassStartTime: "08:00 AM", ClassDurationMinutes: 420, ClassesPerQuarter: 20, GraceMinutes: 5}

func TestSettingsServiceDefaults(t *testing.T) {
	svc := NewSettingsService(&mockSettingsRepo{}, nil, nil, testDefaults)

	schedule, err := svc.Schedule(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.ClassSchedule{Start: "08:00 AM", End: "03:00 PM", GraceMinutes: 5}, schedule)

	items, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 4)
	for _, item := range items {
		assert.True(t, item.Default, item.Key)
	}
}

func TestSettingsServiceUpdateNormalizesAndTriggersSync(t *testing.T) {
	repo := &mockSettingsRepo{}
	svc := NewSettingsService(repo, nil, nil, testDefaults)

	var got []models.ClassSchedule
	svc.OnScheduleChange(func(ctx context.Context, schedule models.ClassSchedule) {
		got = append(got, schedule)
	})

	item, err := svc.Update(context.Background(), models.SettingClassStartTime, " 7:30 am ")
	require.NoError(t, err)
	assert.Equal(t, "07:30 AM", item.Value)
	require.Len(t, got, 1)
	assert.Equal(t, models.ClassSchedule{Start: "07:30 AM", End: "02:30 PM", GraceMinutes: 5}, got[0])

	_, err = svc.Update(context.Background(), models.SettingClassesPerQuarter, "24")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	settings, err := svc.Settings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 24, settings.ClassesPerQuarter)
}

func TestSettingsServiceValidation(t *testing.T) {
	repo := &mockSettingsRepo{}
	svc := NewSettingsService(repo, nil, nil, testDefaults)
	ctx := context.Background()

	_, err := svc.Update(ctx, models.SettingClassStartTime, "25:00")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, err = svc.Update(ctx, models.SettingGraceMinutes, "-1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, err = svc.Update(ctx, "theme", "dark")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))

	_, err = svc.BulkUpdate(ctx, dto.BulkUpdateConfigurationRequest{})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	assert.Equal(t, 0, repo.saves)
}

func TestSettingsServiceRejectsScheduleCrossingMidnight(t *testing.T) {
	repo := &mockSettingsRepo{}
	svc := NewSettingsService(repo, nil, nil, testDefaults)
	ctx := context.Background()

	synced := 0
	svc.OnScheduleChange(func(ctx context.Context, schedule models.ClassSchedule) { synced++ })

	// 06:00 PM plus the saved 420 minutes ends at 01:00 AM.
	_, err := svc.Update(ctx, models.SettingClassStartTime, "06:00 PM")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, err = svc.Update(ctx, models.SettingClassDurationMinutes, "1000")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, err = svc.BulkUpdate(ctx, dto.BulkUpdateConfigurationRequest{Items: []dto.ConfigurationUpdate{
		{Key: models.SettingClassStartTime, Value: "11:00 PM"},
		{Key: models.SettingClassDurationMinutes, Value: "45"},
		{Key: models.SettingGraceMinutes, Value: "90"},
	}})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	assert.Equal(t, 0, repo.saves)
	assert.Zero(t, synced)

	// Moving start and duration together keeps the class inside the day.
	_, err = svc.BulkUpdate(ctx, dto.BulkUpdateConfigurationRequest{Items: []dto.ConfigurationUpdate{
		{Key: models.SettingClassStartTime, Value: "06:00 PM"},
		{Key: models.SettingClassDurationMinutes, Value: "359"},
	}})
	require.NoError(t, err)
	schedule, err := svc.Schedule(ctx)
	require.NoError(t, err)
	assert.Equal(t, "11:59 PM", schedule.End)
	assert.Equal(t, 1, synced)
	assert.Equal(t, models.AttendanceStatusPresent, DetermineStatus("6:00 PM", schedule.Start, schedule.End, schedule.GraceMinutes))
	assert.Equal(t, models.AttendanceStatusLate, DetermineStatus("7:30 PM", schedule.Start, schedule.End, schedule.GraceMinutes))
}

func TestSettingsServiceIgnoresInvalidStoredValues(t *testing.T) {
	repo := &mockSettingsRepo{values: map[string]models.Configuration{
		models.SettingGraceMinutes:   {Key: models.SettingGraceMinutes, Value: "abc"},
		models.SettingClassStartTime: {Key: models.SettingClassStartTime, Value: "09:00 AM"},
	}}
	svc := NewSettingsService(repo, nil, nil, testDefaults)

	settings, err := svc.Settings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, settings.GraceMinutes)
	assert.Equal(t, "09:00 AM", settings.ClassStartTime)
}

func TestSettingsServiceStorageErrors(t *testing.T) {
	svc := NewSettingsService(&mockSettingsRepo{listErr: errors.New("io")}, nil, nil, testDefaults)
	_, err := svc.Schedule(context.Background())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrStorage.Code))

	svc = NewSettingsService(&mockSettingsRepo{saveErr: errors.New("io")}, nil, nil, testDefaults)
	_, err = svc.Update(context.Background(), models.SettingGraceMinutes, "10")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrStorage.Code))
}
