package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/recordsync/internal/models"
	appErrors "github.com/noah-isme/recordsync/pkg/errors"
)

type memCacheRepo struct {
	items map[string][]byte
}

func newMemCacheRepo() *memCacheRepo {
	return &memCacheRepo{items: map[string][]byte{}}
}

func (m *memCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	return nil
}

func (m *memCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.items {
		if strings.HasPrefix(key, prefix) {
			delete(m.items, key)
		}
	}
	return nil
}

func TestComputeQuarterStats(t *testing.T) {
	records := []models.AttendanceRecord{
		{ID: "00-001", ClassesAttended: 60},
		{ID: "00-002", ClassesAttended: 40},
		{ID: "00-003"},
		{ID: "00-004"},
		{ID: "00-005"},
		{ID: "00-006"},
		{ID: "00-007"},
		{ID: "00-008"},
		{ID: "00-009"},
		{ID: "00-010"},
	}

	stats := ComputeQuarterStats(records, 20)
	assert.Equal(t, 10, stats.NumberOfStudents)
	assert.Equal(t, 100, stats.TotalPresent)
	assert.Equal(t, 100, stats.TotalAbsent)
	assert.Equal(t, 50, stats.PresentPercent)
	assert.Equal(t, []models.WeekStat{
		{Label: "W1", Present: 20, Absent: 34},
		{Label: "W2", Present: 25, Absent: 31},
		{Label: "W3", Present: 30, Absent: 28},
		{Label: "W4", Present: 35, Absent: 25},
	}, stats.Weeks)
}

func TestComputeQuarterStatsOverAttendance(t *testing.T) {
	stats := ComputeQuarterStats([]models.AttendanceRecord{{ClassesAttended: 30}}, 20)
	assert.Equal(t, 0, stats.TotalAbsent)
	assert.Equal(t, 100, stats.PresentPercent)
	for _, week := range stats.Weeks {
		assert.Zero(t, week.Absent)
	}
	assert.Equal(t, 10, stats.Weeks[3].Present)
}

func TestComputeQuarterStatsEmptyRoster(t *testing.T) {
	stats := ComputeQuarterStats(nil, 0)
	assert.Zero(t, stats.NumberOfStudents)
	assert.Zero(t, stats.PresentPercent)
	assert.Len(t, stats.Weeks, 4)
}

func TestPresentPercent(t *testing.T) {
	assert.Equal(t, 0, PresentPercent(0, 0))
	assert.Equal(t, 100, PresentPercent(5, 0))
	assert.Equal(t, 0, PresentPercent(0, 5))
	assert.Equal(t, 67, PresentPercent(2, 1))
	assert.Equal(t, 12, PresentPercent(1, 7))
}

func TestDashboardServiceQuarterStatsCaches(t *testing.T) {
	store := &memAttendanceStore{records: []models.AttendanceRecord{{ID: "00-001", ClassesAttended: 5}}}
	settings := stubSettings{settings: models.Settings{ClassesPerQuarter: 10, ClassDurationMinutes: 420}}
	cache := NewCacheService(newMemCacheRepo(), nil, time.Minute, nil)
	svc := NewDashboardService(store, settings, cache, nil, DashboardServiceConfig{})
	ctx := context.Background()

	stats, hit, err := svc.QuarterStats(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 5, stats.TotalPresent)
	assert.Equal(t, 420, stats.ClassDurationMinutes)

	store.records[0].ClassesAttended = 9
	stats, hit, err = svc.QuarterStats(ctx)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 5, stats.TotalPresent)

	require.NoError(t, cache.InvalidateAll(ctx))
	stats, hit, err = svc.QuarterStats(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 9, stats.TotalPresent)
}

func TestDashboardServiceQuarterStatsStoreError(t *testing.T) {
	store := &memAttendanceStore{readErr: errors.New("disk")}
	svc := NewDashboardService(store, stubSettings{settings: testDefaults}, nil, nil, DashboardServiceConfig{})

	_, _, err := svc.QuarterStats(context.Background())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrStorage.Code))
}

func TestDashboardServiceLateThreshold(t *testing.T) {
	settings := stubSettings{settings: models.Settings{ClassStartTime: "08:00 AM", ClassDurationMinutes: 420, GraceMinutes: 15}}
	svc := NewDashboardService(&memAttendanceStore{}, settings, nil, nil, DashboardServiceConfig{})

	threshold, err := svc.LateThreshold(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "08:15 AM", threshold.LateAfter)
	assert.Equal(t, "late after 08:15 AM", threshold.Label)
	assert.Equal(t, "03:00 PM", threshold.ClassEnd)
	assert.Equal(t, 15, threshold.GraceMinutes)
}
