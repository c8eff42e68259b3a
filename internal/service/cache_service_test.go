package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/recordsync/internal/models"
)

type brokenCacheRepo struct{}

func (brokenCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	return errors.New("connection reset")
}

func (brokenCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return errors.New("connection reset")
}

func (brokenCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	return errors.New("connection reset")
}

func TestCacheServiceNilNeverHits(t *testing.T) {
	var cache *CacheService
	ctx := context.Background()

	cache.PutAttendance(ctx, []models.AttendanceRecord{{ID: "00-001"}})
	_, hit := cache.Attendance(ctx)
	assert.False(t, hit)
	assert.NoError(t, cache.InvalidateAll(ctx))
}

func TestCacheServiceAttendance(t *testing.T) {
	metrics := NewMetricsService()
	cache := NewCacheService(newMemCacheRepo(), metrics, time.Minute, nil)
	ctx := context.Background()

	_, hit := cache.Attendance(ctx)
	assert.False(t, hit)

	cache.PutAttendance(ctx, []models.AttendanceRecord{{ID: "00-001", Name: "Ana", Status: models.AttendanceStatusLate}})
	records, hit := cache.Attendance(ctx)
	require.True(t, hit)
	require.Len(t, records, 1)
	assert.Equal(t, models.AttendanceStatusLate, records[0].Status)

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(1), snapshot.CacheMisses)
}

func TestCacheServiceQuarterKeyedBySettings(t *testing.T) {
	cache := NewCacheService(newMemCacheRepo(), nil, time.Minute, nil)
	ctx := context.Background()
	twenty := models.Settings{ClassesPerQuarter: 20, ClassDurationMinutes: 420}
	thirty := models.Settings{ClassesPerQuarter: 30, ClassDurationMinutes: 420}

	cache.PutQuarter(ctx, twenty, &models.QuarterStats{NumberOfStudents: 4}, 0)

	stats, hit := cache.Quarter(ctx, twenty)
	require.True(t, hit)
	assert.Equal(t, 4, stats.NumberOfStudents)

	_, hit = cache.Quarter(ctx, thirty)
	assert.False(t, hit)
}

func TestCacheServiceInvalidateAll(t *testing.T) {
	cache := NewCacheService(newMemCacheRepo(), nil, time.Minute, nil)
	ctx := context.Background()

	cache.PutAttendance(ctx, []models.AttendanceRecord{})
	cache.PutThreshold(ctx, &models.LateThreshold{LateAfter: "08:05 AM"}, 0)
	require.NoError(t, cache.InvalidateAll(ctx))

	_, hit := cache.Attendance(ctx)
	assert.False(t, hit)
	_, hit = cache.Threshold(ctx)
	assert.False(t, hit)
}

func TestCacheServiceBackendErrorsAreMisses(t *testing.T) {
	cache := NewCacheService(brokenCacheRepo{}, nil, time.Minute, nil)
	ctx := context.Background()

	cache.PutThreshold(ctx, &models.LateThreshold{}, 0)
	_, hit := cache.Threshold(ctx)
	assert.False(t, hit)
	assert.Error(t, cache.InvalidateAll(ctx))
}
