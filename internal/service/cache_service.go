package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/recordsync/internal/models"
	appErrors "github.com/noah-isme/recordsync/pkg/errors"
)

// Every key starts with cacheKeyPrefix so a sync can drop them with one
// pattern.
const (
	cacheKeyPrefix     = "recordsync:"
	cacheKeyAttendance = cacheKeyPrefix + "attendance:all"
	cacheKeyQuarter    = cacheKeyPrefix + "dashboard:quarter"
	cacheKeyThreshold  = cacheKeyPrefix + "dashboard:threshold"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService caches the read views derived from the record store: the
// attendance table, quarter stats and the late threshold banner. A nil
// *CacheService is valid and never hits.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
}

// NewCacheService constructs a cache service. Entries without an explicit
// TTL expire after defaultTTL.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger}
}

// Attendance returns the cached attendance table.
func (s *CacheService) Attendance(ctx context.Context) ([]models.AttendanceRecord, bool) {
	var records []models.AttendanceRecord
	if !s.lookup(ctx, cacheKeyAttendance, &records) {
		return nil, false
	}
	return records, true
}

// PutAttendance caches the attendance table until the next invalidation or
// the default TTL.
func (s *CacheService) PutAttendance(ctx context.Context, records []models.AttendanceRecord) {
	s.store(ctx, cacheKeyAttendance, records, 0)
}

// Quarter returns cached quarter stats computed under settings. Stats
// computed under other settings are never returned.
func (s *CacheService) Quarter(ctx context.Context, settings models.Settings) (*models.QuarterStats, bool) {
	var stats models.QuarterStats
	if !s.lookup(ctx, quarterKey(settings), &stats) {
		return nil, false
	}
	return &stats, true
}

// PutQuarter caches quarter stats for settings.
func (s *CacheService) PutQuarter(ctx context.Context, settings models.Settings, stats *models.QuarterStats, ttl time.Duration) {
	s.store(ctx, quarterKey(settings), stats, ttl)
}

// Threshold returns the cached late threshold banner.
func (s *CacheService) Threshold(ctx context.Context) (*models.LateThreshold, bool) {
	var threshold models.LateThreshold
	if !s.lookup(ctx, cacheKeyThreshold, &threshold) {
		return nil, false
	}
	return &threshold, true
}

// PutThreshold caches the late threshold banner.
func (s *CacheService) PutThreshold(ctx context.Context, threshold *models.LateThreshold, ttl time.Duration) {
	s.store(ctx, cacheKeyThreshold, threshold, ttl)
}

// InvalidateAll drops every cached view. Called after any write to the
// record store or the settings.
func (s *CacheService) InvalidateAll(ctx context.Context) error {
	if !s.enabled() {
		return nil
	}
	if err := s.repo.DeleteByPattern(ctx, cacheKeyPrefix+"*"); err != nil {
		s.logger.Warn("cache invalidate failed", zap.Error(err))
		return err
	}
	return nil
}

func (s *CacheService) enabled() bool {
	return s != nil && s.repo != nil
}

// lookup fills dest and reports a hit. Backend errors count as misses.
func (s *CacheService) lookup(ctx context.Context, key string, dest interface{}) bool {
	if !s.enabled() {
		return false
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	}
	return err == nil
}

func (s *CacheService) store(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if !s.enabled() {
		return
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

func quarterKey(settings models.Settings) string {
	return fmt.Sprintf("%s:%d:%d", cacheKeyQuarter, settings.ClassesPerQuarter, settings.ClassDurationMinutes)
}
