package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/recordsync/internal/models"
	"github.com/noah-isme/recordsync/internal/repository"
	appErrors "github.com/noah-isme/recordsync/pkg/errors"
)

// Sync triggers, used as metric labels and in refresh events.
const (
	TriggerDirect   = "direct"
	TriggerAPI      = "api"
	TriggerWatcher  = "watcher"
	TriggerSettings = "settings"
	TriggerLogout   = "logout"
	TriggerStartup  = "startup"
)

type attendanceStore interface {
	ReadAll(ctx context.Context) ([]models.AttendanceRecord, []string, error)
	Mutate(ctx context.Context, fn repository.MutateFunc) error
}

// AttendanceService runs status synchronization over the record store and
// serves attendance listings.
type AttendanceService struct {
	store   attendanceStore
	cache   *CacheService
	metrics *MetricsService
	hub     *RefreshHub
	logger  *zap.Logger
	now     func() time.Time
}

// NewAttendanceService constructs the attendance service. cache, metrics
// and hub are optional.
func NewAttendanceService(store attendanceStore, cache *CacheService, metrics *MetricsService, hub *RefreshHub, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{store: store, cache: cache, metrics: metrics, hub: hub, logger: logger, now: time.Now}
}

// UpdateStatuses recomputes every record's status against schedule and
// persists the result in one whole-collection write.
//
// Per-record problems and a failed read or write are reported in
// SyncResult.Errors; the in-memory result is returned either way. The
// error is non-nil only when ctx is already done.
func (s *AttendanceService) UpdateStatuses(ctx context.Context, schedule models.ClassSchedule) (*models.SyncResult, error) {
	return s.sync(ctx, schedule, TriggerDirect)
}

// SyncStudentsData is an alias of UpdateStatuses.
func (s *AttendanceService) SyncStudentsData(ctx context.Context, schedule models.ClassSchedule) (*models.SyncResult, error) {
	return s.UpdateStatuses(ctx, schedule)
}

func (s *AttendanceService) sync(ctx context.Context, schedule models.ClassSchedule, trigger string) (*models.SyncResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	result := models.NewSyncResult(schedule)
	applied := false
	err := s.store.Mutate(ctx, func(records []models.AttendanceRecord, warnings []string) ([]models.AttendanceRecord, error) {
		applied = true
		computed := ApplyStatuses(records, schedule)
		computed.Errors = append(append([]string{}, warnings...), computed.Errors...)
		result = computed
		return records, nil
	})
	if err != nil {
		if applied {
			result.Errors = append(result.Errors, fmt.Sprintf("persist attendance records: %v", err))
		} else {
			result.Errors = append(result.Errors, err.Error())
		}
	}
	result.SyncedAt = s.now().UTC()

	if err := s.cache.InvalidateAll(ctx); err != nil {
		s.logger.Warn("invalidate attendance cache", zap.Error(err))
	}
	s.metrics.ObserveSync(trigger, result, time.Since(start))
	s.hub.Publish(RefreshEvent{
		Type:    "sync",
		Trigger: trigger,
		Updated: result.Updated,
		Errors:  len(result.Errors),
		At:      result.SyncedAt,
	})

	fields := []zap.Field{
		zap.String("trigger", trigger),
		zap.Int("updated", result.Updated),
		zap.Int("errors", len(result.Errors)),
		zap.Duration("duration", time.Since(start)),
	}
	if len(result.Errors) > 0 {
		s.logger.Warn("attendance sync finished with errors", append(fields, zap.Strings("details", result.Errors))...)
	} else {
		s.logger.Info("attendance sync finished", fields...)
	}
	return result, nil
}

// Finalize rewrites the record store unchanged, the pass run when an admin
// logs out.
func (s *AttendanceService) Finalize(ctx context.Context) *models.FinalizeResult {
	result := &models.FinalizeResult{Status: "success", Errors: []string{}}
	err := s.store.Mutate(ctx, func(records []models.AttendanceRecord, _ []string) ([]models.AttendanceRecord, error) {
		result.RecordsFinalized = len(records)
		return records, nil
	})
	if err != nil {
		result.Status = "error"
		result.RecordsFinalized = 0
		result.Errors = append(result.Errors, fmt.Sprintf("logout failed: %v", err))
		s.logger.Error("finalize attendance records", zap.Error(err))
	}
	return result
}

// List returns every attendance record, from cache when possible.
func (s *AttendanceService) List(ctx context.Context) ([]models.AttendanceRecord, error) {
	if cached, hit := s.cache.Attendance(ctx); hit {
		return cached, nil
	}

	records, _, err := s.store.ReadAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, appErrors.ErrStorage.Message)
	}
	if records == nil {
		records = []models.AttendanceRecord{}
	}
	s.cache.PutAttendance(ctx, records)
	return records, nil
}

// FindByName returns the first record whose name matches, ignoring case and
// surrounding whitespace.
func (s *AttendanceService) FindByName(ctx context.Context, name string) (*models.AttendanceRecord, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	if want == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "name is required")
	}
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if strings.ToLower(strings.TrimSpace(records[i].Name)) == want {
			return &records[i], nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
}

// Breakdown counts the current statuses.
func (s *AttendanceService) Breakdown(ctx context.Context) (models.StatusBreakdown, error) {
	records, err := s.List(ctx)
	if err != nil {
		return models.StatusBreakdown{}, err
	}
	var out models.StatusBreakdown
	for _, r := range records {
		switch r.Status {
		case models.AttendanceStatusPresent:
			out.Present++
		case models.AttendanceStatusLate:
			out.Late++
		case models.AttendanceStatusAbsent:
			out.Absent++
		default:
			out.Unsynced++
		}
	}
	return out, nil
}
