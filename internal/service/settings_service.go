package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/recordsync/internal/dto"
	"github.com/noah-isme/recordsync/internal/models"
	"github.com/noah-isme/recordsync/internal/repository"
	appErrors "github.com/noah-isme/recordsync/pkg/errors"
)

type settingsRepository interface {
	List(ctx context.Context) ([]models.Configuration, error)
	BulkUpsert(ctx context.Context, cfgs []models.Configuration) error
}

type allowedSetting struct {
	Type        models.ConfigurationType
	Description string
	Min, Max    int
	Schedule    bool
}

var allowedSettings = map[string]allowedSetting{
	models.SettingClassStartTime: {
		Type:        models.ConfigurationTypeTime,
		Description: "Time class starts, e.g. 08:00 AM",
		Schedule:    true,
	},
	models.SettingClassDurationMinutes: {
		Type:        models.ConfigurationTypeInteger,
		Description: "Minutes from class start until check-ins count as absent",
		Min:         1,
		Max:         24 * 60,
		Schedule:    true,
	},
	models.SettingClassesPerQuarter: {
		Type:        models.ConfigurationTypeInteger,
		Description: "Classes held per quarter",
		Min:         1,
		Max:         1000,
	},
	models.SettingGraceMinutes: {
		Type:        models.ConfigurationTypeInteger,
		Description: "Minutes after class start a check-in still counts as present",
		Min:         0,
		Max:         24 * 60,
		Schedule:    true,
	},
}

// ScheduleChangeFunc is called after a save that changes the class schedule.
type ScheduleChangeFunc func(ctx context.Context, schedule models.ClassSchedule)

// SettingsService is the single writer of the schedule settings.
type SettingsService struct {
	repo      settingsRepository
	validator *validator.Validate
	logger    *zap.Logger
	defaults  models.Settings

	mu       sync.RWMutex
	onChange ScheduleChangeFunc
}

// NewSettingsService constructs the service. defaults fill in keys that
// were never saved.
func NewSettingsService(repo settingsRepository, validate *validator.Validate, logger *zap.Logger, defaults models.Settings) *SettingsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, ok := models.ParseTimeOfDay(defaults.ClassStartTime); !ok {
		defaults.ClassStartTime = "08:00 AM"
	}
	if defaults.ClassDurationMinutes <= 0 {
		defaults.ClassDurationMinutes = 420
	}
	if defaults.ClassesPerQuarter <= 0 {
		defaults.ClassesPerQuarter = 20
	}
	if defaults.GraceMinutes < 0 {
		defaults.GraceMinutes = DefaultGraceMinutes
	}
	if !defaults.EndsSameDay() {
		logger.Warn("default schedule crosses midnight, using 08:00 AM start",
			zap.String("class_start_time", defaults.ClassStartTime),
			zap.Int("class_duration_minutes", defaults.ClassDurationMinutes))
		defaults.ClassStartTime = "08:00 AM"
		defaults.ClassDurationMinutes = min(defaults.ClassDurationMinutes, 420)
		defaults.GraceMinutes = min(defaults.GraceMinutes, defaults.ClassDurationMinutes)
	}
	return &SettingsService{repo: repo, validator: validate, logger: logger, defaults: defaults}
}

// OnScheduleChange registers fn to run after schedule settings are saved.
func (s *SettingsService) OnScheduleChange(fn ScheduleChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// List returns every known setting, filling in defaults.
func (s *SettingsService) List(ctx context.Context) ([]dto.ConfigurationItem, error) {
	stored, err := s.stored(ctx)
	if err != nil {
		return nil, err
	}
	defaults := configurationMap(s.defaults.Values())

	keys := make([]string, 0, len(allowedSettings))
	for key := range allowedSettings {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	items := make([]dto.ConfigurationItem, 0, len(keys))
	for _, key := range keys {
		meta := allowedSettings[key]
		item := dto.ConfigurationItem{Key: key, Type: string(meta.Type), Description: meta.Description}
		if value, ok := stored[key]; ok {
			item.Value = value
		} else {
			item.Value = defaults[key]
			item.Default = true
		}
		items = append(items, item)
	}
	return items, nil
}

// Settings returns the typed settings. Stored values that no longer
// validate fall back to defaults.
func (s *SettingsService) Settings(ctx context.Context) (models.Settings, error) {
	stored, err := s.stored(ctx)
	if err != nil {
		return models.Settings{}, err
	}
	out := s.defaults
	for key, raw := range stored {
		value, err := normalizeSetting(key, raw)
		if err != nil {
			s.logger.Warn("ignoring invalid stored setting", zap.String("key", key), zap.String("value", raw))
			continue
		}
		applySetting(&out, key, value)
	}
	return out, nil
}

// Schedule returns the class schedule used by the next sync.
func (s *SettingsService) Schedule(ctx context.Context) (models.ClassSchedule, error) {
	settings, err := s.Settings(ctx)
	if err != nil {
		return models.ClassSchedule{}, err
	}
	return settings.Schedule(), nil
}

// Update validates and saves one setting.
func (s *SettingsService) Update(ctx context.Context, key string, value string) (*dto.ConfigurationItem, error) {
	items, err := s.BulkUpdate(ctx, dto.BulkUpdateConfigurationRequest{
		Items: []dto.ConfigurationUpdate{{Key: key, Value: value}},
	})
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

// BulkUpdate validates every item and saves them in one write.
func (s *SettingsService) BulkUpdate(ctx context.Context, req dto.BulkUpdateConfigurationRequest) ([]dto.ConfigurationItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid settings payload")
	}

	rows := make([]models.Configuration, 0, len(req.Items))
	items := make([]dto.ConfigurationItem, 0, len(req.Items))
	scheduleChanged := false
	for _, update := range req.Items {
		key := strings.TrimSpace(update.Key)
		meta, ok := allowedSettings[key]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown setting %q", key))
		}
		value, err := normalizeSetting(key, update.Value)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
		}
		rows = append(rows, models.Configuration{Key: key, Value: value, Type: meta.Type})
		items = append(items, dto.ConfigurationItem{Key: key, Value: value, Type: string(meta.Type), Description: meta.Description})
		scheduleChanged = scheduleChanged || meta.Schedule
	}

	if scheduleChanged {
		merged, err := s.Settings(ctx)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			applySetting(&merged, row.Key, row.Value)
		}
		if !merged.EndsSameDay() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf(
				"class starting %s for %d minutes with %d grace minutes would end after 11:59 PM",
				merged.ClassStartTime, merged.ClassDurationMinutes, merged.GraceMinutes))
		}
	}

	if err := s.repo.BulkUpsert(ctx, rows); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, appErrors.ErrStorage.Message)
	}
	s.logger.Info("settings saved", zap.Int("count", len(rows)))

	if scheduleChanged {
		s.mu.RLock()
		fn := s.onChange
		s.mu.RUnlock()
		if fn != nil {
			schedule, err := s.Schedule(ctx)
			if err != nil {
				s.logger.Warn("load schedule after save", zap.Error(err))
			} else {
				fn(ctx, schedule)
			}
		}
	}
	return items, nil
}

func (s *SettingsService) stored(ctx context.Context) (map[string]string, error) {
	rows, err := s.repo.List(ctx)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, appErrors.ErrStorage.Message)
	}
	values := make(map[string]string, len(rows))
	for _, row := range rows {
		if _, ok := allowedSettings[row.Key]; ok {
			values[row.Key] = row.Value
		}
	}
	return values, nil
}

func normalizeSetting(key, raw string) (string, error) {
	meta, ok := allowedSettings[key]
	if !ok {
		return "", fmt.Errorf("unknown setting %q", key)
	}
	raw = strings.TrimSpace(raw)
	switch meta.Type {
	case models.ConfigurationTypeTime:
		t, ok := models.ParseTimeOfDay(raw)
		if !ok {
			return "", fmt.Errorf("%s must look like 08:00 AM", key)
		}
		return t.Format(), nil
	case models.ConfigurationTypeInteger:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return "", fmt.Errorf("%s must be a whole number", key)
		}
		if n < meta.Min || n > meta.Max {
			return "", fmt.Errorf("%s must be between %d and %d", key, meta.Min, meta.Max)
		}
		return strconv.Itoa(n), nil
	default:
		return raw, nil
	}
}

func applySetting(settings *models.Settings, key, value string) {
	switch key {
	case models.SettingClassStartTime:
		settings.ClassStartTime = value
	case models.SettingClassDurationMinutes:
		settings.ClassDurationMinutes, _ = strconv.Atoi(value)
	case models.SettingClassesPerQuarter:
		settings.ClassesPerQuarter, _ = strconv.Atoi(value)
	case models.SettingGraceMinutes:
		settings.GraceMinutes, _ = strconv.Atoi(value)
	}
}

func configurationMap(rows []models.Configuration) map[string]string {
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out
}
