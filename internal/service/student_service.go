package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/recordsync/internal/models"
	"github.com/noah-isme/recordsync/internal/repository"
	appErrors "github.com/noah-isme/recordsync/pkg/errors"
)

const defaultPlaceholderPhoto = "/assets/placeholder.png"

type photoStore interface {
	SavePhoto(ctx context.Context, filename string, r io.Reader) (string, error)
}

type settingsReader interface {
	Settings(ctx context.Context) (models.Settings, error)
}

// CreateStudentRequest holds payload for enrolling a student.
type CreateStudentRequest struct {
	Name     string `json:"name" validate:"required"`
	Attended int    `json:"attended" validate:"min=0"`
}

// UpdateStudentRequest holds payload for editing a student. Nil fields are
// left unchanged.
type UpdateStudentRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1"`
	Attended *int    `json:"attended" validate:"omitempty,min=0"`
}

// StudentService manages the roster stored alongside attendance records.
type StudentService struct {
	store       attendanceStore
	photos      photoStore
	settings    settingsReader
	cache       *CacheService
	hub         *RefreshHub
	validator   *validator.Validate
	logger      *zap.Logger
	placeholder string
}

// NewStudentService constructs the student service.
func NewStudentService(store attendanceStore, photos photoStore, settings settingsReader, cache *CacheService, hub *RefreshHub, validate *validator.Validate, logger *zap.Logger, placeholder string) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if placeholder == "" {
		placeholder = defaultPlaceholderPhoto
	}
	return &StudentService{
		store:       store,
		photos:      photos,
		settings:    settings,
		cache:       cache,
		hub:         hub,
		validator:   validate,
		logger:      logger,
		placeholder: placeholder,
	}
}

// List returns a page of students whose name contains filter.Search.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	records, _, err := s.store.ReadAll(ctx)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, appErrors.ErrStorage.Message)
	}
	total := s.classesTotal(ctx)

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matched := make([]models.Student, 0, len(records))
	for _, record := range records {
		if search != "" && !strings.Contains(strings.ToLower(record.Name), search) {
			continue
		}
		matched = append(matched, s.toStudent(record, total))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: len(matched)}

	start := (page - 1) * size
	if start >= len(matched) {
		return []models.Student{}, pagination, nil
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], pagination, nil
}

// Get returns one student by id.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	records, _, err := s.store.ReadAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, appErrors.ErrStorage.Message)
	}
	for _, record := range records {
		if record.ID == id {
			student := s.toStudent(record, s.classesTotal(ctx))
			return &student, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
}

// Create enrolls a student under the next free id.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "name is required")
	}

	var created models.AttendanceRecord
	err := s.store.Mutate(ctx, func(records []models.AttendanceRecord, _ []string) ([]models.AttendanceRecord, error) {
		created = models.AttendanceRecord{
			ID:              NextStudentID(records),
			Name:            name,
			ClassesAttended: req.Attended,
		}
		return append(records, created), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, appErrors.ErrStorage.Message)
	}

	s.changed(ctx, "student_created", created.ID)
	student := s.toStudent(created, s.classesTotal(ctx))
	return &student, nil
}

// Update edits name and attended count.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "name is required")
	}

	updated, err := s.mutateOne(ctx, id, func(record *models.AttendanceRecord) error {
		if req.Name != nil {
			record.Name = strings.TrimSpace(*req.Name)
		}
		if req.Attended != nil {
			record.ClassesAttended = *req.Attended
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.changed(ctx, "student_updated", id)
	student := s.toStudent(*updated, s.classesTotal(ctx))
	return &student, nil
}

// Delete removes a student from the roster.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	err := s.store.Mutate(ctx, func(records []models.AttendanceRecord, _ []string) ([]models.AttendanceRecord, error) {
		kept := make([]models.AttendanceRecord, 0, len(records))
		for _, record := range records {
			if record.ID != id {
				kept = append(kept, record)
			}
		}
		if len(kept) == len(records) {
			return nil, repository.ErrNotFound
		}
		return kept, nil
	})
	if err != nil {
		return s.mapStoreError(err)
	}
	s.changed(ctx, "student_deleted", id)
	return nil
}

// UploadPhoto stores a profile photo and points the student at it.
func (s *StudentService) UploadPhoto(ctx context.Context, id string, filename string, body io.Reader) (*models.Student, error) {
	if s.photos == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "photo storage not configured")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	ext := strings.ToLower(path.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "photo must be a jpg, png, gif or webp image")
	}

	location, err := s.photos.SavePhoto(ctx, filename, body)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to store photo")
	}

	updated, err := s.mutateOne(ctx, id, func(record *models.AttendanceRecord) error {
		record.ImgPath = location
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.changed(ctx, "student_updated", id)
	student := s.toStudent(*updated, s.classesTotal(ctx))
	return &student, nil
}

func (s *StudentService) mutateOne(ctx context.Context, id string, edit func(*models.AttendanceRecord) error) (*models.AttendanceRecord, error) {
	var updated models.AttendanceRecord
	err := s.store.Mutate(ctx, func(records []models.AttendanceRecord, _ []string) ([]models.AttendanceRecord, error) {
		for i := range records {
			if records[i].ID != id {
				continue
			}
			if err := edit(&records[i]); err != nil {
				return nil, err
			}
			updated = records[i]
			return records, nil
		}
		return nil, repository.ErrNotFound
	})
	if err != nil {
		return nil, s.mapStoreError(err)
	}
	return &updated, nil
}

func (s *StudentService) mapStoreError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, appErrors.ErrStorage.Message)
}

func (s *StudentService) changed(ctx context.Context, event, id string) {
	if err := s.cache.InvalidateAll(ctx); err != nil {
		s.logger.Warn("invalidate roster cache", zap.Error(err))
	}
	s.hub.Publish(RefreshEvent{Type: event})
	s.logger.Info("roster changed", zap.String("event", event), zap.String("student_id", id))
}

func (s *StudentService) classesTotal(ctx context.Context) int {
	if s.settings != nil {
		if settings, err := s.settings.Settings(ctx); err == nil && settings.ClassesPerQuarter > 0 {
			return settings.ClassesPerQuarter
		}
	}
	return 20
}

func (s *StudentService) toStudent(record models.AttendanceRecord, classesTotal int) models.Student {
	return models.Student{
		ID:           record.ID,
		Name:         record.Name,
		Photo:        s.resolvePhoto(record.ImgPath),
		Attended:     record.ClassesAttended,
		ClassesTotal: classesTotal,
	}
}

// resolvePhoto turns a stored image reference into a web path.
func (s *StudentService) resolvePhoto(img string) string {
	if img == "" {
		return s.placeholder
	}
	if strings.Contains(img, "://") {
		return img
	}
	p := strings.ReplaceAll(img, "\\", "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// NextStudentID returns "00-NNN" where NNN is one more than the largest
// number formed by the digits of any existing id.
func NextStudentID(records []models.AttendanceRecord) string {
	maxNum := 0
	for _, record := range records {
		digits := strings.Map(func(r rune) rune {
			if unicode.IsDigit(r) {
				return r
			}
			return -1
		}, record.ID)
		if digits == "" {
			continue
		}
		if n, err := strconv.Atoi(digits); err == nil && n > maxNum {
			maxNum = n
		}
	}
	return FormatStudentID(maxNum + 1)
}

// FormatStudentID renders a numeric id the way the roster stores it.
func FormatStudentID(n int) string {
	return fmt.Sprintf("00-%03d", n)
}
