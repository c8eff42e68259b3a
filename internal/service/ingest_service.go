package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/recordsync/internal/models"
	appErrors "github.com/noah-isme/recordsync/pkg/errors"
)

// Scan outcomes, used as metric labels.
const (
	ScanCreated   = "created"
	ScanUpdated   = "updated"
	ScanMalformed = "malformed"
	ScanFailed    = "failed"
)

// Scan is one parsed line from the RFID reader.
type Scan struct {
	Name   string
	Number int
	Status string
}

// ParseScan parses "name, number, status".
func ParseScan(line string) (Scan, error) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) != 3 {
		return Scan{}, fmt.Errorf("expected 3 fields, got %d", len(parts))
	}
	name := strings.TrimSpace(parts[0])
	if name == "" {
		return Scan{}, errors.New("empty name")
	}
	number, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || number < 0 {
		return Scan{}, fmt.Errorf("invalid student number %q", strings.TrimSpace(parts[1]))
	}
	return Scan{Name: name, Number: number, Status: strings.TrimSpace(parts[2])}, nil
}

// Present reports whether the scan marks the student present.
func (s Scan) Present() bool {
	return strings.EqualFold(s.Status, string(models.AttendanceStatusPresent))
}

// ProfileImagePath is where a scanned student's photo is expected.
func ProfileImagePath(name string) string {
	return "assets/profiles/" + strings.ReplaceAll(name, " ", "") + ".jpeg"
}

// IngestService applies RFID scans to the record store.
type IngestService struct {
	store   attendanceStore
	cache   *CacheService
	metrics *MetricsService
	hub     *RefreshHub
	logger  *zap.Logger
	now     func() time.Time
}

// NewIngestService constructs the ingest service. cache, metrics and hub
// are optional.
func NewIngestService(store attendanceStore, cache *CacheService, metrics *MetricsService, hub *RefreshHub, logger *zap.Logger) *IngestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestService{store: store, cache: cache, metrics: metrics, hub: hub, logger: logger, now: time.Now}
}

// Apply records scan against the matching student, adding the student when
// the id is unseen. A "present" scan stamps TimeIn and bumps the counter.
func (s *IngestService) Apply(ctx context.Context, scan Scan) (*models.AttendanceRecord, bool, error) {
	id := FormatStudentID(scan.Number)
	timeIn := models.TimeOfDayFrom(s.now()).Short()
	status := normalizeScanStatus(scan.Status)
	if !status.Valid() {
		s.logger.Warn("unknown scan status stored as sent", zap.String("student_id", id), zap.String("status", string(status)))
	}

	var (
		applied models.AttendanceRecord
		created bool
	)
	err := s.store.Mutate(ctx, func(records []models.AttendanceRecord, _ []string) ([]models.AttendanceRecord, error) {
		for i := range records {
			if records[i].ID != id {
				continue
			}
			if scan.Present() {
				records[i].ClassesAttended++
				records[i].TimeIn = timeIn
			}
			records[i].Status = status
			records[i].TimeOut = ""
			applied = records[i]
			return records, nil
		}

		record := models.AttendanceRecord{
			ID:      id,
			Name:    scan.Name,
			Status:  status,
			ImgPath: ProfileImagePath(scan.Name),
		}
		if scan.Present() {
			record.ClassesAttended = 1
			record.TimeIn = timeIn
		}
		created = true
		applied = record
		return append(records, record), nil
	})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, appErrors.ErrStorage.Message)
	}

	if err := s.cache.InvalidateAll(ctx); err != nil {
		s.logger.Warn("invalidate cache after scan", zap.Error(err))
	}
	s.hub.Publish(RefreshEvent{Type: "scan", Updated: 1, At: s.now().UTC()})
	return &applied, created, nil
}

// HandleLine parses and applies one reader line.
func (s *IngestService) HandleLine(ctx context.Context, line string) error {
	scan, err := ParseScan(line)
	if err != nil {
		s.metrics.RecordScan(ScanMalformed)
		s.logger.Warn("bad line received", zap.String("line", line), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "malformed scan line")
	}

	record, created, err := s.Apply(ctx, scan)
	if err != nil {
		s.metrics.RecordScan(ScanFailed)
		s.logger.Error("apply scan failed", zap.String("student_id", FormatStudentID(scan.Number)), zap.Error(err))
		return err
	}
	outcome := ScanUpdated
	if created {
		outcome = ScanCreated
	}
	s.metrics.RecordScan(outcome)
	s.logger.Info("scan applied",
		zap.String("student_id", record.ID),
		zap.String("name", record.Name),
		zap.String("status", string(record.Status)),
		zap.String("outcome", outcome),
	)
	return nil
}

// Consume reads lines from r until EOF or ctx is done. Bad lines are
// logged and skipped.
func (s *IngestService) Consume(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		_ = s.HandleLine(ctx, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read scans: %w", err)
	}
	return nil
}

func normalizeScanStatus(raw string) models.AttendanceStatus {
	for _, status := range []models.AttendanceStatus{
		models.AttendanceStatusPresent,
		models.AttendanceStatusLate,
		models.AttendanceStatusAbsent,
	} {
		if strings.EqualFold(raw, string(status)) {
			return status
		}
	}
	return models.AttendanceStatus(raw)
}
