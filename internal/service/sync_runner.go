package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/recordsync/internal/models"
	"github.com/noah-isme/recordsync/pkg/jobs"
)

const syncJobType = "attendance_sync"

type scheduleSource interface {
	Schedule(ctx context.Context) (models.ClassSchedule, error)
}

type syncJob struct {
	trigger  string
	schedule *models.ClassSchedule
	result   *models.SyncResult
}

// SyncRunner funnels every sync through a one-worker queue so at most one
// sync touches the record store at a time. Failed syncs are not retried.
type SyncRunner struct {
	attendance *AttendanceService
	schedules  scheduleSource
	queue      *jobs.Queue
	logger     *zap.Logger
}

// NewSyncRunner builds the runner. Call Start before Run.
func NewSyncRunner(attendance *AttendanceService, schedules scheduleSource, logger *zap.Logger) *SyncRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &SyncRunner{attendance: attendance, schedules: schedules, logger: logger}
	r.queue = jobs.NewQueue("attendance-sync", r.handle, jobs.QueueConfig{
		Workers:    1,
		BufferSize: 16,
		MaxRetries: 0,
		Logger:     logger,
	})
	return r
}

// Start launches the worker.
func (r *SyncRunner) Start(ctx context.Context) { r.queue.Start(ctx) }

// Stop waits for the in-flight sync, if any, and stops the worker.
func (r *SyncRunner) Stop() { r.queue.Stop() }

// Run syncs with the current saved schedule and waits for the result.
func (r *SyncRunner) Run(ctx context.Context, trigger string) (*models.SyncResult, error) {
	return r.run(ctx, &syncJob{trigger: trigger})
}

// RunWithSchedule syncs with an explicit schedule.
func (r *SyncRunner) RunWithSchedule(ctx context.Context, trigger string, schedule models.ClassSchedule) (*models.SyncResult, error) {
	return r.run(ctx, &syncJob{trigger: trigger, schedule: &schedule})
}

func (r *SyncRunner) run(ctx context.Context, job *syncJob) (*models.SyncResult, error) {
	if err := r.queue.Do(ctx, jobs.Job{Type: syncJobType, Payload: job}); err != nil {
		return nil, err
	}
	return job.result, nil
}

func (r *SyncRunner) handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(*syncJob)
	if !ok {
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}
	schedule := payload.schedule
	if schedule == nil {
		current, err := r.schedules.Schedule(ctx)
		if err != nil {
			return fmt.Errorf("load schedule: %w", err)
		}
		schedule = &current
	}
	result, err := r.attendance.sync(ctx, *schedule, payload.trigger)
	if err != nil {
		return err
	}
	payload.result = result
	return nil
}
