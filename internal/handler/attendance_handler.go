package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/recordsync/internal/models"
	"github.com/noah-isme/recordsync/internal/service"
	appErrors "github.com/noah-isme/recordsync/pkg/errors"
	"github.com/noah-isme/recordsync/pkg/response"
)

type attendanceService interface {
	List(ctx context.Context) ([]models.AttendanceRecord, error)
	FindByName(ctx context.Context, name string) (*models.AttendanceRecord, error)
	Breakdown(ctx context.Context) (models.StatusBreakdown, error)
}

type syncRunner interface {
	Run(ctx context.Context, trigger string) (*models.SyncResult, error)
}

type refreshSubscriber interface {
	Subscribe() (<-chan service.RefreshEvent, func())
}

// AttendanceHandler serves the attendance table, manual syncs and the
// refresh event stream.
type AttendanceHandler struct {
	service   attendanceService
	runner    syncRunner
	hub       refreshSubscriber
	keepAlive time.Duration
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(svc attendanceService, runner syncRunner, hub refreshSubscriber) *AttendanceHandler {
	return &AttendanceHandler{service: svc, runner: runner, hub: hub, keepAlive: 15 * time.Second}
}

// List godoc
// @Summary List attendance records
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	records, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil, map[string]interface{}{"count": len(records)})
}

// Search godoc
// @Summary Find a student's attendance by name
// @Tags Attendance
// @Produce json
// @Param name query string true "Student name"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /attendance/search [get]
func (h *AttendanceHandler) Search(c *gin.Context) {
	record, err := h.service.FindByName(c.Request.Context(), c.Query("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Breakdown godoc
// @Summary Count today's statuses
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance/breakdown [get]
func (h *AttendanceHandler) Breakdown(c *gin.Context) {
	breakdown, err := h.service.Breakdown(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, breakdown, nil)
}

// Sync godoc
// @Summary Recompute attendance statuses
// @Description Runs a sync with the saved schedule and returns its result
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance/sync [post]
func (h *AttendanceHandler) Sync(c *gin.Context) {
	result, err := h.runner.Run(c.Request.Context(), service.TriggerAPI)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "sync could not run"))
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Events godoc
// @Summary Attendance refresh stream
// @Description Server-sent events emitted after every sync or roster change
// @Tags Attendance
// @Produce text/event-stream
// @Router /attendance/events [get]
func (h *AttendanceHandler) Events(c *gin.Context) {
	events, cancel := h.hub.Subscribe()
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("ready", gin.H{"at": time.Now().UTC()})
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()
	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case event, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("refresh", event)
			return true
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		}
	})
}
