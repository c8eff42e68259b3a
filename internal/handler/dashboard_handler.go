package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/recordsync/internal/middleware"
	"github.com/noah-isme/recordsync/internal/models"
	appErrors "github.com/noah-isme/recordsync/pkg/errors"
	"github.com/noah-isme/recordsync/pkg/response"
)

type dashboardService interface {
	QuarterStats(ctx context.Context) (*models.QuarterStats, bool, error)
	LateThreshold(ctx context.Context) (*models.LateThreshold, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Quarter godoc
// @Summary Quarter analytics
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/quarter [get]
func (h *DashboardHandler) Quarter(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	stats, cacheHit, err := h.service.QuarterStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}

// Threshold godoc
// @Summary Late threshold banner
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/threshold [get]
func (h *DashboardHandler) Threshold(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	threshold, err := h.service.LateThreshold(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, threshold, nil)
}
