package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/recordsync/internal/middleware"
	"github.com/noah-isme/recordsync/internal/service"
	"github.com/noah-isme/recordsync/pkg/logger"
	corsmiddleware "github.com/noah-isme/recordsync/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/recordsync/pkg/middleware/requestid"
)

// RouterConfig carries the HTTP surface settings.
type RouterConfig struct {
	APIPrefix      string
	AllowedOrigins []string
	// ProfilesDir is served under /assets/profiles when photos are stored
	// locally. Empty disables the route.
	ProfilesDir string
}

// Handlers groups every handler mounted by NewRouter.
type Handlers struct {
	Auth       *AuthHandler
	Attendance *AttendanceHandler
	Students   *StudentHandler
	Settings   *SettingsHandler
	Dashboard  *DashboardHandler
	Exports    *ExportHandler
	Metrics    *MetricsHandler
}

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(cfg RouterConfig, h Handlers, tokens middleware.TokenValidator, metrics *service.MetricsService, logr *zap.Logger) *gin.Engine {
	if logr == nil {
		logr = zap.NewNop()
	}
	prefix := cfg.APIPrefix
	if prefix == "" {
		prefix = "/api/v1"
	}
	eventsPath := prefix + "/attendance/events"

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, eventsPath, "/metrics"))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if cfg.ProfilesDir != "" {
		r.Static("/assets/profiles", cfg.ProfilesDir)
	}

	api := r.Group(prefix)
	api.Use(middleware.WithResponseMeta())

	auth := api.Group("/auth")
	auth.POST("/login", h.Auth.Login)
	auth.POST("/signup", h.Auth.Signup)
	// Downloads carry their own signed token.
	api.GET("/exports/download/:token", h.Exports.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(tokens))
	secured.POST("/auth/logout", middleware.Audit(logr, "logout"), h.Auth.Logout)
	secured.GET("/auth/me", h.Auth.Me)

	attendance := secured.Group("/attendance")
	attendance.GET("", h.Attendance.List)
	attendance.GET("/search", h.Attendance.Search)
	attendance.GET("/breakdown", h.Attendance.Breakdown)
	attendance.GET("/events", h.Attendance.Events)
	attendance.POST("/sync", middleware.Audit(logr, "attendance.sync"), h.Attendance.Sync)

	students := secured.Group("/students")
	students.GET("", h.Students.List)
	students.GET("/:id", h.Students.Get)
	students.POST("", middleware.Audit(logr, "student.create"), h.Students.Create)
	students.PUT("/:id", middleware.Audit(logr, "student.update"), h.Students.Update)
	students.DELETE("/:id", middleware.Audit(logr, "student.delete"), h.Students.Delete)
	students.POST("/:id/photo", middleware.Audit(logr, "student.photo"), h.Students.UploadPhoto)

	settings := secured.Group("/settings")
	settings.GET("", h.Settings.List)
	settings.GET("/schedule", h.Settings.Schedule)
	settings.PUT("", middleware.Audit(logr, "settings.bulk_update"), h.Settings.BulkUpdate)
	settings.PUT("/:key", middleware.Audit(logr, "settings.update"), h.Settings.Update)

	dashboard := secured.Group("/dashboard")
	dashboard.GET("/quarter", h.Dashboard.Quarter)
	dashboard.GET("/threshold", h.Dashboard.Threshold)

	exports := secured.Group("/exports")
	exports.POST("", middleware.Audit(logr, "export.create"), h.Exports.Create)
	exports.GET("/:id", h.Exports.Status)

	secured.GET("/metrics/summary", h.Metrics.Summary)

	return r
}
