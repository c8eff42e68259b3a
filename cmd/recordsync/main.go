package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/recordsync/api/swagger"
	"github.com/noah-isme/recordsync/internal/handler"
	"github.com/noah-isme/recordsync/internal/models"
	"github.com/noah-isme/recordsync/internal/repository"
	"github.com/noah-isme/recordsync/internal/service"
	"github.com/noah-isme/recordsync/internal/watcher"
	"github.com/noah-isme/recordsync/pkg/cache"
	"github.com/noah-isme/recordsync/pkg/config"
	"github.com/noah-isme/recordsync/pkg/logger"
	"github.com/noah-isme/recordsync/pkg/storage"
)

// @title RecordSync API
// @version 1.0.0
// @description RFID attendance records, class schedule settings and quarter analytics
// @BasePath /api/v1
// @schemes http

const profilesWebRoot = "/assets/profiles"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := repository.OpenAttendanceStore(ctx, cfg)
	if err != nil {
		logr.Sugar().Fatalw("failed to open record store", "driver", cfg.Data.StoreDriver, "error", err)
	}
	defer closeStore() //nolint:errcheck

	metrics := service.NewMetricsService()
	hub := service.NewRefreshHub(16)
	validate := validator.New()

	var (
		redisClient *redis.Client
		cacheSvc    *service.CacheService
	)
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr)
		}
	}

	photos, err := openPhotoStore(ctx, cfg)
	if err != nil {
		logr.Sugar().Fatalw("failed to init photo storage", "backend", cfg.Photos.Backend, "error", err)
	}

	exportFiles, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "dir", cfg.Exports.StorageDir, "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	settingsSvc := service.NewSettingsService(
		repository.NewSettingsRepository(cfg.Data.SettingsPath()),
		validate,
		logr,
		models.Settings{
			ClassStartTime:       cfg.Attendance.ClassStartTime,
			ClassDurationMinutes: cfg.Attendance.ClassDurationMinutes,
			ClassesPerQuarter:    cfg.Attendance.ClassesPerQuarter,
			GraceMinutes:         cfg.Attendance.GraceMinutes,
		},
	)
	attendanceSvc := service.NewAttendanceService(store, cacheSvc, metrics, hub, logr)
	runner := service.NewSyncRunner(attendanceSvc, settingsSvc, logr)
	authSvc := service.NewAuthService(
		repository.NewAdminRepository(cfg.Data.AdminPath()),
		runner,
		attendanceSvc,
		validate,
		logr,
		service.AuthConfig{
			AccessTokenSecret: cfg.JWT.Secret,
			AccessTokenExpiry: cfg.JWT.Expiration,
			Issuer:            cfg.JWT.Issuer,
			HashPasswords:     cfg.Auth.HashPasswords,
		},
	)
	studentSvc := service.NewStudentService(store, photos, settingsSvc, cacheSvc, hub, validate, logr, cfg.Data.PlaceholderPhoto)
	dashboardSvc := service.NewDashboardService(store, settingsSvc, cacheSvc, logr, service.DashboardServiceConfig{CacheTTL: cfg.Cache.TTL})
	exportSvc := service.NewExportService(store, exportFiles, signer, metrics, validate, logr, service.ExportConfig{
		APIPrefix:       cfg.APIPrefix,
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
		Workers:         1,
		MaxRetries:      1,
	})

	runner.Start(ctx)
	defer runner.Stop()
	exportSvc.Start(ctx)
	defer exportSvc.Stop()

	settingsSvc.OnScheduleChange(func(ctx context.Context, schedule models.ClassSchedule) {
		if _, err := runner.RunWithSchedule(ctx, service.TriggerSettings, schedule); err != nil {
			logr.Warn("settings sync failed", zap.Error(err))
		}
	})

	if result, err := runner.Run(ctx, service.TriggerStartup); err != nil {
		logr.Warn("startup sync failed", zap.Error(err))
	} else {
		logr.Info("startup sync finished", zap.Int("updated", result.Updated), zap.Int("errors", len(result.Errors)))
	}

	if stamper, ok := store.(watcher.WriteStamper); ok && cfg.Watcher.Enabled {
		w := watcher.New(cfg.Data.StudentsPath(), runner, stamper, cfg.Watcher, logr)
		if err := w.Start(ctx); err != nil {
			logr.Warn("record watcher not started", zap.Error(err))
		} else {
			defer w.Stop()
		}
	}

	checks := map[string]handler.ReadinessCheck{
		"store": func(ctx context.Context) error {
			_, _, err := store.ReadAll(ctx)
			return err
		},
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	routerCfg := handler.RouterConfig{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	}
	if cfg.Photos.Backend != config.PhotoS3 {
		routerCfg.ProfilesDir = cfg.Data.ProfilesDir
	}
	r := handler.NewRouter(routerCfg, handler.Handlers{
		Auth:       handler.NewAuthHandler(authSvc),
		Attendance: handler.NewAttendanceHandler(attendanceSvc, runner, hub),
		Students:   handler.NewStudentHandler(studentSvc),
		Settings:   handler.NewSettingsHandler(settingsSvc),
		Dashboard:  handler.NewDashboardHandler(dashboardSvc),
		Exports:    handler.NewExportHandler(exportSvc),
		Metrics:    handler.NewMetricsHandler(metrics, checks),
	}, authSvc, metrics, logr)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "store", cfg.Data.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}

type photoSaver interface {
	SavePhoto(ctx context.Context, filename string, r io.Reader) (string, error)
}

func openPhotoStore(ctx context.Context, cfg *config.Config) (photoSaver, error) {
	if cfg.Photos.Backend == config.PhotoS3 {
		return storage.NewS3PhotoStore(ctx, storage.S3Options{
			Bucket:    cfg.Photos.S3Bucket,
			Region:    cfg.Photos.S3Region,
			Prefix:    cfg.Photos.S3Prefix,
			PublicURL: cfg.Photos.S3URL,
			Endpoint:  cfg.Photos.S3Endpoint,
			AccessKey: cfg.Photos.S3AccessKey,
			SecretKey: cfg.Photos.S3SecretKey,
		})
	}
	return storage.NewLocalPhotoStore(cfg.Data.ProfilesDir, profilesWebRoot)
}
