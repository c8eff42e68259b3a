package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/recordsync/internal/repository"
	"github.com/noah-isme/recordsync/internal/service"
	"github.com/noah-isme/recordsync/pkg/cache"
	"github.com/noah-isme/recordsync/pkg/config"
	"github.com/noah-isme/recordsync/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var (
		port        string
		baud        int
		fromStdin   bool
		metricsAddr string
		retry       time.Duration
	)
	flag.StringVar(&port, "port", cfg.Serial.Port, "Serial port of the RFID reader")
	flag.IntVar(&baud, "baud", cfg.Serial.BaudRate, "Serial baud rate")
	flag.BoolVar(&fromStdin, "stdin", false, "Read scan lines from stdin instead of the serial port")
	flag.StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9101")
	flag.DurationVar(&retry, "retry", 5*time.Second, "Delay before reopening the serial port")
	flag.Parse()

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := repository.OpenAttendanceStore(ctx, cfg)
	if err != nil {
		logr.Sugar().Fatalw("failed to open record store", "driver", cfg.Data.StoreDriver, "error", err)
	}
	defer closeStore() //nolint:errcheck

	metrics := service.NewMetricsService()
	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, scans will not invalidate the cache", "error", err)
		} else {
			defer client.Close()
			cacheSvc = service.NewCacheService(repository.NewCacheRepository(client, logr), metrics, cfg.Cache.TTL, logr)
		}
	}

	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logr.Warn("metrics server failed", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	ingest := service.NewIngestService(store, cacheSvc, metrics, nil, logr)

	if fromStdin {
		logr.Info("reading scans from stdin")
		if err := ingest.Consume(ctx, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
			logr.Sugar().Fatalw("ingest failed", "error", err)
		}
		return
	}

	reader := &serialReader{
		port:     port,
		baud:     baud,
		open:     openSerial,
		consumer: ingest,
		retry:    retry,
		logger:   logr,
	}
	if err := reader.run(ctx); err != nil {
		logr.Sugar().Fatalw("serial reader failed", "error", err)
	}
	logr.Info("rfid ingest stopped")
}
