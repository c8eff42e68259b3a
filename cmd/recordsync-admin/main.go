package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/recordsync/internal/models"
	"github.com/noah-isme/recordsync/internal/repository"
	"github.com/noah-isme/recordsync/internal/service"
	"github.com/noah-isme/recordsync/pkg/config"
	"github.com/noah-isme/recordsync/pkg/logger"
)

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

	ctx := context.Background()
	store, closeStore, err := repository.OpenAttendanceStore(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open record store: %v", err)
	}
	defer closeStore() //nolint:errcheck

	validate := validator.New()
	settings := service.NewSettingsService(
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
	auth := service.NewAuthService(
		repository.NewAdminRepository(cfg.Data.AdminPath()),
		nil,
		nil,
		validate,
		logr,
		service.AuthConfig{
			AccessTokenSecret: cfg.JWT.Secret,
			AccessTokenExpiry: cfg.JWT.Expiration,
			Issuer:            cfg.JWT.Issuer,
			HashPasswords:     cfg.Auth.HashPasswords,
		},
	)
	attendance := service.NewAttendanceService(store, nil, nil, nil, logr)

	cli := &commandLine{auth: auth, sync: attendance, schedules: settings, out: os.Stdout}
	if err := cli.run(ctx, os.Args); err != nil {
		if errors.Is(err, errHelp) {
			os.Exit(2)
		}
		log.Fatalf("error: %v", err)
	}
}
