package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"auto-repeat/internal/config"
	"auto-repeat/internal/logging"
	"auto-repeat/internal/repository"
	"auto-repeat/internal/service"
)

// app holds the wired components shared by the commands that touch storage.
type app struct {
	cfg         config.Config
	loc         *time.Location
	log         zerolog.Logger
	db          *gorm.DB
	users       *repository.UserRepository
	autoRepeats *service.AutoRepeatService
}

func openApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	// Logs go to stderr so command output stays clean.
	log := logging.NewWithWriter(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}, os.Stderr)

	db, err := repository.NewDB(cfg.DatabaseURL, log)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}

	uow := service.NewGormUnitOfWork(db, cfg.NoCopyFields)
	svc := service.NewAutoRepeatService(uow, service.NewReplicator(log), service.LocalClock(loc), log)

	return &app{
		cfg:         cfg,
		loc:         loc,
		log:         log,
		db:          db,
		users:       repository.NewUserRepository(db),
		autoRepeats: svc,
	}, nil
}

func (a *app) Close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// parseDate reads a YYYY-MM-DD flag value as midnight in loc.
func parseDate(raw string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(raw), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return t, nil
}

func parseOptionalDate(raw string, loc *time.Location) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := parseDate(raw, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.DateOnly)
}
