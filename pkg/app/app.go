// Package app assembles the storage, engine and HTTP layers from a Config.
package app

import (
	"context"
	"fmt"

	"github.com/arnavshah/staff-calendar-api-go/pkg/auth"
	"github.com/arnavshah/staff-calendar-api-go/pkg/config"
	"github.com/arnavshah/staff-calendar-api-go/pkg/database"
	"github.com/arnavshah/staff-calendar-api-go/pkg/handlers"
	"github.com/arnavshah/staff-calendar-api-go/pkg/logger"
	"github.com/arnavshah/staff-calendar-api-go/pkg/metrics"
	"github.com/arnavshah/staff-calendar-api-go/pkg/scheduler"
	"github.com/arnavshah/staff-calendar-api-go/pkg/seed"
	"github.com/arnavshah/staff-calendar-api-go/pkg/sources"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// App holds the wired components of a running calendar service
type App struct {
	Config    config.Config
	Logger    *log.Logger
	DB        *gorm.DB
	Store     *database.Store
	Registry  *sources.Registry
	Scheduler *scheduler.Scheduler
	Auth      *auth.Auth
	Metrics   *metrics.Prometheus
}

// New opens the database, runs migrations and wires the engine
func New(cfg config.Config) (*App, error) {
	l, err := logger.New(logger.Config{Debug: cfg.LogDebug, Dir: cfg.LogDir})
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		return nil, err
	}

	store := database.NewStore(db)
	registry := database.NewRegistry()
	prom := metrics.NewPrometheus(nil, "calendar")

	return &App{
		Config:    cfg,
		Logger:    l,
		DB:        db,
		Store:     store,
		Registry:  registry,
		Scheduler: scheduler.NewScheduler(store, registry, scheduler.WithLogger(l), scheduler.WithMetrics(prom)),
		Auth:      auth.New(cfg),
		Metrics:   prom,
	}, nil
}

// Bootstrap creates the first admin and applies SEED_FILE when configured
func (a *App) Bootstrap(ctx context.Context) error {
	created, err := auth.EnsureAdminExists(a.DB, a.Config.AdminUsername, a.Config.AdminPassword)
	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}
	if created {
		a.Logger.Info("created admin user", "username", a.Config.AdminUsername)
	}

	if a.Config.SeedFile == "" {
		return nil
	}
	_, err = a.Seed(ctx, a.Config.SeedFile)
	return err
}

// Seed applies a seed file, or the embedded default when path is empty
func (a *App) Seed(ctx context.Context, path string) (*seed.Report, error) {
	f, err := seed.Load(path)
	if err != nil {
		return nil, err
	}
	s := &seed.Seeder{Store: a.Store, Scheduler: a.Scheduler, Logger: a.Logger}
	rep, err := s.Apply(ctx, f)
	if err != nil {
		return rep, err
	}
	a.Logger.Info("seed applied", "file", path, "states", rep.States, "shifts", rep.Shifts,
		"people", rep.People, "assignments", rep.Assignments, "skipped", len(rep.Skipped))
	return rep, nil
}

// Router builds the HTTP engine
func (a *App) Router() *gin.Engine {
	return handlers.NewRouter(&handlers.Handler{
		Store:     a.Store,
		Scheduler: a.Scheduler,
		Registry:  a.Registry,
		Auth:      a.Auth,
		Config:    a.Config,
		Metrics:   a.Metrics,
		Logger:    a.Logger,
	})
}
