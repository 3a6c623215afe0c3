package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/coachflow-backend/internal/catalog"
	"github.com/yungbote/coachflow-backend/internal/data/db"
	apihttp "github.com/yungbote/coachflow-backend/internal/http"
	"github.com/yungbote/coachflow-backend/internal/jobs/orchestrator"
	"github.com/yungbote/coachflow-backend/internal/modules/sequences"
	"github.com/yungbote/coachflow-backend/internal/notify"
	"github.com/yungbote/coachflow-backend/internal/observability"
	"github.com/yungbote/coachflow-backend/internal/pkg/envutil"
	"github.com/yungbote/coachflow-backend/internal/pkg/logger"
	"github.com/yungbote/coachflow-backend/internal/temporalx"
	"github.com/yungbote/coachflow-backend/internal/temporalx/temporalworker"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Catalog  *catalog.Catalog
	Repos    Repos
	Clients  Clients
	Services Services
	Router   *gin.Engine

	otelShutdown func(context.Context) error
}

// New connects to the database and wires every layer. The schema is migrated
// unless DB_AUTO_MIGRATE=false.
func New(ctx context.Context) (*App, error) {
	cfg := LoadConfig()
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	shutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})

	theDB, err := db.Open(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if envutil.Bool("DB_AUTO_MIGRATE", true) {
		if err := db.Migrate(theDB); err != nil {
			log.Sync()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	cat, err := loadCatalog(log, cfg.CatalogPath)
	if err != nil {
		log.Sync()
		return nil, err
	}

	a := build(log, cfg, theDB, cat, wireClients(log), nil, nil)
	a.otelShutdown = shutdown
	return a, nil
}

func build(log *logger.Logger, cfg Config, theDB *gorm.DB, cat *catalog.Catalog, clients Clients, notifier notify.Notifier, now func() time.Time) *App {
	reposet := wireRepos(theDB, log)
	serviceset := wireServices(serviceDeps{
		DB:       theDB,
		Log:      log,
		Catalog:  cat,
		Repos:    reposet,
		Clients:  clients,
		Notifier: notifier,
		Now:      now,
	})
	handlerset := wireHandlers(log, theDB, serviceset)
	return &App{
		Log:      log,
		DB:       theDB,
		Cfg:      cfg,
		Catalog:  cat,
		Repos:    reposet,
		Clients:  clients,
		Services: serviceset,
		Router:   wireRouter(log, cfg, handlerset),
	}
}

// Serve runs the HTTP API until ctx is canceled. With CRON_ENABLED the
// cadences also fire in-process.
func (a *App) Serve(ctx context.Context) error {
	if a.Cfg.CronEnabled {
		sched, err := a.scheduler()
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}
	addr := ":" + a.Cfg.Port
	a.Log.Info("HTTP server listening", "addr", addr, "cron_enabled", a.Cfg.CronEnabled)
	return (&apihttp.Server{Engine: a.Router}).Run(ctx, addr)
}

func (a *App) scheduler() (*orchestrator.Scheduler, error) {
	loc, err := a.Cfg.CronLocation()
	if err != nil {
		return nil, err
	}
	return orchestrator.NewScheduler(a.Log, a.Services.Orchestrator, orchestrator.ScheduleFromEnv(), loc)
}

// RunWorker registers the Temporal schedules and polls the cron task queue
// until ctx is canceled.
func (a *App) RunWorker(ctx context.Context) error {
	tc, err := temporalx.NewClient(a.Log)
	if err != nil {
		return err
	}
	if tc == nil {
		return fmt.Errorf("worker requires TEMPORAL_ADDRESS")
	}
	defer tc.Close()

	runner, err := temporalworker.NewRunner(a.Log, tc, a.Services.Orchestrator, orchestrator.ScheduleFromEnv())
	if err != nil {
		return err
	}
	if err := runner.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// RunCadence runs one cadence synchronously.
func (a *App) RunCadence(ctx context.Context, name string) (orchestrator.JobResult, error) {
	return a.Services.Orchestrator.TriggerJob(ctx, name)
}

func (a *App) Migrate() error {
	return db.Migrate(a.DB)
}

func (a *App) Seed(ctx context.Context) (sequences.SeedResult, error) {
	return a.Services.Sequences.SeedPredefined(ctx)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(ctx)
		cancel()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
