// Package app initializes and holds long-lived application services, acting as
// a dependency injection container for the serve and scan commands.
package app

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/samir-bensayou/upwork-jobs-scraper/internal/browser"
	"github.com/samir-bensayou/upwork-jobs-scraper/internal/clock/system"
	"github.com/samir-bensayou/upwork-jobs-scraper/internal/config"
	"github.com/samir-bensayou/upwork-jobs-scraper/internal/cursor/file"
	"github.com/samir-bensayou/upwork-jobs-scraper/internal/cursor/gcs"
	"github.com/samir-bensayou/upwork-jobs-scraper/internal/cursor/memory"
	"github.com/samir-bensayou/upwork-jobs-scraper/internal/cursor/postgres"
	"github.com/samir-bensayou/upwork-jobs-scraper/internal/cursor/redis"
	"github.com/samir-bensayou/upwork-jobs-scraper/internal/extract"
	"github.com/samir-bensayou/upwork-jobs-scraper/internal/pacing"
	"github.com/samir-bensayou/upwork-jobs-scraper/internal/policy/ratelimit"
	"github.com/samir-bensayou/upwork-jobs-scraper/internal/schedule"
	"github.com/samir-bensayou/upwork-jobs-scraper/internal/scraper"
)

// App holds the shared, long-lived services. It is built once at startup and
// closed when the command exits.
type App struct {
	Logger      *zap.Logger
	Browser     *browser.Manager
	Coordinator *scraper.Coordinator
	// Scheduler is nil unless schedule.enabled is set.
	Scheduler *schedule.Scheduler

	closers []func() error
}

// New builds every service from cfg. It fails fast when the cursor backend
// cannot be reached.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("initializing application services", zap.String("cursor_backend", cfg.Cursor.Backend))

	a := &App{Logger: logger}

	backend, err := a.openCursor(ctx, cfg.Cursor)
	if err != nil {
		return nil, err
	}

	clk := system.New()
	sleeper := pacing.TimerSleeper{}

	limiter := ratelimit.New(ratelimit.Config{MinInterval: cfg.Browser.MinNavigationInterval})
	a.Browser = browser.NewManager(browser.Config{
		ExecPath:       cfg.Browser.ExecPath,
		UserDataDir:    cfg.Browser.ProfileDir,
		Headless:       cfg.Browser.Headless,
		NoSandbox:      cfg.Browser.NoSandbox,
		WindowWidth:    cfg.Browser.WindowWidth,
		WindowHeight:   cfg.Browser.WindowHeight,
		WindowPosition: cfg.Browser.WindowPosition,
		UserAgent:      cfg.Browser.UserAgent,
	}, limiter, logger)
	a.closers = append(a.closers, a.Browser.Close)

	extractor, err := extract.New(cfg.Search.Origin, logger)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("build extractor: %w", err)
	}
	detector := scraper.NewChallengeDetector(cfg.Challenge.Signatures, cfg.Challenge.Grace, sleeper, logger)
	orchestrator := scraper.NewOrchestrator(scraper.OrchestratorConfig{
		SearchURL:         cfg.Search.URL,
		NavigationTimeout: cfg.Browser.NavigationTimeout,
		SettleDelay:       cfg.Search.SettleDelay,
		ScreenshotPath:    cfg.Browser.ScreenshotPath,
	}, a.Browser, detector, extractor, sleeper, clk, logger)

	pacer, err := pacing.NewRandomPacer(cfg.Scan.MinDelay, cfg.Scan.MaxDelay, sleeper)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("build pacer: %w", err)
	}
	state := scraper.NewStateStore(backend, clk, logger)
	a.Coordinator = scraper.NewCoordinator(
		orchestrator,
		scraper.NewRotationScheduler(state),
		pacer,
		clk,
		cfg.Scan.DefaultLimit,
		logger,
	)

	if cfg.Schedule.Enabled {
		a.Scheduler, err = schedule.New(schedule.Config{
			Spec:       cfg.Schedule.Spec,
			Keywords:   cfg.Schedule.Keywords,
			Limit:      cfg.Schedule.Limit,
			RunOnStart: cfg.Schedule.RunOnStart,
		}, a.Coordinator, logger)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("build scheduler: %w", err)
		}
	}

	logger.Info("application services initialized")
	return a, nil
}

func (a *App) openCursor(ctx context.Context, cfg config.CursorConfig) (scraper.CursorBackend, error) {
	switch cfg.Backend {
	case config.CursorFile, "":
		store, err := file.New(cfg.File.Path)
		if err != nil {
			return nil, fmt.Errorf("open file cursor: %w", err)
		}
		a.Logger.Info("using file cursor", zap.String("path", store.Path()))
		return store, nil
	case config.CursorMemory:
		a.Logger.Info("using in-memory cursor; rotation resets on restart")
		return memory.New(), nil
	case config.CursorPostgres:
		store, err := postgres.New(ctx, postgres.Config{
			DSN:      cfg.Postgres.DSN,
			Table:    cfg.Postgres.Table,
			Key:      cfg.Postgres.Key,
			MaxConns: cfg.Postgres.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres cursor: %w", err)
		}
		a.closers = append(a.closers, func() error {
			store.Close()
			return nil
		})
		if cfg.Postgres.EnsureSchema {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = a.Close()
				return nil, fmt.Errorf("ensure cursor schema: %w", err)
			}
		}
		a.Logger.Info("using postgres cursor", zap.String("table", cfg.Postgres.Table))
		return store, nil
	case config.CursorGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		store, err := gcs.New(client, gcs.Config{Bucket: cfg.GCS.Bucket, Object: cfg.GCS.Object})
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("open gcs cursor: %w", err)
		}
		a.Logger.Info("using gcs cursor", zap.String("bucket", cfg.GCS.Bucket))
		return store, nil
	case config.CursorRedis:
		store, err := redis.New(ctx, cfg.Redis.URL, cfg.Redis.Key)
		if err != nil {
			return nil, fmt.Errorf("open redis cursor: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		a.Logger.Info("using redis cursor")
		return store, nil
	default:
		return nil, fmt.Errorf("unknown cursor backend %q", cfg.Backend)
	}
}

// Close releases the browser and cursor connections in reverse order of
// creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		a.Logger.Warn("error closing application services", zap.Error(err))
		return err
	}
	return nil
}
