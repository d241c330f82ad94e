// Package appctx wires the application's process-wide handles —
// config, DB pool, progress bus, task manager, indexer, and the HTTP
// routers — into one explicit, shared-immutable value, per the
// initialization order in the design notes: config, then DB pool and
// migrations, then progress bus, then task manager, then indexer,
// then HTTP router.
//
// Grounded on the teacher's internal/engine.TachyonEngine
// (internal/engine/manager.go), which plays the same role of a single
// struct holding every shared subsystem handle constructed once at
// startup and passed around by pointer — never reached through a
// package-level global.
package appctx

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/apestel/hardwire/internal/admin"
	"github.com/apestel/hardwire/internal/applog"
	"github.com/apestel/hardwire/internal/config"
	"github.com/apestel/hardwire/internal/download"
	"github.com/apestel/hardwire/internal/indexer"
	"github.com/apestel/hardwire/internal/progress"
	"github.com/apestel/hardwire/internal/ratelimit"
	"github.com/apestel/hardwire/internal/storage"
	"github.com/apestel/hardwire/internal/tasks"
)

// AppContext is the process-wide set of shared handles. Every field is
// either internally synchronized (Store, Bus, Tasks, Indexer) or
// immutable after construction (Config, Logger).
type AppContext struct {
	Config  *config.Config
	Logger  *slog.Logger
	Store   *storage.Store
	Bus     *progress.Bus
	Tasks   *tasks.Manager
	Indexer *indexer.Indexer

	DownloadHandler *download.Handler
	RateLimiter     *ratelimit.Limiter
	AdminServer     *admin.Server
}

// New builds the full AppContext in the order design notes §9
// prescribes: config, DB pool + migrations, progress bus, task
// manager, indexer, HTTP routers.
func New(cfg *config.Config) (*AppContext, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	logger, err := applog.New(cfg.DataDir, os.Stdout)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	store, err := storage.Open(storage.Options{
		Path:           cfg.DBPath,
		MaxConnections: cfg.DBMaxConnections,
		MinConnections: cfg.DBMinConnections,
		AcquireTimeout: time.Duration(cfg.DBAcquireTimeout) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	bus := progress.NewBus()

	taskMgr := tasks.New(store, logger, 1, bus)
	archiveBuilder := tasks.NewArchiveBuilder(cfg.DataDir, "7z")
	taskMgr.Register(tasks.ArchiveTaskType, archiveBuilder.Runner())
	if err := taskMgr.Start(); err != nil {
		return nil, fmt.Errorf("start task manager: %w", err)
	}

	idx := indexer.New(cfg.DataDir, time.Duration(cfg.IndexerIntervalS)*time.Second, store, logger)
	idx.Start()

	downloadHandler := download.New(store, bus, logger)
	limiter := ratelimit.New(cfg.RateLimitRPM)

	adminServer, err := admin.New(store, idx, taskMgr, bus, logger, admin.Config{
		JWTSecret:    cfg.JWTSecret,
		JWTExpiry:    time.Duration(cfg.JWTExpiryHrs) * time.Hour,
		GoogleID:     cfg.GoogleClientID,
		GoogleSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		DataDir:      cfg.DataDir,
		HostBaseURL:  cfg.Host,
		MaxFileSize:  int64(cfg.MaxFileSizeMB) * 1024 * 1024,
		MaxFiles:     cfg.MaxFilesPerShare,
	})
	if err != nil {
		return nil, fmt.Errorf("init admin server: %w", err)
	}

	return &AppContext{
		Config:          cfg,
		Logger:          logger,
		Store:           store,
		Bus:             bus,
		Tasks:           taskMgr,
		Indexer:         idx,
		DownloadHandler: downloadHandler,
		RateLimiter:     limiter,
		AdminServer:     adminServer,
	}, nil
}

// Shutdown drains background subsystems in reverse dependency order:
// stop admitting new indexer scans, then await task workers up to
// grace, then checkpoint and close the DB.
func (a *AppContext) Shutdown(ctx context.Context, grace time.Duration) {
	a.Indexer.Stop()
	a.Tasks.Stop(grace)
	if err := a.AdminServer.Close(); err != nil {
		a.Logger.Error("appctx: failed to close admin audit log", "error", err)
	}
	if err := a.Store.Checkpoint(); err != nil {
		a.Logger.Error("appctx: wal checkpoint failed during shutdown", "error", err)
	}
	if err := a.Store.Close(); err != nil {
		a.Logger.Error("appctx: failed to close store", "error", err)
	}
}
