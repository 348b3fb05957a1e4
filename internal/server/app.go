// Package server wires the backend together: database and migrations,
// blob storage, the default tracker set, the upload and torrent services,
// and the tracker notification worker. It handles graceful shutdown on OS
// signals.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/kyan-si/kyan/internal/config"
	"github.com/kyan-si/kyan/internal/logging"
	"github.com/kyan-si/kyan/internal/notify"
	"github.com/kyan-si/kyan/internal/repositories/repomanager"
	"github.com/kyan-si/kyan/internal/storage"
	"github.com/kyan-si/kyan/internal/torrents"
	"github.com/kyan-si/kyan/internal/trackers"
	"github.com/kyan-si/kyan/internal/upload"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB

	uploadService  *upload.Service
	torrentService *torrents.Service
	notifyWorker   *notify.Worker
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewJSONLogger()
	ctx := context.Background()

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	store, err := newStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	defaults, err := trackers.LoadDefaultSet(filepath.Join(cfg.BaseDir, cfg.TrackersFile))
	if err != nil {
		return nil, fmt.Errorf("tracker list error: %w", err)
	}

	uploadService := upload.NewService(cfg, logger, db, repos, store)
	torrentService, err := torrents.NewService(cfg, logger, db, repos, store, defaults)
	if err != nil {
		return nil, err
	}
	notifyWorker := notify.NewWorker(cfg, logger, db, repos)

	return &App{
		config:         cfg,
		logger:         logger,
		db:             db,
		uploadService:  uploadService,
		torrentService: torrentService,
		notifyWorker:   notifyWorker,
	}, nil
}

func newStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	if cfg.UseS3 {
		return storage.NewS3Storage(ctx, cfg)
	}
	return storage.NewFSStorage(cfg.BaseDir), nil
}

// Uploads exposes the upload pipeline to the embedding web layer.
func (app *App) Uploads() *upload.Service {
	return app.uploadService
}

// Torrents exposes the re-encoding and moderation service.
func (app *App) Torrents() *torrents.Service {
	return app.torrentService
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run starts the notification worker and blocks until the context is
// cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app", "site", app.config.SiteName)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.notifyWorker.Run(ctx)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing db failed", "error", err)
	}
	app.logger.Info(ctx, "app stopped")
}
