// Package server initializes and runs the session coordinator: it selects a
// storage backend, wires the lobby, progress, and achievement services,
// starts the HTTP API and the background sweeper, and handles graceful
// shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/tourmate-app/backend/internal/logging"
	"github.com/tourmate-app/backend/internal/server/achievements"
	"github.com/tourmate-app/backend/internal/server/archive"
	"github.com/tourmate-app/backend/internal/server/config"
	"github.com/tourmate-app/backend/internal/server/httpapi"
	"github.com/tourmate-app/backend/internal/server/lobby"
	"github.com/tourmate-app/backend/internal/server/progress"
	"github.com/tourmate-app/backend/internal/server/shared/db"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	store   db.RepositoryManager
	http    *httpapi.HTTPServer
	sweeper *archive.Sweeper
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	store, err := newStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := store.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	lobbyService := lobby.NewService(store.Sessions(), store.Memberships())
	progressService := progress.NewService(store.Sessions(), store.Memberships(), store.Progress(), store.Content())
	evaluator := achievements.NewEvaluator(store.Unlocks(), store.Memberships(),
		achievements.NewStaticCatalog(achievements.DefaultMilestones()))

	httpServer := httpapi.NewHTTPServer(cfg.RunAddr, logger,
		lobbyService, progressService, evaluator, store.Sessions(), store.Unlocks(), cfg.SecretKey)

	var archiver archive.Archiver = archive.NopArchiver{}
	if cfg.ArchiveEnabled {
		archiver, err = archive.NewS3ArchiverFromConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("archive init error: %w", err)
		}
	}
	sweeper := archive.NewSweeper(store, archiver, cfg, logger.With("module", "sweeper"))

	return &App{
		config:  cfg,
		logger:  logger,
		store:   store,
		http:    httpServer,
		sweeper: sweeper,
	}, nil
}

func newStore(cfg *config.Config) (db.RepositoryManager, error) {
	if cfg.DatabaseDSN == "" {
		return db.NewInMemoryRepositoryManager(), nil
	}
	return db.NewPostgresRepositoryManager(cfg.DatabaseDSN)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.http.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.sweeper.Run(ctx)
	}()

	wg.Wait()

	if err := app.store.Close(); err != nil {
		app.logger.Error(ctx, "closing store", "error", err)
	}
}
