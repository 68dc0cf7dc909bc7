package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mrlokans/catalogimport/internal/config"
	"github.com/mrlokans/catalogimport/internal/covers"
	"github.com/mrlokans/catalogimport/internal/database"
	"github.com/mrlokans/catalogimport/internal/database/books"
	"github.com/mrlokans/catalogimport/internal/database/progress"
	http_controllers "github.com/mrlokans/catalogimport/internal/http"
	"github.com/mrlokans/catalogimport/internal/importers"
	"github.com/mrlokans/catalogimport/internal/logger"
	"github.com/mrlokans/catalogimport/internal/metadata"
	"github.com/mrlokans/catalogimport/internal/scheduler"
	"github.com/mrlokans/catalogimport/internal/services"
	"github.com/mrlokans/catalogimport/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, log zerolog.Logger, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for SIGINT or SIGTERM; SIGKILL cannot be caught
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Dur("timeout", timeout).Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background work first so no new jobs start during shutdown
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}

	log.Info().Msg("server exiting")
}

func Run(cfg *config.Config, version string) {
	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	log.Info().Str("version", version).Msg("starting catalog import service")

	if cfg.Log.Level != "debug" && cfg.Log.Level != "trace" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewDatabase(cfg.Database.Path, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("error closing database")
		}
	}()

	ctx := context.Background()

	registry, err := importers.NewDefaultRegistry(ctx, cfg.AdapterConfig(log))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize adapters")
	}
	if cfg.Providers.GoogleBooksKey == "" {
		log.Warn().Msg("GOOGLE_BOOKS_API_KEY is not set, googlebooks imports use the anonymous quota")
	}

	bookRepo := books.NewRepository(db.DB)
	progressRepo := progress.NewRepository(db.DB)

	// Close jobs left importing by a previous process
	if _, err := progressRepo.IsImportRunning(); err != nil {
		log.Error().Err(err).Msg("failed to check for interrupted imports")
	}

	orchestrator := importers.NewOrchestrator(registry, cfg.Import.DefaultLimit, log)
	orchestrator.SetExporter(bookRepo)
	orchestrator.SetProgressReporter(progressRepo)

	importService := services.NewImportService(orchestrator, progressRepo, log)

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskCfg := tasks.Config{
			Workers:         cfg.Tasks.Workers,
			ReleaseAfter:    cfg.Tasks.ReleaseAfter,
			CleanupInterval: cfg.Tasks.CleanupInterval,
		}

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize task queue")
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Error().Err(err).Msg("error closing task client")
			}
		}()

		taskClient.Register(tasks.NewImportCatalogQueue(orchestrator, log))
		importService.SetQueue(taskClient)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(ctx)
		go taskClient.Start(taskCtx)
	}

	importScheduler := scheduler.NewImportScheduler(importService, scheduler.ImportScheduleConfig{
		Enabled:  cfg.Schedule.Enabled,
		Schedule: cfg.Schedule.Cron,
		Sources:  cfg.Schedule.Sources,
		Options:  cfg.Schedule.ScheduledOptions(),
	}, log)
	if err := importScheduler.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start import scheduler")
	}

	routerCfg := http_controllers.RouterConfig{
		Database:      db,
		Registry:      registry,
		ImportService: importService,
		BookStore:     bookRepo,
		Version:       version,
		Logger:        log,
	}
	if taskClient != nil {
		routerCfg.TaskClient = taskClient
	}
	if cfg.Covers.CacheDir != "" {
		coverCache, err := covers.NewCache(cfg.Covers.CacheDir, metadata.NewHTTPClient(cfg.Import.RequestTimeout), log)
		if err != nil {
			log.Error().Err(err).Msg("cover cache disabled")
		} else {
			routerCfg.Covers = coverCache
		}
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		importScheduler.Stop()
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
		importService.Close()
	}

	Serve(router, cfg, log, onShutdown)
}
