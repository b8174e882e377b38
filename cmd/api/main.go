package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/smart-budget/internal/api"
	"github.com/dvloznov/smart-budget/internal/config"
	"github.com/dvloznov/smart-budget/internal/gcs"
	"github.com/dvloznov/smart-budget/internal/jobs"
	"github.com/dvloznov/smart-budget/internal/jobs/inmemory"
	"github.com/dvloznov/smart-budget/internal/logger"
	"github.com/dvloznov/smart-budget/internal/tools"
)

func main() {
	// Bootstrap logger until the configured level is known
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Parse command-line flags
	var (
		port    = flag.String("port", cfg.Port, "HTTP server port (or set PORT env)")
		workers = flag.Int("workers", inmemory.DefaultWorkers, "number of pipeline run workers")
		dataDir = flag.String("data-dir", cfg.DataDir, "directory request paths are resolved against")
	)
	flag.Parse()

	log = logger.NewWithLevel(cfg.LogLevel)
	ctx := logger.WithContext(context.Background(), log)

	// gs:// sources and outputs need a storage client
	var storage gcs.StorageService
	if cfg.Bucket != "" || cfg.EmulatorHost != "" {
		client, err := gcs.NewClient(ctx, cfg.EmulatorHost)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create storage client")
		}
		defer client.Close()
		storage = client
	} else {
		log.Warn().Msg("No GCS bucket configured - gs:// sources will be rejected")
	}

	opts, err := cfg.ToolkitOptions(storage)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load rule or profile files")
	}
	kit := tools.New(opts)

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, *workers, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	log.Info().Int("workers", *workers).Msg("Starting pipeline run workers")
	if err := jobQueue.Start(workerCtx, jobs.PipelineRunner(kit.PipelineDeps())); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job workers")
	}

	handler := api.NewRouter(api.RouterConfig{
		Toolkit:   kit,
		Publisher: jobQueue,
		Store:     jobStore,
		Log:       log,

		DataDir:        *dataDir,
		Bucket:         cfg.Bucket,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Str("data_dir", *dataDir).Str("output_dir", kit.OutputDir()).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight runs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
