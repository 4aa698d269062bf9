package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/KOFI-GYIMAH/git-insights/docs"
	"github.com/KOFI-GYIMAH/git-insights/internal/config"
	"github.com/KOFI-GYIMAH/git-insights/internal/db"
	"github.com/KOFI-GYIMAH/git-insights/internal/handler"
	md "github.com/KOFI-GYIMAH/git-insights/internal/middleware"
	"github.com/KOFI-GYIMAH/git-insights/internal/queue"
	"github.com/KOFI-GYIMAH/git-insights/internal/service"
	"github.com/KOFI-GYIMAH/git-insights/internal/snapshot"
	"github.com/KOFI-GYIMAH/git-insights/internal/source"
	"github.com/KOFI-GYIMAH/git-insights/internal/source/githubapi"
	"github.com/KOFI-GYIMAH/git-insights/internal/source/gitlocal"
	"github.com/KOFI-GYIMAH/git-insights/internal/worker"
	"github.com/KOFI-GYIMAH/git-insights/pkg/logger"
	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title Git Insights Service
// @version 1.0.0
// @description Mines Git repository history and serves aggregated analysis reports.
// @host localhost:8081
// @BasePath /v1
func main() {
	if os.Getenv("DEBUG") == "true" {
		logger.SetLevel(logger.LevelDebug)
	}

	// * Load configuration
	cfg, err := config.LoadConfiguration()
	if err != nil {
		logger.Error("‼️ Failed to load config: %v", err)
		os.Exit(1)
	}

	// * Initialize PostgreSQL database
	database, err := db.NewPostgresDB(cfg.DBURL)
	if err != nil {
		logger.Error("Failed to initialize database: %v", err)
		os.Exit(1)
	}
	defer database.Close()

	// * Run migrations
	if err := database.Migrate(); err != nil {
		logger.Error("Failed to run migrations: %v", err)
	} else {
		logger.Info("Successfully ran migrations")
	}

	// * Snapshot store
	store, err := snapshot.NewStore(cfg.SnapshotDir)
	if err != nil {
		logger.Error("Failed to initialize snapshot store: %v", err)
		os.Exit(1)
	}

	// * Select the history source
	var historySource source.Source
	var meta service.MetadataClient
	switch cfg.HistorySource {
	case config.SourceLocal:
		historySource, err = gitlocal.NewSource(cfg.CloneDir, cfg.HistoryYears)
		if err != nil {
			logger.Error("Failed to initialize local history source: %v", err)
			os.Exit(1)
		}
	default:
		githubClient := githubapi.NewClient(cfg.GitHubToken)
		historySource = githubapi.NewSource(githubClient)
		meta = githubClient
	}

	rabbitMQ, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Error("Failed to initialize RabbitMQ: %v", err)
		os.Exit(1)
	}
	defer rabbitMQ.Close()

	// * Create service
	analysisService := service.NewAnalysisService(historySource, meta, database, store)

	// * Parse sync interval
	syncInterval, err := time.ParseDuration(cfg.SyncInterval)
	if err != nil {
		logger.Error("Invalid sync interval: %v", err)
		os.Exit(1)
	}

	// * Parse repository owner/name
	owner, name, err := config.ParseRepository(cfg.Repository)
	if err != nil {
		logger.Error("Invalid repository format: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// * Consume queued analysis requests
	err = rabbitMQ.ConsumeAnalyzeRequests(ctx, func(req queue.AnalyzeRequest) error {
		if err := analysisService.SyncRepository(ctx, req.Owner, req.Repo, req.Since); err != nil {
			return err
		}
		return analysisService.AnalyzeRepository(ctx, req.Owner, req.Repo)
	})
	if err != nil {
		logger.Error("Failed to start analyze consumer: %v", err)
		os.Exit(1)
	}

	// * Create and start worker for the configured repository
	syncWorker := worker.NewSyncWorker(analysisService, syncInterval, owner, name)
	go syncWorker.Run(ctx)

	// * Create API server
	apiHandler := handler.NewAnalysisHandler(ctx, analysisService, rabbitMQ)
	router := mux.NewRouter()
	router.Use(md.LoggingMiddleware)
	api := router.PathPrefix("/v1").Subrouter()

	apiHandler.RegisterRoutes(api)
	router.PathPrefix("/v1/swagger/").Handler(httpSwagger.WrapHandler)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = ":8081"
	}

	server := &http.Server{
		Addr:    port,
		Handler: router,
	}

	go func() {
		logger.Info("Starting API server on %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("API server error: %v", err)
			os.Exit(1)
		}
	}()

	// * Wait for termination signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error: %v", err)
	}
}
