// API server entry point: loads the symptom library, wires the analytics
// query path, and serves the read API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	appanalytics "github.com/MikeL71221ibpm/iBPM-sub012/internal/application/analytics"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/config"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/domain/extraction"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/domain/library"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/infrastructure/database/postgres"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/infrastructure/database/postgres/repositories"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/infrastructure/database/redis"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/infrastructure/monitoring/logging"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/infrastructure/monitoring/prometheus"
	httpserver "github.com/MikeL71221ibpm/iBPM-sub012/internal/interfaces/http"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/interfaces/http/handlers"
)

const defaultConfigPath = "configs/config.yaml"

// loadConfig falls back to environment-only configuration when the config
// file is absent, the usual case in containerised deployments.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	migrateStatus := flag.Bool("migrate-status", false, "print the schema migration status and exit")
	migrateRollback := flag.Int("migrate-rollback", 0, "roll the schema back N steps and exit")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger = logger.Named("apiserver")
	logger.Info("starting iBPM API server", logging.Int("port", cfg.Server.Port))

	ctx := context.Background()

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            "ibpm",
		Subsystem:            "apiserver",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		logger.Fatal("failed to build metrics collector", logging.Err(err))
	}
	metrics := prometheus.NewAppMetrics(collector)

	dbURL := postgres.MigrationURL(cfg.Database)
	migrationsPath := "file://" + cfg.Database.MigrationPath

	if *migrateStatus {
		version, dirty, err := postgres.MigrationStatus(dbURL, migrationsPath)
		if err != nil {
			logger.Fatal("failed to read migration status", logging.Err(err))
		}
		fmt.Printf("schema version %d dirty=%t\n", version, dirty)
		return
	}
	if *migrateRollback > 0 {
		if err := postgres.RollbackMigration(dbURL, migrationsPath, *migrateRollback); err != nil {
			logger.Fatal("failed to roll back migrations", logging.Err(err))
		}
		logger.Info("schema rolled back", logging.Int("steps", *migrateRollback))
		return
	}

	if err := postgres.RunMigrations(dbURL, migrationsPath); err != nil {
		logger.Fatal("failed to run migrations", logging.Err(err))
	}
	pool, err := postgres.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to postgres", logging.Err(err))
	}
	defer pool.Close()

	redisClient, err := redis.NewClient(cfg.Redis, logger)
	if err != nil {
		logger.Fatal("failed to connect to redis", logging.Err(err))
	}
	defer redisClient.Close()
	cache := redis.NewCache(redisClient, logger,
		redis.WithPrefix(cfg.Redis.KeyPrefix+":"),
		redis.WithDefaultTTL(cfg.Redis.DefaultTTL))

	// The library is loaded once at startup; matching runs against an
	// immutable snapshot.
	libraryRepo := repositories.NewLibraryRepo(pool.DB(), logger)
	libraryService := library.NewService(library.NewLoader(libraryRepo, logger), logger)
	lib, err := libraryService.Get(ctx)
	if err != nil {
		logger.Fatal("failed to load symptom library", logging.Err(err))
	}

	matcher := extraction.NewMatcher(lib, extraction.Options{
		Name:               "default",
		NegationWindow:     cfg.Extraction.NegationWindow,
		PreserveDuplicates: cfg.Extraction.DedupePolicy != "dedupe",
	})
	extractor := extraction.NewService(matcher, extraction.ServiceConfig{
		Workers:   cfg.Extraction.Workers,
		BatchSize: cfg.Extraction.BatchSize,
	}, logger)

	noteRepo := repositories.NewNoteRepo(pool.DB(), logger)
	eventRepo := repositories.NewEventRepo(pool.DB(), logger)
	analyticsService := appanalytics.NewService(noteRepo, eventRepo, extractor, cache, cfg.Analytics.PivotCacheTTL, metrics, logger)

	healthHandler := handlers.NewHealthHandler("1.0.0",
		handlers.CheckerFunc{ComponentName: "postgres", Fn: pool.HealthCheck},
		handlers.CheckerFunc{ComponentName: "redis", Fn: cache.Ping},
	)

	router := httpserver.NewRouter(httpserver.RouterConfig{
		AnalyticsHandler: handlers.NewAnalyticsHandler(analyticsService),
		HealthHandler:    healthHandler,
		Logger:           logger,
		Metrics:          metrics,
		Collector:        collector,
		MetricsPath:      cfg.Metrics.Path,
		Mode:             cfg.Server.Mode,
	})
	server := httpserver.NewServer(cfg.Server, router, logger)

	// Log level follows the config file without a restart; everything else
	// requires one.
	if _, err := os.Stat(*configPath); err == nil {
		config.Watch(*configPath, func(next *config.Config) {
			if logging.SetLevel(logger, next.Logging.Level) {
				logger.Info("log level applied from config change",
					logging.String("level", next.Logging.Level))
			}
		})
	}

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("http server failed", logging.Err(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := server.Stop(ctx); err != nil {
		logger.Error("shutdown failed", logging.Err(err))
	}
	logger.Info("stopped")
}
