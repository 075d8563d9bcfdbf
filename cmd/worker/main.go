// Worker entry point: consumes the note extraction stream, persists notes
// and their extracted events, and applies pivot cache invalidations.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	appanalytics "github.com/MikeL71221ibpm/iBPM-sub012/internal/application/analytics"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/application/ingest"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/config"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/domain/extraction"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/domain/library"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/infrastructure/database/postgres"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/infrastructure/database/postgres/repositories"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/infrastructure/database/redis"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/infrastructure/messaging/kafka"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/infrastructure/monitoring/logging"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/infrastructure/monitoring/prometheus"
	"github.com/MikeL71221ibpm/iBPM-sub012/pkg/types/common"
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
	importLibrary := flag.String("import-library", "", "load a symptom master CSV into postgres and exit")
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
	logger = logger.Named("worker")
	logger.Info("starting iBPM worker",
		logging.String("group", cfg.Kafka.GroupID),
		logging.String("extract_topic", cfg.Kafka.ExtractTopic),
		logging.String("invalidate_topic", cfg.Kafka.InvalidateTopic))

	ctx := context.Background()

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            "ibpm",
		Subsystem:            "worker",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		logger.Fatal("failed to build metrics collector", logging.Err(err))
	}
	metrics := prometheus.NewAppMetrics(collector)

	if err := postgres.RunMigrations(postgres.MigrationURL(cfg.Database), "file://"+cfg.Database.MigrationPath); err != nil {
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

	libraryRepo := repositories.NewLibraryRepo(pool.DB(), logger)

	if *importLibrary != "" {
		loader := library.NewLoader(library.NewCSVSource(*importLibrary), logger)
		imported, err := loader.Load(ctx)
		if err != nil {
			logger.Fatal("failed to load symptom master CSV", logging.Err(err))
		}
		if err := libraryRepo.ReplaceAll(ctx, imported.Records()); err != nil {
			logger.Fatal("failed to replace symptom master", logging.Err(err))
		}
		count, err := libraryRepo.Count(ctx)
		if err != nil {
			logger.Fatal("failed to count symptom master rows", logging.Err(err))
		}
		logger.Info("symptom library imported",
			logging.String("path", *importLibrary),
			logging.Int("records", count))
		return
	}

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

	producer, err := kafka.NewProducer(cfg.Kafka.Brokers, logger)
	if err != nil {
		logger.Fatal("failed to create kafka producer", logging.Err(err))
	}
	defer producer.Close()

	ingestService := ingest.NewService(noteRepo, eventRepo, matcher, producer, cfg.Kafka.InvalidateTopic, metrics, logger)
	analyticsService := appanalytics.NewService(noteRepo, eventRepo, extractor, cache, cfg.Analytics.PivotCacheTTL, metrics, logger)

	consumer, err := kafka.NewConsumer(cfg.Kafka, logger)
	if err != nil {
		logger.Fatal("failed to create kafka consumer", logging.Err(err))
	}

	consumer.Subscribe(cfg.Kafka.ExtractTopic, ingestService.HandleExtractMessage)
	consumer.Subscribe(cfg.Kafka.InvalidateTopic, func(ctx context.Context, msg common.Message) error {
		var payload kafka.PivotInvalidatePayload
		if err := kafka.DecodePayload(msg.Value, &payload); err != nil {
			return err
		}
		return analyticsService.InvalidatePatient(ctx, common.PatientID(payload.PatientID))
	})

	if err := consumer.Start(ctx); err != nil {
		logger.Fatal("failed to start consumer", logging.Err(err))
	}
	logger.Info("worker consuming")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := consumer.Close(); err != nil {
		logger.Error("consumer close failed", logging.Err(err))
	}
	logger.Info("stopped")
}
