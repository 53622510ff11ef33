package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"submission_service/internal/cache"
	"submission_service/internal/config"
	"submission_service/internal/data"
	"submission_service/internal/db"
	"submission_service/internal/events"
	"submission_service/internal/handler"
	"submission_service/internal/s3_client"
	"submission_service/internal/service"
	"submission_service/internal/storage"
	"submission_service/pkg/kafka"
	"submission_service/pkg/logging"
	"submission_service/pkg/utils"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.New()
	if err != nil {
		panic(err)
	}

	zapLogger, err := logging.NewZap(cfg.LogDevelopment)
	if err != nil {
		panic(err)
	}

	logger := logging.New(zapLogger)
	defer func() { _ = logger.Sync() }()

	ctx = logging.ContextWithLogger(ctx, logger)

	repo, closeRepo, err := newRepository(ctx, cfg, logger)
	if err != nil {
		logger.Fatal(ctx, "cannot create record store", zap.Error(err))
	}
	defer closeRepo()

	_, err = utils.RetryWithBackoff(ctx, 5, 500*time.Millisecond, nil, func() (struct{}, error) {
		err := repo.Ping(ctx)
		if err != nil {
			logger.Warn(ctx, "record store not reachable yet", zap.Error(err))
		}
		return struct{}{}, err
	})
	if err != nil {
		logger.Fatal(ctx, "cannot reach record store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	logger.Info(ctx, "Connected to record store", zap.String("driver", cfg.StoreDriver))

	files, err := newFileStore(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "cannot create file store", zap.Error(err))
	}

	var opts []service.Option

	if cfg.RedisURL != "" {
		redisConn := redis.NewClient(&redis.Options{
			Addr: cfg.RedisURL,
		})
		defer func() { _ = redisConn.Close() }()

		opts = append(opts, service.WithCache(cache.NewRedisCache(redisConn), cfg.CacheTTL))
	}

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(kafka.Config{Brokers: cfg.KafkaBrokers})
		if err != nil {
			logger.Fatal(ctx, "cannot create kafka producer", zap.Error(err))
		}
		defer func() { _ = producer.Close() }()

		opts = append(opts, service.WithEvents(events.NewPublisher(producer, cfg.KafkaTopic)))
	}

	submissionService := service.NewSubmissionService(repo, files, opts...)
	submissionHandler := handler.NewSubmissionHandler(submissionService)

	router := handler.NewRouter(submissionHandler, handler.RouterConfig{
		Logger:       logger,
		MaxBodyBytes: cfg.MaxUploadBytes,
		PublicDir:    cfg.PublicDir,
	})

	port := fmt.Sprintf(":%d", cfg.HTTPPort)
	logger.Info(ctx, "Starting server", zap.String("port", port))

	srv := &http.Server{
		Addr:    port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(ctx, "cannot start http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info(ctx, "Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "server forced to shutdown", zap.Error(err))
	}
	logger.Info(ctx, "Server stopped")
}

func newRepository(ctx context.Context, cfg *config.Config, logger *logging.Logger) (service.SubmissionRepository, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		pool, err := db.NewPostgres(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return data.NewPostgresRepository(pool), pool.Close, nil
	default:
		client, err := db.NewMongo(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		coll := client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection)
		disconnect := func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(disconnectCtx); err != nil {
				logger.Error(ctx, "mongo disconnect failed", zap.Error(err))
			}
		}
		return data.NewMongoRepository(coll), disconnect, nil
	}
}

func newFileStore(ctx context.Context, cfg *config.Config) (service.FileStore, error) {
	if cfg.FileStorage == config.FileStorageS3 {
		s3Client, err := s3_client.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		store, err := storage.NewS3Store(ctx, s3Client, cfg.S3Bucket)
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	store, err := storage.NewDiskStore(filepath.Join(cfg.PublicDir, "files"))
	if err != nil {
		return nil, err
	}
	return store, nil
}
