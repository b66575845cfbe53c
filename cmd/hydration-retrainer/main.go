package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/divakargaba/Dehydration/common/database"
	logpkg "github.com/divakargaba/Dehydration/common/logger"
	rediscommon "github.com/divakargaba/Dehydration/common/redis"
	"github.com/divakargaba/Dehydration/internal/config"
	"github.com/divakargaba/Dehydration/internal/ml"
	"github.com/divakargaba/Dehydration/internal/repository"
	"github.com/divakargaba/Dehydration/internal/retrain"
	"github.com/divakargaba/Dehydration/internal/service"

	"go.uber.org/zap"
)

// hydration-retrainer 消费 Redis Stream 中的重训练任务，写入与 hydration-api 共享的模型目录
func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logpkg.NewLogger(cfg.Log.Level, cfg.Log.Format, "hydration-retrainer")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting hydration-retrainer",
		zap.String("stream", cfg.Retrain.Stream),
		zap.String("consumer_group", cfg.Retrain.ConsumerGroup),
		zap.String("model_dir", cfg.Model.Dir),
	)

	// 训练数据必须来自共享数据库
	db, err := database.NewPostgresDB(context.Background(), &cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	redisClient, err := rediscommon.Connect(context.Background(), &cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer rediscommon.Close(redisClient)

	if err := os.MkdirAll(cfg.Model.Dir, 0o755); err != nil {
		logger.Fatal("Failed to create model directory", zap.String("dir", cfg.Model.Dir), zap.Error(err))
	}

	metrics := service.NewMetricsService(repository.NewPostgresMetricsRepository(db, logger), time.Now, logger)
	predictor := service.NewPredictor(nil, ml.NewModelStore(cfg.Model.Dir), metrics, logger)
	exec := retrain.NewExecutor(predictor, cfg.Retrain.MinRecords, logger)
	consumer := retrain.NewStreamConsumer(retrain.StreamConfig{
		Stream:        cfg.Retrain.Stream,
		ConsumerGroup: cfg.Retrain.ConsumerGroup,
		ConsumerName:  cfg.Retrain.ConsumerName,
		BatchSize:     cfg.Retrain.BatchSize,
		Block:         cfg.Retrain.BlockTimeout,
	}, redisClient, exec, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go retrain.ReportMetrics(ctx, exec, time.Minute, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- consumer.Start(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil {
			logger.Error("Retrain consumer failed", zap.Error(err))
		}
	}
	logger.Info("hydration-retrainer stopped")
}
