package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/divakargaba/Dehydration/common/database"
	logpkg "github.com/divakargaba/Dehydration/common/logger"
	mqttcommon "github.com/divakargaba/Dehydration/common/mqtt"
	rediscommon "github.com/divakargaba/Dehydration/common/redis"
	"github.com/divakargaba/Dehydration/internal/config"
	httpapi "github.com/divakargaba/Dehydration/internal/http"
	"github.com/divakargaba/Dehydration/internal/ml"
	wearable "github.com/divakargaba/Dehydration/internal/mqtt"
	"github.com/divakargaba/Dehydration/internal/repository"
	"github.com/divakargaba/Dehydration/internal/retrain"
	"github.com/divakargaba/Dehydration/internal/service"
	"github.com/divakargaba/Dehydration/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logpkg.NewLogger(cfg.Log.Level, cfg.Log.Format, "hydration-api")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 数据库不可用时退回内存仓库
	var db *sql.DB
	repos := repository.NewMemoryRepositories()
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(ctx, &cfg.Database); err == nil {
			if err := repository.EnsureSchema(ctx, d); err != nil {
				logger.Warn("Failed to apply schema, falling back to memory repositories", zap.Error(err))
				_ = d.Close()
			} else {
				db = d
				repos = repository.NewPostgresRepositories(db, logger)
				logger.Info("DB enabled for hydration-api")
			}
		} else {
			logger.Warn("DB enabled but connection failed, falling back to memory repositories", zap.Error(err))
		}
	}

	// Redis 不可用时缓存与样本缓冲区使用进程内存储
	var redisClient *redis.Client
	var kv interface {
		store.KV
		store.ListKV
	} = store.NewMemoryKV()
	if cfg.RedisEnabled {
		if c, err := rediscommon.Connect(ctx, &cfg.Redis); err == nil {
			redisClient = c
			kv = store.NewRedisKV(c)
		} else {
			logger.Warn("Redis enabled but ping failed, using in-process cache", zap.Error(err))
		}
	}

	var global *ml.GlobalModel
	if cfg.Model.GlobalModelPath != "" {
		g, err := ml.LoadGlobalModel(cfg.Model.GlobalModelPath, cfg.Model.GlobalScalerPath)
		if err != nil {
			logger.Warn("Global model unavailable, predictions fall back", zap.Error(err))
		} else {
			global = g
		}
	}
	if err := os.MkdirAll(cfg.Model.Dir, 0o755); err != nil {
		logger.Fatal("Failed to create model directory", zap.String("dir", cfg.Model.Dir), zap.Error(err))
	}

	clock := service.Clock(time.Now)
	var weather service.WeatherProvider
	if cfg.Weather.APIKey != "" {
		weather = service.NewWeatherClient(cfg.Weather.BaseURL, cfg.Weather.APIKey, cfg.Weather.Timeout, logger)
	}

	metrics := service.NewMetricsService(repos.Metrics, clock, logger)
	baselines := service.NewBaselineService(metrics, logger)
	predictor := service.NewPredictor(global, ml.NewModelStore(cfg.Model.Dir), metrics, logger)
	env := service.NewEnvironmentService(weather, cfg.Weather.Latitude, cfg.Weather.Longitude, clock, logger)
	projector := service.NewProjector(metrics, predictor, env, logger)
	trends := service.NewTrendAnalyzer(store.NewSampleBuffer(kv, store.DefaultSampleCapacity), clock, logger)
	policy := service.NewNotificationPolicy(repos.Alerts, repos.Notifications, baselines, clock, logger)
	achievements := service.NewAchievementService(repos.Achievements, clock, logger)
	latest := store.NewLatestMetricsCache(kv, 0)

	ingest := service.NewIngestionService(service.IngestionDeps{
		Metrics:      metrics,
		Predictor:    predictor,
		Projector:    projector,
		Trends:       trends,
		Env:          env,
		Policy:       policy,
		Achievements: achievements,
		Latest:       latest,
		Clock:        clock,
		Logger:       logger,
	})

	// 重训练：stream 模式交给 hydration-retrainer，否则进程内队列
	var queue *retrain.Queue
	if cfg.Retrain.Mode == "stream" && redisClient != nil {
		ingest.SetRetrainScheduler(retrain.NewStreamPublisher(redisClient, cfg.Retrain.Stream, logger))
		logger.Info("Retrain jobs published to stream", zap.String("stream", cfg.Retrain.Stream))
	} else {
		exec := retrain.NewExecutor(predictor, cfg.Retrain.MinRecords, logger)
		queue = retrain.NewQueue(exec, cfg.Retrain.Workers, cfg.Retrain.QueueSize, logger)
		queue.Start(ctx)
		go retrain.ReportMetrics(ctx, exec, time.Minute, logger)
		ingest.SetRetrainScheduler(queue)
	}

	var mqttClient *mqttcommon.Client
	var consumer *wearable.WearableConsumer
	if cfg.MQTT.Enabled {
		c, err := mqttcommon.NewClient(&cfg.MQTT.MQTTConfig, logger)
		if err != nil {
			logger.Warn("MQTT enabled but connection failed, wearable ingestion disabled", zap.Error(err))
		} else {
			mqttClient = c
			consumer = wearable.NewWearableConsumer(c, ingest, cfg.MQTT.Topic, cfg.MQTT.QoS, logger)
			go func() {
				if err := consumer.Start(ctx); err != nil {
					logger.Error("Wearable MQTT consumer failed", zap.Error(err))
				}
			}()
		}
	}

	router := httpapi.NewRouter(logger)
	router.RegisterHydrationRoutes(httpapi.NewHydrationHandler(httpapi.HydrationDeps{
		Ingest:        ingest,
		Predictor:     predictor,
		Trends:        trends,
		Latest:        latest,
		HeartRate:     service.NewSimulatedHeartRate(0),
		DefaultUserID: cfg.DefaultUserID,
		Logger:        logger,
	}))
	router.RegisterUserRoutes(httpapi.NewUserHandler(httpapi.UserDeps{
		Metrics:       metrics,
		Baselines:     baselines,
		Predictor:     predictor,
		Projector:     projector,
		Env:           env,
		Analytics:     service.NewAnalyticsService(metrics),
		Achievements:  achievements,
		Alerts:        repos.Alerts,
		Notifications: repos.Notifications,
		Latest:        latest,
		MinRecords:    cfg.Retrain.MinRecords,
		Logger:        logger,
	}))

	srv := service.NewServer(cfg.HTTP.Addr, router, logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if consumer != nil {
		consumer.Stop()
	}
	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	cancel()
	if queue != nil {
		queue.Stop()
	}
	_ = rediscommon.Close(redisClient)
	_ = database.Close(db)
	logger.Info("hydration-api stopped")
}
