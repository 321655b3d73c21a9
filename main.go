package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"eldercare-cloud/internal/alerts"
	"eldercare-cloud/internal/api"
	"eldercare-cloud/internal/auth"
	"eldercare-cloud/internal/config"
	"eldercare-cloud/internal/devices"
	"eldercare-cloud/internal/history"
	"eldercare-cloud/internal/ingest"
	"eldercare-cloud/internal/notify"
	"eldercare-cloud/internal/observability/metrics"
	"eldercare-cloud/internal/patients"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config error", zap.Error(err))
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db open error", zap.Error(err))
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal("db ping error", zap.Error(err))
	}

	metrics.Init()

	var deviceCache *devices.Cache
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer client.Close()
		if err := client.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis unavailable, device cache disabled", zap.Error(err))
		} else {
			deviceCache = devices.NewCache(client, cfg.DeviceCacheTTL)
		}
	}

	patientRepo := patients.NewRepository(db)
	deviceRepo := devices.NewRepository(db)
	alertLog := alerts.NewLog(db)
	historyLog := history.NewLog(db)

	registry, err := devices.NewRegistry(deviceRepo, patientRepo, deviceCache, logger)
	if err != nil {
		logger.Fatal("device registry error", zap.Error(err))
	}

	ingestOpts := []ingest.Option{}
	if notifier := notify.NewWebhookNotifier(cfg.AlertWebhookURL, logger, notify.WithRequestTimeout(cfg.WebhookTimeout)); notifier != nil {
		ingestOpts = append(ingestOpts, ingest.WithNotifier(notifier))
	}
	ingestService, err := ingest.NewService(registry, patientRepo, alertLog, historyLog, logger, ingestOpts...)
	if err != nil {
		logger.Fatal("ingest service error", zap.Error(err))
	}

	iotHandler, err := api.NewIoTHandler(ingestService, registry, logger)
	if err != nil {
		logger.Fatal("iot handler error", zap.Error(err))
	}
	patientHandler, err := api.NewPatientHandler(patientRepo, alertLog, historyLog, logger)
	if err != nil {
		logger.Fatal("patient handler error", zap.Error(err))
	}
	exportHandler, err := api.NewExportHandler(patientRepo, historyLog, logger)
	if err != nil {
		logger.Fatal("export handler error", zap.Error(err))
	}

	router := api.NewRouter(api.Handlers{
		IoT:     iotHandler,
		Patient: patientHandler,
		Export:  exportHandler,
		Auth:    auth.NewMiddleware([]byte(cfg.JWTSecret)),
		Logger:  logger,
	})

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
