package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	go_redis "github.com/redis/go-redis/v9"

	"github.com/mejo-sal/pinable/internal/api"
	"github.com/mejo-sal/pinable/internal/application/factories/infrastructure"
	"github.com/mejo-sal/pinable/internal/audit"
	"github.com/mejo-sal/pinable/internal/compose"
	"github.com/mejo-sal/pinable/internal/config"
	"github.com/mejo-sal/pinable/internal/messenger"
	"github.com/mejo-sal/pinable/internal/notify"
	"github.com/mejo-sal/pinable/internal/store"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize structured JSON logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.Log.Level),
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	infraFactory := infrastructure.NewFactory(cfg)
	defer infraFactory.Close()

	// Correlation store backend
	var backend store.Backend
	switch cfg.Store.Backend {
	case "postgres":
		pgPool, err := infraFactory.Postgres(ctx)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		backend = store.NewPostgresBackend(pgPool)
	default:
		backend = store.NewFileBackend(cfg.Store.Path)
	}
	correlations := store.New(ctx, backend, logger)

	// Redis (optional, webhook dedupe)
	var redisClient *go_redis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = infraFactory.Redis(ctx)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
	}

	// Audit sinks
	sinks := audit.MultiSink{audit.NewSlogSink(logger)}
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.Brokers[0] != "" {
		kafkaSink := audit.NewKafkaSink(audit.KafkaConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		}, logger)
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
	}

	// Pipeline
	composer := compose.New(cfg.Messages.StoreName, cfg.Messages.TrackingBaseURL, cfg.Messages.SurveyURL)
	gateway := messenger.NewGateway(messenger.GatewayConfig{
		BaseURL: cfg.Messenger.BaseURL,
		Token:   cfg.Messenger.Token,
	})
	dispatcher := notify.NewDispatcher(correlations, composer, gateway, sinks, logger)
	router := notify.NewRouter(dispatcher, sinks, logger)

	// HTTP
	handlers := api.NewHandlers(router, correlations, gateway, cfg.App.Name)
	apiHandler := api.NewRouter(handlers, redisClient)

	srv := &http.Server{
		Addr:    ":" + cfg.HTTP.Port,
		Handler: apiHandler,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.HTTP.Port, "store_backend", cfg.Store.Backend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// let in-flight events finish, then persist the map one last time
	router.Wait()
	if err := correlations.Flush(context.Background()); err != nil {
		logger.Error("failed to flush correlation store", "error", err)
	}

	logger.Info("Server exiting")
}

func logLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
