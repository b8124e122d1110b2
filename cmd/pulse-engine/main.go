package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/standupstack/pulse-engine/internal/analytics"
	"github.com/standupstack/pulse-engine/internal/api"
	"github.com/standupstack/pulse-engine/internal/cache"
	"github.com/standupstack/pulse-engine/internal/config"
	"github.com/standupstack/pulse-engine/internal/extractors"
	"github.com/standupstack/pulse-engine/internal/ingest"
	"github.com/standupstack/pulse-engine/internal/metrics"
	"github.com/standupstack/pulse-engine/internal/notify"
	"github.com/standupstack/pulse-engine/internal/patterns"
	"github.com/standupstack/pulse-engine/internal/pipeline"
	"github.com/standupstack/pulse-engine/internal/providers"
	"github.com/standupstack/pulse-engine/internal/service"
	"github.com/standupstack/pulse-engine/internal/store"
	"github.com/standupstack/pulse-engine/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting pulse-engine", slog.String("ops_address", cfg.Server.OpsAddress))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cacheProvider := buildCache(cfg.Cache, logger)
	defer cacheProvider.Close()

	var resultStore *store.PostgresStore
	if cfg.Storage.DSN != "" {
		resultStore, err = store.NewPostgres(ctx, cfg.Storage.DSN, logger)
		if err != nil {
			logger.Error("failed to connect to postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer resultStore.Close()
	} else {
		logger.Error("storage.dsn is required; the engine cannot run without result storage")
		os.Exit(1)
	}

	providerSet := providers.NewSet(cfg.Providers, logger)
	resolver := extractors.NewResolver(
		providerSet.Tracker,
		cacheProvider,
		cfg.Cache.ResolveTTL,
		cfg.Pipeline.ResolveConcurrency,
		logger,
	)
	pipe := pipeline.New(logger, providerSet, resolver, pipeline.Timeouts{
		Transcribe: cfg.Providers.Speech.Timeout,
		Sentiment:  cfg.Providers.Sentiment.Timeout,
		Summary:    cfg.Providers.Summary.Timeout,
	})

	miner := patterns.NewMiner(logger, resultStore)
	engine := analytics.NewEngine(logger)

	dispatcher := buildDispatcher(cfg.Notify, logger)
	defer dispatcher.Close()

	svc := service.NewStandupService(
		logger,
		pipe,
		resultStore,
		engine,
		miner,
		cfg.Warning.Thresholds(),
		cfg.Analytics.Window,
	)

	opsServer, err := api.NewServer(cfg.Server, resultStore.Ping, logger)
	if err != nil {
		logger.Error("failed to create ops server", slog.Any("error", err))
		os.Exit(1)
	}
	go func() {
		if serveErr := opsServer.Start(); serveErr != nil {
			logger.Error("ops server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	if cfg.Ingest.Enabled {
		consumer := ingest.NewConsumer(cfg.Ingest, svc, logger)
		go func() {
			defer consumer.Close()
			if runErr := consumer.Run(ctx); runErr != nil {
				logger.Error("submission consumer exited", slog.Any("error", runErr))
				stop()
			}
		}()
	} else {
		logger.Info("submission ingest disabled")
	}

	evaluator := service.NewEvaluator(cfg.Evaluation, svc, dispatcher, cacheProvider, cfg.Cache.DedupTTL, logger)
	go func() {
		if runErr := evaluator.Run(ctx); runErr != nil {
			logger.Error("evaluation loop exited", slog.Any("error", runErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	opsServer.Shutdown(shutdownCtx)

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("pulse-engine stopped")
}

// buildCache picks the cache backend: Valkey when configured, in-memory
// otherwise. A Valkey connection failure degrades to in-memory with a
// warning rather than aborting startup.
func buildCache(cfg config.CacheConfig, logger *slog.Logger) cache.Provider {
	if cfg.Enabled && cfg.Addr != "" {
		provider, err := cache.NewValkeyProvider(cache.ValkeyConfig{
			Addr:         cfg.Addr,
			Username:     cfg.Username,
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			MaxRetries:   cfg.MaxRetries,
			TLS:          cfg.TLS,
		})
		if err == nil {
			logger.Info("valkey cache connected", slog.String("addr", cfg.Addr))
			return provider
		}
		logger.Warn("valkey cache unavailable, using in-memory cache", slog.Any("error", err))
	}
	return cache.NewMemoryProvider()
}

// buildDispatcher picks the alert channel: Kafka when brokers are set,
// webhook when a URL is set, log-only otherwise.
func buildDispatcher(cfg config.NotifyConfig, logger *slog.Logger) notify.Dispatcher {
	switch {
	case len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.Topic != "":
		logger.Info("dispatching alerts to kafka", slog.String("topic", cfg.Kafka.Topic))
		return notify.NewKafkaDispatcher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
	case cfg.WebhookURL != "":
		logger.Info("dispatching alerts to webhook")
		return notify.NewWebhookDispatcher(cfg.WebhookURL, cfg.Timeout, logger)
	default:
		logger.Info("no alert channel configured, logging alerts only")
		return notify.NewLogDispatcher(logger)
	}
}
