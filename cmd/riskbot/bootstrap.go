package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trading-risk-engine/internal/broker"
	"trading-risk-engine/internal/engine"
	"trading-risk-engine/internal/eod"
	"trading-risk-engine/internal/interfaces"
	"trading-risk-engine/internal/logger"
	"trading-risk-engine/internal/metrics"
	"trading-risk-engine/internal/news"
	"trading-risk-engine/internal/sentiment"
	"trading-risk-engine/internal/store"
	"trading-risk-engine/internal/tradelog"
)

// initializeSystem loads .env and sets up logging and tracing.
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// compressOldLogs gzips journal files older than TRADER_LOG_RETENTION_DAYS.
func compressOldLogs(ctx context.Context, j *tradelog.Journal) {
	v := os.Getenv("TRADER_LOG_RETENTION_DAYS")
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn(ctx, "Ignoring TRADER_LOG_RETENTION_DAYS", "value", v, "error", err)
		return
	}
	if err := j.CompressOlder(n); err != nil {
		logger.Warn(ctx, "Failed to compress old logs", "error", err)
	}
}

// initializeMetrics registers the engine collectors plus the Go runtime ones.
func initializeMetrics() (*prometheus.Registry, *metrics.Recorder) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg, metrics.New(reg)
}

// serveMetrics exposes /metrics on addr until ctx ends. An empty addr
// disables the endpoint.
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info(ctx, "Serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorWithErr(ctx, "Metrics server stopped", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

// initializeSentiment builds the fusion cache over the configured sources.
// The returned closer releases the Redis client when one was opened.
func initializeSentiment(ctx context.Context, cfg *store.Config, prices interfaces.PriceHistory) (*sentiment.Fusion, func() error, error) {
	sources, err := news.Sources(cfg, prices)
	if err != nil {
		return nil, nil, err
	}

	noop := func() error { return nil }
	var opts []sentiment.Option
	closer := noop
	if cfg.Sentiment.Store == "REDIS" {
		rs, client, err := sentiment.NewRedisStoreFromURL(ctx, cfg.Sentiment.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("sentiment redis store: %w", err)
		}
		opts = append(opts, sentiment.WithStore(rs))
		closer = client.Close
		logger.Info(ctx, "Sentiment cache backed by Redis")
	}

	names := make([]string, 0, len(sources))
	for _, s := range sources {
		names = append(names, s.Name())
	}
	logger.Info(ctx, "Sentiment sources ready", "sources", names, "ttl", cfg.Sentiment.CacheTTL.String())
	return sentiment.New(sources, cfg.Sentiment.Weights, cfg.Sentiment.CacheTTL, opts...), closer, nil
}

// initializeApp wires providers, sentiment, the engine and the journal.
func initializeApp(ctx context.Context, cfg *store.Config, rec *metrics.Recorder) (*app, error) {
	providers, err := broker.New(ctx, cfg, rec)
	if err != nil {
		return nil, err
	}

	fusion, closer, err := initializeSentiment(ctx, cfg, providers.Prices)
	if err != nil {
		return nil, err
	}

	eval, err := engine.NewObserved(*cfg, providers.Prices, fusion, rec)
	if err != nil {
		_ = closer()
		return nil, err
	}

	if cfg.ShadowMode {
		logger.Warn(ctx, "Running in SHADOW mode - decisions are journaled but not forwarded")
	}

	return &app{
		cfg:       cfg,
		eval:      eval,
		positions: providers.Positions,
		journal:   tradelog.NewJournal(""),
		eod:       eod.NewObserved("", nil),
		out:       os.Stdout,
		dash:      os.Stderr,
		closers:   []func() error{closer},
	}, nil
}
