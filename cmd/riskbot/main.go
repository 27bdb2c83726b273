package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trading-risk-engine/internal/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config")
	once := flag.Bool("once", false, "evaluate one cycle and exit")
	metricsAddr := flag.String("metrics-addr", os.Getenv("METRICS_ADDR"), "listen address for /metrics, empty to disable")
	flag.Parse()

	if err := initializeSystem(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Shutdown(context.Background()) }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := loadConfig(ctx, *configPath)
	if err != nil {
		os.Exit(1)
	}

	reg, rec := initializeMetrics()
	serveMetrics(ctx, *metricsAddr, reg)

	a, err := initializeApp(ctx, cfg, rec)
	if err != nil {
		logger.ErrorWithErr(ctx, "Startup failed", err)
		os.Exit(1)
	}
	defer a.close()

	compressOldLogs(ctx, a.journal)

	if *once {
		if _, err := a.runCycle(ctx); err != nil {
			logger.ErrorWithErr(ctx, "Cycle failed", err)
			os.Exit(1)
		}
		return
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	tick := time.NewTicker(time.Duration(cfg.PollSeconds) * time.Second)
	defer tick.Stop()
	eodTick := time.NewTicker(60 * time.Second)
	defer eodTick.Stop()

	logger.Info(ctx, "Risk engine started", "poll_seconds", cfg.PollSeconds, "shadow", cfg.ShadowMode)
	runOnce := func() {
		if _, err := a.runCycle(ctx); err != nil {
			logger.ErrorWithErr(ctx, "Cycle failed", err)
		}
	}
	runOnce()

	for {
		select {
		case <-tick.C:
			runOnce()
		case <-eodTick.C:
			if ok, _ := a.eod.ShouldRunNow(); ok {
				a.runEOD(ctx)
			}
		case <-sigc:
			logger.Info(ctx, "Shutting down")
			a.runEOD(ctx)
			return
		case <-ctx.Done():
			return
		}
	}
}
