package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sciqlabs/tutorlink/internal/cli"
	"github.com/sciqlabs/tutorlink/internal/config"
	"github.com/sciqlabs/tutorlink/internal/logging"
)

func main() {
	slogLevel := slog.LevelInfo
	if os.Getenv("TUTORLINK_DEBUG") != "" {
		slogLevel = slog.LevelDebug
	}

	// log to stderr so the interactive prompt on stdout stays clean
	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slogLevel,
		TimeFormat: time.Kitchen,
	})
	slog.SetDefault(slog.New(handler))
	log := logging.NewSlogLogger(slog.Default())

	cfg := config.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr)
	}

	app, err := cli.NewApp(ctx, cfg, log)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}

	app.Run(ctx)
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("metrics server stopped", "error", err)
	}
}
