package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andy6609/rchan/internal/chat"
	"github.com/andy6609/rchan/internal/config"
	"github.com/andy6609/rchan/internal/history"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	envFile := flag.String("env-file", ".env", "optional env file")
	addr := flag.String("addr", "", "chat listen address (overrides RCHAN_ADDR)")
	metricsAddr := flag.String("metrics-addr", "", "metrics listen address (overrides RCHAN_METRICS_ADDR)")
	flag.Parse()

	cfg, err := config.LoadServer(*envFile)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	port, err := cfg.Port()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: config.Level(cfg.LogLevel),
	}))

	store, err := history.Open(cfg.HistoryBackend, cfg.HistoryPath, cfg.BadgerPath, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("close history", "error", err)
		}
	}()

	if cfg.MetricsAddr != "" {
		metrics := startMetrics(cfg.MetricsAddr, logger)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = metrics.Shutdown(ctx)
		}()
	}

	srv := chat.NewServer(cfg.Addr, chat.Config{
		Name:             cfg.Name,
		PublicIP:         cfg.PublicIP,
		Port:             port,
		ReadBufferSize:   cfg.ReadBuffer,
		MaxRemainder:     cfg.MaxRemainder,
		OutboundQueue:    cfg.OutboundQueue,
		DrainTimeout:     cfg.DrainTimeout,
		ReleaseUsernames: cfg.ReleaseUsernames,
	}, store, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	// A failing listener is fatal; there is no accept retry.
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("chat server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func startMetrics(addr string, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()
	return srv
}
