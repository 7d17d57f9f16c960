package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/bouquent/allocator-vec/internal/logging"
	"github.com/bouquent/allocator-vec/internal/memory"
)

func main() {
	envFile := flag.String("env-file", ".env", "Optional dotenv file loaded before reading ALLOCVEC_* variables")
	flag.Parse()

	if err := run(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "allocvec: %v\n", err)
		os.Exit(1)
	}
}

func run(envFile string) error {
	// variables already set in the environment win over the file
	envErr := godotenv.Load(envFile)
	if envErr != nil && errors.Is(envErr, fs.ErrNotExist) {
		envErr = nil
	}

	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(logging.Config{
		Format: cfg.LogFormat,
		Level:  cfg.LogLevel,
		Output: os.Stdout,
	})
	if err != nil {
		return err
	}
	if envErr != nil {
		logger.Warn().Err(envErr).Str("file", envFile).Msg("Failed to load env file")
	}

	poolLogger := logger.With().Str("component", "pool").Logger()
	cfg.Logger = &poolLogger
	pool, err := memory.New(cfg.Config)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Str("backend", cfg.Backend).
		Int64("heap_limit", cfg.HeapLimit).
		Int("elements", cfg.Elements).
		Int("iterations", cfg.Iterations).
		Msg("Starting allocvec workload")

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Serve {
		g.Go(func() error {
			return serveMetrics(gctx, cfg.MetricsAddr, logger)
		})
	}

	g.Go(func() error {
		res, err := RunWorkload(gctx, pool, cfg, logger)
		if err != nil {
			return fmt.Errorf("workload: %w", err)
		}
		logResult(logger, res)
		if cfg.Serve {
			logger.Info().Str("address", cfg.MetricsAddr).Msg("Workload done, serving metrics until interrupted")
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// serveMetrics exposes the Prometheus registry on addr until ctx is done.
func serveMetrics(ctx context.Context, addr string, logger zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("address", addr).Msg("Starting metrics server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics server shutdown: %w", err)
	}
	logger.Info().Msg("Metrics server stopped")
	return nil
}
