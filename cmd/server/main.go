// Command server serves the browser tic-tac-toe game.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jaminalder/solo-tic-tac-toe/internal/app"
	"github.com/jaminalder/solo-tic-tac-toe/internal/config"
	"github.com/jaminalder/solo-tic-tac-toe/internal/telemetry"
	"github.com/jaminalder/solo-tic-tac-toe/internal/web"
)

var version = "dev"

func main() {
	defer func() {
		if err := recover(); err != nil {
			fmt.Fprintf(os.Stderr, "recovered from panic: %v\n", err)
			os.Exit(1)
		}
	}()

	configPath := flag.String("config", "config.yml", "path to the YAML config file")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	logger := initLogger(conf)
	slog.SetDefault(logger)

	if err := run(logger, conf); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, conf *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOtel, err := telemetry.InitOtel(ctx, conf.OTLPEndpoint, version)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := shutdownOtel(context.Background()); err != nil {
			logger.Error("telemetry shutdown", "error", err)
		}
	}()

	metrics, err := telemetry.NewMetrics(nil)
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	svc := app.NewServiceWithOptions(app.Options{
		Delay:   conf.Opponent.Delay,
		Logger:  logger,
		Metrics: metrics,
	})
	go sweep(ctx, svc, conf.Sessions.SweepInterval, conf.Sessions.IdleTimeout)

	handler := web.NewServer(svc, web.WithLogger(logger), web.WithHeartbeat(conf.Sessions.Heartbeat))
	httpServer := newHTTPServer(ctx, conf.HTTPAddr, handler)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server started", "addr", conf.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// newHTTPServer derives every request context from ctx, so long-lived SSE
// handlers return once ctx is cancelled and Shutdown can drain them.
func newHTTPServer(ctx context.Context, addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

// sweep drops idle games until ctx is done.
func sweep(ctx context.Context, svc *app.Service, every, maxIdle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.Sweep(maxIdle)
		}
	}
}

func initLogger(conf *config.Config) *slog.Logger {
	var level slog.Level

	switch conf.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if conf.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
