// Package main is the entry point for the vaichover token directory API.
//
// It loads configuration, opens the Postgres subscriber directory, builds the
// HTTP server with the core chassis (middleware, routing, health checks) and
// mounts the register-token, send-notification and broadcast handlers.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"vaichover/internal/api/handlers"
	"vaichover/internal/config"
	"vaichover/internal/core"
	"vaichover/internal/db"
	"vaichover/internal/external"
	"vaichover/internal/notifications"
	"vaichover/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// directory is the subscriber store the handlers and probes need.
type directory interface {
	handlers.TokenStore
	handlers.SubscriberLister
	Ping(ctx context.Context) error
}

// apiDeps are the runtime collaborators of buildServer.
type apiDeps struct {
	Directory directory
	Sender    external.PushSender
	Queue     handlers.DispatchQueue // nil disables /api/broadcast
	Metrics   *notifications.CloudWatchMetrics
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig(config.RequireDatabase)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("vaichover API starting",
		"environment", cfg.Environment,
		"build", cfg.Build.String(),
		"port", cfg.Server.Port,
	)

	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	repo := db.NewSubscriberRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("preparing schema: %w", err)
	}

	registry := external.NewClientRegistry(cfg, logger)
	deps := apiDeps{Directory: repo, Sender: registry.Push}

	if cfg.AWS.DispatchQueueURL != "" || cfg.Observability.EnableMetrics {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
		if err != nil {
			pool.Close()
			return fmt.Errorf("loading AWS config: %w", err)
		}
		typed := types.NewSlogAdapter(logger)

		if cfg.AWS.DispatchQueueURL != "" {
			sqsClient := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
				if cfg.AWS.EndpointURL != "" {
					o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
				}
			})
			deps.Queue = notifications.NewDispatchPublisher(sqsClient, cfg.AWS.DispatchQueueURL, typed)
		}
		if cfg.Observability.EnableMetrics {
			cwClient := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
				if cfg.AWS.EndpointURL != "" {
					o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
				}
			})
			deps.Metrics = notifications.NewCloudWatchMetrics(cwClient, cfg.Observability.MetricNamespace, typed)
		}
	}

	srv, err := buildServer(cfg, logger, deps)
	if err != nil {
		pool.Close()
		return fmt.Errorf("creating server: %w", err)
	}
	srv.OnShutdown(func() error {
		pool.Close()
		return nil
	})
	if deps.Metrics != nil {
		srv.OnShutdown(deps.Metrics.Close)
	}

	return runHTTPServer(srv, cfg, logger)
}

// buildServer wires the handlers onto the core chassis and mounts routes.
func buildServer(cfg *config.Config, logger *slog.Logger, deps apiDeps) (*core.Server, error) {
	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return nil, err
	}

	var delivery notifications.DeliveryMetrics = notifications.NopMetrics{}
	if deps.Metrics != nil {
		srv.Metrics = deps.Metrics
		delivery = deps.Metrics
	}

	srv.HealthProbes = append(srv.HealthProbes, core.ProbeFunc{
		ProbeName: "database",
		Fn:        deps.Directory.Ping,
	})

	typed := types.NewSlogAdapter(logger)
	dispatcher := notifications.NewDispatcher(deps.Sender, deps.Directory, delivery, typed)
	defaults := handlers.DefaultsFromConfig(cfg)
	keyHash := cfg.Security.DispatchKeyHash

	tokenHandler := handlers.NewTokenHandler(deps.Directory, logger)
	dispatchHandler := handlers.NewDispatchHandler(dispatcher, srv.Validator, defaults, keyHash, logger)
	srv.RouteRegistrars = append(srv.RouteRegistrars,
		tokenHandler.RegisterRoutes,
		dispatchHandler.RegisterRoutes,
	)

	if deps.Queue != nil {
		broadcastHandler := handlers.NewBroadcastHandler(deps.Directory, deps.Queue, srv.Validator, defaults, keyHash, logger)
		srv.RouteRegistrars = append(srv.RouteRegistrars, broadcastHandler.RegisterRoutes)
	} else {
		logger.Warn("SQS_DISPATCH not set; /api/broadcast disabled")
	}

	if !keyHash.IsSet() {
		logger.Warn("DISPATCH_KEY_HASH not set; dispatch endpoints are open")
	}

	srv.MountRoutes()
	return srv, nil
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			_ = srv.Shutdown(context.Background())
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return err
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
