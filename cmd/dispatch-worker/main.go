// Package main is the entrypoint for the Dispatch Worker Lambda function.
//
// The worker consumes DispatchMessages from the dispatch SQS queue (filled by
// POST /api/broadcast), delivers each through FCM, and prunes tokens the
// provider reports as unregistered from the Postgres subscriber directory.
//
// Cold Start (main):
//  1. Load configuration (database and push sender required).
//  2. Initialize structured logger.
//  3. Open the subscriber directory pool.
//  4. Initialize the CloudWatch client for delivery telemetry.
//  5. Build Dispatcher and Handler, then call lambda.Start.
//
// Local mode (APP_ENV=local) reads one SQS event JSON from stdin instead:
//
//	echo '{"Records":[{"messageId":"1","body":"{\"token\":\"t\"}"}]}' | go run ./cmd/dispatch-worker
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"vaichover/internal/config"
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

func run() error {
	cfg, err := config.LoadConfig(config.RequireDatabase)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if cfg.Environment != "local" {
		if err := cfg.Require(config.RequirePushSender); err != nil {
			return err
		}
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logger.Info("Dispatch Worker initializing (cold start)", "build", cfg.Build.String())
	typed := types.NewSlogAdapter(logger)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()
	repo := db.NewSubscriberRepository(pool)

	var metrics notifications.DeliveryMetrics = notifications.NopMetrics{}
	if cfg.Observability.EnableMetrics {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
		if err != nil {
			return fmt.Errorf("loading AWS config: %w", err)
		}
		cwClient := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
			if cfg.AWS.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
			}
		})
		metrics = notifications.NewCloudWatchMetrics(cwClient, cfg.Observability.MetricNamespace, typed)
	}

	registry := external.NewClientRegistry(cfg, logger)
	handler := notifications.NewHandler(notifications.WorkerConfig{
		Dispatcher: notifications.NewDispatcher(registry.Push, repo, metrics, typed),
		Metrics:    metrics,
		AppURL:     cfg.Server.PublicAppURL,
		Logger:     typed,
	})

	logger.Info("Dispatch Worker initialized",
		"dispatch_queue", cfg.AWS.DispatchQueueURL,
		"metric_namespace", cfg.Observability.MetricNamespace,
	)

	if cfg.Environment == "local" {
		return runLocal(ctx, handler, os.Stdin, logger)
	}

	lambda.Start(handler.Handle)
	return nil
}

// runLocal feeds one SQS event read from in through the handler.
func runLocal(ctx context.Context, handler *notifications.Handler, in io.Reader, logger *slog.Logger) error {
	logger.Info("APP_ENV=local: reading SQS event from stdin")
	payload, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	if len(payload) == 0 {
		return fmt.Errorf("no input received on stdin")
	}

	var sqsEvent events.SQSEvent
	if err := json.Unmarshal(payload, &sqsEvent); err != nil {
		return fmt.Errorf("parsing stdin as SQS event: %w", err)
	}

	response, err := handler.Handle(ctx, sqsEvent)
	if err != nil {
		return fmt.Errorf("handler execution failed: %w", err)
	}
	if len(response.BatchItemFailures) > 0 {
		logger.Warn("Handler reported partial failures", "failed_count", len(response.BatchItemFailures))
		respJSON, _ := json.MarshalIndent(response, "", "  ")
		fmt.Fprintln(os.Stderr, string(respJSON))
	}
	logger.Info("Handler execution completed",
		"records_processed", len(sqsEvent.Records),
		"failures", len(response.BatchItemFailures),
	)
	return nil
}
