// Package notifications implements server-side push delivery: queued
// broadcast fan-out over SQS, the per-message dispatch pipeline used by both
// the send-notification endpoint and the dispatch worker, and CloudWatch
// delivery telemetry.
//
// A broadcast flows as:
//
//	POST /api/broadcast -> DispatchPublisher (one SQS message per token)
//	  -> dispatch-worker Handler -> Dispatcher -> FCM
//	       UNREGISTERED -> TokenPruner.Delete
package notifications

import (
	"context"
	"time"
)

// MetricResult is the Result dimension of the DeliveryAttempt metric.
type MetricResult string

const (
	MetricSuccess      MetricResult = "success"
	MetricFailed       MetricResult = "failed"
	MetricRetry        MetricResult = "retry"
	MetricUnregistered MetricResult = "unregistered"
)

// DeliveryMetrics records push delivery telemetry.
type DeliveryMetrics interface {
	RecordDelivery(ctx context.Context, result MetricResult)
	RecordLatency(ctx context.Context, duration time.Duration)
	RecordQueueLag(ctx context.Context, lag time.Duration)
	RecordTokensPruned(ctx context.Context, count int)
}

// TokenPruner removes a dead device token from the subscriber directory.
// db.SubscriberRepository satisfies it.
type TokenPruner interface {
	Delete(ctx context.Context, token string) (bool, error)
}

// NopMetrics discards all telemetry. Used when ENABLE_METRICS is false.
type NopMetrics struct{}

func (NopMetrics) RecordDelivery(context.Context, MetricResult) {}
func (NopMetrics) RecordLatency(context.Context, time.Duration) {}
func (NopMetrics) RecordQueueLag(context.Context, time.Duration) {}
func (NopMetrics) RecordTokensPruned(context.Context, int) {}
func (NopMetrics) RecordRequest(string, string, string, time.Duration) {}
