package notifications

import (
	"context"
	"errors"

	"vaichover/internal/external"
	"vaichover/internal/types"
)

// Dispatcher sends one push message through the provider and reconciles the
// directory when the provider reports the token as dead.
type Dispatcher struct {
	sender  external.PushSender
	pruner  TokenPruner
	metrics DeliveryMetrics
	logger  types.Logger
	clock   types.Clock
}

// NewDispatcher creates a Dispatcher. pruner may be nil when no directory is
// reachable; metrics may be nil to disable telemetry.
func NewDispatcher(sender external.PushSender, pruner TokenPruner, metrics DeliveryMetrics, logger types.Logger) *Dispatcher {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &Dispatcher{
		sender:  sender,
		pruner:  pruner,
		metrics: metrics,
		logger:  logger,
		clock:   utcClock{},
	}
}

// Deliver sends msg and returns the provider message name. On an
// unregistered-token error the token is deleted from the directory before
// the error is returned; pruning failures are logged only.
func (d *Dispatcher) Deliver(ctx context.Context, msg types.PushMessage) (string, error) {
	start := d.clock.Now()
	name, err := d.sender.Send(ctx, msg)
	d.metrics.RecordLatency(ctx, d.clock.Now().Sub(start))

	if err == nil {
		d.metrics.RecordDelivery(ctx, MetricSuccess)
		return name, nil
	}

	switch {
	case errors.Is(err, external.ErrTokenUnregistered):
		d.metrics.RecordDelivery(ctx, MetricUnregistered)
		d.prune(ctx, msg.Token)
	case external.IsPermanentPushError(err):
		d.metrics.RecordDelivery(ctx, MetricFailed)
	default:
		d.metrics.RecordDelivery(ctx, MetricRetry)
	}
	return "", err
}

func (d *Dispatcher) prune(ctx context.Context, token string) {
	if d.pruner == nil {
		return
	}
	removed, err := d.pruner.Delete(ctx, token)
	if err != nil {
		d.logger.Warn("failed to prune unregistered token", "error", err.Error())
		return
	}
	if removed {
		d.metrics.RecordTokensPruned(ctx, 1)
		d.logger.Info("pruned unregistered token")
	}
}
