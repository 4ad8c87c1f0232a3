package core

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
)

// MetricsCollector records API telemetry. Implementations emit
// types.MetricAPILatency and types.MetricAPIRequestCount.
type MetricsCollector interface {
	RecordRequest(method, endpoint, status string, duration time.Duration)
}

// HealthProbe is a subsystem health check run by GET /health.
type HealthProbe interface {
	// Name identifies the probe in the response (e.g. "database").
	Name() string

	// Check must respect the context deadline.
	Check(ctx context.Context) error
}

// RouteRegistrar mounts a handler group on the /api router.
type RouteRegistrar func(r chi.Router)

// ProbeFunc adapts a function to HealthProbe.
type ProbeFunc struct {
	ProbeName string
	Fn        func(ctx context.Context) error
}

func (p ProbeFunc) Name() string                    { return p.ProbeName }
func (p ProbeFunc) Check(ctx context.Context) error { return p.Fn(ctx) }
