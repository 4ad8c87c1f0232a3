package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"vaichover/internal/core"
	"vaichover/internal/types"
)

const (
	providerFCM = "fcm"

	// requestMetricTimeout bounds the detached PutMetricData issued per
	// HTTP request.
	requestMetricTimeout = 3 * time.Second
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchMetrics emits delivery and API telemetry to CloudWatch.
//
// Metrics emitted:
//   - DeliveryAttempt: Dims {Provider, Result} on every delivery outcome
//   - DeliveryLatency: Dims {Provider}
//   - DispatchQueueLag: time between enqueue and worker pickup
//   - TokensPruned: unregistered tokens removed from the directory
//   - APIRequestCount / APILatency: Dims {Endpoint, Status}
//
// Failures to publish are logged and never returned.
type CloudWatchMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    types.Logger

	inflight sync.WaitGroup
}

var (
	_ DeliveryMetrics       = (*CloudWatchMetrics)(nil)
	_ core.MetricsCollector = (*CloudWatchMetrics)(nil)
)

// NewCloudWatchMetrics creates a CloudWatchMetrics publishing to namespace.
// An empty namespace uses types.MetricNamespace.
func NewCloudWatchMetrics(client CloudWatchClient, namespace string, logger types.Logger) *CloudWatchMetrics {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &CloudWatchMetrics{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

func dim(name, value string) cwtypes.Dimension {
	return cwtypes.Dimension{Name: aws.String(name), Value: aws.String(value)}
}

func (m *CloudWatchMetrics) put(ctx context.Context, data ...cwtypes.MetricDatum) {
	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	})
	if err != nil {
		m.logger.Error("failed to put metric data",
			"error", err.Error(),
			"metric", aws.ToString(data[0].MetricName),
		)
	}
}

// RecordDelivery emits a DeliveryAttempt count.
func (m *CloudWatchMetrics) RecordDelivery(ctx context.Context, result MetricResult) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricDeliveryAttempt),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			dim(types.DimProvider, providerFCM),
			dim(types.DimResult, string(result)),
		},
	})
}

// RecordLatency emits the provider round trip in milliseconds.
func (m *CloudWatchMetrics) RecordLatency(ctx context.Context, duration time.Duration) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricDeliveryLatency),
		Value:      aws.Float64(float64(duration.Milliseconds())),
		Unit:       cwtypes.StandardUnitMilliseconds,
		Dimensions: []cwtypes.Dimension{dim(types.DimProvider, providerFCM)},
	})
}

// RecordQueueLag emits the time between enqueue and worker pickup.
func (m *CloudWatchMetrics) RecordQueueLag(ctx context.Context, lag time.Duration) {
	if lag < 0 {
		lag = 0
	}
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricQueueLag),
		Value:      aws.Float64(float64(lag.Milliseconds())),
		Unit:       cwtypes.StandardUnitMilliseconds,
	})
}

// RecordTokensPruned emits the number of directory entries removed.
func (m *CloudWatchMetrics) RecordTokensPruned(ctx context.Context, count int) {
	if count <= 0 {
		return
	}
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricTokensPruned),
		Value:      aws.Float64(float64(count)),
		Unit:       cwtypes.StandardUnitCount,
	})
}

// RecordRequest implements core.MetricsCollector. The put runs detached from
// the request so CloudWatch latency never reaches the client; Close waits for
// outstanding puts.
func (m *CloudWatchMetrics) RecordRequest(method, endpoint, status string, duration time.Duration) {
	dims := []cwtypes.Dimension{
		dim(types.DimEndpoint, method+" "+endpoint),
		dim(types.DimStatus, status),
	}
	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), requestMetricTimeout)
		defer cancel()
		m.put(ctx,
			cwtypes.MetricDatum{
				MetricName: aws.String(types.MetricAPIRequestCount),
				Value:      aws.Float64(1),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: dims,
			},
			cwtypes.MetricDatum{
				MetricName: aws.String(types.MetricAPILatency),
				Value:      aws.Float64(float64(duration.Milliseconds())),
				Unit:       cwtypes.StandardUnitMilliseconds,
				Dimensions: dims,
			},
		)
	}()
}

// Close blocks until detached request metrics have been sent.
func (m *CloudWatchMetrics) Close() error {
	m.inflight.Wait()
	return nil
}
