// Package telemetry publishes twin metrics to CloudWatch.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"airtwin/internal/sim"
	"airtwin/internal/store"
	"airtwin/internal/types"
)

const putTimeout = 2 * time.Second

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchMetrics emits simulation, refresh, snapshot and API metrics.
// Every datum carries the Airport dimension.
//
// Metrics emitted:
//   - TickDuration (ms), TickSkipped (count)
//   - RefreshSuccess / RefreshFailure (count), Dims {Source}
//   - ActiveFlights, ActiveAlerts (gauge per snapshot)
//   - AlertsPublished (count)
//   - APILatency (ms), Dims {Endpoint}
type CloudWatchMetrics struct {
	client    CloudWatchClient
	namespace string
	airport   string
	logger    types.Logger

	// mu serializes puts; the API path and the clock both record.
	mu sync.Mutex
}

// NewCloudWatchMetrics creates a recorder that puts every datum under
// namespace with an Airport dimension. An empty namespace selects
// types.MetricNamespace.
func NewCloudWatchMetrics(client CloudWatchClient, namespace, airport string, logger types.Logger) *CloudWatchMetrics {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	return &CloudWatchMetrics{
		client:    client,
		namespace: namespace,
		airport:   airport,
		logger:    logger,
	}
}

func (m *CloudWatchMetrics) dims(extra ...string) []cwtypes.Dimension {
	d := []cwtypes.Dimension{{Name: aws.String(types.DimAirport), Value: aws.String(m.airport)}}
	for i := 0; i+1 < len(extra); i += 2 {
		d = append(d, cwtypes.Dimension{Name: aws.String(extra[i]), Value: aws.String(extra[i+1])})
	}
	return d
}

func datum(name string, value float64, unit cwtypes.StandardUnit, dims []cwtypes.Dimension) cwtypes.MetricDatum {
	return cwtypes.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       unit,
		Dimensions: dims,
	}
}

func (m *CloudWatchMetrics) put(ctx context.Context, data ...cwtypes.MetricDatum) {
	ctx, cancel := context.WithTimeout(ctx, putTimeout)
	defer cancel()

	m.mu.Lock()
	defer m.mu.Unlock()
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	}
	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error("failed to put metric data",
			"error", err.Error(),
			"metric", aws.ToString(data[0].MetricName),
		)
	}
}

// RecordTick emits the tick duration, or a skip count when the tick did not run.
func (m *CloudWatchMetrics) RecordTick(ctx context.Context, res sim.TickResult) {
	if !res.Advanced {
		if res.Err == nil {
			m.put(ctx, datum(types.MetricTickSkipped, 1, cwtypes.StandardUnitCount, m.dims()))
		}
		return
	}
	m.put(ctx, datum(types.MetricTickDuration, float64(res.Duration.Milliseconds()), cwtypes.StandardUnitMilliseconds, m.dims()))
}

// RecordRefresh counts a refresh as a success or failure, per data source.
func (m *CloudWatchMetrics) RecordRefresh(ctx context.Context, source types.DataSource, res store.RefreshResult) {
	name := types.MetricRefreshSuccess
	if !res.OK {
		name = types.MetricRefreshFailure
	}
	m.put(ctx, datum(name, 1, cwtypes.StandardUnitCount, m.dims(types.DimSource, string(source))))
}

// RecordSnapshot publishes the active flight and alert gauges of a new snapshot.
func (m *CloudWatchMetrics) RecordSnapshot(ctx context.Context, summary types.DashboardSummary) {
	dims := m.dims()
	m.put(ctx,
		datum(types.MetricActiveFlights, float64(summary.ActiveFlights), cwtypes.StandardUnitCount, dims),
		datum(types.MetricActiveAlerts, float64(summary.Alerts), cwtypes.StandardUnitCount, dims),
	)
}

// RecordAlertsPublished counts alerts sent to the alert queue.
func (m *CloudWatchMetrics) RecordAlertsPublished(ctx context.Context, n int) {
	m.put(ctx, datum(types.MetricAlertsPublished, float64(n), cwtypes.StandardUnitCount, m.dims()))
}

// RecordRequest implements the HTTP chassis metrics collector.
func (m *CloudWatchMetrics) RecordRequest(method, endpoint, status string, duration time.Duration) {
	m.put(context.Background(), datum(types.MetricAPILatency, float64(duration.Milliseconds()),
		cwtypes.StandardUnitMilliseconds, m.dims(types.DimEndpoint, method+" "+endpoint, "Status", status)))
}

// Noop discards every metric. It is used when CloudWatch is not configured.
type Noop struct{}

func (Noop) RecordTick(context.Context, sim.TickResult)                           {}
func (Noop) RecordRefresh(context.Context, types.DataSource, store.RefreshResult) {}
func (Noop) RecordSnapshot(context.Context, types.DashboardSummary)               {}
func (Noop) RecordAlertsPublished(context.Context, int)                           {}
func (Noop) RecordRequest(string, string, string, time.Duration)                  {}
