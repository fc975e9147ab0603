package oteladapters_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/AntonStoeckl/library-lending-go/lending/oteladapters"
)

func Test_NewMetricsCollector_Construction(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("test")

	collector := oteladapters.NewMetricsCollector(meter)

	assert.NotNil(t, collector, "NewMetricsCollector should return non-nil collector")
}

func Test_MetricsCollector_RecordDuration(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("test")

	collector := oteladapters.NewMetricsCollector(meter)

	testDuration := 150 * time.Millisecond
	labels := map[string]string{
		"action": "get_book",
	}

	collector.RecordDuration("lending_store_query_duration_seconds", testDuration, labels)

	var resourceMetrics metricdata.ResourceMetrics
	err := reader.Collect(context.Background(), &resourceMetrics)
	require.NoError(t, err, "Failed to collect metrics")

	histogram := findHistogramMetric(t, resourceMetrics, "lending_store_query_duration_seconds")
	require.Len(t, histogram.DataPoints, 1, "Expected exactly one data point")

	dataPoint := histogram.DataPoints[0]

	assert.Equal(t, uint64(1), dataPoint.Count, "Histogram count should be 1")
	assert.InDelta(t, 0.15, dataPoint.Sum, 0.001, "Histogram sum should be 0.15 seconds")

	expectedAttrs := attribute.NewSet(
		attribute.String("action", "get_book"),
	)
	assert.True(t, dataPoint.Attributes.Equals(&expectedAttrs), "Attributes should match")
}

func Test_MetricsCollector_IncrementCounter(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("test")

	collector := oteladapters.NewMetricsCollector(meter)

	labels := map[string]string{
		"operation": "request_book",
		"outcome":   "success",
	}

	collector.IncrementCounter("lending_operations_total", labels)
	collector.IncrementCounter("lending_operations_total", labels)
	collector.IncrementCounter("lending_operations_total", labels)

	var resourceMetrics metricdata.ResourceMetrics
	err := reader.Collect(context.Background(), &resourceMetrics)
	require.NoError(t, err, "Failed to collect metrics")

	counter := findCounterMetric(t, resourceMetrics, "lending_operations_total")
	require.Len(t, counter.DataPoints, 1, "Expected exactly one data point")

	dataPoint := counter.DataPoints[0]
	assert.Equal(t, int64(3), dataPoint.Value, "Counter should have been incremented three times")
}

func Test_MetricsCollector_RecordValue(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("test")

	collector := oteladapters.NewMetricsCollector(meter)

	collector.RecordValue("lending_available_copies", 2, map[string]string{"book": "learning-ddd"})
	collector.RecordValue("lending_available_copies", 1, map[string]string{"book": "learning-ddd"})

	var resourceMetrics metricdata.ResourceMetrics
	err := reader.Collect(context.Background(), &resourceMetrics)
	require.NoError(t, err, "Failed to collect metrics")

	gauge := findGaugeMetric(t, resourceMetrics, "lending_available_copies")
	require.Len(t, gauge.DataPoints, 1, "Expected exactly one data point")

	assert.InDelta(t, 1.0, gauge.DataPoints[0].Value, 0.001, "Gauge should hold the last recorded value")
}

func findHistogramMetric(t *testing.T, resourceMetrics metricdata.ResourceMetrics, name string) metricdata.Histogram[float64] {
	t.Helper()

	for _, scopeMetrics := range resourceMetrics.ScopeMetrics {
		for _, m := range scopeMetrics.Metrics {
			if m.Name == name {
				histogram, ok := m.Data.(metricdata.Histogram[float64])
				require.True(t, ok, "metric %s should be a float64 histogram", name)

				return histogram
			}
		}
	}

	t.Fatalf("histogram metric %s not found", name)

	return metricdata.Histogram[float64]{}
}

func findCounterMetric(t *testing.T, resourceMetrics metricdata.ResourceMetrics, name string) metricdata.Sum[int64] {
	t.Helper()

	for _, scopeMetrics := range resourceMetrics.ScopeMetrics {
		for _, m := range scopeMetrics.Metrics {
			if m.Name == name {
				sum, ok := m.Data.(metricdata.Sum[int64])
				require.True(t, ok, "metric %s should be an int64 sum", name)

				return sum
			}
		}
	}

	t.Fatalf("counter metric %s not found", name)

	return metricdata.Sum[int64]{}
}

func findGaugeMetric(t *testing.T, resourceMetrics metricdata.ResourceMetrics, name string) metricdata.Gauge[float64] {
	t.Helper()

	for _, scopeMetrics := range resourceMetrics.ScopeMetrics {
		for _, m := range scopeMetrics.Metrics {
			if m.Name == name {
				gauge, ok := m.Data.(metricdata.Gauge[float64])
				require.True(t, ok, "metric %s should be a float64 gauge", name)

				return gauge
			}
		}
	}

	t.Fatalf("gauge metric %s not found", name)

	return metricdata.Gauge[float64]{}
}
