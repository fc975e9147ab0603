package promadapters_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-lending-go/lending/promadapters"
)

func Test_NewMetricsCollector_Construction(t *testing.T) {
	collector := promadapters.NewMetricsCollector(prometheus.NewRegistry())
	assert.NotNil(t, collector, "NewMetricsCollector should return non-nil collector")
}

func Test_MetricsCollector_IncrementCounter(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := promadapters.NewMetricsCollector(registry)

	labels := map[string]string{
		"operation": "request_book",
		"outcome":   "success",
	}

	collector.IncrementCounter("lending_operations_total", labels)
	collector.IncrementCounter("lending_operations_total", labels)

	metricFamily := gatherMetricFamily(t, registry, "lending_operations_total")
	require.Len(t, metricFamily.GetMetric(), 1, "Expected exactly one label combination")

	metric := metricFamily.GetMetric()[0]
	assert.InDelta(t, 2.0, metric.GetCounter().GetValue(), 0.001, "Counter should have been incremented twice")
	assert.ElementsMatch(t,
		[]string{"operation", "outcome"},
		labelNamesOf(metric),
		"Counter should carry the given label names")
}

func Test_MetricsCollector_RecordDuration(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := promadapters.NewMetricsCollector(registry)

	collector.RecordDuration("lending_store_query_duration_seconds", 150*time.Millisecond, map[string]string{
		"action": "get_book",
	})

	metricFamily := gatherMetricFamily(t, registry, "lending_store_query_duration_seconds")
	require.Len(t, metricFamily.GetMetric(), 1, "Expected exactly one label combination")

	histogram := metricFamily.GetMetric()[0].GetHistogram()
	assert.Equal(t, uint64(1), histogram.GetSampleCount(), "Histogram count should be 1")
	assert.InDelta(t, 0.15, histogram.GetSampleSum(), 0.001, "Histogram sum should be 0.15 seconds")
}

func Test_MetricsCollector_RecordValue(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := promadapters.NewMetricsCollector(registry)

	collector.RecordValue("lending_available_copies", 2, map[string]string{"book": "learning-ddd"})
	collector.RecordValue("lending_available_copies", 1, map[string]string{"book": "learning-ddd"})

	metricFamily := gatherMetricFamily(t, registry, "lending_available_copies")
	require.Len(t, metricFamily.GetMetric(), 1, "Expected exactly one label combination")

	assert.InDelta(t, 1.0, metricFamily.GetMetric()[0].GetGauge().GetValue(), 0.001,
		"Gauge should hold the last recorded value")
}

func Test_MetricsCollector_ReusesCollectorPerLabelSet(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := promadapters.NewMetricsCollector(registry)

	collector.IncrementCounter("lending_operations_total", map[string]string{"operation": "request_book", "outcome": "success"})
	collector.IncrementCounter("lending_operations_total", map[string]string{"operation": "return_book", "outcome": "failure"})

	metricFamily := gatherMetricFamily(t, registry, "lending_operations_total")
	assert.Len(t, metricFamily.GetMetric(), 2, "Same metric with two label combinations should share one collector")
}

func Test_MetricsCollector_SharedRegisterer_ReusesExistingCollector(t *testing.T) {
	registry := prometheus.NewRegistry()
	labels := map[string]string{"operation": "request_book", "outcome": "success"}

	first := promadapters.NewMetricsCollector(registry)
	second := promadapters.NewMetricsCollector(registry)

	first.IncrementCounter("lending_operations_total", labels)
	second.IncrementCounter("lending_operations_total", labels)

	first.RecordDuration("lending_store_query_duration_seconds", 100*time.Millisecond, map[string]string{"action": "get_book"})
	second.RecordDuration("lending_store_query_duration_seconds", 50*time.Millisecond, map[string]string{"action": "get_book"})

	second.RecordValue("lending_available_copies", 3, map[string]string{"book": "learning-ddd"})
	first.RecordValue("lending_available_copies", 1, map[string]string{"book": "learning-ddd"})

	counterFamily := gatherMetricFamily(t, registry, "lending_operations_total")
	require.Len(t, counterFamily.GetMetric(), 1, "Both instances should feed one collector")
	assert.InDelta(t, 2.0, counterFamily.GetMetric()[0].GetCounter().GetValue(), 0.001,
		"Second instance's increment must not be dropped")

	histogramFamily := gatherMetricFamily(t, registry, "lending_store_query_duration_seconds")
	require.Len(t, histogramFamily.GetMetric(), 1, "Both instances should feed one collector")
	assert.Equal(t, uint64(2), histogramFamily.GetMetric()[0].GetHistogram().GetSampleCount(),
		"Second instance's observation must not be dropped")

	gaugeFamily := gatherMetricFamily(t, registry, "lending_available_copies")
	require.Len(t, gaugeFamily.GetMetric(), 1, "Both instances should feed one collector")
	assert.InDelta(t, 1.0, gaugeFamily.GetMetric()[0].GetGauge().GetValue(), 0.001,
		"Gauge should hold the last value set through either instance")
}

func gatherMetricFamily(t *testing.T, registry *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()

	metricFamilies, err := registry.Gather()
	require.NoError(t, err, "Failed to gather metrics")

	for _, metricFamily := range metricFamilies {
		if metricFamily.GetName() == name {
			return metricFamily
		}
	}

	t.Fatalf("metric family %s not found", name)

	return nil
}

func labelNamesOf(metric *dto.Metric) []string {
	names := make([]string, 0, len(metric.GetLabel()))
	for _, labelPair := range metric.GetLabel() {
		names = append(names, labelPair.GetName())
	}

	return names
}
