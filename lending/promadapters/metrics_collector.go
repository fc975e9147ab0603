// Package promadapters provides a Prometheus adapter for the lending
// metrics interface, for deployments scraping metrics with the Prometheus
// client instead of OpenTelemetry.
package promadapters

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AntonStoeckl/library-lending-go/lending"
)

// MetricsCollector implements lending.MetricsCollector on a Prometheus
// registerer. Collectors are created on-demand, keyed by metric name and the
// sorted set of label names, since Prometheus fixes label names per metric.
type MetricsCollector struct {
	registerer prometheus.Registerer

	mu         sync.Mutex
	histograms map[string]*prometheus.HistogramVec
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
}

// NewMetricsCollector creates a collector registering on the given registerer,
// e.g. prometheus.DefaultRegisterer.
func NewMetricsCollector(registerer prometheus.Registerer) *MetricsCollector {
	return &MetricsCollector{
		registerer: registerer,
		histograms: make(map[string]*prometheus.HistogramVec),
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
	}
}

// RecordDuration observes a duration in seconds on a histogram.
func (m *MetricsCollector) RecordDuration(metricName string, duration time.Duration, labels map[string]string) {
	histogram := m.getOrCreateHistogram(metricName, labelNames(labels))
	if histogram == nil {
		return
	}

	histogram.With(labels).Observe(duration.Seconds())
}

// IncrementCounter increments a counter.
func (m *MetricsCollector) IncrementCounter(metricName string, labels map[string]string) {
	counter := m.getOrCreateCounter(metricName, labelNames(labels))
	if counter == nil {
		return
	}

	counter.With(labels).Inc()
}

// RecordValue sets a gauge to the given value.
func (m *MetricsCollector) RecordValue(metricName string, value float64, labels map[string]string) {
	gauge := m.getOrCreateGauge(metricName, labelNames(labels))
	if gauge == nil {
		return
	}

	gauge.With(labels).Set(value)
}

func (m *MetricsCollector) getOrCreateHistogram(metricName string, names []string) *prometheus.HistogramVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := collectorKey(metricName, names)

	if histogram, exists := m.histograms[key]; exists {
		return histogram
	}

	histogram := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: metricName}, names)
	if err := m.registerer.Register(histogram); err != nil {
		existing, ok := existingCollector[*prometheus.HistogramVec](err)
		if !ok {
			return nil
		}

		histogram = existing
	}

	m.histograms[key] = histogram

	return histogram
}

func (m *MetricsCollector) getOrCreateCounter(metricName string, names []string) *prometheus.CounterVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := collectorKey(metricName, names)

	if counter, exists := m.counters[key]; exists {
		return counter
	}

	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: metricName}, names)
	if err := m.registerer.Register(counter); err != nil {
		existing, ok := existingCollector[*prometheus.CounterVec](err)
		if !ok {
			return nil
		}

		counter = existing
	}

	m.counters[key] = counter

	return counter
}

func (m *MetricsCollector) getOrCreateGauge(metricName string, names []string) *prometheus.GaugeVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := collectorKey(metricName, names)

	if gauge, exists := m.gauges[key]; exists {
		return gauge
	}

	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: metricName}, names)
	if err := m.registerer.Register(gauge); err != nil {
		existing, ok := existingCollector[*prometheus.GaugeVec](err)
		if !ok {
			return nil
		}

		gauge = existing
	}

	m.gauges[key] = gauge

	return gauge
}

// existingCollector recovers the already-registered collector when a second
// registration of the same metric is attempted, e.g. by another collector
// instance sharing the registerer. Measurements then land on the original
// collector instead of being dropped.
func existingCollector[T prometheus.Collector](err error) (T, bool) {
	var alreadyRegistered prometheus.AlreadyRegisteredError
	if errors.As(err, &alreadyRegistered) {
		if existing, ok := alreadyRegistered.ExistingCollector.(T); ok {
			return existing, true
		}
	}

	var zero T

	return zero, false
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func collectorKey(metricName string, names []string) string {
	return metricName + "|" + strings.Join(names, ",")
}

var _ lending.MetricsCollector = (*MetricsCollector)(nil)
