package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// EventLogMetrics contains Prometheus metrics for event log persistence
type EventLogMetrics struct {
	registry *prometheus.Registry

	eventsDropped prometheus.Gauge
	writeFailures prometheus.Gauge
}

// NewEventLogMetrics creates and registers new event log metrics
func NewEventLogMetrics(registry *prometheus.Registry) (*EventLogMetrics, error) {
	m := &EventLogMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *EventLogMetrics) initMetrics() error {
	m.eventsDropped = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "eventlog_events_dropped_total",
		Help: "Non-critical events lost to queue pressure or disk failure",
	})

	m.writeFailures = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "eventlog_write_failures_total",
		Help: "Event log write attempts that failed",
	})

	return nil
}

// Describe implements the Collector interface
func (m *EventLogMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.eventsDropped.Describe(ch)
	m.writeFailures.Describe(ch)
}

// Collect implements the Collector interface
func (m *EventLogMetrics) Collect(ch chan<- prometheus.Metric) {
	m.eventsDropped.Collect(ch)
	m.writeFailures.Collect(ch)
}

// Update refreshes the gauges from the logger's counters
func (m *EventLogMetrics) Update(dropped, writeFailures uint64) {
	m.eventsDropped.Set(float64(dropped))
	m.writeFailures.Set(float64(writeFailures))
}
