// Package metrics exposes the latest observation as Prometheus metrics
// written to a node_exporter textfile.
package metrics

import (
	"github.com/itohio/streamgauge/pkg/record"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "streamgauge"

// Metrics holds the collectors of one logger.
type Metrics struct {
	reg *prometheus.Registry

	distance  prometheus.Gauge
	battery   prometheus.Gauge
	status    prometheus.Gauge
	timestamp prometheus.Gauge
	fields    *prometheus.GaugeVec
	logged    prometheus.Counter
	skipped   prometheus.Counter
	presence  *prometheus.GaugeVec
}

// New registers the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		distance: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "distance_mm",
			Help: "Scaled distance median of the last observation.",
		}),
		battery: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "battery_volts",
			Help: "Battery voltage of the last observation.",
		}),
		status: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "status_bits",
			Help: "Health bit-field of the last observation.",
		}),
		timestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "observation_timestamp_seconds",
			Help: "Station clock time of the last observation.",
		}),
		fields: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "field",
			Help: "Quality controlled sensor field of the last observation.",
		}, []string{"key"}),
		logged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "observations_total",
			Help: "Observations built.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "observations_skipped_total",
			Help: "Observations skipped because the clock was not valid.",
		}),
		presence: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "sensor_present",
			Help: "1 when the sensor slot is online.",
		}, []string{"slot"}),
	}
	m.reg.MustRegister(m.distance, m.battery, m.status, m.timestamp, m.fields, m.logged, m.skipped, m.presence)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Observe records an assembled observation.
func (m *Metrics) Observe(o record.Observation) {
	m.logged.Inc()
	m.distance.Set(float64(o.Distance))
	m.battery.Set(float64(o.Battery))
	m.status.Set(float64(o.Status))
	m.timestamp.Set(float64(o.At.Unix()))

	m.fields.Reset()
	for _, f := range o.Fields {
		m.fields.WithLabelValues(f.Key).Set(float64(f.Value))
	}
}

// Skipped counts an observation that was not produced.
func (m *Metrics) Skipped() {
	m.skipped.Inc()
}

// Presence records whether a slot is online.
func (m *Metrics) Presence(slot string, present bool) {
	v := 0.0
	if present {
		v = 1
	}
	m.presence.WithLabelValues(slot).Set(v)
}

// WriteTextfile atomically writes all metrics to path.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}
