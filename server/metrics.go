package server

import (
	"github.com/mbocsi/avi/proto"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "avi"

// Metrics holds the server's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	uplinks      *prometheus.CounterVec
	downlinks    *prometheus.CounterVec
	decodeErrors prometheus.Counter
	devices      prometheus.Gauge
	streamBytes  prometheus.Counter
	handleTime   *prometheus.HistogramVec
}

// NewMetrics registers the collectors on a fresh registry. The registry
// also carries the Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		uplinks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "uplinks_total",
			Help:      "Total number of device messages received, by type",
		}, []string{"type"}),

		downlinks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "downlinks_total",
			Help:      "Total number of messages sent to devices, by type",
		}, []string{"type"}),

		decodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "decode_errors_total",
			Help:      "Total number of datagrams that failed to decode",
		}),

		devices: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "devices",
			Help:      "Number of identified devices",
		}),

		streamBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "stream_bytes_total",
			Help:      "Total stream payload bytes relayed between devices",
		}),

		handleTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "handle_duration_seconds",
			Help:      "Time spent handling one device message",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}, []string{"type"}),
	}
}

func (m *Metrics) uplink(tag proto.UplinkTag) {
	if m != nil {
		m.uplinks.WithLabelValues(tag.String()).Inc()
	}
}

func (m *Metrics) downlink(tag proto.DownlinkTag) {
	if m != nil {
		m.downlinks.WithLabelValues(tag.String()).Inc()
	}
}

func (m *Metrics) decodeError() {
	if m != nil {
		m.decodeErrors.Inc()
	}
}

func (m *Metrics) setDevices(n int) {
	if m != nil {
		m.devices.Set(float64(n))
	}
}

func (m *Metrics) relayed(n int) {
	if m != nil {
		m.streamBytes.Add(float64(n))
	}
}

func (m *Metrics) observe(tag proto.UplinkTag, seconds float64) {
	if m != nil {
		m.handleTime.WithLabelValues(tag.String()).Observe(seconds)
	}
}
