// Package metrics exposes Prometheus collectors for client loads and
// websocket connections. A nil *Recorder is valid and records nothing.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gsweb"

// Recorder holds all collectors.
type Recorder struct {
	LoadsTotal       *prometheus.CounterVec
	LoadDuration     *prometheus.HistogramVec
	LoadsInFlight    prometheus.Gauge
	FramesTotal      *prometheus.CounterVec
	ConnectionErrors *prometheus.CounterVec
	OpenConnections  prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg
// registers with prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	r := Recorder{
		LoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "loads_total",
				Help:      "Total number of loads by method and outcome",
			},
			[]string{"method", "outcome"},
		),
		LoadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "load_duration_seconds",
				Help:      "Load latency histogram",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
			},
			[]string{"method"},
		),
		LoadsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "loads_in_flight",
				Help:      "Current number of dispatched loads awaiting a response",
			},
		),
		FramesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ws_frames_total",
				Help:      "Websocket frames by direction and kind",
			},
			[]string{"direction", "kind"},
		),
		ConnectionErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ws_errors_total",
				Help:      "Websocket errors by stage",
			},
			[]string{"stage"},
		),
		OpenConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ws_open_connections",
				Help:      "Number of open websocket connections",
			},
		),
	}

	for _, c := range []prometheus.Collector{r.LoadsTotal, r.LoadDuration, r.LoadsInFlight, r.FramesTotal, r.ConnectionErrors, r.OpenConnections} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering collector: %w", err)
		}
	}

	return &r, nil
}

// RecordLoad records a completed load.
func (r *Recorder) RecordLoad(method, outcome string, seconds float64) {
	if r == nil {
		return
	}
	r.LoadsTotal.WithLabelValues(method, outcome).Inc()
	r.LoadDuration.WithLabelValues(method).Observe(seconds)
}

// LoadStarted increments the in-flight gauge.
func (r *Recorder) LoadStarted() {
	if r == nil {
		return
	}
	r.LoadsInFlight.Inc()
}

// LoadFinished decrements the in-flight gauge.
func (r *Recorder) LoadFinished() {
	if r == nil {
		return
	}
	r.LoadsInFlight.Dec()
}

// RecordFrame counts one websocket frame. direction is "in" or "out",
// kind is "text" or "binary".
func (r *Recorder) RecordFrame(direction, kind string) {
	if r == nil {
		return
	}
	r.FramesTotal.WithLabelValues(direction, kind).Inc()
}

// RecordConnectionError counts a websocket error at stage
// ("dial", "receive", "send").
func (r *Recorder) RecordConnectionError(stage string) {
	if r == nil {
		return
	}
	r.ConnectionErrors.WithLabelValues(stage).Inc()
}

// SetConnectionOpen moves the open connection gauge.
func (r *Recorder) SetConnectionOpen(open bool) {
	if r == nil {
		return
	}
	if open {
		r.OpenConnections.Inc()
	} else {
		r.OpenConnections.Dec()
	}
}
