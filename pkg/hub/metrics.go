package hub

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the Prometheus metrics for the hub.
type metrics struct {
	eventsPublished *prometheus.CounterVec
	framesSent      *prometheus.CounterVec
	framesDropped   *prometheus.CounterVec
	sendErrors      *prometheus.CounterVec
	activeSessions  prometheus.Gauge
	activeTopics    prometheus.Gauge
}

// globalMetrics is the singleton metrics instance, created on first hub
// construction so repeated hubs (tests included) never double-register.
var (
	globalMetrics     *metrics
	globalMetricsOnce sync.Once
)

func getMetrics() *metrics {
	globalMetricsOnce.Do(func() {
		globalMetrics = newMetrics(prometheus.DefaultRegisterer)
	})
	return globalMetrics
}

func newMetrics(reg prometheus.Registerer) *metrics {
	const namespace = "rivulet"
	return &metrics{
		eventsPublished: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "events_published_total",
			Help:      "Events published into topic streams, by topic and kind.",
		}, []string{"topic", "kind"}),
		framesSent: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "frames_sent_total",
			Help:      "Frames written to WebSocket clients, by topic.",
		}, []string{"topic"}),
		framesDropped: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "frames_dropped_total",
			Help:      "Frames dropped because a session's send buffer was full.",
		}, []string{"topic"}),
		sendErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "send_errors_total",
			Help:      "WebSocket write failures, by topic.",
		}, []string{"topic"}),
		activeSessions: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "active_sessions",
			Help:      "Currently connected WebSocket sessions.",
		}),
		activeTopics: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "active_topics",
			Help:      "Currently registered topics.",
		}),
	}
}
