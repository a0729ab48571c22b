// Package metrics exposes relay counters for Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests served by the sidecar.",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	wsActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_active_connections",
			Help: "Live relay WebSocket connections.",
		},
	)

	activeRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_active_rooms",
			Help: "Rooms with at least one member.",
		},
	)

	messagesRouted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_messages_routed_total",
			Help: "Signaling frames delivered to a recipient queue.",
		},
		[]string{"type"},
	)

	framesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_dropped_frames_total",
			Help: "Frames that were not delivered.",
		},
		[]string{"reason"},
	)

	routingErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_routing_errors_total",
			Help: "Error frames returned to requesters.",
		},
		[]string{"code"},
	)
)

func RecordHTTPMetrics(method, endpoint string, status int, duration time.Duration) {
	strStatus := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, endpoint, strStatus).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, strStatus).Observe(duration.Seconds())
}

func IncrementWSActiveConnections() { wsActiveConnections.Inc() }

func DecrementWSActiveConnections() { wsActiveConnections.Dec() }

func SetActiveRooms(n int) { activeRooms.Set(float64(n)) }

func MessageRouted(kind string) { messagesRouted.WithLabelValues(kind).Inc() }

func FrameDropped(reason string) { framesDropped.WithLabelValues(reason).Inc() }

func RoutingError(code string) { routingErrors.WithLabelValues(code).Inc() }
