package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Frame outcomes for RecordFrame
const (
	FrameAccepted = "accepted"
	FrameDropped  = "dropped"
	FrameInvalid  = "invalid"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slidelink",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "slidelink",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	peersConnected = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "slidelink",
			Subsystem: "relay",
			Name:      "peers",
			Help:      "Connected peers by mode.",
		},
		[]string{"mode"},
	)
	framesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slidelink",
			Subsystem: "relay",
			Name:      "frames_total",
			Help:      "Cursor updates received from peers, by outcome.",
		},
		[]string{"result"},
	)
	broadcasts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "slidelink",
			Subsystem: "relay",
			Name:      "broadcasts_total",
			Help:      "State messages queued to peers.",
		},
	)
)

// RegisterMetrics registers the relay collectors once
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, peersConnected, framesReceived, broadcasts)
	})
}

// RecordHTTPRequest counts and times one API request
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

// RecordPeerJoined increments the connected peer gauge for mode
func RecordPeerJoined(mode string) {
	RegisterMetrics()
	peersConnected.WithLabelValues(mode).Inc()
}

// RecordPeerLeft decrements the connected peer gauge for mode
func RecordPeerLeft(mode string) {
	RegisterMetrics()
	peersConnected.WithLabelValues(mode).Dec()
}

// RecordFrame counts one inbound frame by result
func RecordFrame(result string) {
	RegisterMetrics()
	framesReceived.WithLabelValues(result).Inc()
}

// RecordBroadcast counts one state message per receiving peer
func RecordBroadcast(peers int) {
	RegisterMetrics()
	broadcasts.Add(float64(peers))
}
