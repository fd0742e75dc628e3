package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sliplink"

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total status server HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Status server HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	linkFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "frames_total",
			Help:      "SLIP frames by peer, direction and outcome.",
		},
		[]string{"peer", "direction", "outcome"},
	)
	linkBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "bytes_total",
			Help:      "Raw link bytes by peer and direction.",
		},
		[]string{"peer", "direction"},
	)
	noRoute = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "no_route_total",
			Help:      "Datagrams refused because the next hop is not a configured peer.",
		},
	)
)

// Frame outcomes recorded by the link layer.
const (
	OutcomeOK         = "ok"
	OutcomeEmpty      = "empty"
	OutcomeMalformed  = "malformed"
	OutcomeOversize   = "oversize"
	OutcomeRejected   = "rejected"
	OutcomeDropped    = "dropped"
	OutcomeSendFailed = "send_failed"
)

const (
	DirectionTX = "tx"
	DirectionRX = "rx"
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, linkFrames, linkBytes, noRoute)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordFrames(peer, direction, outcome string, n int) {
	if n <= 0 {
		return
	}
	RegisterMetrics()
	linkFrames.WithLabelValues(peer, direction, outcome).Add(float64(n))
}

func RecordBytes(peer, direction string, n int) {
	if n <= 0 {
		return
	}
	RegisterMetrics()
	linkBytes.WithLabelValues(peer, direction).Add(float64(n))
}

func RecordNoRoute() {
	RegisterMetrics()
	noRoute.Inc()
}
