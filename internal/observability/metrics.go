package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	sessionsActive  prometheus.Gauge
	sessionsTotal   *prometheus.CounterVec
	sessionDuration prometheus.Histogram
	bytesSent       *prometheus.CounterVec
	heartbeatsTotal *prometheus.CounterVec
	clientsActive   prometheus.Gauge
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			sessionsActive: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "logstream_sessions_active",
					Help: "Current number of sessions being served.",
				},
			),
			sessionsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "logstream_sessions_total",
					Help: "Total finished sessions by outcome.",
				},
				[]string{"outcome"},
			),
			sessionDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "logstream_session_duration_seconds",
					Help:    "Session lifetime in seconds.",
					Buckets: []float64{0.01, 0.1, 1, 10, 60, 300, 1800, 3600, 14400},
				},
			),
			bytesSent: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "logstream_bytes_sent_total",
					Help: "Total markup bytes sent to clients by phase.",
				},
				[]string{"phase"},
			),
			heartbeatsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "logstream_heartbeats_total",
					Help: "Total heartbeat probes by result.",
				},
				[]string{"result"},
			),
			clientsActive: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "logstream_clients_active",
					Help: "Current number of connected WebSocket clients.",
				},
			),
		}

		prometheus.MustRegister(
			m.sessionsActive,
			m.sessionsTotal,
			m.sessionDuration,
			m.bytesSent,
			m.heartbeatsTotal,
			m.clientsActive,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func SessionStarted() {
	m := getMetrics()
	m.sessionsActive.Inc()
}

func SessionEnded(outcome string, duration time.Duration) {
	m := getMetrics()
	m.sessionsActive.Dec()
	m.sessionsTotal.WithLabelValues(outcome).Inc()
	m.sessionDuration.Observe(duration.Seconds())
}

func AddBytesSent(phase string, n int) {
	m := getMetrics()
	m.bytesSent.WithLabelValues(phase).Add(float64(n))
}

func RecordHeartbeat(success bool) {
	m := getMetrics()
	result := "failure"
	if success {
		result = "success"
	}
	m.heartbeatsTotal.WithLabelValues(result).Inc()
}

func SetActiveClients(count int) {
	m := getMetrics()
	m.clientsActive.Set(float64(count))
}
