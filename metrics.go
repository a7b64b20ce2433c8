package omnichat

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "omnichat"

// Metrics holds the orchestrator's Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	Requests      *prometheus.CounterVec
	Duration      *prometheus.HistogramVec
	Errors        *prometheus.CounterVec
	InFlight      prometheus.Gauge
	VoiceSessions *prometheus.CounterVec
	Speech        *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "requests_total",
			Help:      "Orchestrated requests by intent, provider and status",
		}, []string{"intent", "provider", "status"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "request_duration_seconds",
			Help:      "Orchestrated request latency",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"intent"}),
		Errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "errors_total",
			Help:      "Normalized provider errors by kind",
		}, []string{"provider", "kind"}),
		InFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "in_flight",
			Help:      "Requests currently being processed",
		}),
		VoiceSessions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "voice",
			Name:      "sessions_total",
			Help:      "Finished voice sessions by stop reason",
		}, []string{"reason"}),
		Speech: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "speech",
			Name:      "synthesis_total",
			Help:      "Speech synthesis attempts by outcome",
		}, []string{"outcome"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "path", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

func (m *Metrics) observeRequest(intent, provider, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(intent, provider, status).Inc()
	m.Duration.WithLabelValues(intent).Observe(d.Seconds())
}

func (m *Metrics) observeError(provider, kind string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(provider, kind).Inc()
}

func (m *Metrics) inFlight(delta float64) {
	if m == nil {
		return
	}
	m.InFlight.Add(delta)
}

func (m *Metrics) observeVoice(reason string) {
	if m == nil {
		return
	}
	m.VoiceSessions.WithLabelValues(reason).Inc()
}

func (m *Metrics) observeSpeech(outcome string) {
	if m == nil {
		return
	}
	m.Speech.WithLabelValues(outcome).Inc()
}

// ObserveHTTP records one served HTTP request.
func (m *Metrics) ObserveHTTP(method, path, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, path, status).Inc()
	m.HTTPDuration.WithLabelValues(method, path).Observe(d.Seconds())
}
