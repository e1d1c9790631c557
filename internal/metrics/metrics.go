// Package metrics exposes prometheus collectors for quiz sessions, results,
// GPA computations and explanations. A nil *Metrics records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	gatherer prometheus.Gatherer

	sessionsStarted prometheus.Counter
	results         *prometheus.CounterVec
	percentage      prometheus.Histogram
	persistFailures prometheus.Counter
	gpaComputations *prometheus.CounterVec
	explanations    *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_sessions_started_total",
			Help: "Total number of quiz sessions created",
		}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_results_total",
			Help: "Total number of completed quiz sessions",
		}, []string{"reason"}),
		percentage: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "quiz_result_percentage",
			Help:    "Distribution of quiz result percentages",
			Buckets: []float64{10, 25, 40, 50, 60, 75, 90, 100},
		}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_result_persist_failures_total",
			Help: "Total number of quiz results that could not be stored",
		}),
		gpaComputations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gpa_computations_total",
			Help: "Total number of GPA computations by division",
		}, []string{"division"}),
		explanations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "explanations_total",
			Help: "Total number of explanation requests by source",
		}, []string{"source"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		}, []string{"method", "endpoint"}),
	}
	reg.MustRegister(
		m.sessionsStarted,
		m.results,
		m.percentage,
		m.persistFailures,
		m.gpaComputations,
		m.explanations,
		m.requests,
		m.requestDuration,
	)
	return m
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.sessionsStarted.Inc()
}

func (m *Metrics) ResultRecorded(reason string, percentage int) {
	if m == nil {
		return
	}
	m.results.WithLabelValues(reason).Inc()
	m.percentage.Observe(float64(percentage))
}

func (m *Metrics) PersistFailed() {
	if m == nil {
		return
	}
	m.persistFailures.Inc()
}

func (m *Metrics) GPAComputed(division string) {
	if m == nil {
		return
	}
	m.gpaComputations.WithLabelValues(division).Inc()
}

// Explanation counts an explanation request served from "cache", "generated" or failed with "error".
func (m *Metrics) Explanation(source string) {
	if m == nil {
		return
	}
	m.explanations.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveRequest(method, endpoint string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, endpoint).Observe(elapsed.Seconds())
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
