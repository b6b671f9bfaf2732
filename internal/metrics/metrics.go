// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	RequestCount       *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	EvaluationDuration prometheus.Histogram
	Fitness            prometheus.Histogram

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			}, []string{"path", "method", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			}, []string{"path"},
		),
		EvaluationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fitness_evaluation_duration_seconds",
				Help:    "Duration of feature extraction and scoring of one candidate",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
			},
		),
		Fitness: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fitness_score",
				Help:    "Distribution of returned fitness values",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
		),
		gatherer: reg,
	}
	reg.MustRegister(m.RequestCount, m.RequestDuration, m.EvaluationDuration, m.Fitness)
	return m
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(path, method string, status int, duration time.Duration) {
	m.RequestCount.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(path).Observe(duration.Seconds())
}

// ObserveEvaluation records one successful evaluation.
func (m *Metrics) ObserveEvaluation(fitness float64, duration time.Duration) {
	m.Fitness.Observe(fitness)
	m.EvaluationDuration.Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
