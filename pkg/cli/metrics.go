package cli

import (
	"slices"
	"strings"
	"time"

	"github.com/mchmarny/runweight/pkg/score"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	MetricScoreRequestsTotal = "runweight_score_requests_total"
	MetricScoreDuration      = "runweight_score_duration_seconds"
	MetricAPIRequestsTotal   = "runweight_api_requests_total"

	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// Metrics holds the Prometheus collectors of the API server.
type Metrics struct {
	scoreTotal    *prometheus.CounterVec
	scoreDuration *prometheus.HistogramVec
	apiTotal      *prometheus.CounterVec
}

// NewMetrics creates unregistered collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		scoreTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricScoreRequestsTotal,
				Help: "Total number of scoring calls by method and outcome",
			},
			[]string{"method", "outcome"},
		),
		scoreDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricScoreDuration,
				Help:    "Histogram of scoring latency in seconds by method",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method"},
		),
		apiTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricAPIRequestsTotal,
				Help: "Total number of API requests by route and status code",
			},
			[]string{"route", "code"},
		),
	}
}

// Register registers all collectors with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.scoreTotal, m.scoreDuration, m.apiTotal} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveScore records the outcome and latency of one scoring call.
func (m *Metrics) ObserveScore(method string, d time.Duration, err error) {
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeFailure
	}
	method = methodLabel(method)
	m.scoreTotal.WithLabelValues(method, outcome).Inc()
	m.scoreDuration.WithLabelValues(method).Observe(d.Seconds())
}

// IncAPIRequest counts one API request.
func (m *Metrics) IncAPIRequest(route string, code int) {
	m.apiTotal.WithLabelValues(route, statusLabel(code)).Inc()
}

// methodLabel bounds label cardinality to the known scoring methods.
func methodLabel(method string) string {
	method = strings.ToLower(strings.TrimSpace(method))
	if method == "bayes" {
		return score.MethodBayesian
	}
	if slices.Contains(score.Methods, method) {
		return method
	}
	return "unknown"
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
