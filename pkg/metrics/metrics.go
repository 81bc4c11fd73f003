// Package metrics provides Prometheus-based metrics recording for the
// dialogue engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is the metrics contract consumed by the engine and transports.
type Recorder interface {
	ObserveDecision(action string, duration time.Duration)
	IncError(kind string)
	IncMessage(transport string)
}

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	messagesTotal  *prometheus.CounterVec
	actionsTotal   *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	decideDuration prometheus.Histogram
}

// NewPrometheusRecorder registers the dialogue metrics on the default
// registry and returns the recorder.
func NewPrometheusRecorder() *PrometheusRecorder {
	return &PrometheusRecorder{
		messagesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dialogue_messages_total",
				Help: "Total number of inbound messages by transport",
			},
			[]string{"transport"},
		),
		actionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dialogue_actions_fired_total",
				Help: "Total number of actions fired by action id",
			},
			[]string{"action"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dialogue_errors_total",
				Help: "Total number of decide-cycle errors by kind",
			},
			[]string{"kind"},
		),
		decideDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dialogue_decide_duration_seconds",
				Help:    "Duration of decide cycles in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

func (p *PrometheusRecorder) ObserveDecision(action string, duration time.Duration) {
	if action != "" {
		p.actionsTotal.WithLabelValues(action).Inc()
	}
	p.decideDuration.Observe(duration.Seconds())
}

func (p *PrometheusRecorder) IncError(kind string) {
	p.errorsTotal.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) IncMessage(transport string) {
	p.messagesTotal.WithLabelValues(transport).Inc()
}

// Noop discards all observations. Used in tests and library embedding.
type Noop struct{}

func (Noop) ObserveDecision(string, time.Duration) {}
func (Noop) IncError(string)                       {}
func (Noop) IncMessage(string)                     {}
