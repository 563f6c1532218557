package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LLMBuckets are histogram buckets for model latencies, 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

// Prometheus exposes turn statistics as Prometheus instruments.
type Prometheus struct {
	model string

	TurnsTotal     *prometheus.CounterVec
	TurnDuration   *prometheus.HistogramVec
	TokensTotal    *prometheus.CounterVec
	ActiveSessions prometheus.Gauge
}

// NewPrometheus creates the instruments for model and registers them with reg.
func NewPrometheus(reg prometheus.Registerer, model string) *Prometheus {
	p := &Prometheus{
		model: model,
		TurnsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profilechat_turns_total",
				Help: "Submitted turns by outcome",
			},
			[]string{"model", "outcome"},
		),
		TurnDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "profilechat_turn_duration_seconds",
				Help:    "Model call latency per turn",
				Buckets: LLMBuckets,
			},
			[]string{"model"},
		),
		TokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profilechat_tokens_total",
				Help: "Token count",
			},
			[]string{"model", "direction"},
		),
		ActiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "profilechat_sessions_active",
				Help: "Open chat sessions",
			},
		),
	}

	reg.MustRegister(p.TurnsTotal, p.TurnDuration, p.TokensTotal, p.ActiveSessions)
	return p
}

// RecordSubmit records one submitted turn.
func (p *Prometheus) RecordSubmit(outcome string, duration time.Duration, inputTokens, outputTokens int64) {
	p.TurnsTotal.WithLabelValues(p.model, outcome).Inc()
	p.TurnDuration.WithLabelValues(p.model).Observe(duration.Seconds())
	if inputTokens > 0 {
		p.TokensTotal.WithLabelValues(p.model, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		p.TokensTotal.WithLabelValues(p.model, "output").Add(float64(outputTokens))
	}
}

// Recorder receives turn statistics.
type Recorder interface {
	RecordSubmit(outcome string, duration time.Duration, inputTokens, outputTokens int64)
}

// Tee forwards every record to all recorders.
type Tee []Recorder

// RecordSubmit implements Recorder.
func (t Tee) RecordSubmit(outcome string, duration time.Duration, inputTokens, outputTokens int64) {
	for _, r := range t {
		r.RecordSubmit(outcome, duration, inputTokens, outputTokens)
	}
}
