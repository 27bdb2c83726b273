package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"trading-risk-engine/internal/types"
)

// Recorder publishes engine and provider metrics to Prometheus.
type Recorder struct {
	decisions      *prometheus.CounterVec
	sizeFraction   *prometheus.GaugeVec
	kellyFraction  *prometheus.GaugeVec
	maxCorrelation *prometheus.GaugeVec
	sentimentCache *prometheus.CounterVec
	evalLatency    prometheus.Histogram
	providerCalls  *prometheus.CounterVec
	providerTime   *prometheus.HistogramVec
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in
// tests to keep them isolated.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		decisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "risk_decisions_total",
				Help: "Decisions evaluated, by outcome and block reason",
			},
			[]string{"outcome", "reason"},
		),
		sizeFraction: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "risk_size_fraction",
				Help: "Last size fraction decided for a symbol",
			},
			[]string{"symbol"},
		),
		kellyFraction: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "risk_kelly_fraction",
				Help: "Last Kelly fraction computed for a symbol",
			},
			[]string{"symbol"},
		),
		maxCorrelation: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "risk_max_correlation",
				Help: "Strongest absolute correlation with a held position",
			},
			[]string{"symbol"},
		),
		sentimentCache: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "risk_sentiment_cache_total",
				Help: "Sentiment lookups by cache result",
			},
			[]string{"result"},
		),
		evalLatency: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "risk_evaluation_duration_seconds",
				Help:    "Duration of one decision evaluation in seconds",
				Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),
		providerCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "risk_provider_calls_total",
				Help: "Market data provider calls by operation and status",
			},
			[]string{"operation", "status"},
		),
		providerTime: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "risk_provider_duration_seconds",
				Help:    "Market data provider call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordDecision updates every decision-derived series.
func (r *Recorder) RecordDecision(d types.Decision, seconds float64) {
	outcome := "blocked"
	if d.Allowed {
		outcome = "allowed"
	}
	r.decisions.WithLabelValues(outcome, string(d.BlockReason)).Inc()
	r.sizeFraction.WithLabelValues(d.Symbol).Set(d.SizeFraction)
	r.kellyFraction.WithLabelValues(d.Symbol).Set(d.Kelly.KellyFraction)
	r.maxCorrelation.WithLabelValues(d.Symbol).Set(d.Correlation.MaxCorrelation)
	result := "miss"
	if d.Sentiment.CacheHit {
		result = "hit"
	}
	r.sentimentCache.WithLabelValues(result).Inc()
	r.evalLatency.Observe(seconds)
}

// RecordEvaluationError counts an evaluation that returned an error.
func (r *Recorder) RecordEvaluationError() {
	r.decisions.WithLabelValues("error", "").Inc()
}

// RecordProviderCall records one provider call.
func (r *Recorder) RecordProviderCall(op string, err error, seconds float64) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.providerCalls.WithLabelValues(op, status).Inc()
	r.providerTime.WithLabelValues(op).Observe(seconds)
}
