package engine

import (
	"trading-risk-engine/internal/engine/engineobs"
	"trading-risk-engine/internal/interfaces"
	"trading-risk-engine/internal/metrics"
	"trading-risk-engine/internal/store"
)

// NewObserved builds an Engine wrapped with tracing, logs and metrics.
func NewObserved(cfg store.Config, prices interfaces.PriceHistory, sentiment interfaces.SentimentProvider, rec *metrics.Recorder, opts ...Option) (interfaces.Evaluator, error) {
	e, err := New(cfg, prices, sentiment, opts...)
	if err != nil {
		return nil, err
	}
	return engineobs.Wrap(e, rec), nil
}
