package interfaces

import (
	"context"

	"trading-risk-engine/internal/types"
)

type Evaluator interface {
	Evaluate(ctx context.Context, symbol string, bundle types.SignalBundle, history []types.TradeRecord, positions types.PositionSnapshot) (types.Decision, error)
}

// SentimentProvider returns a fused, possibly cached, score for a symbol.
type SentimentProvider interface {
	GetCached(ctx context.Context, symbol string) (types.SentimentScore, error)
}
