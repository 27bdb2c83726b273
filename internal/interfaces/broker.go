package interfaces

import (
	"context"

	"trading-risk-engine/internal/types"
)

// PriceHistory serves daily closes, oldest first.
type PriceHistory interface {
	DailyCloses(ctx context.Context, symbol string, days int) ([]types.PricePoint, error)
}

// PositionSource reports the current holdings of the account.
type PositionSource interface {
	Positions(ctx context.Context) (types.PositionSnapshot, error)
}

// SampleSource produces one sentiment sample for a symbol. Name is the key
// used for weighting.
type SampleSource interface {
	Name() string
	Sample(ctx context.Context, symbol string) (types.SentimentSample, error)
}
