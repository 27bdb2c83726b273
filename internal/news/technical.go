package news

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"trading-risk-engine/internal/interfaces"
	"trading-risk-engine/internal/ta"
	"trading-risk-engine/internal/types"
)

const (
	technicalQuality = 0.8
	marketQuality    = 0.8

	technicalLookback = 40
	momentumPeriod    = 10
	rsiPeriod         = 14
	bandPeriod        = 20
)

// ErrShortHistory is returned when there are too few closes to score.
var ErrShortHistory = errors.New("not enough price history")

// TechnicalScore blends momentum, RSI and Bollinger %B into [-1, 1].
// Indicators that cannot be computed are left out of the blend.
func TechnicalScore(closes []float64) (float64, error) {
	var parts []float64
	if m := ta.Momentum(closes, momentumPeriod); !math.IsNaN(m) {
		parts = append(parts, math.Tanh(m*10))
	}
	if r := ta.RSI(closes, rsiPeriod); !math.IsNaN(r) {
		parts = append(parts, (r-50)/50)
	}
	if pb := ta.PercentB(closes, bandPeriod, 2); !math.IsNaN(pb) {
		parts = append(parts, clamp((pb-0.5)*2))
	}
	if len(parts) == 0 {
		return 0, ErrShortHistory
	}
	sum := 0.0
	for _, p := range parts {
		sum += p
	}
	return clamp(sum / float64(len(parts))), nil
}

// TechnicalSource reads the symbol's own price action as a sentiment proxy.
type TechnicalSource struct {
	prices interfaces.PriceHistory
	now    func() time.Time
}

func NewTechnicalSource(prices interfaces.PriceHistory) *TechnicalSource {
	return &TechnicalSource{prices: prices, now: time.Now}
}

func (s *TechnicalSource) Name() string { return "technical" }

func (s *TechnicalSource) Sample(ctx context.Context, symbol string) (types.SentimentSample, error) {
	score, err := scoreSymbol(ctx, s.prices, symbol)
	if err != nil {
		return types.SentimentSample{}, err
	}
	return types.SentimentSample{Source: s.Name(), Score: score, Quality: technicalQuality, Timestamp: s.now()}, nil
}

// MarketSource scores a benchmark index and applies it to every symbol.
type MarketSource struct {
	prices    interfaces.PriceHistory
	benchmark string
	now       func() time.Time
}

func NewMarketSource(prices interfaces.PriceHistory, benchmark string) *MarketSource {
	return &MarketSource{prices: prices, benchmark: benchmark, now: time.Now}
}

func (s *MarketSource) Name() string { return "market" }

func (s *MarketSource) Sample(ctx context.Context, _ string) (types.SentimentSample, error) {
	score, err := scoreSymbol(ctx, s.prices, s.benchmark)
	if err != nil {
		return types.SentimentSample{}, err
	}
	return types.SentimentSample{Source: s.Name(), Score: score, Quality: marketQuality, Timestamp: s.now()}, nil
}

func scoreSymbol(ctx context.Context, prices interfaces.PriceHistory, symbol string) (float64, error) {
	pts, err := prices.DailyCloses(ctx, symbol, technicalLookback)
	if err != nil {
		return 0, fmt.Errorf("closes for %s: %w", symbol, err)
	}
	closes := make([]float64, len(pts))
	for i, p := range pts {
		closes[i] = p.Close
	}
	score, err := TechnicalScore(closes)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", symbol, err)
	}
	return score, nil
}

func clamp(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
