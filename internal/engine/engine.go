package engine

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"trading-risk-engine/internal/confirmation"
	"trading-risk-engine/internal/correlation"
	"trading-risk-engine/internal/interfaces"
	"trading-risk-engine/internal/kelly"
	"trading-risk-engine/internal/logger"
	"trading-risk-engine/internal/store"
	"trading-risk-engine/internal/types"
)

// ErrEmptySymbol is returned by Evaluate for a blank symbol.
var ErrEmptySymbol = errors.New("engine: empty symbol")

// Engine turns a signal bundle into a sized, gated Decision. It holds no
// mutable state of its own; concurrent calls are safe as long as the
// injected providers are.
type Engine struct {
	cfg       store.Config
	sizer     kelly.Sizer
	prices    interfaces.PriceHistory
	sentiment interfaces.SentimentProvider
	clock     clockwork.Clock
	newID     func() string
}

var _ interfaces.Evaluator = (*Engine)(nil)

type Option func(*Engine)

func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithIDs replaces the uuid generator for decision ids.
func WithIDs(f func() string) Option {
	return func(e *Engine) { e.newID = f }
}

// New validates cfg and keeps a private copy of it. sentiment may be nil, in
// which case every decision carries a neutral score.
func New(cfg store.Config, prices interfaces.PriceHistory, sentiment interfaces.SentimentProvider, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if prices == nil {
		return nil, fmt.Errorf("%w: price history provider is required", store.ErrInvalidConfig)
	}

	cfg.Confirm.Timeframes = slices.Clone(cfg.Confirm.Timeframes)
	cfg.Confirm.Weights = maps.Clone(cfg.Confirm.Weights)
	cfg.Sentiment.Weights = maps.Clone(cfg.Sentiment.Weights)
	cfg.Sentiment.Sources = slices.Clone(cfg.Sentiment.Sources)

	e := &Engine{
		cfg: cfg,
		sizer: kelly.Sizer{
			Cap:              cfg.Kelly.Cap,
			Lookback:         cfg.Kelly.Lookback,
			MinSampleSize:    cfg.Kelly.MinSampleSize,
			FallbackFraction: cfg.Kelly.FallbackFraction,
		},
		prices:    prices,
		sentiment: sentiment,
		clock:     clockwork.NewRealClock(),
		newID:     func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() store.Config { return e.cfg }

// Evaluate runs confirmation, correlation, Kelly sizing and sentiment in
// that order. Every stage runs even when an earlier one fails so the
// decision carries the full picture; only the first failing gate becomes
// the block reason.
func (e *Engine) Evaluate(ctx context.Context, symbol string, bundle types.SignalBundle, history []types.TradeRecord, positions types.PositionSnapshot) (types.Decision, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return types.Decision{}, ErrEmptySymbol
	}

	conf := confirmation.Confirm(symbol, bundle.Signals, e.cfg.Confirm.Timeframes, e.cfg.Confirm.Threshold)
	corr := correlation.Cap(ctx, symbol, positions, e.prices, e.cfg.Correlation.LookbackDays, e.cfg.Correlation.MaxCorrelation)
	km := e.sizer.Compute(history)
	sent := e.sentimentFor(ctx, symbol)

	base := e.baseConfidence(bundle, conf)
	confidence := clamp01(base * sentimentMultiplier(e.cfg.Sentiment.Adjustment, sent.Combined, conf.Direction))
	size := e.sizer.Apply(km.KellyFraction, conf, corr, confidence)

	d := types.Decision{
		ID:           e.newID(),
		Symbol:       symbol,
		Action:       conf.Direction,
		SizeFraction: size,
		Confidence:   confidence,
		Strategy:     bundle.Strategy,
		Price:        bundle.Price,
		Confirmation: conf,
		Correlation:  corr,
		Kelly:        km,
		Sentiment:    sent,
		EvaluatedAt:  e.clock.Now(),
	}
	d.BlockReason, d.BlockDetail = blockReason(conf, corr, km, size)
	d.Allowed = d.BlockReason == types.BlockNone
	if !d.Allowed {
		d.SizeFraction = 0
	}

	if corr.Blocked {
		logger.Risk(ctx, symbol, string(types.BlockCorrelation),
			"correlated_with", corr.CorrelatedWith,
			"max_correlation", corr.MaxCorrelation,
			"limit", e.cfg.Correlation.MaxCorrelation,
		)
	}
	logger.Decision(ctx, symbol, string(d.Action), d.Allowed, d.SizeFraction, string(d.BlockReason),
		"decision_id", d.ID,
		"agreement_ratio", conf.AgreementRatio,
		"kelly_fraction", km.KellyFraction,
		"kelly_fallback", km.Fallback,
		"max_correlation", corr.MaxCorrelation,
		"sentiment", sent.Combined,
		"confidence", confidence,
	)
	return d, nil
}

// sentimentFor never fails the decision; a provider error degrades to a
// neutral score.
func (e *Engine) sentimentFor(ctx context.Context, symbol string) types.SentimentScore {
	neutral := types.SentimentScore{Symbol: symbol, Sources: map[string]types.SourceBreakdown{}, Detail: "no sentiment data"}
	if e.sentiment == nil {
		return neutral
	}
	s, err := e.sentiment.GetCached(ctx, symbol)
	if err != nil {
		logger.Warn(ctx, "Sentiment unavailable, using neutral score", "symbol", symbol, "error", err)
		neutral.Detail = "sentiment unavailable: " + err.Error()
		return neutral
	}
	return s
}

func (e *Engine) baseConfidence(bundle types.SignalBundle, conf types.ConfirmationResult) float64 {
	if bundle.Confidence > 0 {
		return clamp01(bundle.Confidence)
	}
	dir, c := confirmation.Combine(confirmation.Contributing(bundle.Signals, conf.ContributingTimeframes), e.cfg.Confirm.Weights)
	if dir != conf.Direction {
		return 0
	}
	return c
}
