// Package sentiment fuses per-source sentiment samples into one score per
// symbol and caches the result for a configurable TTL.
package sentiment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"trading-risk-engine/internal/interfaces"
	"trading-risk-engine/internal/logger"
	"trading-risk-engine/internal/types"
)

// DefaultSourceWeight is used for sources missing from the weight table.
const DefaultSourceWeight = 0.1

const detailNoData = "no sentiment data"

// DefaultWeights mirrors the stock configuration.
func DefaultWeights() map[string]float64 {
	return map[string]float64{"news": 0.4, "social": 0.3, "technical": 0.2, "market": 0.1}
}

// Fuse combines samples into a weighted score. Each source contributes with
// weight configured_weight × quality.
func Fuse(symbol string, samples map[string]types.SentimentSample, weights map[string]float64) types.SentimentScore {
	score := types.SentimentScore{
		Symbol:  symbol,
		Sources: make(map[string]types.SourceBreakdown, len(samples)),
	}

	names := make([]string, 0, len(samples))
	for name := range samples {
		names = append(names, name)
	}
	sort.Strings(names)

	var weighted, total float64
	for _, name := range names {
		s := samples[name]
		w, ok := weights[name]
		if !ok {
			w = DefaultSourceWeight
		}
		q := clamp(s.Quality, 0, 1)
		v := clamp(s.Score, -1, 1)
		if math.IsNaN(q) || math.IsNaN(v) {
			q, v = 0, 0
		}
		eff := math.Max(w, 0) * q
		score.Sources[name] = types.SourceBreakdown{Score: s.Score, Quality: s.Quality, Weight: eff}
		weighted += v * eff
		total += eff
	}

	if total == 0 {
		score.Detail = detailNoData
		return score
	}
	score.Combined = clamp(weighted/total, -1, 1)
	score.Detail = fmt.Sprintf("%d sources: %s", len(names), strings.Join(names, ","))
	return score
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

// Fusion collects samples from its sources and serves cached scores.
// Concurrent callers for one symbol share a single recomputation.
type Fusion struct {
	sources []interfaces.SampleSource
	weights map[string]float64
	ttl     time.Duration
	store   Store
	clock   clockwork.Clock
	flight  singleflight.Group
}

var _ interfaces.SentimentProvider = (*Fusion)(nil)

type Option func(*Fusion)

func WithStore(s Store) Option {
	return func(f *Fusion) { f.store = s }
}

func WithClock(c clockwork.Clock) Option {
	return func(f *Fusion) { f.clock = c }
}

// New builds a Fusion over sources. Weights are copied.
func New(sources []interfaces.SampleSource, weights map[string]float64, ttl time.Duration, opts ...Option) *Fusion {
	w := make(map[string]float64, len(weights))
	for k, v := range weights {
		w[k] = v
	}
	f := &Fusion{
		sources: sources,
		weights: w,
		ttl:     ttl,
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.store == nil {
		f.store = NewMemoryStore()
	}
	return f
}

// GetCached returns the score for symbol using the configured TTL.
func (f *Fusion) GetCached(ctx context.Context, symbol string) (types.SentimentScore, error) {
	return f.GetCachedTTL(ctx, symbol, f.ttl)
}

// GetCachedTTL returns the cached score when it is younger than ttl and
// recomputes it otherwise.
func (f *Fusion) GetCachedTTL(ctx context.Context, symbol string, ttl time.Duration) (types.SentimentScore, error) {
	if symbol == "" {
		return types.SentimentScore{}, errors.New("sentiment: empty symbol")
	}
	if s, ok := f.fresh(ctx, symbol, ttl); ok {
		return s, nil
	}

	// The flight outlives any single caller, so one cancelled caller must
	// not degrade the score every waiter shares and the cache keeps.
	flightCtx := context.WithoutCancel(ctx)
	v, err, shared := f.flight.Do(symbol, func() (any, error) {
		// Another flight may have refreshed the entry while we waited.
		if s, ok := f.fresh(flightCtx, symbol, ttl); ok {
			return s, nil
		}
		s := f.Refresh(flightCtx, symbol)
		return s, nil
	})
	if err != nil {
		return types.SentimentScore{}, err
	}
	if shared {
		logger.Debug(ctx, "Shared in-flight sentiment computation", "symbol", symbol)
	}
	return v.(types.SentimentScore), nil
}

// Refresh unconditionally recomputes and stores the score for symbol.
func (f *Fusion) Refresh(ctx context.Context, symbol string) types.SentimentScore {
	samples := f.collect(ctx, symbol)
	s := Fuse(symbol, samples, f.weights)
	s.ComputedAt = f.clock.Now()
	if err := f.store.Put(ctx, s, f.ttl); err != nil {
		logger.ErrorWithErr(ctx, "Failed to store sentiment score", err, "symbol", symbol)
	}
	logger.Debug(ctx, "Sentiment recomputed", "symbol", symbol, "combined", s.Combined, "sources", len(samples))
	return s
}

func (f *Fusion) fresh(ctx context.Context, symbol string, ttl time.Duration) (types.SentimentScore, bool) {
	s, ok, err := f.store.Get(ctx, symbol)
	if err != nil {
		logger.Warn(ctx, "Sentiment cache read failed, recomputing", "symbol", symbol, "error", err)
		return types.SentimentScore{}, false
	}
	if !ok || f.clock.Since(s.ComputedAt) >= ttl {
		return types.SentimentScore{}, false
	}
	s.CacheHit = true
	return s, true
}

func (f *Fusion) collect(ctx context.Context, symbol string) map[string]types.SentimentSample {
	out := make(map[string]types.SentimentSample, len(f.sources))
	for _, src := range f.sources {
		sample, err := src.Sample(ctx, symbol)
		if err != nil {
			logger.Warn(ctx, "Sentiment source failed, skipping", "source", src.Name(), "symbol", symbol, "error", err)
			continue
		}
		sample.Source = src.Name()
		if sample.Timestamp.IsZero() {
			sample.Timestamp = f.clock.Now()
		}
		out[src.Name()] = sample
	}
	return out
}
