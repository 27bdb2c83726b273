package brokerobs

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"trading-risk-engine/internal/interfaces"
	"trading-risk-engine/internal/logger"
	"trading-risk-engine/internal/metrics"
	"trading-risk-engine/internal/retry"
	"trading-risk-engine/internal/trace"
	"trading-risk-engine/internal/types"
)

// Options tunes the resilience layer. Zero values pick the defaults.
type Options struct {
	Name        string
	Retry       retry.Policy
	Metrics     *metrics.Recorder
	MaxFailures uint32
	OpenTimeout time.Duration
	// Permanent reports errors that should neither be retried nor count
	// against the breaker, such as an unknown symbol.
	Permanent func(error) bool
}

// observableProvider wraps market data providers with tracing, logging,
// retries and a circuit breaker.
type observableProvider struct {
	prices    interfaces.PriceHistory
	positions interfaces.PositionSource
	opts      Options
	breaker   *gobreaker.CircuitBreaker
}

var (
	_ interfaces.PriceHistory   = (*observableProvider)(nil)
	_ interfaces.PositionSource = (*observableProvider)(nil)
)

func newObservable(prices interfaces.PriceHistory, positions interfaces.PositionSource, opts Options) *observableProvider {
	if opts.Name == "" {
		opts.Name = "market-data"
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.DefaultPolicy()
	}
	if opts.MaxFailures == 0 {
		opts.MaxFailures = 5
	}
	if opts.OpenTimeout == 0 {
		opts.OpenTimeout = 30 * time.Second
	}
	if opts.Permanent == nil {
		opts.Permanent = func(error) bool { return false }
	}
	op := &observableProvider{prices: prices, positions: positions, opts: opts}
	op.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= opts.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || opts.Permanent(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(context.Background(), "Provider circuit breaker state changed",
				"provider", name, "from", from.String(), "to", to.String())
		},
	})
	return op
}

// WrapPrices wraps a price history provider.
func WrapPrices(prices interfaces.PriceHistory, opts Options) interfaces.PriceHistory {
	return newObservable(prices, nil, opts)
}

// WrapPositions wraps a position source.
func WrapPositions(positions interfaces.PositionSource, opts Options) interfaces.PositionSource {
	return newObservable(nil, positions, opts)
}

func (op *observableProvider) classify(err error) retry.Action {
	if op.opts.Permanent(err) || errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return retry.Stop
	}
	return retry.Transient(err)
}

// DailyCloses fetches closes with observability
func (op *observableProvider) DailyCloses(ctx context.Context, symbol string, days int) ([]types.PricePoint, error) {
	ctx, span := trace.StartSpan(ctx, "provider.DailyCloses")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching daily closes", "provider", op.opts.Name, "symbol", symbol, "days", days)
	start := time.Now()

	pts, err := retry.Do(ctx, op.policy(ctx, symbol), op.classify, func(ctx context.Context) ([]types.PricePoint, error) {
		v, err := op.breaker.Execute(func() (interface{}, error) {
			return op.prices.DailyCloses(ctx, symbol, days)
		})
		if err != nil {
			return nil, err
		}
		return v.([]types.PricePoint), nil
	})
	op.record("DailyCloses", err, start)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch daily closes", err, "provider", op.opts.Name, "symbol", symbol)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Daily closes fetched", "symbol", symbol, "count", len(pts))
	return pts, nil
}

// Positions fetches the holdings snapshot with observability
func (op *observableProvider) Positions(ctx context.Context) (types.PositionSnapshot, error) {
	ctx, span := trace.StartSpan(ctx, "provider.Positions")
	defer span.End()

	start := time.Now()
	snap, err := retry.Do(ctx, op.policy(ctx, ""), op.classify, func(ctx context.Context) (types.PositionSnapshot, error) {
		v, err := op.breaker.Execute(func() (interface{}, error) {
			return op.positions.Positions(ctx)
		})
		if err != nil {
			return nil, err
		}
		return v.(types.PositionSnapshot), nil
	})
	op.record("Positions", err, start)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch positions", err, "provider", op.opts.Name)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Positions fetched", "provider", op.opts.Name, "count", len(snap))
	return snap, nil
}

func (op *observableProvider) policy(ctx context.Context, symbol string) retry.Policy {
	p := op.opts.Retry
	p.OnRetry = func(attempt int, err error, backoff time.Duration) {
		logger.Warn(ctx, "Retrying provider call", "provider", op.opts.Name, "symbol", symbol,
			"attempt", attempt, "backoff_ms", backoff.Milliseconds(), "error", err)
	}
	return p
}

func (op *observableProvider) record(name string, err error, start time.Time) {
	if op.opts.Metrics != nil {
		op.opts.Metrics.RecordProviderCall(name, err, time.Since(start).Seconds())
	}
}
