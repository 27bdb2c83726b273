package brokerobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-risk-engine/internal/metrics"
	"trading-risk-engine/internal/retry"
	"trading-risk-engine/internal/types"
)

var errUnknown = errors.New("unknown symbol")

type flakyPrices struct {
	failures int
	calls    int
	err      error
}

func (f *flakyPrices) DailyCloses(_ context.Context, _ string, _ int) ([]types.PricePoint, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.calls <= f.failures {
		return nil, errors.New("502 bad gateway")
	}
	return []types.PricePoint{{Close: 1}}, nil
}

var fast = retry.Policy{MaxAttempts: 3, InitialBackoff: time.Millisecond}

func TestWrapPrices_RetriesTransientErrors(t *testing.T) {
	inner := &flakyPrices{failures: 2}
	p := WrapPrices(inner, Options{Retry: fast, Metrics: metrics.New(prometheus.NewRegistry())})

	pts, err := p.DailyCloses(context.Background(), "INFY", 30)
	require.NoError(t, err)
	assert.Len(t, pts, 1)
	assert.Equal(t, 3, inner.calls)
}

func TestWrapPrices_PermanentErrorsStopImmediately(t *testing.T) {
	inner := &flakyPrices{err: errUnknown}
	p := WrapPrices(inner, Options{
		Retry:     fast,
		Permanent: func(err error) bool { return errors.Is(err, errUnknown) },
	})

	_, err := p.DailyCloses(context.Background(), "NOPE", 30)
	assert.ErrorIs(t, err, errUnknown)
	assert.True(t, retry.IsPermanent(err))
	assert.Equal(t, 1, inner.calls)
}

func TestWrapPrices_BreakerOpensAfterFailures(t *testing.T) {
	inner := &flakyPrices{err: errors.New("timeout")}
	p := WrapPrices(inner, Options{
		Retry:       retry.Policy{MaxAttempts: 1},
		MaxFailures: 2,
		OpenTimeout: time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := p.DailyCloses(ctx, "TCS", 5)
		require.Error(t, err)
	}
	_, err := p.DailyCloses(ctx, "TCS", 5)
	assert.ErrorContains(t, err, "circuit breaker is open")
	assert.Equal(t, 2, inner.calls, "open breaker short-circuits the provider")
}

type fixedPositions struct{ snap types.PositionSnapshot }

func (f fixedPositions) Positions(context.Context) (types.PositionSnapshot, error) { return f.snap, nil }

func TestWrapPositions(t *testing.T) {
	p := WrapPositions(fixedPositions{snap: types.PositionSnapshot{"AAPL": {Quantity: 1}}}, Options{Name: "alpaca"})
	snap, err := p.Positions(context.Background())
	require.NoError(t, err)
	assert.Contains(t, snap, "AAPL")
}
