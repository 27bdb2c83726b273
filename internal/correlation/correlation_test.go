package correlation

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-risk-engine/internal/types"
)

type fakePrices struct {
	series map[string][]types.PricePoint
	calls  map[string]int
	days   map[string]int
}

func (f *fakePrices) DailyCloses(_ context.Context, symbol string, days int) ([]types.PricePoint, error) {
	if f.calls == nil {
		f.calls = map[string]int{}
		f.days = map[string]int{}
	}
	f.calls[symbol]++
	f.days[symbol] = days
	s, ok := f.series[symbol]
	if !ok {
		return nil, errors.New("no data for " + symbol)
	}
	return s, nil
}

var day0 = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

// fromReturns builds a close series starting at 100 that reproduces rets.
func fromReturns(rets []float64) []types.PricePoint {
	out := []types.PricePoint{{Date: day0, Close: 100}}
	for i, r := range rets {
		prev := out[len(out)-1].Close
		out = append(out, types.PricePoint{Date: day0.AddDate(0, 0, i+1), Close: prev * (1 + r)})
	}
	return out
}

// Orthogonal zero-mean patterns of equal variance.
func patterns(n int) (x, e []float64) {
	x = make([]float64, n)
	e = make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = 0.01
		if i%2 == 1 {
			x[i] = -0.01
		}
		e[i] = 0.01
		if i%4 >= 2 {
			e[i] = -0.01
		}
	}
	return x, e
}

func blend(x, e []float64, rho float64) []float64 {
	out := make([]float64, len(x))
	k := math.Sqrt(1 - rho*rho)
	for i := range x {
		out[i] = rho*x[i] + k*e[i]
	}
	return out
}

func held(symbols ...string) types.PositionSnapshot {
	p := types.PositionSnapshot{}
	for _, s := range symbols {
		p[s] = types.Position{Quantity: 10, MarketValue: 1000}
	}
	return p
}

func TestCap_NoPositionsNeverBlocks(t *testing.T) {
	prices := &fakePrices{}
	res := Cap(context.Background(), "MSFT", types.PositionSnapshot{}, prices, 30, 0)

	assert.False(t, res.Blocked)
	assert.Zero(t, res.MaxCorrelation)
	assert.Equal(t, "no comparable positions", res.Reason)
	assert.Empty(t, prices.calls, "no history should be fetched without positions")
}

func TestCap_IdenticalReturnsCorrelateFully(t *testing.T) {
	x, _ := patterns(28)
	prices := &fakePrices{series: map[string][]types.PricePoint{
		"MSFT": fromReturns(x),
		"AAPL": fromReturns(x),
	}}
	res := Cap(context.Background(), "MSFT", held("AAPL"), prices, 30, 0.7)

	assert.InDelta(t, 1.0, res.MaxCorrelation, 1e-9)
	assert.Equal(t, "AAPL", res.CorrelatedWith)
	assert.True(t, res.Blocked)
}

func TestCap_ScenarioC(t *testing.T) {
	x, e := patterns(28)
	prices := &fakePrices{series: map[string][]types.PricePoint{
		"AAPL": fromReturns(x),
		"MSFT": fromReturns(blend(x, e, 0.85)),
		"XOM":  fromReturns(e),
	}}
	res := Cap(context.Background(), "MSFT", held("AAPL", "XOM"), prices, 30, 0.7)

	require.True(t, res.Blocked)
	assert.InDelta(t, 0.85, res.MaxCorrelation, 1e-6)
	assert.Equal(t, "AAPL", res.CorrelatedWith)
	assert.InDelta(t, math.Sqrt(1-0.85*0.85), res.Correlations["XOM"], 1e-6)
	assert.Contains(t, res.Reason, "exceeds")
}

func TestCap_NegativeCorrelationUsesMagnitude(t *testing.T) {
	x, _ := patterns(20)
	inv := make([]float64, len(x))
	for i := range x {
		inv[i] = -x[i]
	}
	prices := &fakePrices{series: map[string][]types.PricePoint{
		"GLD": fromReturns(inv),
		"SPY": fromReturns(x),
	}}
	res := Cap(context.Background(), "GLD", held("SPY"), prices, 30, 0.7)

	assert.True(t, res.Blocked)
	assert.InDelta(t, 1.0, res.MaxCorrelation, 1e-9)
	assert.InDelta(t, -1.0, res.Correlations["SPY"], 1e-9)
}

func TestCap_SkipsUnusablePairs(t *testing.T) {
	x, _ := patterns(10)
	prices := &fakePrices{series: map[string][]types.PricePoint{
		"MSFT": fromReturns(x),
		// only two shared dates gives a single return
		"NEW": fromReturns(x)[:2],
	}}
	positions := held("NEW", "GONE")
	positions["FLAT"] = types.Position{Quantity: 0}

	res := Cap(context.Background(), "MSFT", positions, prices, 30, 0.7)

	assert.False(t, res.Blocked)
	assert.Zero(t, res.MaxCorrelation)
	assert.Equal(t, "no comparable positions", res.Reason)
	assert.Zero(t, prices.calls["FLAT"], "zero-quantity positions are not considered")
}

func TestCap_CandidateHeldIsExcluded(t *testing.T) {
	x, e := patterns(16)
	prices := &fakePrices{series: map[string][]types.PricePoint{
		"MSFT": fromReturns(x),
		"XOM":  fromReturns(e),
	}}
	res := Cap(context.Background(), "MSFT", held("MSFT", "XOM"), prices, 30, 0.7)

	assert.False(t, res.Blocked)
	assert.NotContains(t, res.Correlations, "MSFT")
	assert.Equal(t, "XOM", res.CorrelatedWith)
	assert.InDelta(t, 0.0, res.MaxCorrelation, 1e-9)
}

func TestCap_CandidateHistoryMissing(t *testing.T) {
	prices := &fakePrices{series: map[string][]types.PricePoint{}}
	res := Cap(context.Background(), "MSFT", held("AAPL"), prices, 30, 0.7)

	assert.False(t, res.Blocked)
	assert.Equal(t, "no comparable positions", res.Reason)
}

func TestPearson_FlatSeriesIsZero(t *testing.T) {
	x, _ := patterns(10)
	flat := make([]float64, len(x))
	rho, ok := Pearson(fromReturns(x), fromReturns(flat))

	require.True(t, ok)
	assert.Zero(t, rho)
	assert.False(t, math.IsNaN(rho))
}

func TestAlign_UsesSharedDatesInOrder(t *testing.T) {
	a := []types.PricePoint{
		{Date: day0.AddDate(0, 0, 2), Close: 3},
		{Date: day0, Close: 1},
		{Date: day0.AddDate(0, 0, 1), Close: 2},
	}
	b := []types.PricePoint{
		{Date: day0, Close: 10},
		{Date: day0.AddDate(0, 0, 2), Close: 30},
		{Date: day0.AddDate(0, 0, 5), Close: 60},
	}
	x, y := Align(a, b)

	assert.Equal(t, []float64{1, 3}, x)
	assert.Equal(t, []float64{10, 30}, y)
}

func TestCap_FetchesOneMoreCloseThanLookback(t *testing.T) {
	x, e := patterns(28)
	prices := &fakePrices{series: map[string][]types.PricePoint{
		"MSFT": fromReturns(x),
		"AAPL": fromReturns(blend(x, e, 0.5)),
	}}
	res := Cap(context.Background(), "MSFT", held("AAPL"), prices, 30, 0.7)

	assert.Equal(t, 31, prices.days["MSFT"])
	assert.Equal(t, 31, prices.days["AAPL"])
	assert.InDelta(t, 0.5, res.Correlations["AAPL"], 1e-6)
}
