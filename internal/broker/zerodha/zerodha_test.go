package zerodha

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"
	"github.com/zerodha/gokiteconnect/v4/models"
)

type fakeKite struct {
	bars            []kiteconnect.HistoricalData
	instruments     kiteconnect.Instruments
	holdings        kiteconnect.Holdings
	historicalCalls int
	lastToken       int
	dumpCalls       int
	err             error
}

func (f *fakeKite) GetHistoricalData(token int, _ string, _, _ time.Time, _, _ bool) ([]kiteconnect.HistoricalData, error) {
	f.historicalCalls++
	f.lastToken = token
	return f.bars, f.err
}

func (f *fakeKite) GetInstrumentsByExchange(string) (kiteconnect.Instruments, error) {
	f.dumpCalls++
	return f.instruments, nil
}

func (f *fakeKite) GetHoldings() (kiteconnect.Holdings, error) {
	return f.holdings, f.err
}

func bars(n int) []kiteconnect.HistoricalData {
	out := make([]kiteconnect.HistoricalData, n)
	for i := range out {
		out[i] = kiteconnect.HistoricalData{
			Date:  models.Time{Time: time.Date(2025, 1, 1+i, 0, 0, 0, 0, time.UTC)},
			Close: 100 + float64(i),
		}
	}
	return out
}

func TestDailyCloses_KnownTokenAndCache(t *testing.T) {
	kc := &fakeKite{bars: bars(40)}
	z := newWithClient(Params{}, kc)
	ctx := context.Background()

	pts, err := z.DailyCloses(ctx, "INFY", 30)
	require.NoError(t, err)
	require.Len(t, pts, 30)
	assert.Equal(t, 139.0, pts[29].Close)
	assert.Equal(t, knownTokens["INFY"], kc.lastToken)
	assert.Zero(t, kc.dumpCalls)

	again, err := z.DailyCloses(ctx, "INFY", 20)
	require.NoError(t, err)
	assert.Len(t, again, 20)
	assert.Equal(t, 1, kc.historicalCalls, "second lookup on the same day is served from cache")
}

func TestDailyCloses_LoadsInstrumentDump(t *testing.T) {
	kc := &fakeKite{
		bars:        bars(5),
		instruments: kiteconnect.Instruments{{InstrumentToken: 12345, Tradingsymbol: "ZOMATO"}},
	}
	z := newWithClient(Params{Exchange: "NSE"}, kc)

	_, err := z.DailyCloses(context.Background(), "zomato", 5)
	require.NoError(t, err)
	assert.Equal(t, 12345, kc.lastToken)

	_, err = z.DailyCloses(context.Background(), "NOPE", 5)
	assert.ErrorIs(t, err, ErrUnknownSymbol)
	assert.Equal(t, 1, kc.dumpCalls, "the dump is loaded once")
}

func TestDailyCloses_WrapsAPIError(t *testing.T) {
	kc := &fakeKite{err: errors.New("TokenException")}
	z := newWithClient(Params{}, kc)

	_, err := z.DailyCloses(context.Background(), "TCS", 5)
	assert.ErrorContains(t, err, "historical data for TCS")
}

func TestPositions(t *testing.T) {
	kc := &fakeKite{holdings: kiteconnect.Holdings{
		{Tradingsymbol: "itc", Quantity: 10, LastPrice: 450},
		{Tradingsymbol: "SOLD", Quantity: 0, LastPrice: 10},
	}}
	z := newWithClient(Params{}, kc)

	snap, err := z.Positions(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap, 1)
	assert.Equal(t, 4500.0, snap["ITC"].MarketValue)
}

func TestNewZerodhaRequiresCredentials(t *testing.T) {
	_, err := NewZerodha(Params{APIKey: "k"})
	assert.Error(t, err)
}
