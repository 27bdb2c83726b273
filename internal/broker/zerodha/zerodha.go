// Package zerodha reads NSE daily history and holdings through Kite Connect.
package zerodha

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"
	"golang.org/x/time/rate"

	"trading-risk-engine/internal/interfaces"
	"trading-risk-engine/internal/logger"
	"trading-risk-engine/internal/types"
)

const (
	dayInterval = "day"
	dayLayout   = "2006-01-02"
	// Kite allows three historical requests per second.
	historicalRPS = 3
)

var ErrUnknownSymbol = errors.New("unknown instrument")

type Params struct {
	APIKey      string
	AccessToken string
	Exchange    string
}

// kiteAPI is the subset of the Kite client this package calls.
type kiteAPI interface {
	GetHistoricalData(instrumentToken int, interval string, fromDate time.Time, toDate time.Time, continuous bool, OI bool) ([]kiteconnect.HistoricalData, error)
	GetInstrumentsByExchange(exchange string) (kiteconnect.Instruments, error)
	GetHoldings() (kiteconnect.Holdings, error)
}

type Zerodha struct {
	p       Params
	kc      kiteAPI
	mapper  *instrumentMapper
	cache   *closeCache
	limiter *rate.Limiter
	now     func() time.Time
}

var (
	_ interfaces.PriceHistory   = (*Zerodha)(nil)
	_ interfaces.PositionSource = (*Zerodha)(nil)
)

func NewZerodha(p Params) (*Zerodha, error) {
	if p.APIKey == "" || p.AccessToken == "" {
		return nil, errors.New("missing API key/access token")
	}
	kc := kiteconnect.New(p.APIKey)
	kc.SetAccessToken(p.AccessToken)
	return newWithClient(p, kc), nil
}

func newWithClient(p Params, kc kiteAPI) *Zerodha {
	if p.Exchange == "" {
		p.Exchange = "NSE"
	}
	return &Zerodha{
		p:       p,
		kc:      kc,
		mapper:  newInstrumentMapper(),
		cache:   newCloseCache(),
		limiter: rate.NewLimiter(rate.Limit(historicalRPS), 1),
		now:     time.Now,
	}
}

// DailyCloses returns the last days daily closes for symbol.
func (z *Zerodha) DailyCloses(ctx context.Context, symbol string, days int) ([]types.PricePoint, error) {
	today := z.now().Format(dayLayout)
	if pts, ok := z.cache.get(symbol, today, days); ok {
		return pts, nil
	}

	token, err := z.token(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if err := z.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	to := z.now()
	// Weekends and holidays: ask for twice the calendar span.
	from := to.AddDate(0, 0, -2*days-7)
	bars, err := z.kc.GetHistoricalData(token, dayInterval, from, to, false, false)
	if err != nil {
		return nil, fmt.Errorf("historical data for %s: %w", symbol, err)
	}

	pts := make([]types.PricePoint, 0, len(bars))
	for _, b := range bars {
		pts = append(pts, types.PricePoint{Date: b.Date.Time, Close: b.Close})
	}
	z.cache.put(symbol, today, pts)
	if days > 0 && len(pts) > days {
		pts = pts[len(pts)-days:]
	}
	logger.Debug(ctx, "Fetched daily closes", "symbol", symbol, "token", token, "count", len(pts))
	return pts, nil
}

// Positions reports demat holdings with a non-zero quantity.
func (z *Zerodha) Positions(ctx context.Context) (types.PositionSnapshot, error) {
	holdings, err := z.kc.GetHoldings()
	if err != nil {
		return nil, fmt.Errorf("holdings: %w", err)
	}
	snap := make(types.PositionSnapshot, len(holdings))
	for _, h := range holdings {
		if h.Quantity == 0 {
			continue
		}
		qty := float64(h.Quantity)
		snap[strings.ToUpper(h.Tradingsymbol)] = types.Position{Quantity: qty, MarketValue: qty * h.LastPrice}
	}
	logger.Debug(ctx, "Fetched holdings", "count", len(snap))
	return snap, nil
}

func (z *Zerodha) token(ctx context.Context, symbol string) (int, error) {
	if tok, ok := z.mapper.getToken(symbol); ok {
		return tok, nil
	}
	if !z.mapper.isLoaded() {
		if err := z.loadInstruments(ctx); err != nil {
			return 0, err
		}
		if tok, ok := z.mapper.getToken(symbol); ok {
			return tok, nil
		}
	}
	return 0, fmt.Errorf("%w: %s on %s", ErrUnknownSymbol, symbol, z.p.Exchange)
}

func (z *Zerodha) loadInstruments(ctx context.Context) error {
	instruments, err := z.kc.GetInstrumentsByExchange(z.p.Exchange)
	if err != nil {
		return fmt.Errorf("instrument dump for %s: %w", z.p.Exchange, err)
	}
	for _, in := range instruments {
		z.mapper.addMapping(in.Tradingsymbol, in.InstrumentToken)
	}
	z.mapper.markLoaded()
	logger.Info(ctx, "Loaded instrument dump", "exchange", z.p.Exchange, "count", len(instruments))
	return nil
}
