// Package alpaca reads US daily bars and open positions from Alpaca.
package alpaca

import (
	"context"
	"fmt"
	"strings"
	"time"

	alpacaapi "github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"trading-risk-engine/internal/interfaces"
	"trading-risk-engine/internal/logger"
	"trading-risk-engine/internal/types"
)

type barsAPI interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

type positionsAPI interface {
	GetPositions() ([]alpacaapi.Position, error)
}

// Provider implements price history and positions over the Alpaca APIs.
// Credentials come from the APCA_* environment variables.
type Provider struct {
	md    barsAPI
	trade positionsAPI
	now   func() time.Time
}

var (
	_ interfaces.PriceHistory   = (*Provider)(nil)
	_ interfaces.PositionSource = (*Provider)(nil)
)

func NewProvider() *Provider {
	return &Provider{
		md:    marketdata.NewClient(marketdata.ClientOpts{}),
		trade: alpacaapi.NewClient(alpacaapi.ClientOpts{}),
		now:   time.Now,
	}
}

func (p *Provider) DailyCloses(ctx context.Context, symbol string, days int) ([]types.PricePoint, error) {
	bars, err := p.md.GetBars(strings.ToUpper(symbol), marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     p.now().AddDate(0, 0, -2*days-7),
	})
	if err != nil {
		return nil, fmt.Errorf("bars for %s: %w", symbol, err)
	}
	if days > 0 && len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	pts := make([]types.PricePoint, 0, len(bars))
	for _, b := range bars {
		pts = append(pts, types.PricePoint{Date: b.Timestamp.UTC(), Close: b.Close})
	}
	logger.Debug(ctx, "Fetched daily bars", "symbol", symbol, "count", len(pts))
	return pts, nil
}

func (p *Provider) Positions(ctx context.Context) (types.PositionSnapshot, error) {
	positions, err := p.trade.GetPositions()
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}
	snap := make(types.PositionSnapshot, len(positions))
	for _, pos := range positions {
		if pos.Qty.IsZero() {
			continue
		}
		entry := types.Position{Quantity: pos.Qty.InexactFloat64()}
		if pos.MarketValue != nil {
			entry.MarketValue = pos.MarketValue.InexactFloat64()
		}
		snap[pos.Symbol] = entry
	}
	logger.Debug(ctx, "Fetched positions", "count", len(snap))
	return snap, nil
}
