// Package broker builds the market data providers named in the config.
package broker

import (
	"context"
	"errors"
	"fmt"
	"os"

	"trading-risk-engine/internal/broker/alpaca"
	"trading-risk-engine/internal/broker/brokerobs"
	"trading-risk-engine/internal/broker/static"
	"trading-risk-engine/internal/broker/zerodha"
	"trading-risk-engine/internal/interfaces"
	"trading-risk-engine/internal/logger"
	"trading-risk-engine/internal/metrics"
	"trading-risk-engine/internal/store"
)

type Providers struct {
	Prices interfaces.PriceHistory
	// Positions is nil for STATIC; callers read holdings from the cycle file.
	Positions interfaces.PositionSource
}

// New wires the configured provider behind the observability layer.
func New(ctx context.Context, cfg *store.Config, rec *metrics.Recorder) (Providers, error) {
	opts := brokerobs.Options{Name: cfg.MarketData.Provider, Metrics: rec}

	switch cfg.MarketData.Provider {
	case "KITE":
		z, err := zerodha.NewZerodha(zerodha.Params{
			APIKey:      os.Getenv("KITE_API_KEY"),
			AccessToken: os.Getenv("KITE_ACCESS_TOKEN"),
			Exchange:    cfg.MarketData.Exchange,
		})
		if err != nil {
			return Providers{}, fmt.Errorf("kite provider: %w", err)
		}
		opts.Permanent = func(err error) bool { return errors.Is(err, zerodha.ErrUnknownSymbol) }
		logger.Info(ctx, "Using Kite market data", "exchange", cfg.MarketData.Exchange)
		return Providers{
			Prices:    brokerobs.WrapPrices(z, opts),
			Positions: brokerobs.WrapPositions(z, opts),
		}, nil
	case "ALPACA":
		a := alpaca.NewProvider()
		logger.Info(ctx, "Using Alpaca market data")
		return Providers{
			Prices:    brokerobs.WrapPrices(a, opts),
			Positions: brokerobs.WrapPositions(a, opts),
		}, nil
	default:
		opts.Permanent = func(err error) bool { return errors.Is(err, os.ErrNotExist) }
		logger.Info(ctx, "Using STATIC price files", "dir", cfg.MarketData.DataDir)
		return Providers{Prices: brokerobs.WrapPrices(static.NewCSVPrices(cfg.MarketData.DataDir), opts)}, nil
	}
}
