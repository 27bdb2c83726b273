// Package kelly sizes positions from the recent trade ledger using a capped
// Kelly criterion.
package kelly

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"trading-risk-engine/internal/types"
)

const (
	DefaultCap              = 0.25
	DefaultLookback         = 50
	DefaultMinSampleSize    = 20
	DefaultFallbackFraction = 0.05

	// MaxWinLossRatio stands in for an undefined ratio when no losing trade
	// exists in the window.
	MaxWinLossRatio = 100.0

	tradingDaysPerYear = 252
)

type Sizer struct {
	Cap              float64
	Lookback         int
	MinSampleSize    int
	FallbackFraction float64
}

// NewSizer returns a sizer with the default policy.
func NewSizer() Sizer {
	return Sizer{
		Cap:              DefaultCap,
		Lookback:         DefaultLookback,
		MinSampleSize:    DefaultMinSampleSize,
		FallbackFraction: DefaultFallbackFraction,
	}
}

// Compute derives Kelly metrics from the most recent Lookback records.
// Records with zero pnl are opening legs and do not count as outcomes.
func (s Sizer) Compute(history []types.TradeRecord) types.KellyMetrics {
	window := history
	if s.Lookback > 0 && len(window) > s.Lookback {
		window = window[len(window)-s.Lookback:]
	}

	var wins, losses []float64
	for _, tr := range window {
		switch {
		case tr.RealizedPnL > 0:
			wins = append(wins, tr.RealizedPnL)
		case tr.RealizedPnL < 0:
			losses = append(losses, -tr.RealizedPnL)
		}
	}

	m := types.KellyMetrics{SampleSize: len(wins) + len(losses)}
	if m.SampleSize < s.MinSampleSize {
		m.KellyFraction = math.Min(s.FallbackFraction, s.Cap)
		m.Fallback = true
		m.Detail = fmt.Sprintf("insufficient history: %d closed trades, need %d", m.SampleSize, s.MinSampleSize)
		return m
	}

	m.WinRate = float64(len(wins)) / float64(m.SampleSize)
	if len(wins) > 0 {
		m.AvgWin = stat.Mean(wins, nil)
	}
	if len(losses) > 0 {
		m.AvgLoss = stat.Mean(losses, nil)
	}

	if len(wins) == 0 {
		m.Detail = "no winning trades in window"
		return m
	}

	if m.AvgLoss == 0 {
		m.WinLossRatio = MaxWinLossRatio
		m.Detail = "no losing trades, win/loss ratio capped"
	} else {
		m.WinLossRatio = m.AvgWin / m.AvgLoss
	}

	raw := m.WinRate - (1-m.WinRate)/m.WinLossRatio
	if raw <= 0 {
		m.Detail = fmt.Sprintf("negative edge (raw %.4f)", raw)
		return m
	}
	m.KellyFraction = math.Min(raw, s.Cap)
	if raw > s.Cap && m.Detail == "" {
		m.Detail = fmt.Sprintf("raw fraction %.4f capped at %.2f", raw, s.Cap)
	}
	return m
}

// Compute runs the default policy with the given cap.
func Compute(history []types.TradeRecord, maxFraction float64) types.KellyMetrics {
	s := NewSizer()
	s.Cap = maxFraction
	return s.Compute(history)
}

// Apply scales a Kelly fraction by agreement and confidence. A correlation
// block always yields zero.
func (s Sizer) Apply(kellyFraction float64, conf types.ConfirmationResult, corr types.CorrelationResult, baseConfidence float64) float64 {
	if corr.Blocked {
		return 0
	}
	size := kellyFraction * conf.AgreementRatio * baseConfidence
	if math.IsNaN(size) || size < 0 {
		return 0
	}
	return math.Min(size, s.Cap)
}

type PerformanceStats struct {
	Trades      int     `json:"trades"`
	TotalPnL    float64 `json:"total_pnl"`
	Sharpe      float64 `json:"sharpe"`
	MaxDrawdown float64 `json:"max_drawdown"`
}

// Performance reports annualised Sharpe and the worst peak-to-trough drop of
// cumulative pnl over the closed trades in history.
func Performance(history []types.TradeRecord) PerformanceStats {
	var pnls []float64
	for _, tr := range history {
		if tr.RealizedPnL != 0 {
			pnls = append(pnls, tr.RealizedPnL)
		}
	}
	ps := PerformanceStats{Trades: len(pnls)}
	if len(pnls) == 0 {
		return ps
	}

	var cum, peak float64
	for _, p := range pnls {
		cum += p
		peak = math.Max(peak, cum)
		ps.MaxDrawdown = math.Max(ps.MaxDrawdown, peak-cum)
	}
	ps.TotalPnL = cum

	if len(pnls) > 1 {
		mean, std := stat.MeanStdDev(pnls, nil)
		if std > 0 {
			ps.Sharpe = math.Sqrt(tradingDaysPerYear) * mean / std
		}
	}
	return ps
}
