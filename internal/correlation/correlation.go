// Package correlation caps new exposure that moves too closely with what the
// account already holds.
package correlation

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"trading-risk-engine/internal/interfaces"
	"trading-risk-engine/internal/logger"
	"trading-risk-engine/internal/ta"
	"trading-risk-engine/internal/types"
)

const (
	DefaultMaxCorrelation = 0.7
	DefaultLookbackDays   = 30

	reasonNoEvidence = "no comparable positions"
	dateLayout       = "2006-01-02"
)

// Cap measures the return correlation of candidate against every held
// position and blocks when the strongest one exceeds maxCorrelation.
// Pairs without usable history are skipped, never reported as errors.
func Cap(ctx context.Context, candidate string, positions types.PositionSnapshot, prices interfaces.PriceHistory, lookbackDays int, maxCorrelation float64) types.CorrelationResult {
	res := types.CorrelationResult{Reason: reasonNoEvidence}

	held := positions.Held()
	sort.Strings(held)
	if len(held) == 0 {
		return res
	}

	// lookbackDays returns need one more close than that.
	closes := lookbackDays + 1
	candSeries, err := prices.DailyCloses(ctx, candidate, closes)
	if err != nil {
		logger.Warn(ctx, "Candidate price history unavailable", "symbol", candidate, "error", err)
		return res
	}

	correlations := make(map[string]float64, len(held))
	for _, sym := range held {
		if sym == candidate {
			continue
		}
		series, err := prices.DailyCloses(ctx, sym, closes)
		if err != nil {
			logger.Debug(ctx, "Skipping position without history", "symbol", sym, "error", err)
			continue
		}
		rho, ok := Pearson(candSeries, series)
		if !ok {
			logger.Debug(ctx, "Skipping position with too few aligned returns", "symbol", sym)
			continue
		}
		correlations[sym] = rho
		if abs := math.Abs(rho); abs > res.MaxCorrelation || res.CorrelatedWith == "" {
			res.MaxCorrelation = abs
			res.CorrelatedWith = sym
		}
	}

	if len(correlations) == 0 {
		return res
	}
	res.Correlations = correlations
	res.Blocked = res.MaxCorrelation > maxCorrelation
	if res.Blocked {
		res.Reason = fmt.Sprintf("correlation %.2f with %s exceeds %.2f", res.MaxCorrelation, res.CorrelatedWith, maxCorrelation)
	} else {
		res.Reason = fmt.Sprintf("max correlation %.2f with %s within %.2f", res.MaxCorrelation, res.CorrelatedWith, maxCorrelation)
	}
	return res
}

// Pearson aligns two close series on calendar date and correlates their
// simple daily returns. ok is false when fewer than two aligned returns
// exist. A flat series correlates at 0.
func Pearson(a, b []types.PricePoint) (float64, bool) {
	x, y := Align(a, b)
	rx, ry := ta.Returns(x), ta.Returns(y)
	if len(rx) < 2 {
		return 0, false
	}
	rho := stat.Correlation(rx, ry, nil)
	if math.IsNaN(rho) || math.IsInf(rho, 0) {
		return 0, true
	}
	return math.Max(-1, math.Min(1, rho)), true
}

// Align returns the closes of a and b on the dates both series share, in
// date order. Later duplicates of a date win.
func Align(a, b []types.PricePoint) ([]float64, []float64) {
	bByDate := make(map[string]float64, len(b))
	for _, p := range b {
		bByDate[p.Date.Format(dateLayout)] = p.Close
	}
	aByDate := make(map[string]float64, len(a))
	dates := make([]string, 0, len(a))
	for _, p := range a {
		d := p.Date.Format(dateLayout)
		if _, ok := bByDate[d]; !ok {
			continue
		}
		if _, seen := aByDate[d]; !seen {
			dates = append(dates, d)
		}
		aByDate[d] = p.Close
	}
	sort.Strings(dates)

	x := make([]float64, len(dates))
	y := make([]float64, len(dates))
	for i, d := range dates {
		x[i] = aByDate[d]
		y[i] = bByDate[d]
	}
	return x, y
}
