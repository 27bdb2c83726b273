// Package confirmation decides whether enough timeframes agree on a direction
// for a combined signal to be actionable.
package confirmation

import (
	"fmt"

	"trading-risk-engine/internal/types"
)

// MinTimeframes is the minimum number of required timeframes that must carry
// data before agreement is scored at all.
const MinTimeframes = 2

// DefaultTimeframeWeight applies to timeframes missing from the weight table.
const DefaultTimeframeWeight = 0.1

const (
	detailInsufficient = "insufficient data"
	detailUndecided    = "no directional majority"
)

// Confirm scores directional agreement across the required timeframes.
// Only required timeframes present in signals are considered; hold signals
// count toward the denominator but never vote. A timeframe listed twice in
// required is counted once.
func Confirm(symbol string, signals map[types.Timeframe]types.TimeframeSignal, required []types.Timeframe, threshold float64) types.ConfirmationResult {
	considered := make([]types.TimeframeSignal, 0, len(required))
	seen := make(map[types.Timeframe]bool, len(required))
	for _, tf := range required {
		if seen[tf] {
			continue
		}
		seen[tf] = true
		if s, ok := signals[tf]; ok {
			s.Timeframe = tf
			considered = append(considered, s)
		}
	}

	res := types.ConfirmationResult{
		ThresholdUsed:          threshold,
		Direction:              types.Hold,
		ContributingTimeframes: []types.Timeframe{},
	}
	if len(considered) < MinTimeframes {
		res.Detail = fmt.Sprintf("%s: %d of %d required timeframes for %s", detailInsufficient, len(considered), len(required), symbol)
		return res
	}

	var buys, sells int
	for _, s := range considered {
		switch s.Direction {
		case types.Buy:
			buys++
		case types.Sell:
			sells++
		}
	}

	total := float64(len(considered))
	if buys == sells {
		res.AgreementRatio = float64(buys) / total
		res.Detail = fmt.Sprintf("%s: buy=%d sell=%d hold=%d", detailUndecided, buys, sells, len(considered)-buys-sells)
		return res
	}

	res.Direction = types.Buy
	votes := buys
	if sells > buys {
		res.Direction = types.Sell
		votes = sells
	}
	for _, s := range considered {
		if s.Direction == res.Direction {
			res.ContributingTimeframes = append(res.ContributingTimeframes, s.Timeframe)
		}
	}

	res.AgreementRatio = float64(votes) / total
	res.Confirmed = res.AgreementRatio >= threshold
	verdict := "confirmed"
	if !res.Confirmed {
		verdict = "below threshold"
	}
	res.Detail = fmt.Sprintf("%s %s: %d/%d timeframes agree (ratio %.2f, threshold %.2f)",
		res.Direction, verdict, votes, len(considered), res.AgreementRatio, threshold)
	return res
}

// Combine blends timeframe signals into one direction and confidence using
// per-timeframe weights. Ties resolve to hold with zero confidence.
func Combine(signals map[types.Timeframe]types.TimeframeSignal, weights map[types.Timeframe]float64) (types.Direction, float64) {
	var buyScore, sellScore, totalWeight float64
	for tf, s := range signals {
		w, ok := weights[tf]
		if !ok {
			w = DefaultTimeframeWeight
		}
		if w <= 0 {
			continue
		}
		totalWeight += w
		switch s.Direction {
		case types.Buy:
			buyScore += w * clamp01(s.Confidence)
		case types.Sell:
			sellScore += w * clamp01(s.Confidence)
		}
	}
	if totalWeight == 0 || buyScore == sellScore {
		return types.Hold, 0
	}
	if buyScore > sellScore {
		return types.Buy, buyScore / totalWeight
	}
	return types.Sell, sellScore / totalWeight
}

// Contributing returns the subset of signals on the listed timeframes.
func Contributing(signals map[types.Timeframe]types.TimeframeSignal, tfs []types.Timeframe) map[types.Timeframe]types.TimeframeSignal {
	out := make(map[types.Timeframe]types.TimeframeSignal, len(tfs))
	for _, tf := range tfs {
		if s, ok := signals[tf]; ok {
			out[tf] = s
		}
	}
	return out
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
