package engine

import (
	"math"

	"trading-risk-engine/internal/types"
)

// sentimentMultiplier nudges confidence toward the sentiment that agrees
// with the trade side. Hold has no side and is left untouched.
func sentimentMultiplier(adjustment, combined float64, dir types.Direction) float64 {
	return 1 + adjustment*combined*dir.Side()
}

// blockReason reports the first failing gate: confirmation, then
// correlation, then a zero size.
func blockReason(conf types.ConfirmationResult, corr types.CorrelationResult, km types.KellyMetrics, size float64) (types.BlockReason, string) {
	switch {
	case !conf.Confirmed:
		return types.BlockUnconfirmed, conf.Detail
	case corr.Blocked:
		return types.BlockCorrelation, corr.Reason
	case size <= 0:
		if km.KellyFraction <= 0 {
			return types.BlockZeroFraction, km.Detail
		}
		return types.BlockZeroFraction, "size fraction is zero at this confidence"
	}
	return types.BlockNone, ""
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	return math.Min(x, 1)
}
