package confirmation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-risk-engine/internal/types"
)

func sig(dir types.Direction, conf float64) types.TimeframeSignal {
	return types.TimeframeSignal{Direction: dir, Confidence: conf}
}

func TestConfirm_SingleTimeframeNeverConfirms(t *testing.T) {
	signals := map[types.Timeframe]types.TimeframeSignal{
		types.TF1d: sig(types.Buy, 0.9),
	}
	res := Confirm("INFY", signals, []types.Timeframe{types.TF1d, types.TF4h}, 0.5)

	assert.False(t, res.Confirmed)
	assert.Zero(t, res.AgreementRatio)
	assert.Contains(t, res.Detail, "insufficient data")
	assert.Empty(t, res.ContributingTimeframes)
	assert.Equal(t, types.Hold, res.Direction)
}

func TestConfirm_DuplicateRequiredTimeframeCountsOnce(t *testing.T) {
	signals := map[types.Timeframe]types.TimeframeSignal{
		types.TF1d: sig(types.Buy, 0.9),
	}
	res := Confirm("INFY", signals, []types.Timeframe{types.TF1d, types.TF1d}, 0.5)

	assert.False(t, res.Confirmed)
	assert.Zero(t, res.AgreementRatio)
	assert.Contains(t, res.Detail, "insufficient data")

	signals[types.TF4h] = sig(types.Sell, 0.7)
	res = Confirm("INFY", signals, []types.Timeframe{types.TF1d, types.TF1d, types.TF4h}, 0.5)
	assert.False(t, res.Confirmed, "one buy and one sell is a tie")
	assert.Equal(t, types.Hold, res.Direction)
}

func TestConfirm_IgnoresTimeframesNotRequired(t *testing.T) {
	signals := map[types.Timeframe]types.TimeframeSignal{
		types.TF1d: sig(types.Buy, 0.9),
		types.TF1h: sig(types.Buy, 0.9),
	}
	res := Confirm("INFY", signals, []types.Timeframe{types.TF1d, types.TF4h}, 0.5)

	assert.False(t, res.Confirmed)
	assert.Contains(t, res.Detail, "insufficient data")
}

func TestConfirm_UnanimousAgreement(t *testing.T) {
	required := []types.Timeframe{types.TF1d, types.TF4h, types.TF1h}
	for _, dir := range []types.Direction{types.Buy, types.Sell} {
		signals := map[types.Timeframe]types.TimeframeSignal{
			types.TF1d: sig(dir, 0.7),
			types.TF4h: sig(dir, 0.6),
			types.TF1h: sig(dir, 0.5),
		}
		res := Confirm("TCS", signals, required, 1.0)

		assert.True(t, res.Confirmed, dir)
		assert.Equal(t, 1.0, res.AgreementRatio)
		assert.Equal(t, dir, res.Direction)
		assert.Equal(t, required, res.ContributingTimeframes)
	}
}

// Two of three agree against a 0.6 threshold.
func TestConfirm_MajorityAboveThreshold(t *testing.T) {
	signals := map[types.Timeframe]types.TimeframeSignal{
		types.TF1d: sig(types.Buy, 0.8),
		types.TF4h: sig(types.Buy, 0.7),
		types.TF1h: sig(types.Sell, 0.6),
	}
	res := Confirm("RELIANCE", signals, []types.Timeframe{types.TF1d, types.TF4h, types.TF1h}, 0.6)

	require.True(t, res.Confirmed)
	assert.InDelta(t, 2.0/3.0, res.AgreementRatio, 1e-9)
	assert.Equal(t, types.Buy, res.Direction)
	assert.Equal(t, []types.Timeframe{types.TF1d, types.TF4h}, res.ContributingTimeframes)
	assert.Equal(t, 0.6, res.ThresholdUsed)
}

func TestConfirm_HoldsCountInDenominator(t *testing.T) {
	signals := map[types.Timeframe]types.TimeframeSignal{
		types.TF1d: sig(types.Buy, 0.8),
		types.TF4h: sig(types.Hold, 0),
		types.TF1h: sig(types.Hold, 0),
	}
	res := Confirm("HDFC", signals, []types.Timeframe{types.TF1d, types.TF4h, types.TF1h}, 0.6)

	assert.False(t, res.Confirmed)
	assert.InDelta(t, 1.0/3.0, res.AgreementRatio, 1e-9)
	assert.Equal(t, types.Buy, res.Direction)
}

func TestConfirm_TieIsUndecided(t *testing.T) {
	signals := map[types.Timeframe]types.TimeframeSignal{
		types.TF1d: sig(types.Buy, 0.8),
		types.TF4h: sig(types.Sell, 0.8),
	}
	res := Confirm("SBIN", signals, []types.Timeframe{types.TF1d, types.TF4h}, 0.5)

	assert.False(t, res.Confirmed, "a tie must not confirm even when the ratio reaches the threshold")
	assert.Equal(t, 0.5, res.AgreementRatio)
	assert.Equal(t, types.Hold, res.Direction)
	assert.Empty(t, res.ContributingTimeframes)
}

func TestConfirm_AllHoldIsUndecided(t *testing.T) {
	signals := map[types.Timeframe]types.TimeframeSignal{
		types.TF1d: sig(types.Hold, 0),
		types.TF4h: sig(types.Hold, 0),
	}
	res := Confirm("SBIN", signals, []types.Timeframe{types.TF1d, types.TF4h}, 0.5)

	assert.False(t, res.Confirmed)
	assert.Zero(t, res.AgreementRatio)
}

func TestConfirm_RatioAlwaysInUnitInterval(t *testing.T) {
	dirs := []types.Direction{types.Buy, types.Sell, types.Hold}
	required := []types.Timeframe{types.TF1d, types.TF4h, types.TF1h}
	for _, a := range dirs {
		for _, b := range dirs {
			for _, c := range dirs {
				signals := map[types.Timeframe]types.TimeframeSignal{
					types.TF1d: sig(a, 0.5), types.TF4h: sig(b, 0.5), types.TF1h: sig(c, 0.5),
				}
				res := Confirm("X", signals, required, 0.6)
				assert.GreaterOrEqual(t, res.AgreementRatio, 0.0)
				assert.LessOrEqual(t, res.AgreementRatio, 1.0)
				if res.Confirmed {
					assert.GreaterOrEqual(t, res.AgreementRatio, 0.6)
				}
			}
		}
	}
}

func TestConfirm_ConcurrentCallsAreIndependent(t *testing.T) {
	signals := map[types.Timeframe]types.TimeframeSignal{
		types.TF1d: sig(types.Sell, 0.8),
		types.TF4h: sig(types.Sell, 0.7),
	}
	required := []types.Timeframe{types.TF1d, types.TF4h}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := Confirm("ITC", signals, required, 0.6)
			assert.True(t, res.Confirmed)
		}()
	}
	wg.Wait()
}

func TestCombine(t *testing.T) {
	weights := map[types.Timeframe]float64{types.TF1d: 0.5, types.TF4h: 0.3, types.TF1h: 0.2}

	t.Run("weighted buy", func(t *testing.T) {
		dir, conf := Combine(map[types.Timeframe]types.TimeframeSignal{
			types.TF1d: sig(types.Buy, 0.8),
			types.TF4h: sig(types.Buy, 0.6),
			types.TF1h: sig(types.Sell, 0.5),
		}, weights)
		assert.Equal(t, types.Buy, dir)
		assert.InDelta(t, 0.58, conf, 1e-9)
	})

	t.Run("tie is hold", func(t *testing.T) {
		dir, conf := Combine(map[types.Timeframe]types.TimeframeSignal{
			types.TF1d: sig(types.Buy, 0.6),
			types.TF1h: sig(types.Sell, 1.0),
			types.TF4h: sig(types.Hold, 0),
		}, map[types.Timeframe]float64{types.TF1d: 0.5, types.TF1h: 0.3, types.TF4h: 0.2})
		assert.Equal(t, types.Hold, dir)
		assert.Zero(t, conf)
	})

	t.Run("unknown timeframe gets default weight", func(t *testing.T) {
		dir, conf := Combine(map[types.Timeframe]types.TimeframeSignal{
			types.TF15m: sig(types.Sell, 0.9),
		}, weights)
		assert.Equal(t, types.Sell, dir)
		assert.InDelta(t, 0.9, conf, 1e-9)
	})

	t.Run("empty", func(t *testing.T) {
		dir, conf := Combine(nil, weights)
		assert.Equal(t, types.Hold, dir)
		assert.Zero(t, conf)
	})
}
