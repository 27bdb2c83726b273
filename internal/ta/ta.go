package ta

import "math"

func SMA(closes []float64, n int) float64 {
	if len(closes) < n || n <= 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := len(closes) - n; i < len(closes); i++ {
		sum += closes[i]
	}
	return sum / float64(n)
}
func RSI(closes []float64, period int) float64 {
	if len(closes) < period+1 || period <= 0 {
		return math.NaN()
	}
	gain, loss := 0.0, 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	if loss == 0 {
		return 100.0
	}
	rs := gain / loss
	return 100.0 - (100.0 / (1.0 + rs))
}
func StdDev(vals []float64, n int) float64 {
	if len(vals) < n || n <= 0 {
		return math.NaN()
	}
	m := SMA(vals, n)
	s := 0.0
	for i := len(vals) - n; i < len(vals); i++ {
		d := vals[i] - m
		s += d * d
	}
	return math.Sqrt(s / float64(n))
}
func Bollinger(closes []float64, n int, k float64) (mid, up, low float64) {
	mid = SMA(closes, n)
	sd := StdDev(closes, n)
	up = mid + k*sd
	low = mid - k*sd
	return
}

// PercentB places the last close inside the Bollinger band: 0 at the lower
// band, 1 at the upper. NaN when the band is flat or too short.
func PercentB(closes []float64, n int, k float64) float64 {
	_, up, low := Bollinger(closes, n, k)
	if math.IsNaN(up) || up == low {
		return math.NaN()
	}
	return (closes[len(closes)-1] - low) / (up - low)
}

// Returns converts closes into simple period returns. A zero previous close
// yields a zero return.
func Returns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		out[i-1] = closes[i]/closes[i-1] - 1
	}
	return out
}

// Momentum is the fractional change over the last n periods.
func Momentum(closes []float64, n int) float64 {
	if n <= 0 || len(closes) < n+1 {
		return math.NaN()
	}
	prev := closes[len(closes)-1-n]
	if prev == 0 {
		return math.NaN()
	}
	return closes[len(closes)-1]/prev - 1
}
