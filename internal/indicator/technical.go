package indicator

import (
	"math"

	"FinScan/internal/domain/models"
)

const (
	DefaultRSIPeriod = 14
	NeutralRSI       = 50.0

	// TradingDaysPerYear annualizes daily volatility.
	TradingDaysPerYear = 252

	MACDFast   = 12
	MACDSlow   = 26
	MACDSignal = 9
)

// MovingAverageWindows are the SMA windows evaluated for the MA-position score.
var MovingAverageWindows = []int{5, 10, 20, 50}

// RSI computes the Wilder-smoothed Relative Strength Index of closes.
// It returns 50 when fewer than period+1 closes are given or when the series
// is flat, and 100 when there are gains but no losses.
func RSI(closes []float64, period int) float64 {
	if period <= 0 {
		period = DefaultRSIPeriod
	}
	if len(closes) < period+1 {
		return NeutralRSI
	}

	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		gain, loss := splitDelta(closes[i] - closes[i-1])
		avgGain += gain
		avgLoss += loss
	}
	p := float64(period)
	avgGain /= p
	avgLoss /= p

	// Wilder's smoothing: avg = (prev*(period-1) + x) / period
	for i := period + 1; i < len(closes); i++ {
		gain, loss := splitDelta(closes[i] - closes[i-1])
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return NeutralRSI
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

func splitDelta(delta float64) (gain, loss float64) {
	if delta > 0 {
		return delta, 0
	}
	return 0, -delta
}

// SMA returns the mean of the last window values, or the mean of the whole
// series when it is shorter than the window. Empty input yields 0.
func SMA(values []float64, window int) float64 {
	if len(values) == 0 || window <= 0 {
		return 0
	}
	if len(values) < window {
		return mean(values)
	}
	return mean(values[len(values)-window:])
}

// EMA returns the exponential moving average series seeded with the SMA of
// the first period values. out[0] corresponds to values[period-1].
func EMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	k := 2.0 / float64(period+1)
	out := make([]float64, 0, len(values)-period+1)
	prev := mean(values[:period])
	out = append(out, prev)
	for _, v := range values[period:] {
		prev = v*k + prev*(1-k)
		out = append(out, prev)
	}
	return out
}

// MACD classifies the latest MACD(12,26,9) histogram. It returns nil when the
// series is too short for a signal line.
func MACD(closes []float64) *models.Signal {
	if len(closes) < MACDSlow+MACDSignal-1 {
		return nil
	}
	fast := EMA(closes, MACDFast)
	slow := EMA(closes, MACDSlow)
	// align fast to slow: slow[0] is closes[MACDSlow-1]
	offset := MACDSlow - MACDFast
	line := make([]float64, len(slow))
	for i := range slow {
		line[i] = fast[i+offset] - slow[i]
	}
	signal := EMA(line, MACDSignal)
	if len(signal) == 0 {
		return nil
	}
	hist := line[len(line)-1] - signal[len(signal)-1]

	s := models.SignalHold
	switch {
	case hist > 1e-9:
		s = models.SignalBuy
	case hist < -1e-9:
		s = models.SignalSell
	}
	return &s
}

// Returns computes simple period-over-period returns. Non-positive prior
// prices contribute a zero return.
func Returns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prev := closes[i-1]
		if prev <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, closes[i]/prev-1)
	}
	return out
}

// Volatility is the annualized sample standard deviation of simple daily
// returns over the trailing period (all returns when period <= 0). Fewer than
// two returns yields 0.
func Volatility(closes []float64, period int) float64 {
	r := Returns(closes)
	if period > 0 && len(r) > period {
		r = r[len(r)-period:]
	}
	if len(r) < 2 {
		return 0
	}
	return sampleStdDev(r) * math.Sqrt(TradingDaysPerYear)
}

// PercentChange is the % change between the last close and the close n bars
// earlier, or nil when the history is too short.
func PercentChange(closes []float64, n int) *float64 {
	if n <= 0 || len(closes) <= n {
		return nil
	}
	base := closes[len(closes)-1-n]
	if base <= 0 {
		return nil
	}
	v := (closes[len(closes)-1]/base - 1) * 100
	return &v
}

// MaxDailyMove is the largest absolute daily % move over the last window returns.
func MaxDailyMove(closes []float64, window int) float64 {
	r := Returns(closes)
	if window > 0 && len(r) > window {
		r = r[len(r)-window:]
	}
	maxMove := 0.0
	for _, v := range r {
		if m := math.Abs(v) * 100; m > maxMove {
			maxMove = m
		}
	}
	return maxMove
}

// Trend classifies recent volume against its baseline.
type Trend string

const (
	TrendIncreasing Trend = "INCREASING"
	TrendDecreasing Trend = "DECREASING"
	TrendStable     Trend = "STABLE"
)

const (
	volumeRecentWindow = 5
	volumeWindow       = 25
	volumeRisingRatio  = 1.15
	volumeFallingRatio = 0.85
)

// VolumeTrend compares the mean of the last 5 volumes with the mean of the
// trailing window of up to 25 volumes, the recent ones included.
func VolumeTrend(volumes []float64) Trend {
	if len(volumes) <= volumeRecentWindow {
		return TrendStable
	}
	window := volumes
	if len(window) > volumeWindow {
		window = window[len(window)-volumeWindow:]
	}
	recent := mean(window[len(window)-volumeRecentWindow:])
	baseline := mean(window)
	if baseline <= 0 {
		return TrendStable
	}
	ratio := recent / baseline
	switch {
	case ratio > volumeRisingRatio:
		return TrendIncreasing
	case ratio < volumeFallingRatio:
		return TrendDecreasing
	default:
		return TrendStable
	}
}
