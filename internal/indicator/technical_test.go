package indicator

import (
	"math"
	"testing"

	"FinScan/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(start float64, steps ...float64) []float64 {
	out := []float64{start}
	for _, s := range steps {
		out = append(out, out[len(out)-1]+s)
	}
	return out
}

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestRSI_InsufficientDataIsNeutral(t *testing.T) {
	assert.Equal(t, NeutralRSI, RSI(nil, 14))
	assert.Equal(t, NeutralRSI, RSI(ramp(14, 100, 1), 14))
}

func TestRSI_FlatSeriesIsNeutral(t *testing.T) {
	assert.Equal(t, NeutralRSI, RSI(ramp(30, 100, 0), 14))
}

func TestRSI_OnlyGainsIs100(t *testing.T) {
	assert.Equal(t, 100.0, RSI(ramp(30, 100, 1), 14))
}

func TestRSI_OnlyLossesIs0(t *testing.T) {
	assert.InDelta(t, 0.0, RSI(ramp(30, 100, -1), 14), 1e-9)
}

func TestRSI_WilderSeed(t *testing.T) {
	// period 2: deltas +2, -1 -> avgGain 1, avgLoss 0.5, RS 2, RSI 66.67
	got := RSI([]float64{10, 12, 11}, 2)
	assert.InDelta(t, 66.6667, got, 1e-3)

	// one more delta +1: avgGain (1*1+1)/2=1, avgLoss (0.5*1+0)/2=0.25, RS 4, RSI 80
	got = RSI([]float64{10, 12, 11, 12}, 2)
	assert.InDelta(t, 80.0, got, 1e-9)
}

func TestRSI_RaisingLastCloseNeverLowersRSI(t *testing.T) {
	base := series(100, 1, -2, 3, -1, 0.5, -0.7, 2, -3, 1, 1, -0.2, 0.4, -1.1, 2.2, -0.6, 0.3, -0.9)
	prev := RSI(base, 14)
	for bump := 0.25; bump <= 10; bump += 0.25 {
		s := append([]float64(nil), base...)
		s[len(s)-1] += bump
		got := RSI(s, 14)
		assert.GreaterOrEqual(t, got, prev, "bump %.2f", bump)
		prev = got
	}
}

func TestRSI_BoundedOnRandomWalk(t *testing.T) {
	s := []float64{100}
	for i := 0; i < 200; i++ {
		s = append(s, s[len(s)-1]*(1+0.02*math.Sin(float64(i)*1.7)))
	}
	for n := 2; n <= len(s); n++ {
		v := RSI(s[:n], 14)
		require.GreaterOrEqual(t, v, 0.0)
		require.LessOrEqual(t, v, 100.0)
	}
}

func TestSMA(t *testing.T) {
	prices := []float64{100, 102, 104, 103, 105}
	assert.InDelta(t, 104.0, SMA(prices, 3), 1e-9)
	assert.InDelta(t, 102.8, SMA(prices, 50), 1e-9, "short series falls back to whole-series mean")
	assert.Equal(t, 0.0, SMA(nil, 5))
}

func TestEMA_SeedAndLength(t *testing.T) {
	e := EMA([]float64{1, 2, 3, 4, 5}, 3)
	require.Len(t, e, 3)
	assert.InDelta(t, 2.0, e[0], 1e-9)
	assert.InDelta(t, 3.0, e[1], 1e-9) // 4*0.5 + 2*0.5
	assert.InDelta(t, 4.0, e[2], 1e-9)
	assert.Nil(t, EMA([]float64{1, 2}, 3))
}

func TestMACD(t *testing.T) {
	assert.Nil(t, MACD(ramp(MACDSlow+MACDSignal-2, 100, 1)))

	up := append(ramp(40, 100, 0), ramp(20, 100, 2)...)
	sig := MACD(up)
	require.NotNil(t, sig)
	assert.Equal(t, models.SignalBuy, *sig)

	down := append(ramp(40, 200, 0), ramp(20, 200, -2)...)
	sig = MACD(down)
	require.NotNil(t, sig)
	assert.Equal(t, models.SignalSell, *sig)

	sig = MACD(ramp(60, 100, 0))
	require.NotNil(t, sig)
	assert.Equal(t, models.SignalHold, *sig)
}

func TestVolatility(t *testing.T) {
	assert.Equal(t, 0.0, Volatility([]float64{100}, 20))
	assert.Equal(t, 0.0, Volatility([]float64{100, 101}, 20))
	assert.Equal(t, 0.0, Volatility(ramp(10, 100, 0), 20))

	// returns +10%, -10%: sample std = 0.1414..., annualized by sqrt(252)
	got := Volatility([]float64{100, 110, 99}, 20)
	assert.InDelta(t, math.Sqrt(0.02)*math.Sqrt(252), got, 1e-9)
}

func TestVolatility_TrailingPeriod(t *testing.T) {
	// a violent start followed by a flat tail
	closes := append([]float64{100, 150, 80, 140}, ramp(10, 140, 0)...)
	assert.Greater(t, Volatility(closes, 0), 1.0)
	assert.Equal(t, 0.0, Volatility(closes, 5))
}

func TestPercentChange(t *testing.T) {
	closes := []float64{100, 105, 110}
	c := PercentChange(closes, 2)
	require.NotNil(t, c)
	assert.InDelta(t, 10.0, *c, 1e-9)
	assert.Nil(t, PercentChange(closes, 3))
	assert.Nil(t, PercentChange([]float64{0, 1}, 1))
}

func TestMaxDailyMove(t *testing.T) {
	closes := []float64{100, 120, 114, 115}
	assert.InDelta(t, 20.0, MaxDailyMove(closes, 10), 1e-9)
	assert.InDelta(t, 5.0, MaxDailyMove(closes, 2), 1e-9)
}

func TestVolumeTrend(t *testing.T) {
	flat := ramp(25, 1000, 0)
	assert.Equal(t, TrendStable, VolumeTrend(flat))
	assert.Equal(t, TrendStable, VolumeTrend([]float64{1, 2, 3}))

	// baseline 1060 over the whole window
	rising := append(ramp(20, 1000, 0), ramp(5, 1300, 0)...)
	assert.Equal(t, TrendIncreasing, VolumeTrend(rising))

	// baseline 940
	falling := append(ramp(20, 1000, 0), ramp(5, 700, 0)...)
	assert.Equal(t, TrendDecreasing, VolumeTrend(falling))
}

func TestVolumeTrend_BaselineIncludesRecentBars(t *testing.T) {
	// 118 / 103.6 = 1.139; against the prior bars alone it would be 1.18
	vols := append(ramp(20, 100, 0), ramp(5, 118, 0)...)
	assert.Equal(t, TrendStable, VolumeTrend(vols))

	// only the trailing 25 bars count
	old := append(ramp(30, 5000, 0), vols...)
	assert.Equal(t, TrendStable, VolumeTrend(old))
}
