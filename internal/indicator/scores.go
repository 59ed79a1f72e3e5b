package indicator

import "math"

// NeutralScore is used whenever an input is missing or undefined.
const NeutralScore = 50.0

// Momentum horizons in trading days, with the weight each carries in the
// composite change.
const (
	MomentumShort  = 1
	MomentumMedium = 7
	MomentumLong   = 30

	momentumShortWeight  = 0.2
	momentumMediumWeight = 0.3
	momentumLongWeight   = 0.5
)

// MomentumScore maps 1/7/30-day % changes to [20,90]. Missing horizons count
// as zero change. A +10% composite scores 90 and -10% scores 20.
func MomentumScore(change1d, change7d, change30d *float64) float64 {
	c := momentumShortWeight*valueOr(change1d, 0) +
		momentumMediumWeight*valueOr(change7d, 0) +
		momentumLongWeight*valueOr(change30d, 0)
	switch {
	case c >= 10:
		return 90
	case c <= -10:
		return 20
	case c >= 0:
		return 60 + 3*c
	default:
		return 60 + 4*c
	}
}

// VolumeTrendScore rewards rising participation.
func VolumeTrendScore(t Trend) float64 {
	switch t {
	case TrendIncreasing:
		return 75
	case TrendDecreasing:
		return 45
	default:
		return 60
	}
}

const (
	rsiOversold   = 30.0
	rsiOverbought = 70.0
)

// RSIScore favours oversold readings: <=30 scores 85, exactly 70 scores 45,
// above 70 scores 25, and the band between slides from 75 at 50 to 65 at the
// edges.
func RSIScore(rsi float64) float64 {
	switch {
	case rsi <= rsiOversold:
		return 85
	case rsi == rsiOverbought:
		return 45
	case rsi > rsiOverbought:
		return 25
	default:
		return 75 - math.Abs(rsi-50)/20*10
	}
}

// MAPositionScore is 30 plus 40 times the fraction of moving averages the
// price sits above. Non-positive averages are ignored.
func MAPositionScore(price float64, averages []float64) float64 {
	n, above := 0, 0
	for _, ma := range averages {
		if ma <= 0 {
			continue
		}
		n++
		if price > ma {
			above++
		}
	}
	if n == 0 {
		return NeutralScore
	}
	return 30 + 40*float64(above)/float64(n)
}

func valueOr(p *float64, def float64) float64 {
	if p == nil || math.IsNaN(*p) {
		return def
	}
	return *p
}
