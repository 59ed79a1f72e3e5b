package indicator

import "math"

// Clamp restricts a value to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleStdDev uses the running sum / sum of squares form.
func sampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	sum := 0.0
	sum2 := 0.0
	for _, v := range values {
		sum += v
		sum2 += v * v
	}
	n := float64(len(values))
	m := sum / n
	variance := (sum2 - n*m*m) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}
