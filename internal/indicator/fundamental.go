package indicator

import "FinScan/internal/domain/models"

// band maps values up to (or from) limit onto a score.
type band struct {
	limit float64
	score float64
}

// Ascending tables: first band whose limit is strictly greater than the value wins.
var (
	peBands = []band{{10, 90}, {15, 80}, {25, 60}, {40, 40}}
	pbBands = []band{{1, 90}, {3, 70}, {5, 50}}
)

// Descending tables: first band whose limit the value reaches wins.
var (
	roeBands    = []band{{0.20, 90}, {0.15, 75}, {0.10, 60}, {0, 40}}
	growthBands = []band{{0.20, 90}, {0.10, 75}, {0.05, 60}, {0, 45}}
)

// Inclusive ascending table for leverage.
var debtBands = []band{{0.3, 90}, {0.6, 75}, {1.0, 60}, {2.0, 40}}

func below(v float64, bands []band, otherwise float64) float64 {
	for _, b := range bands {
		if v < b.limit {
			return b.score
		}
	}
	return otherwise
}

func atLeast(v float64, bands []band, otherwise float64) float64 {
	for _, b := range bands {
		if v >= b.limit {
			return b.score
		}
	}
	return otherwise
}

// PEScore scores a trailing P/E. Negative or zero earnings score 30.
func PEScore(pe *float64) float64 {
	if pe == nil {
		return NeutralScore
	}
	if *pe <= 0 {
		return 30
	}
	return below(*pe, peBands, 20)
}

// PBScore scores price-to-book.
func PBScore(pb *float64) float64 {
	if pb == nil {
		return NeutralScore
	}
	if *pb <= 0 {
		return 30
	}
	return below(*pb, pbBands, 30)
}

// ValuationScore averages the P/E and P/B scores that are available.
func ValuationScore(f *models.Fundamentals) float64 {
	if f == nil || (f.PE == nil && f.PB == nil) {
		return NeutralScore
	}
	switch {
	case f.PE == nil:
		return PBScore(f.PB)
	case f.PB == nil:
		return PEScore(f.PE)
	default:
		return (PEScore(f.PE) + PBScore(f.PB)) / 2
	}
}

// ProfitabilityScore scores return on equity (fraction).
func ProfitabilityScore(f *models.Fundamentals) float64 {
	if f == nil || f.ROE == nil {
		return NeutralScore
	}
	return atLeast(*f.ROE, roeBands, 20)
}

// GrowthScore scores year-over-year revenue growth (fraction).
func GrowthScore(f *models.Fundamentals) float64 {
	if f == nil || f.RevenueGrowth == nil {
		return NeutralScore
	}
	return atLeast(*f.RevenueGrowth, growthBands, 25)
}

// LeverageScore scores debt-to-equity; less debt scores higher.
func LeverageScore(f *models.Fundamentals) float64 {
	if f == nil || f.DebtToEquity == nil {
		return NeutralScore
	}
	de := *f.DebtToEquity
	if de < 0 {
		return 20
	}
	for _, b := range debtBands {
		if de <= b.limit {
			return b.score
		}
	}
	return 20
}
