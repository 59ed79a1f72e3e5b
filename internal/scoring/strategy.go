package scoring

import (
	"strings"

	"FinScan/internal/domain/service"
	"FinScan/internal/indicator"
)

const (
	StrategyWeighted = "weighted"
	StrategyEqual    = "equal"
)

// WeightedSum clamps every part to [0,100] and returns the weight-normalised sum.
type WeightedSum struct{}

func (WeightedSum) Name() string { return StrategyWeighted }

func (WeightedSum) Combine(parts []service.WeightedScore) float64 {
	total, sum := 0.0, 0.0
	for _, p := range parts {
		if p.Weight <= 0 {
			continue
		}
		total += p.Weight
		sum += indicator.Clamp(p.Score, 0, 100) * p.Weight
	}
	if total == 0 {
		return indicator.NeutralScore
	}
	return indicator.Clamp(sum/total, 0, 100)
}

// EqualWeight ignores weights and averages the clamped parts.
type EqualWeight struct{}

func (EqualWeight) Name() string { return StrategyEqual }

func (EqualWeight) Combine(parts []service.WeightedScore) float64 {
	if len(parts) == 0 {
		return indicator.NeutralScore
	}
	sum := 0.0
	for _, p := range parts {
		sum += indicator.Clamp(p.Score, 0, 100)
	}
	return sum / float64(len(parts))
}

// Resolve selects a strategy by name. Unknown names fall back to the weighted
// sum and report ok=false.
func Resolve(name string) (s service.ScoringStrategy, ok bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StrategyWeighted:
		return WeightedSum{}, true
	case StrategyEqual:
		return EqualWeight{}, true
	default:
		return WeightedSum{}, false
	}
}
