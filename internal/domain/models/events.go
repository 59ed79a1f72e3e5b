package models

import (
	"time"

	"github.com/google/uuid"
)

// RankedSymbol is a compact entry of a completed ranking.
type RankedSymbol struct {
	Symbol       string  `json:"symbol"`
	OverallScore float64 `json:"overall_score"`
	Action       Action  `json:"action"`
}

// ScanSummary is published once per completed scan.
type ScanSummary struct {
	ScanID      uuid.UUID      `json:"scan_id"`
	Strategy    string         `json:"strategy"`
	Candidates  int            `json:"candidates"`
	Results     int            `json:"results"`
	Omitted     int            `json:"omitted"`
	Aborted     bool           `json:"aborted"`
	Top         []RankedSymbol `json:"top"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt time.Time      `json:"completed_at"`
}

// Alert is raised for results with a strong recommendation.
type Alert struct {
	ScanID       uuid.UUID `json:"scan_id"`
	Symbol       string    `json:"symbol"`
	Action       Action    `json:"action"`
	Risk         Risk      `json:"risk"`
	Confidence   float64   `json:"confidence"`
	OverallScore float64   `json:"overall_score"`
	Price        float64   `json:"price"`
	Timestamp    time.Time `json:"timestamp"`
}

// IsStrong reports whether the action warrants an alert.
func (a Action) IsStrong() bool {
	return a == ActionStrongBuy || a == ActionStrongSell
}

// Rank returns the first n results as compact entries.
func Rank(results []ScanResult, n int) []RankedSymbol {
	if n > len(results) || n < 0 {
		n = len(results)
	}
	out := make([]RankedSymbol, n)
	for i := range out {
		out[i] = RankedSymbol{
			Symbol:       results[i].Symbol,
			OverallScore: results[i].OverallScore,
			Action:       results[i].Recommendation.Action,
		}
	}
	return out
}
