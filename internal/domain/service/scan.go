package service

import (
	"context"
	"time"

	"FinScan/internal/domain/models"

	"github.com/google/uuid"
)

// UniverseStrategy decides which symbols a scan considers.
type UniverseStrategy interface {
	Name() string
	// Candidates returns at most cfg.MaxSymbols symbols.
	Candidates(cfg models.ScanConfig) []string
	// Admits is the post-fetch filter applied to the gathered snapshot.
	Admits(symbol string, snap *models.SymbolSnapshot) bool
}

// WeightedScore is one sub-score in [0,100] with its relative weight.
type WeightedScore struct {
	Score  float64
	Weight float64
}

// ScoringStrategy reduces weighted sub-scores into one score in [0,100].
type ScoringStrategy interface {
	Name() string
	Combine(parts []WeightedScore) float64
}

// ResultObserver receives results as they are produced and the final ranking.
// Errors are logged by the caller and never affect the scan.
type ResultObserver interface {
	OnResult(ctx context.Context, r models.ScanResult) error
	OnCompleted(ctx context.Context, results []models.ScanResult) error
}

// Clock supplies timestamps for results.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// ScanInfo describes the scan an observer call belongs to.
type ScanInfo struct {
	ID         uuid.UUID
	Strategy   string
	StartedAt  time.Time
	Candidates int
	Omitted    int
	Aborted    bool
}

type scanInfoKey struct{}

// ContextWithScan attaches scan metadata for observers.
func ContextWithScan(ctx context.Context, info ScanInfo) context.Context {
	return context.WithValue(ctx, scanInfoKey{}, info)
}

// ScanFromContext returns the metadata attached by ContextWithScan.
func ScanFromContext(ctx context.Context) (ScanInfo, bool) {
	info, ok := ctx.Value(scanInfoKey{}).(ScanInfo)
	return info, ok
}
