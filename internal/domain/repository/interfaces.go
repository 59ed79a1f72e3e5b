package repository

import (
	"context"

	"FinScan/internal/domain/models"
)

// MarketDataProvider supplies quotes, daily history and fundamentals.
// Implementations must honor ctx cancellation.
type MarketDataProvider interface {
	Quote(ctx context.Context, symbol string) (models.Quote, error)
	History(ctx context.Context, symbol string, lookbackDays int) ([]models.Candle, error)
	Fundamentals(ctx context.Context, symbol string) (models.Fundamentals, error)
}

// Publisher sends keyed payloads to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// ResultStore persists scan results.
type ResultStore interface {
	SaveResults(ctx context.Context, results []models.ScanResult) error
}

type Metrics interface {
	RecordScan(strategy, outcome string)
	RecordSymbol(outcome string)
	RecordObserverError(observer string)
	RecordLatency(op string, seconds float64)
	RecordLastScan(strategy string, results int)
}
