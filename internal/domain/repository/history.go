package repository

import (
	"context"

	"FinScan/internal/domain/models"
)

// HistorySource provides daily candles, oldest first.
type HistorySource interface {
	History(ctx context.Context, symbol string, lookbackDays int) ([]models.Candle, error)
}

// CandleStore is a HistorySource that can also be written to.
type CandleStore interface {
	HistorySource
	SaveCandles(ctx context.Context, candles []models.Candle) error
}
