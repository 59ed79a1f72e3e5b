package provider

import (
	"context"

	"FinScan/internal/domain/models"
	domrepo "FinScan/internal/domain/repository"
	applogger "FinScan/pkg/logger"
)

// Composite serves quotes and fundamentals from a primary provider and daily
// history from a separate source. Fetched history is optionally written to a
// candle store so later scans can read it locally.
type Composite struct {
	primary domrepo.MarketDataProvider
	history domrepo.HistorySource
	sink    domrepo.CandleStore
	l       *applogger.Logger
}

// NewComposite combines primary and history. A nil history falls back to primary.
func NewComposite(primary domrepo.MarketDataProvider, history domrepo.HistorySource, l *applogger.Logger) *Composite {
	if history == nil {
		history = primary
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &Composite{primary: primary, history: history, l: l}
}

// WithCandleSink enables write-through of fetched candles.
func (c *Composite) WithCandleSink(sink domrepo.CandleStore) *Composite {
	c.sink = sink
	return c
}

var _ domrepo.MarketDataProvider = (*Composite)(nil)

func (c *Composite) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	return c.primary.Quote(ctx, symbol)
}

func (c *Composite) Fundamentals(ctx context.Context, symbol string) (models.Fundamentals, error) {
	return c.primary.Fundamentals(ctx, symbol)
}

func (c *Composite) History(ctx context.Context, symbol string, lookbackDays int) ([]models.Candle, error) {
	candles, err := c.history.History(ctx, symbol, lookbackDays)
	if err != nil {
		return nil, err
	}
	if c.sink != nil && len(candles) > 0 {
		if err := c.sink.SaveCandles(ctx, candles); err != nil {
			c.l.Warn("candle write-through failed",
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
		}
	}
	return candles, nil
}
