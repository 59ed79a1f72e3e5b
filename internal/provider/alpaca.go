package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"FinScan/internal/domain/models"
	domrepo "FinScan/internal/domain/repository"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

// BarsFetcher is the part of the Alpaca market data client used here.
type BarsFetcher interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// AlpacaHistory serves split-adjusted daily bars from Alpaca.
type AlpacaHistory struct {
	client BarsFetcher
	feed   marketdata.Feed
	now    func() time.Time
}

// AlpacaConfig holds credentials and feed selection.
type AlpacaConfig struct {
	APIKey    string
	APISecret string
	DataURL   string
	Feed      string
}

// NewAlpacaHistory creates a history source backed by the Alpaca data API.
func NewAlpacaHistory(cfg AlpacaConfig) *AlpacaHistory {
	feed := marketdata.Feed(strings.ToLower(cfg.Feed))
	if feed == "" {
		feed = marketdata.IEX
	}
	client := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		BaseURL:   cfg.DataURL,
		Feed:      feed,
	})
	return NewAlpacaHistoryWithClient(client, feed)
}

// NewAlpacaHistoryWithClient wraps an existing bars client.
func NewAlpacaHistoryWithClient(client BarsFetcher, feed marketdata.Feed) *AlpacaHistory {
	return &AlpacaHistory{client: client, feed: feed, now: time.Now}
}

var _ domrepo.HistorySource = (*AlpacaHistory)(nil)

// History requests enough calendar days to cover lookbackDays sessions and
// keeps the trailing lookbackDays bars.
func (a *AlpacaHistory) History(ctx context.Context, symbol string, lookbackDays int) ([]models.Candle, error) {
	if lookbackDays <= 0 {
		return nil, nil
	}
	sym := strings.ToUpper(symbol)
	end := a.now().UTC()
	start := end.AddDate(0, 0, -(lookbackDays*7/5 + 10))

	type result struct {
		bars []marketdata.Bar
		err  error
	}
	done := make(chan result, 1)
	go func() {
		bars, err := a.client.GetBars(sym, marketdata.GetBarsRequest{
			TimeFrame:  marketdata.OneDay,
			Adjustment: marketdata.Split,
			Start:      start,
			End:        end,
			Feed:       a.feed,
		})
		done <- result{bars: bars, err: err}
	}()

	var r result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r = <-done:
	}
	if r.err != nil {
		return nil, fmt.Errorf("alpaca bars %s: %w", sym, r.err)
	}
	// new listings have no bars yet
	if len(r.bars) == 0 {
		return nil, nil
	}

	bars := r.bars
	if len(bars) > lookbackDays {
		bars = bars[len(bars)-lookbackDays:]
	}
	out := make([]models.Candle, len(bars))
	for i, b := range bars {
		out[i] = models.Candle{
			Bucket: b.Timestamp.UTC(),
			Symbol: sym,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: float64(b.Volume),
		}
	}
	return out, nil
}
