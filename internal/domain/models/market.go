package models

import "time"

// Candle represents one daily OHLCV bar, oldest first when returned in a series.
type Candle struct {
	Bucket time.Time `json:"t" yaml:"t"`
	Symbol string    `json:"symbol" yaml:"symbol"`
	Open   float64   `json:"o" yaml:"o"`
	High   float64   `json:"h" yaml:"h"`
	Low    float64   `json:"l" yaml:"l"`
	Close  float64   `json:"c" yaml:"c"`
	Volume float64   `json:"v" yaml:"v"`
}

// Quote is the current market view of a symbol as reported by a provider.
type Quote struct {
	Symbol        string   `json:"symbol" yaml:"symbol"`
	Name          string   `json:"name" yaml:"name"`
	Sector        string   `json:"sector" yaml:"sector"`
	MarketCap     *float64 `json:"market_cap" yaml:"market_cap"`
	Price         float64  `json:"price" yaml:"price"`
	ChangePercent float64  `json:"change_percent" yaml:"change_percent"`
	Volume        float64  `json:"volume" yaml:"volume"`
}

// Fundamentals holds trailing ratios. ROE, RevenueGrowth and DividendYield are
// fractions (0.15 == 15%); DebtToEquity is a plain ratio.
type Fundamentals struct {
	PE            *float64 `json:"pe_ratio" yaml:"pe_ratio"`
	PB            *float64 `json:"pb_ratio" yaml:"pb_ratio"`
	ROE           *float64 `json:"roe" yaml:"roe"`
	RevenueGrowth *float64 `json:"revenue_growth" yaml:"revenue_growth"`
	DebtToEquity  *float64 `json:"debt_to_equity" yaml:"debt_to_equity"`
	DividendYield *float64 `json:"dividend_yield" yaml:"dividend_yield"`
}

// Empty reports whether no ratio is present. A nil receiver is empty.
func (f *Fundamentals) Empty() bool {
	return f == nil || (f.PE == nil && f.PB == nil && f.ROE == nil &&
		f.RevenueGrowth == nil && f.DebtToEquity == nil && f.DividendYield == nil)
}

// SymbolSnapshot is the per-symbol data gathered during a scan. It lives only
// for the duration of one unit of work.
type SymbolSnapshot struct {
	Quote        Quote
	History      []Candle
	Fundamentals *Fundamentals
}

// Closes extracts closing prices from the history.
func (s *SymbolSnapshot) Closes() []float64 {
	out := make([]float64, len(s.History))
	for i, c := range s.History {
		out[i] = c.Close
	}
	return out
}

// Volumes extracts traded volumes from the history.
func (s *SymbolSnapshot) Volumes() []float64 {
	out := make([]float64, len(s.History))
	for i, c := range s.History {
		out[i] = c.Volume
	}
	return out
}
