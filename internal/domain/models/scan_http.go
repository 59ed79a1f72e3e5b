package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/creasty/defaults"
)

// ScanRequest is the transport shape of a scan configuration, shared by the
// HTTP endpoint, the Kafka trigger topic and scheduled profiles.
type ScanRequest struct {
	Strategy            string   `json:"strategy" yaml:"strategy" default:"market"`
	MaxSymbols          int      `json:"max_symbols" yaml:"max_symbols" default:"50" validate:"gt=0,lte=1000"`
	MinMarketCap        float64  `json:"min_market_cap" yaml:"min_market_cap" validate:"gte=0"`
	MinVolume           float64  `json:"min_volume" yaml:"min_volume" validate:"gte=0"`
	Sectors             []string `json:"sectors" yaml:"sectors"`
	ExcludeSymbols      []string `json:"exclude_symbols" yaml:"exclude_symbols"`
	IncludeFundamentals *bool    `json:"include_fundamentals" yaml:"include_fundamentals" default:"true"`
	IncludeTechnicals   *bool    `json:"include_technicals" yaml:"include_technicals" default:"true"`
	ParallelRequests    int      `json:"parallel_requests" yaml:"parallel_requests" default:"10" validate:"gte=1,lte=100"`
	TimeoutMs           int      `json:"timeout_ms" yaml:"timeout_ms" default:"30000" validate:"gt=0"`
	LookbackDays        int      `json:"lookback_days" yaml:"lookback_days" default:"120" validate:"gte=0,lte=1000"`
}

// Normalize applies defaults and validates the request. It is used by
// transports that do not validate on their own.
func (r *ScanRequest) Normalize() error {
	if err := defaults.Set(r); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	r.Strategy = strings.ToLower(strings.TrimSpace(r.Strategy))
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// ToConfig converts the request to a ScanConfig. Defaults must already be applied.
func (r *ScanRequest) ToConfig() ScanConfig {
	cfg := ScanConfig{
		Strategy:         r.Strategy,
		MaxSymbols:       r.MaxSymbols,
		MinMarketCap:     r.MinMarketCap,
		MinVolume:        r.MinVolume,
		Sectors:          r.Sectors,
		ExcludeSymbols:   r.ExcludeSymbols,
		ParallelRequests: r.ParallelRequests,
		TimeoutPerSymbol: time.Duration(r.TimeoutMs) * time.Millisecond,
		LookbackDays:     r.LookbackDays,
	}
	if r.IncludeFundamentals != nil {
		cfg.IncludeFundamentals = *r.IncludeFundamentals
	}
	if r.IncludeTechnicals != nil {
		cfg.IncludeTechnicals = *r.IncludeTechnicals
	}
	return cfg
}

// LatestScan is the cached view of the most recent completed ranking.
type LatestScan struct {
	ScanID    string       `json:"scan_id"`
	Strategy  string       `json:"strategy"`
	UpdatedAt time.Time    `json:"updated_at"`
	Results   []ScanResult `json:"results"`
}
