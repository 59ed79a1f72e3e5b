package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ErrInvalidConfig is returned before any work is dispatched when a scan
// configuration breaks its constraints.
var ErrInvalidConfig = errors.New("invalid scan config")

var validate = validator.New()

// Universe selectors.
const (
	StrategyMarket = "market"
	StrategySector = "sector"
)

// ScanConfig parameterizes one scan.
type ScanConfig struct {
	Strategy            string        `json:"strategy"`
	MaxSymbols          int           `json:"max_symbols" validate:"gt=0"`
	MinMarketCap        float64       `json:"min_market_cap" validate:"gte=0"`
	MinVolume           float64       `json:"min_volume" validate:"gte=0"`
	Sectors             []string      `json:"sectors"`
	ExcludeSymbols      []string      `json:"exclude_symbols"`
	IncludeFundamentals bool          `json:"include_fundamentals"`
	IncludeTechnicals   bool          `json:"include_technicals"`
	ParallelRequests    int           `json:"parallel_requests" validate:"gte=1"`
	TimeoutPerSymbol    time.Duration `json:"timeout_per_symbol" validate:"gt=0"`
	LookbackDays        int           `json:"lookback_days" validate:"gte=0"`
}

// DefaultLookbackDays is the history depth requested when LookbackDays is 0.
const DefaultLookbackDays = 120

// Validate checks the configuration constraints.
func (c ScanConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Lookback returns the effective history depth in days.
func (c ScanConfig) Lookback() int {
	if c.LookbackDays <= 0 {
		return DefaultLookbackDays
	}
	return c.LookbackDays
}

// Signal is a categorical MACD reading.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// Action is the recommended trade direction.
type Action string

const (
	ActionStrongBuy  Action = "STRONG_BUY"
	ActionBuy        Action = "BUY"
	ActionHold       Action = "HOLD"
	ActionSell       Action = "SELL"
	ActionStrongSell Action = "STRONG_SELL"
)

// Risk grades the expected price swing.
type Risk string

const (
	RiskLow      Risk = "LOW"
	RiskModerate Risk = "MODERATE"
	RiskHigh     Risk = "HIGH"
)

// Recommendation classifies a scored symbol.
type Recommendation struct {
	Action     Action  `json:"action"`
	Risk       Risk    `json:"risk"`
	Confidence float64 `json:"confidence"`
}

// ScanResult is the scored record for one admitted symbol.
type ScanResult struct {
	ScanID           uuid.UUID      `json:"scan_id"`
	Symbol           string         `json:"symbol"`
	Name             string         `json:"name"`
	Sector           *string        `json:"sector"`
	MarketCap        *float64       `json:"market_cap"`
	Price            float64        `json:"price"`
	ChangePercent    float64        `json:"change_percent"`
	Volume           float64        `json:"volume"`
	PERatio          *float64       `json:"pe_ratio"`
	PBRatio          *float64       `json:"pb_ratio"`
	ROE              *float64       `json:"roe"`
	DebtToEquity     *float64       `json:"debt_to_equity"`
	DividendYield    *float64       `json:"dividend_yield"`
	RSI              *float64       `json:"rsi"`
	MACDSignal       *Signal        `json:"macd_signal"`
	TechnicalScore   float64        `json:"technical_score"`
	FundamentalScore float64        `json:"fundamental_score"`
	OverallScore     float64        `json:"overall_score"`
	Recommendation   Recommendation `json:"recommendation"`
	Timestamp        time.Time      `json:"timestamp"`
}

// ScanState tracks a scan through its lifecycle.
type ScanState string

const (
	StateConfigured  ScanState = "CONFIGURED"
	StateRunning     ScanState = "RUNNING"
	StateAggregating ScanState = "AGGREGATING"
	StateCompleted   ScanState = "COMPLETED"
)

// OmissionReason explains why a candidate produced no result.
type OmissionReason string

const (
	OmitFiltered   OmissionReason = "filtered"
	OmitFetchError OmissionReason = "fetch_error"
	OmitTimeout    OmissionReason = "timeout"
	OmitPanic      OmissionReason = "panic"
	OmitAborted    OmissionReason = "aborted"
)

// Omission records a candidate that was dropped from the result set.
type Omission struct {
	Symbol string         `json:"symbol"`
	Reason OmissionReason `json:"reason"`
	Detail string         `json:"detail,omitempty"`
}

// ScanReport is the full outcome of one scan.
type ScanReport struct {
	ID         uuid.UUID    `json:"id"`
	Strategy   string       `json:"strategy"`
	State      ScanState    `json:"state"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Candidates int          `json:"candidates"`
	Results    []ScanResult `json:"results"`
	Omissions  []Omission   `json:"omissions,omitempty"`
	Aborted    bool         `json:"aborted"`
}
