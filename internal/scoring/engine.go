package scoring

import (
	"math"

	"FinScan/internal/domain/models"
	"FinScan/internal/domain/service"
	"FinScan/internal/indicator"

	"github.com/shopspring/decimal"
)

// Input is everything the engine needs for one symbol.
type Input struct {
	Quote               models.Quote
	History             []models.Candle
	Fundamentals        *models.Fundamentals
	IncludeTechnicals   bool
	IncludeFundamentals bool
}

// Evaluation is the scored view of one symbol.
type Evaluation struct {
	Technical            float64
	TechnicalAvailable   bool
	Fundamental          float64
	FundamentalAvailable bool
	Overall              float64
	Momentum             float64
	Volatility           float64
	RSI                  *float64
	MACD                 *models.Signal
	Recommendation       models.Recommendation
}

// Engine computes composite scores and recommendations.
type Engine struct {
	strategy service.ScoringStrategy
	policy   Policy
}

// Option configures Engine.
type Option func(*Engine)

// WithPolicy overrides the default breakpoints.
func WithPolicy(p Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// NewEngine creates an engine. A nil strategy means the weighted sum.
func NewEngine(strategy service.ScoringStrategy, opts ...Option) *Engine {
	if strategy == nil {
		strategy = WeightedSum{}
	}
	e := &Engine{strategy: strategy, policy: DefaultPolicy()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Strategy returns the active combination strategy.
func (e *Engine) Strategy() service.ScoringStrategy { return e.strategy }

// Evaluate scores one symbol. All scores are in [0,100] and rounded to two places.
func (e *Engine) Evaluate(in Input) Evaluation {
	p := e.policy
	snap := models.SymbolSnapshot{Quote: in.Quote, History: in.History, Fundamentals: in.Fundamentals}
	closes := snap.Closes()
	volumes := snap.Volumes()

	ev := Evaluation{
		Technical:   indicator.NeutralScore,
		Fundamental: indicator.NeutralScore,
	}

	change1d := indicator.PercentChange(closes, indicator.MomentumShort)
	if change1d == nil {
		cp := in.Quote.ChangePercent
		change1d = &cp
	}
	ev.Momentum = indicator.MomentumScore(
		change1d,
		indicator.PercentChange(closes, indicator.MomentumMedium),
		indicator.PercentChange(closes, indicator.MomentumLong),
	)
	ev.Volatility = indicator.Volatility(closes, p.VolatilityWindow)

	if in.IncludeTechnicals && len(closes) >= p.MinTechnicalBars {
		rsi := indicator.RSI(closes, indicator.DefaultRSIPeriod)
		ev.RSI = &rsi
		ev.MACD = indicator.MACD(closes)

		price := in.Quote.Price
		if price <= 0 {
			price = closes[len(closes)-1]
		}
		averages := make([]float64, 0, len(indicator.MovingAverageWindows))
		for _, w := range indicator.MovingAverageWindows {
			averages = append(averages, indicator.SMA(closes, w))
		}

		ev.Technical = e.strategy.Combine([]service.WeightedScore{
			{Score: indicator.RSIScore(rsi), Weight: p.RSIWeight},
			{Score: indicator.MAPositionScore(price, averages), Weight: p.MAWeight},
			{Score: ev.Momentum, Weight: p.MomentumWeight},
			{Score: indicator.VolumeTrendScore(indicator.VolumeTrend(volumes)), Weight: p.VolumeWeight},
		})
		ev.TechnicalAvailable = true
	}

	// a fundamentals record with no ratio at all counts as missing
	if in.IncludeFundamentals && !in.Fundamentals.Empty() {
		f := in.Fundamentals
		ev.Fundamental = e.strategy.Combine([]service.WeightedScore{
			{Score: indicator.ValuationScore(f), Weight: p.ValuationWeight},
			{Score: indicator.ProfitabilityScore(f), Weight: p.ProfitabilityWeight},
			{Score: indicator.GrowthScore(f), Weight: p.GrowthWeight},
			{Score: indicator.LeverageScore(f), Weight: p.LeverageWeight},
		})
		ev.FundamentalAvailable = true
	}

	switch {
	case ev.TechnicalAvailable && ev.FundamentalAvailable:
		ev.Overall = (ev.Technical + ev.Fundamental) / 2
	case ev.TechnicalAvailable:
		ev.Overall = ev.Technical
	case ev.FundamentalAvailable:
		ev.Overall = ev.Fundamental
	default:
		ev.Overall = indicator.NeutralScore
	}

	ev.Technical = round2(indicator.Clamp(ev.Technical, 0, 100))
	ev.Fundamental = round2(indicator.Clamp(ev.Fundamental, 0, 100))
	ev.Overall = round2(indicator.Clamp(ev.Overall, 0, 100))
	ev.Momentum = round2(ev.Momentum)
	if ev.RSI != nil {
		r := round2(*ev.RSI)
		ev.RSI = &r
	}

	ev.Recommendation = models.Recommendation{
		Action:     e.action(ev),
		Risk:       e.risk(ev.Volatility, closes, in.Quote.ChangePercent),
		Confidence: e.confidence(ev, len(closes)),
	}
	return ev
}

func (e *Engine) action(ev Evaluation) models.Action {
	p := e.policy
	switch {
	case ev.Overall >= p.StrongBuyOverall && (ev.Technical >= p.StrongBuyTechnical || ev.Momentum >= p.StrongBuyMomentum):
		return models.ActionStrongBuy
	case ev.Overall >= p.BuyOverall && (ev.Technical >= p.BuyTechnical || ev.Momentum >= p.BuyMomentum):
		return models.ActionBuy
	case ev.Overall <= p.StrongSellOverall && (ev.Technical <= p.StrongSellTechnical || ev.Momentum <= p.StrongSellMomentum):
		return models.ActionStrongSell
	case ev.Overall <= p.SellOverall:
		return models.ActionSell
	default:
		return models.ActionHold
	}
}

func (e *Engine) risk(volatility float64, closes []float64, changePercent float64) models.Risk {
	p := e.policy
	swing := math.Max(indicator.MaxDailyMove(closes, p.SwingWindow), math.Abs(changePercent))
	switch {
	case volatility > p.HighRiskVolatility || swing > p.HighRiskSwing:
		return models.RiskHigh
	case volatility < p.LowRiskVolatility && swing < p.LowRiskSwing:
		return models.RiskLow
	default:
		return models.RiskModerate
	}
}

func (e *Engine) confidence(ev Evaluation, bars int) float64 {
	p := e.policy
	depth := 0.0
	if ev.TechnicalAvailable && p.FullHistoryBars > 0 {
		depth = math.Min(1, float64(bars)/float64(p.FullHistoryBars))
	}
	c := p.BaseConfidence + (1-p.BaseConfidence)*depth
	if ev.FundamentalAvailable {
		c += p.FundamentalsBonus
	}
	if ev.RSI != nil {
		// only readings beyond 30/70 are penalised
		extremity := indicator.Clamp((math.Abs(*ev.RSI-50)-20)/30, 0, 1)
		c -= p.RSIExtremePenalty * extremity
	}
	if p.VolatilityPenaltyAt > 0 && ev.Volatility > p.VolatilityPenaltyAt {
		over := indicator.Clamp((ev.Volatility-p.VolatilityPenaltyAt)/p.VolatilityPenaltyAt, 0, 1)
		c -= p.MaxVolatilityPenalty * over
	}
	return round2(indicator.Clamp(c, 0, 1))
}

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
