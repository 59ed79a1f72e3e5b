package scoring

// Policy holds every breakpoint used to turn scores into a recommendation.
type Policy struct {
	// Technical composite weights.
	RSIWeight        float64
	MAWeight         float64
	MomentumWeight   float64
	VolumeWeight     float64
	MinTechnicalBars int

	// Fundamental composite weights.
	ValuationWeight     float64
	ProfitabilityWeight float64
	GrowthWeight        float64
	LeverageWeight      float64

	// Action breakpoints.
	StrongBuyOverall    float64
	StrongBuyTechnical  float64
	StrongBuyMomentum   float64
	BuyOverall          float64
	BuyTechnical        float64
	BuyMomentum         float64
	StrongSellOverall   float64
	StrongSellTechnical float64
	StrongSellMomentum  float64
	SellOverall         float64

	// Risk breakpoints. Swings are daily % moves over SwingWindow bars.
	LowRiskVolatility  float64
	LowRiskSwing       float64
	HighRiskVolatility float64
	HighRiskSwing      float64
	SwingWindow        int
	// VolatilityWindow is the number of trailing daily returns volatility is
	// measured over.
	VolatilityWindow int

	// Confidence shaping.
	BaseConfidence       float64
	FullHistoryBars      int
	FundamentalsBonus    float64
	RSIExtremePenalty    float64
	VolatilityPenaltyAt  float64
	MaxVolatilityPenalty float64
}

// DefaultPolicy returns the production breakpoints.
func DefaultPolicy() Policy {
	return Policy{
		RSIWeight:        0.30,
		MAWeight:         0.25,
		MomentumWeight:   0.25,
		VolumeWeight:     0.20,
		MinTechnicalBars: 15,

		ValuationWeight:     0.30,
		ProfitabilityWeight: 0.30,
		GrowthWeight:        0.20,
		LeverageWeight:      0.20,

		StrongBuyOverall:    75,
		StrongBuyTechnical:  70,
		StrongBuyMomentum:   75,
		BuyOverall:          60,
		BuyTechnical:        55,
		BuyMomentum:         60,
		StrongSellOverall:   25,
		StrongSellTechnical: 35,
		StrongSellMomentum:  30,
		SellOverall:         40,

		LowRiskVolatility:  0.25,
		LowRiskSwing:       5,
		HighRiskVolatility: 0.50,
		HighRiskSwing:      10,
		SwingWindow:        10,
		VolatilityWindow:   20,

		BaseConfidence:       0.4,
		FullHistoryBars:      100,
		FundamentalsBonus:    0.1,
		RSIExtremePenalty:    0.2,
		VolatilityPenaltyAt:  0.6,
		MaxVolatilityPenalty: 0.15,
	}
}
