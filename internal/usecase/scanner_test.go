package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"FinScan/internal/domain/models"
	"FinScan/internal/domain/service"
	"FinScan/internal/provider"
	"FinScan/internal/scoring"
	"FinScan/internal/universe"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 3, 15, 0, 0, 0, time.UTC)

func ptr(v float64) *float64 { return &v }

func candles(symbol string, n int, step float64) []models.Candle {
	out := make([]models.Candle, n)
	start := fixedNow.AddDate(0, 0, -n)
	price := 100.0
	for i := range n {
		price += step
		if i%3 == 0 {
			price -= step / 2
		}
		out[i] = models.Candle{
			Bucket: start.AddDate(0, 0, i),
			Symbol: symbol,
			Open:   price,
			High:   price * 1.01,
			Low:    price * 0.99,
			Close:  price,
			Volume: 1_000_000,
		}
	}
	return out
}

func fixture(symbol, sector string, cap *float64, pe float64) provider.Fixture {
	return provider.Fixture{
		Quote: models.Quote{
			Symbol:    symbol,
			Name:      symbol + " Inc",
			Sector:    sector,
			MarketCap: cap,
			Price:     120,
			Volume:    2_000_000,
		},
		History:      candles(symbol, 60, 0.4),
		Fundamentals: &models.Fundamentals{PE: ptr(pe)},
	}
}

func refs(symbols ...string) []universe.Reference {
	out := make([]universe.Reference, len(symbols))
	for i, s := range symbols {
		out[i] = universe.Reference{Symbol: s, Sector: "Technology"}
	}
	return out
}

func baseConfig() models.ScanConfig {
	return models.ScanConfig{
		Strategy:            models.StrategyMarket,
		MaxSymbols:          10,
		ParallelRequests:    2,
		TimeoutPerSymbol:    time.Second,
		IncludeTechnicals:   true,
		IncludeFundamentals: true,
	}
}

func newScanner(p *provider.Memory, r []universe.Reference, opts ...ScannerOption) *MarketScanner {
	opts = append([]ScannerOption{WithClock(service.ClockFunc(func() time.Time { return fixedNow }))}, opts...)
	return NewMarketScanner(p, universe.NewResolver(r, nil), scoring.NewEngine(nil), opts...)
}

type recorder struct {
	mu        sync.Mutex
	results   []models.ScanResult
	completed [][]models.ScanResult
}

func (r *recorder) OnResult(_ context.Context, res models.ScanResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
	return nil
}

func (r *recorder) OnCompleted(_ context.Context, res []models.ScanResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, res)
	return nil
}

type brokenObserver struct {
	panics bool
	blocks bool
}

func (b brokenObserver) OnResult(ctx context.Context, _ models.ScanResult) error {
	if b.panics {
		panic("observer exploded")
	}
	if b.blocks {
		<-ctx.Done()
		return ctx.Err()
	}
	return errors.New("sink unavailable")
}

func (b brokenObserver) OnCompleted(ctx context.Context, _ []models.ScanResult) error {
	return b.OnResult(ctx, models.ScanResult{})
}

type countingMetrics struct {
	mu             sync.Mutex
	scans          map[string]int
	symbols        map[string]int
	observerErrors map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{scans: map[string]int{}, symbols: map[string]int{}, observerErrors: map[string]int{}}
}

func (m *countingMetrics) RecordScan(strategy, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scans[strategy+"/"+outcome]++
}

func (m *countingMetrics) RecordSymbol(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.symbols[outcome]++
}

func (m *countingMetrics) RecordObserverError(observer string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observerErrors[observer]++
}

func (m *countingMetrics) RecordLatency(string, float64) {}
func (m *countingMetrics) RecordLastScan(string, int)    {}

type panickingProvider struct {
	*provider.Memory
	symbol string
}

func (p panickingProvider) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	if symbol == p.symbol {
		panic("provider bug")
	}
	return p.Memory.Quote(ctx, symbol)
}

func symbols(results []models.ScanResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Symbol
	}
	return out
}

func omissionFor(rep *models.ScanReport, symbol string) *models.Omission {
	for i := range rep.Omissions {
		if rep.Omissions[i].Symbol == symbol {
			return &rep.Omissions[i]
		}
	}
	return nil
}

func TestScanner_SlowSymbolTimesOut(t *testing.T) {
	p := provider.NewMemory().
		Put("A", fixture("A", "Technology", ptr(2e9), 12)).
		Put("B", fixture("B", "Technology", ptr(2e9), 12)).
		Put("C", fixture("C", "Technology", ptr(2e9), 12)).
		Block("B")
	s := newScanner(p, refs("A", "B", "C"))
	rec := &recorder{}
	s.Register("recorder", rec)

	cfg := baseConfig()
	cfg.TimeoutPerSymbol = 200 * time.Millisecond

	start := time.Now()
	rep, err := s.Execute(context.Background(), cfg)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.ElementsMatch(t, []string{"A", "C"}, symbols(rep.Results))
	om := omissionFor(rep, "B")
	require.NotNil(t, om)
	assert.Equal(t, models.OmitTimeout, om.Reason)
	assert.Equal(t, models.StateCompleted, rep.State)
	assert.False(t, rep.Aborted)

	// A and C score the same, so the tie breaks on symbol
	assert.ElementsMatch(t, []string{"A", "C"}, symbols(rec.results))
	require.Len(t, rec.completed, 1)
	assert.Equal(t, []string{"A", "C"}, symbols(rec.completed[0]))
	assert.Equal(t, symbols(rep.Results), symbols(rec.completed[0]))
}

func TestScanner_MarketCapFilter(t *testing.T) {
	p := provider.NewMemory().
		Put("A", fixture("A", "Technology", ptr(2e9), 12)).
		Put("B", fixture("B", "Technology", ptr(5e8), 12)).
		Put("C", fixture("C", "Technology", nil, 12))
	s := newScanner(p, refs("A", "B", "C"))

	cfg := baseConfig()
	cfg.MinMarketCap = 1e9

	rep, err := s.Execute(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, symbols(rep.Results))
	require.NotNil(t, omissionFor(rep, "B"))
	assert.Equal(t, models.OmitFiltered, omissionFor(rep, "B").Reason)
	require.NotNil(t, omissionFor(rep, "C"))
	assert.Equal(t, models.OmitFiltered, omissionFor(rep, "C").Reason)
}

func TestScanner_MinVolumeFilter(t *testing.T) {
	low := fixture("B", "Technology", ptr(2e9), 12)
	low.Quote.Volume = 10
	p := provider.NewMemory().
		Put("A", fixture("A", "Technology", ptr(2e9), 12)).
		Put("B", low)
	s := newScanner(p, refs("A", "B"))

	cfg := baseConfig()
	cfg.MinVolume = 1000

	results, err := s.Scan(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, symbols(results))
}

func TestScanner_SortsByScoreThenSymbol(t *testing.T) {
	p := provider.NewMemory().
		Put("CHEAP", fixture("CHEAP", "Technology", nil, 8)).
		Put("PRICEY", fixture("PRICEY", "Technology", nil, 30)).
		Put("BBB", fixture("BBB", "Technology", nil, 20)).
		Put("AAA", fixture("AAA", "Technology", nil, 20))
	s := newScanner(p, refs("PRICEY", "BBB", "CHEAP", "AAA"))

	cfg := baseConfig()
	cfg.IncludeTechnicals = false

	results, err := s.Scan(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"CHEAP", "AAA", "BBB", "PRICEY"}, symbols(results))
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].OverallScore, results[i].OverallScore)
	}
	assert.Equal(t, 62.0, results[0].OverallScore)
	assert.Nil(t, results[0].RSI)
}

func TestScanner_PopulatesResult(t *testing.T) {
	f := fixture("AAPL", "Technology", ptr(3e12), 28)
	f.Fundamentals.ROE = ptr(0.3)
	f.Fundamentals.DividendYield = ptr(0.005)
	p := provider.NewMemory().Put("AAPL", f)
	s := newScanner(p, refs("AAPL"))

	rep, err := s.Execute(context.Background(), baseConfig())
	require.NoError(t, err)
	require.Len(t, rep.Results, 1)

	r := rep.Results[0]
	assert.Equal(t, rep.ID, r.ScanID)
	assert.Equal(t, "AAPL Inc", r.Name)
	require.NotNil(t, r.Sector)
	assert.Equal(t, "Technology", *r.Sector)
	assert.Equal(t, 28.0, *r.PERatio)
	assert.Equal(t, 0.3, *r.ROE)
	assert.Nil(t, r.PBRatio)
	require.NotNil(t, r.RSI)
	require.NotNil(t, r.MACDSignal)
	assert.Equal(t, fixedNow, r.Timestamp)
	assert.GreaterOrEqual(t, r.OverallScore, 0.0)
	assert.LessOrEqual(t, r.OverallScore, 100.0)
	assert.GreaterOrEqual(t, r.Recommendation.Confidence, 0.0)
	assert.LessOrEqual(t, r.Recommendation.Confidence, 1.0)
}

func TestScanner_Idempotent(t *testing.T) {
	p := provider.NewMemory().
		Put("A", fixture("A", "Technology", ptr(2e9), 12)).
		Put("B", fixture("B", "Technology", ptr(2e9), 35)).
		Put("C", fixture("C", "Technology", ptr(2e9), 18))
	s := newScanner(p, refs("A", "B", "C"))

	first, err := s.Execute(context.Background(), baseConfig())
	require.NoError(t, err)
	second, err := s.Execute(context.Background(), baseConfig())
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	require.Len(t, second.Results, len(first.Results))
	for i := range first.Results {
		a, b := first.Results[i], second.Results[i]
		a.ScanID, b.ScanID = uuid.Nil, uuid.Nil
		assert.Equal(t, a, b)
	}
}

func TestScanner_FailureIsolation(t *testing.T) {
	mem := provider.NewMemory().
		Put("A", fixture("A", "Technology", ptr(2e9), 12)).
		Put("B", fixture("B", "Technology", ptr(2e9), 12)).
		Put("C", fixture("C", "Technology", ptr(2e9), 12)).
		Fail("B", errors.New("upstream 502"))
	p := panickingProvider{Memory: mem, symbol: "C"}
	m := newCountingMetrics()
	rec := &recorder{}

	s := NewMarketScanner(p, universe.NewResolver(refs("A", "B", "C", "MISSING"), nil), scoring.NewEngine(nil),
		WithMetrics(m), WithNotifyTimeout(50*time.Millisecond))
	s.Register("explodes", brokenObserver{panics: true})
	s.Register("errors", brokenObserver{})
	s.Register("hangs", brokenObserver{blocks: true})
	s.Register("recorder", rec)

	rep, err := s.Execute(context.Background(), baseConfig())
	require.NoError(t, err)

	assert.Equal(t, []string{"A"}, symbols(rep.Results))
	assert.Equal(t, models.OmitFetchError, omissionFor(rep, "B").Reason)
	assert.Equal(t, models.OmitPanic, omissionFor(rep, "C").Reason)
	assert.Equal(t, models.OmitFetchError, omissionFor(rep, "MISSING").Reason)

	rec.mu.Lock()
	assert.Len(t, rec.results, 1)
	assert.Len(t, rec.completed, 1)
	rec.mu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Equal(t, 2, m.observerErrors["explodes"])
	assert.Equal(t, 2, m.observerErrors["errors"])
	assert.Equal(t, 2, m.observerErrors["hangs"])
	assert.Equal(t, 1, m.symbols["scored"])
	assert.Equal(t, 1, m.scans["market/completed"])
}

func TestScanner_AllUnitsFail(t *testing.T) {
	p := provider.NewMemory()
	rec := &recorder{}
	s := newScanner(p, refs("X", "Y"))
	s.Register("recorder", rec)

	results, err := s.Scan(context.Background(), baseConfig())
	require.NoError(t, err)
	assert.Empty(t, results)
	require.Len(t, rec.completed, 1)
	assert.Empty(t, rec.completed[0])
}

func TestScanner_ObserverFanOutAndUnregister(t *testing.T) {
	p := provider.NewMemory().
		Put("A", fixture("A", "Technology", ptr(2e9), 12)).
		Put("B", fixture("B", "Technology", ptr(2e9), 30))
	s := newScanner(p, refs("A", "B"))

	first, second := &recorder{}, &recorder{}
	s.Register("first", first)
	s.Register("second", second)
	assert.Equal(t, []string{"first", "second"}, s.Observers().Names())

	results, err := s.Scan(context.Background(), baseConfig())
	require.NoError(t, err)

	for _, r := range []*recorder{first, second} {
		assert.Len(t, r.results, 2)
		require.Len(t, r.completed, 1)
		assert.Equal(t, symbols(results), symbols(r.completed[0]))
	}
	assert.Equal(t, symbols(first.results), symbols(second.results))

	assert.True(t, s.Unregister("second"))
	assert.False(t, s.Unregister("second"))

	_, err = s.Scan(context.Background(), baseConfig())
	require.NoError(t, err)
	assert.Len(t, first.completed, 2)
	assert.Len(t, second.completed, 1)
}

func TestScanner_InvalidConfig(t *testing.T) {
	p := provider.NewMemory().Put("A", fixture("A", "Technology", ptr(2e9), 12))
	s := newScanner(p, refs("A"))

	cases := map[string]func(*models.ScanConfig){
		"zero max symbols": func(c *models.ScanConfig) { c.MaxSymbols = 0 },
		"zero parallel":    func(c *models.ScanConfig) { c.ParallelRequests = 0 },
		"zero timeout":     func(c *models.ScanConfig) { c.TimeoutPerSymbol = 0 },
		"negative cap":     func(c *models.ScanConfig) { c.MinMarketCap = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := baseConfig()
			mutate(&cfg)
			rep, err := s.Execute(context.Background(), cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, models.ErrInvalidConfig)
			assert.Nil(t, rep)
		})
	}
	assert.Zero(t, p.Calls("A"))
}

func TestScanner_AbortedBeforeDispatch(t *testing.T) {
	p := provider.NewMemory().
		Put("A", fixture("A", "Technology", ptr(2e9), 12)).
		Put("B", fixture("B", "Technology", ptr(2e9), 12))
	rec := &recorder{}
	s := newScanner(p, refs("A", "B"))
	s.Register("recorder", rec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := s.Execute(ctx, baseConfig())
	require.NoError(t, err)
	assert.True(t, rep.Aborted)
	assert.Empty(t, rep.Results)
	assert.Len(t, rep.Omissions, 2)
	for _, om := range rep.Omissions {
		assert.Equal(t, models.OmitAborted, om.Reason)
	}
	assert.Len(t, rec.completed, 1)
	assert.Zero(t, p.Calls("A"))
}

func TestScanner_ExcludeSymbols(t *testing.T) {
	p := provider.NewMemory().
		Put("A", fixture("A", "Technology", ptr(2e9), 12)).
		Put("B", fixture("B", "Technology", ptr(2e9), 12))
	s := newScanner(p, refs("A", "B"))

	cfg := baseConfig()
	cfg.ExcludeSymbols = []string{"b"}

	rep, err := s.Execute(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Candidates)
	assert.Equal(t, []string{"A"}, symbols(rep.Results))
	assert.Zero(t, p.Calls("B"))
}

func TestScanner_SectorStrategy(t *testing.T) {
	r := []universe.Reference{
		{Symbol: "AAPL", Sector: "Technology"},
		{Symbol: "JPM", Sector: "Financials"},
		{Symbol: "MSFT", Sector: "Technology"},
	}
	// provider reports a different sector than the reference tag
	p := provider.NewMemory().
		Put("AAPL", fixture("AAPL", "Technology", ptr(3e12), 28)).
		Put("JPM", fixture("JPM", "Financials", ptr(5e11), 11)).
		Put("MSFT", fixture("MSFT", "Software", ptr(3e12), 33))
	s := newScanner(p, r)

	cfg := baseConfig()
	cfg.Strategy = models.StrategySector
	cfg.Sectors = []string{"Technology"}

	rep, err := s.Execute(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, models.StrategySector, rep.Strategy)
	assert.Equal(t, 2, rep.Candidates)
	assert.Equal(t, []string{"AAPL"}, symbols(rep.Results))
	assert.Equal(t, models.OmitFiltered, omissionFor(rep, "MSFT").Reason)
	assert.Zero(t, p.Calls("JPM"))
}

func TestObserverRegistry_ReplaceByName(t *testing.T) {
	reg := NewObserverRegistry()
	a, b := &recorder{}, &recorder{}
	reg.Register("x", a)
	reg.Register("x", b)
	reg.Register("nil", nil)

	snap := reg.Snapshot()
	require.Len(t, snap, 1)
	assert.Same(t, b, snap[0].Observer)
}
