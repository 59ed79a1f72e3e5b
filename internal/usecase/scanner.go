package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"FinScan/internal/domain/models"
	domrepo "FinScan/internal/domain/repository"
	"FinScan/internal/domain/service"
	"FinScan/internal/scoring"
	"FinScan/internal/universe"
	applogger "FinScan/pkg/logger"
	"FinScan/pkg/metrics"

	"github.com/google/uuid"
)

const defaultNotifyTimeout = 2 * time.Second

// MarketScanner runs scans: it resolves the universe, evaluates candidates on a
// bounded worker pool and fans results out to registered observers.
type MarketScanner struct {
	provider      domrepo.MarketDataProvider
	resolver      *universe.Resolver
	engine        *scoring.Engine
	observers     *ObserverRegistry
	clock         service.Clock
	metrics       domrepo.Metrics
	l             *applogger.Logger
	notifyTimeout time.Duration
	newID         func() uuid.UUID
}

// ScannerOption configures MarketScanner.
type ScannerOption func(*MarketScanner)

func WithClock(c service.Clock) ScannerOption {
	return func(s *MarketScanner) {
		if c != nil {
			s.clock = c
		}
	}
}

func WithMetrics(m domrepo.Metrics) ScannerOption {
	return func(s *MarketScanner) {
		if m != nil {
			s.metrics = m
		}
	}
}

func WithLogger(l *applogger.Logger) ScannerOption {
	return func(s *MarketScanner) {
		if l != nil {
			s.l = l
		}
	}
}

// WithNotifyTimeout bounds every single observer call.
func WithNotifyTimeout(d time.Duration) ScannerOption {
	return func(s *MarketScanner) {
		if d > 0 {
			s.notifyTimeout = d
		}
	}
}

// WithObserverRegistry shares a registry between components.
func WithObserverRegistry(r *ObserverRegistry) ScannerOption {
	return func(s *MarketScanner) {
		if r != nil {
			s.observers = r
		}
	}
}

func NewMarketScanner(provider domrepo.MarketDataProvider, resolver *universe.Resolver, engine *scoring.Engine, opts ...ScannerOption) *MarketScanner {
	s := &MarketScanner{
		provider:      provider,
		resolver:      resolver,
		engine:        engine,
		observers:     NewObserverRegistry(),
		clock:         service.SystemClock,
		metrics:       metrics.Nop{},
		l:             applogger.NewNop(),
		notifyTimeout: defaultNotifyTimeout,
		newID:         uuid.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.resolver == nil {
		s.resolver = universe.NewResolver(nil, s.l)
	}
	if s.engine == nil {
		s.engine = scoring.NewEngine(nil)
	}
	return s
}

// Register adds a result observer for subsequent scans.
func (s *MarketScanner) Register(name string, o service.ResultObserver) {
	s.observers.Register(name, o)
}

// Unregister removes a result observer for subsequent scans.
func (s *MarketScanner) Unregister(name string) bool {
	return s.observers.Unregister(name)
}

// Observers exposes the registry.
func (s *MarketScanner) Observers() *ObserverRegistry { return s.observers }

// Scan runs one scan and returns the ranked results.
func (s *MarketScanner) Scan(ctx context.Context, cfg models.ScanConfig) ([]models.ScanResult, error) {
	rep, err := s.Execute(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return rep.Results, nil
}

type unitOutcome struct {
	symbol   string
	result   *models.ScanResult
	omission *models.Omission
}

// Execute runs one scan and returns the full report. The only error returned
// is a configuration error, raised before any work is dispatched. A cancelled
// ctx stops dispatching; units already running finish or time out, and the
// partial ranking is returned with Aborted set.
func (s *MarketScanner) Execute(ctx context.Context, cfg models.ScanConfig) (*models.ScanReport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	rep := &models.ScanReport{
		ID:        s.newID(),
		State:     models.StateConfigured,
		StartedAt: s.clock.Now().UTC(),
	}
	strategy := s.resolver.Resolve(cfg)
	rep.Strategy = strategy.Name()
	observers := s.observers.Snapshot()
	candidates := excludeSymbols(strategy.Candidates(cfg), cfg.ExcludeSymbols)
	rep.Candidates = len(candidates)

	l := s.l.With(applogger.String("scan_id", rep.ID.String()), applogger.String("strategy", rep.Strategy))
	s.transition(l, rep, models.StateRunning,
		applogger.Int("candidates", len(candidates)),
		applogger.Int("workers", min(cfg.ParallelRequests, len(candidates))),
		applogger.Int("observers", len(observers)),
	)

	outcomes := s.dispatch(ctx, rep.ID, cfg, strategy, candidates)

	// single consumer: only this loop touches results and omissions
	results := make([]models.ScanResult, 0, len(candidates))
	obsCtx := scanContext(ctx, rep)
	for o := range outcomes {
		if o.omission != nil {
			rep.Omissions = append(rep.Omissions, *o.omission)
			if o.omission.Reason == models.OmitAborted {
				rep.Aborted = true
			}
			s.metrics.RecordSymbol(string(o.omission.Reason))
			l.Debug("symbol omitted",
				applogger.String("symbol", o.symbol),
				applogger.String("reason", string(o.omission.Reason)),
				applogger.String("detail", o.omission.Detail),
			)
			continue
		}
		results = append(results, *o.result)
		s.metrics.RecordSymbol("scored")
		for _, obs := range observers {
			r := *o.result
			s.notify(obsCtx, l, obs, "on_result", func(nctx context.Context) error {
				return obs.Observer.OnResult(nctx, r)
			})
		}
	}

	s.transition(l, rep, models.StateAggregating, applogger.Int("results", len(results)), applogger.Int("omitted", len(rep.Omissions)))
	sortResults(results)
	if len(results) > cfg.MaxSymbols {
		results = results[:cfg.MaxSymbols]
	}
	rep.Results = results

	obsCtx = scanContext(ctx, rep)
	for _, obs := range observers {
		final := make([]models.ScanResult, len(results))
		copy(final, results)
		s.notify(obsCtx, l, obs, "on_completed", func(nctx context.Context) error {
			return obs.Observer.OnCompleted(nctx, final)
		})
	}

	rep.FinishedAt = s.clock.Now().UTC()
	outcome := "completed"
	if rep.Aborted {
		outcome = "aborted"
	}
	s.metrics.RecordScan(rep.Strategy, outcome)
	s.metrics.RecordLastScan(rep.Strategy, len(results))
	s.metrics.RecordLatency("scan", time.Since(start).Seconds())
	s.transition(l, rep, models.StateCompleted,
		applogger.Int("results", len(results)),
		applogger.Bool("aborted", rep.Aborted),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return rep, nil
}

// dispatch feeds candidates to min(parallel, n) workers and returns the
// channel of unit outcomes, closed once every candidate is accounted for.
func (s *MarketScanner) dispatch(ctx context.Context, scanID uuid.UUID, cfg models.ScanConfig, strategy service.UniverseStrategy, candidates []string) <-chan unitOutcome {
	jobs := make(chan string)
	outcomes := make(chan unitOutcome)
	var wg sync.WaitGroup

	workers := min(cfg.ParallelRequests, len(candidates))
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sym := range jobs {
				outcomes <- s.runUnit(ctx, scanID, sym, cfg, strategy)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(jobs)
		for i, sym := range candidates {
			if ctx.Err() == nil {
				select {
				case jobs <- sym:
					continue
				case <-ctx.Done():
				}
			}
			for _, rest := range candidates[i:] {
				outcomes <- unitOutcome{symbol: rest, omission: &models.Omission{Symbol: rest, Reason: models.OmitAborted}}
			}
			return
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()
	return outcomes
}

// runUnit evaluates one symbol under its own deadline. The deadline is
// detached from caller cancellation so in-flight units are not cut short by
// an abort; a unit that ignores its context is abandoned at the deadline.
func (s *MarketScanner) runUnit(parent context.Context, scanID uuid.UUID, symbol string, cfg models.ScanConfig, strategy service.UniverseStrategy) unitOutcome {
	start := time.Now()
	defer func() { s.metrics.RecordLatency("symbol", time.Since(start).Seconds()) }()

	uctx, cancel := context.WithTimeout(context.WithoutCancel(parent), cfg.TimeoutPerSymbol)
	defer cancel()

	done := make(chan unitOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- omit(symbol, models.OmitPanic, fmt.Sprint(r))
			}
		}()
		done <- s.evaluate(uctx, scanID, symbol, cfg, strategy)
	}()

	select {
	case o := <-done:
		return o
	case <-uctx.Done():
		return omit(symbol, models.OmitTimeout, fmt.Sprintf("exceeded %s", cfg.TimeoutPerSymbol))
	}
}

func (s *MarketScanner) evaluate(ctx context.Context, scanID uuid.UUID, symbol string, cfg models.ScanConfig, strategy service.UniverseStrategy) unitOutcome {
	q, err := s.provider.Quote(ctx, symbol)
	if err != nil {
		return fetchFailure(ctx, symbol, "quote", err)
	}
	if q.Symbol == "" {
		q.Symbol = symbol
	}
	snap := &models.SymbolSnapshot{Quote: q}

	if cfg.MinMarketCap > 0 && (q.MarketCap == nil || *q.MarketCap < cfg.MinMarketCap) {
		return omit(symbol, models.OmitFiltered, "market cap")
	}
	if cfg.MinVolume > 0 && q.Volume < cfg.MinVolume {
		return omit(symbol, models.OmitFiltered, "volume")
	}
	if !strategy.Admits(symbol, snap) {
		return omit(symbol, models.OmitFiltered, "universe")
	}

	if cfg.IncludeTechnicals {
		hist, err := s.provider.History(ctx, symbol, cfg.Lookback())
		if err != nil {
			return fetchFailure(ctx, symbol, "history", err)
		}
		snap.History = hist
	}
	if cfg.IncludeFundamentals {
		f, err := s.provider.Fundamentals(ctx, symbol)
		if err != nil {
			return fetchFailure(ctx, symbol, "fundamentals", err)
		}
		snap.Fundamentals = &f
	}

	ev := s.engine.Evaluate(scoring.Input{
		Quote:               q,
		History:             snap.History,
		Fundamentals:        snap.Fundamentals,
		IncludeTechnicals:   cfg.IncludeTechnicals,
		IncludeFundamentals: cfg.IncludeFundamentals,
	})

	r := models.ScanResult{
		ScanID:           scanID,
		Symbol:           symbol,
		Name:             q.Name,
		MarketCap:        q.MarketCap,
		Price:            q.Price,
		ChangePercent:    q.ChangePercent,
		Volume:           q.Volume,
		RSI:              ev.RSI,
		MACDSignal:       ev.MACD,
		TechnicalScore:   ev.Technical,
		FundamentalScore: ev.Fundamental,
		OverallScore:     ev.Overall,
		Recommendation:   ev.Recommendation,
		Timestamp:        s.clock.Now().UTC(),
	}
	if q.Sector != "" {
		sector := q.Sector
		r.Sector = &sector
	}
	if f := snap.Fundamentals; f != nil {
		r.PERatio = f.PE
		r.PBRatio = f.PB
		r.ROE = f.ROE
		r.DebtToEquity = f.DebtToEquity
		r.DividendYield = f.DividendYield
	}
	return unitOutcome{symbol: symbol, result: &r}
}

// notify calls one observer with recover and its own deadline. Failures are
// logged and counted, never propagated.
func (s *MarketScanner) notify(ctx context.Context, l *applogger.Logger, obs NamedObserver, event string, call func(context.Context) error) {
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("observer panic: %v", r)
			}
		}()
		done <- call(nctx)
	}()

	var err error
	select {
	case err = <-done:
	case <-nctx.Done():
		err = fmt.Errorf("observer timed out after %s", s.notifyTimeout)
	}
	if err != nil {
		s.metrics.RecordObserverError(obs.Name)
		l.Warn("observer failed",
			applogger.String("observer", obs.Name),
			applogger.String("event", event),
			applogger.Error(err),
		)
	}
}

func (s *MarketScanner) transition(l *applogger.Logger, rep *models.ScanReport, to models.ScanState, fields ...applogger.Field) {
	from := rep.State
	rep.State = to
	l.Info("scan state", append([]applogger.Field{
		applogger.String("from", string(from)),
		applogger.String("to", string(to)),
	}, fields...)...)
}

func scanContext(ctx context.Context, rep *models.ScanReport) context.Context {
	return service.ContextWithScan(ctx, service.ScanInfo{
		ID:         rep.ID,
		Strategy:   rep.Strategy,
		StartedAt:  rep.StartedAt,
		Candidates: rep.Candidates,
		Omitted:    len(rep.Omissions),
		Aborted:    rep.Aborted,
	})
}

func omit(symbol string, reason models.OmissionReason, detail string) unitOutcome {
	return unitOutcome{symbol: symbol, omission: &models.Omission{Symbol: symbol, Reason: reason, Detail: detail}}
}

func fetchFailure(ctx context.Context, symbol, what string, err error) unitOutcome {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return omit(symbol, models.OmitTimeout, fmt.Sprintf("%s: %v", what, err))
	}
	return omit(symbol, models.OmitFetchError, fmt.Sprintf("%s: %v", what, err))
}

func excludeSymbols(candidates, exclude []string) []string {
	if len(exclude) == 0 {
		return candidates
	}
	skip := make(map[string]struct{}, len(exclude))
	for _, e := range exclude {
		skip[strings.ToUpper(strings.TrimSpace(e))] = struct{}{}
	}
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := skip[strings.ToUpper(c)]; !ok {
			out = append(out, c)
		}
	}
	return out
}

// sortResults orders by overall score descending, ties by symbol ascending.
func sortResults(results []models.ScanResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].OverallScore != results[j].OverallScore {
			return results[i].OverallScore > results[j].OverallScore
		}
		return results[i].Symbol < results[j].Symbol
	})
}
