package universe

import (
	"strings"

	"FinScan/internal/domain/models"
	"FinScan/internal/domain/service"
	applogger "FinScan/pkg/logger"
)

// WholeMarket considers the reference universe in order and admits every
// fetched symbol.
type WholeMarket struct {
	refs []Reference
}

func NewWholeMarket(refs []Reference) *WholeMarket {
	return &WholeMarket{refs: refs}
}

func (w *WholeMarket) Name() string { return models.StrategyMarket }

func (w *WholeMarket) Candidates(cfg models.ScanConfig) []string {
	out := make([]string, 0, min(len(w.refs), max(cfg.MaxSymbols, 0)))
	for _, r := range w.refs {
		if len(out) >= cfg.MaxSymbols {
			break
		}
		out = append(out, r.Symbol)
	}
	return out
}

func (w *WholeMarket) Admits(string, *models.SymbolSnapshot) bool { return true }

// Sector restricts candidates to reference entries tagged with one of the
// configured sectors and re-checks the sector reported by the provider.
type Sector struct {
	refs    []Reference
	sectors map[string]struct{}
}

func NewSector(refs []Reference, sectors []string) *Sector {
	set := make(map[string]struct{}, len(sectors))
	for _, s := range sectors {
		set[s] = struct{}{}
	}
	return &Sector{refs: refs, sectors: set}
}

func (s *Sector) Name() string { return models.StrategySector }

func (s *Sector) Candidates(cfg models.ScanConfig) []string {
	out := make([]string, 0, max(cfg.MaxSymbols, 0))
	for _, r := range s.refs {
		if len(out) >= cfg.MaxSymbols {
			break
		}
		if _, ok := s.sectors[r.Sector]; ok {
			out = append(out, r.Symbol)
		}
	}
	return out
}

// Admits requires an exact match between the fetched sector and a configured one.
func (s *Sector) Admits(_ string, snap *models.SymbolSnapshot) bool {
	if snap == nil || snap.Quote.Sector == "" {
		return false
	}
	_, ok := s.sectors[snap.Quote.Sector]
	return ok
}

// Resolver maps a scan configuration onto a universe strategy.
type Resolver struct {
	refs []Reference
	l    *applogger.Logger
}

func NewResolver(refs []Reference, l *applogger.Logger) *Resolver {
	if len(refs) == 0 {
		refs = DefaultReferences
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &Resolver{refs: refs, l: l}
}

// References returns the universe the resolver draws from.
func (r *Resolver) References() []Reference { return r.refs }

// Resolve never fails: a sector scan without sectors and an unknown selector
// both fall back to the whole market.
func (r *Resolver) Resolve(cfg models.ScanConfig) service.UniverseStrategy {
	switch strings.ToLower(strings.TrimSpace(cfg.Strategy)) {
	case "", models.StrategyMarket:
		return NewWholeMarket(r.refs)
	case models.StrategySector:
		if len(cfg.Sectors) == 0 {
			r.l.Info("sector scan without sectors, using whole market")
			return NewWholeMarket(r.refs)
		}
		return NewSector(r.refs, cfg.Sectors)
	default:
		r.l.Warn("unknown universe strategy, using whole market", applogger.String("strategy", cfg.Strategy))
		return NewWholeMarket(r.refs)
	}
}
