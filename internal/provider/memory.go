package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"FinScan/internal/domain/models"
)

// ErrUnknownSymbol is returned when a provider has no data for a symbol.
var ErrUnknownSymbol = errors.New("unknown symbol")

// Fixture is the full data set the memory provider serves for one symbol.
type Fixture struct {
	Quote        models.Quote         `json:"quote" yaml:"quote"`
	History      []models.Candle      `json:"history" yaml:"history"`
	Fundamentals *models.Fundamentals `json:"fundamentals" yaml:"fundamentals"`
}

// Memory serves fixtures from memory. Individual symbols can be made to fail
// or to block until their context is done.
type Memory struct {
	mu       sync.RWMutex
	fixtures map[string]Fixture
	failures map[string]error
	blocking map[string]struct{}
	calls    map[string]int
}

func NewMemory() *Memory {
	return &Memory{
		fixtures: make(map[string]Fixture),
		failures: make(map[string]error),
		blocking: make(map[string]struct{}),
		calls:    make(map[string]int),
	}
}

// Put stores a fixture.
func (m *Memory) Put(symbol string, f Fixture) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToUpper(symbol)
	if f.Quote.Symbol == "" {
		f.Quote.Symbol = key
	}
	m.fixtures[key] = f
	return m
}

// Fail makes every call for symbol return err.
func (m *Memory) Fail(symbol string, err error) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[strings.ToUpper(symbol)] = err
	return m
}

// Block makes every call for symbol wait for its context.
func (m *Memory) Block(symbol string) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocking[strings.ToUpper(symbol)] = struct{}{}
	return m
}

// Calls reports how many quote lookups were made for symbol.
func (m *Memory) Calls(symbol string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[strings.ToUpper(symbol)]
}

func (m *Memory) lookup(ctx context.Context, symbol string) (Fixture, error) {
	key := strings.ToUpper(symbol)
	m.mu.RLock()
	f, ok := m.fixtures[key]
	err := m.failures[key]
	_, blocks := m.blocking[key]
	m.mu.RUnlock()

	if blocks {
		<-ctx.Done()
		return Fixture{}, ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return Fixture{}, err
	}
	if err != nil {
		return Fixture{}, err
	}
	if !ok {
		return Fixture{}, fmt.Errorf("%s: %w", key, ErrUnknownSymbol)
	}
	return f, nil
}

func (m *Memory) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	m.mu.Lock()
	m.calls[strings.ToUpper(symbol)]++
	m.mu.Unlock()

	f, err := m.lookup(ctx, symbol)
	if err != nil {
		return models.Quote{}, err
	}
	return f.Quote, nil
}

// History returns at most lookbackDays trailing candles.
func (m *Memory) History(ctx context.Context, symbol string, lookbackDays int) ([]models.Candle, error) {
	f, err := m.lookup(ctx, symbol)
	if err != nil {
		return nil, err
	}
	h := f.History
	if lookbackDays > 0 && len(h) > lookbackDays {
		h = h[len(h)-lookbackDays:]
	}
	out := make([]models.Candle, len(h))
	copy(out, h)
	return out, nil
}

func (m *Memory) Fundamentals(ctx context.Context, symbol string) (models.Fundamentals, error) {
	f, err := m.lookup(ctx, symbol)
	if err != nil {
		return models.Fundamentals{}, err
	}
	if f.Fundamentals == nil {
		return models.Fundamentals{}, nil
	}
	return *f.Fundamentals, nil
}
