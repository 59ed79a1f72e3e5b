package observer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"FinScan/internal/domain/models"
	"FinScan/internal/domain/service"
	"FinScan/pkg/cache"
)

// ErrNoSnapshot is returned when no scan has completed yet.
var ErrNoSnapshot = errors.New("no completed scan")

const latestKey = "scans:latest"

// Latest keeps the most recent ranking in the cache, globally and per
// strategy, for the read API.
type Latest struct {
	cache cache.Service
	ttl   time.Duration
	now   func() time.Time
}

func NewLatest(c cache.Service, ttl time.Duration) *Latest {
	return &Latest{cache: c, ttl: ttl, now: time.Now}
}

var _ service.ResultObserver = (*Latest)(nil)

func (o *Latest) OnResult(context.Context, models.ScanResult) error { return nil }

func (o *Latest) OnCompleted(ctx context.Context, results []models.ScanResult) error {
	snap := models.LatestScan{
		UpdatedAt: o.now().UTC(),
		Results:   results,
	}
	if info, ok := service.ScanFromContext(ctx); ok {
		snap.ScanID = info.ID.String()
		snap.Strategy = info.Strategy
	} else if len(results) > 0 {
		snap.ScanID = results[0].ScanID.String()
	}

	if err := o.cache.Set(ctx, latestKey, snap, o.ttl); err != nil {
		return fmt.Errorf("store latest: %w", err)
	}
	if snap.Strategy != "" {
		if err := o.cache.Set(ctx, cache.GenerateKey(latestKey, snap.Strategy), snap, o.ttl); err != nil {
			return fmt.Errorf("store latest %s: %w", snap.Strategy, err)
		}
	}
	return nil
}

// Get returns the latest ranking, optionally for one strategy.
func (o *Latest) Get(ctx context.Context, strategy string) (models.LatestScan, error) {
	key := latestKey
	if s := strings.ToLower(strings.TrimSpace(strategy)); s != "" {
		key = cache.GenerateKey(latestKey, s)
	}
	var snap models.LatestScan
	if err := o.cache.Get(ctx, key, &snap); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return models.LatestScan{}, ErrNoSnapshot
		}
		return models.LatestScan{}, err
	}
	return snap, nil
}
