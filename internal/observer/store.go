package observer

import (
	"context"

	"FinScan/internal/domain/models"
	domrepo "FinScan/internal/domain/repository"
	"FinScan/internal/domain/service"
)

// Store persists the final ranking in one batch.
type Store struct {
	store domrepo.ResultStore
}

func NewStore(store domrepo.ResultStore) *Store {
	return &Store{store: store}
}

var _ service.ResultObserver = (*Store)(nil)

func (s *Store) OnResult(context.Context, models.ScanResult) error { return nil }

func (s *Store) OnCompleted(ctx context.Context, results []models.ScanResult) error {
	if len(results) == 0 {
		return nil
	}
	return s.store.SaveResults(ctx, results)
}
