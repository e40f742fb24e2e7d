package cache

import (
	"context"
	"time"

	"retailstore/backend/internal/domain"
)

// FinancialsCache holds financial snapshots keyed by store revision.
type FinancialsCache interface {
	Get(ctx context.Context, key string) (*domain.Financials, bool, error)
	Set(ctx context.Context, key string, value *domain.Financials, ttl time.Duration) error
}

type NoopFinancialsCache struct{}

func (NoopFinancialsCache) Get(_ context.Context, _ string) (*domain.Financials, bool, error) {
	return nil, false, nil
}

func (NoopFinancialsCache) Set(_ context.Context, _ string, _ *domain.Financials, _ time.Duration) error {
	return nil
}
