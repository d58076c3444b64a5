package reports

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// RepositoryPort abstracts the report queries for the service.
type RepositoryPort interface {
	InventoryStats(ctx context.Context) (InventoryStats, error)
	LowStock(ctx context.Context) ([]LowStockProduct, error)
	OutOfStock(ctx context.Context) ([]LowStockProduct, error)
	SalesSummary(ctx context.Context, from, to time.Time) (SalesSummary, error)
}

// Service answers report queries through the versioned cache, with concurrent
// loads for the same key collapsed into one repository round trip.
type Service struct {
	repo  RepositoryPort
	cache *Cache
	group singleflight.Group
}

// NewService builds Service. cache may be nil.
func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// InventoryStats returns the stock position summary.
func (s *Service) InventoryStats(ctx context.Context) (InventoryStats, error) {
	var stats InventoryStats
	err := s.cached(ctx, &stats, func(ctx context.Context) (any, error) {
		return s.repo.InventoryStats(ctx)
	}, "reports", "inventory_stats")
	return stats, err
}

// LowStock returns active products at or below their threshold.
func (s *Service) LowStock(ctx context.Context) ([]LowStockProduct, error) {
	var products []LowStockProduct
	err := s.cached(ctx, &products, func(ctx context.Context) (any, error) {
		return s.repo.LowStock(ctx)
	}, "reports", "low_stock")
	return products, err
}

// OutOfStock returns active products with zero stock.
func (s *Service) OutOfStock(ctx context.Context) ([]LowStockProduct, error) {
	var products []LowStockProduct
	err := s.cached(ctx, &products, func(ctx context.Context) (any, error) {
		return s.repo.OutOfStock(ctx)
	}, "reports", "out_of_stock")
	return products, err
}

// SalesSummary totals sales in [from, to).
func (s *Service) SalesSummary(ctx context.Context, from, to time.Time) (SalesSummary, error) {
	var summary SalesSummary
	err := s.cached(ctx, &summary, func(ctx context.Context) (any, error) {
		return s.repo.SalesSummary(ctx, from, to)
	}, "reports", "sales_summary", from.Format("2006-01-02"), to.Format("2006-01-02"))
	return summary, err
}

func (s *Service) cached(ctx context.Context, dest any, loader func(context.Context) (any, error), keyParts ...string) error {
	key, err := s.cache.BuildKey(ctx, keyParts...)
	if err != nil {
		return err
	}
	ch := s.group.DoChan(key, func() (any, error) {
		return nil, s.cache.FetchJSON(ctx, key, dest, loader)
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Shared {
			// Another caller filled dest for its own pointer; load again from
			// the now warm cache for this one.
			return s.cache.FetchJSON(ctx, key, dest, loader)
		}
		return res.Err
	}
}
