package reports

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	stats        InventoryStats
	low          []LowStockProduct
	out          []LowStockProduct
	summary      SalesSummary
	statsCalls   int
	lowCalls     int
	summaryCalls int
}

func (m *mockRepo) InventoryStats(ctx context.Context) (InventoryStats, error) {
	m.statsCalls++
	return m.stats, nil
}

func (m *mockRepo) LowStock(ctx context.Context) ([]LowStockProduct, error) {
	m.lowCalls++
	return m.low, nil
}

func (m *mockRepo) OutOfStock(ctx context.Context) ([]LowStockProduct, error) {
	return m.out, nil
}

func (m *mockRepo) SalesSummary(ctx context.Context, from, to time.Time) (SalesSummary, error) {
	m.summaryCalls++
	return m.summary, nil
}

func newTestService(t *testing.T, repo RepositoryPort) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(repo, NewCache(client, time.Minute))
}

func TestInventoryStatsServedFromCache(t *testing.T) {
	repo := &mockRepo{stats: InventoryStats{TotalProducts: 4, StockValueCost: 120.50, LowStockCount: 1}}
	svc := newTestService(t, repo)
	ctx := context.Background()

	first, err := svc.InventoryStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, first.TotalProducts)
	assert.InDelta(t, 120.50, first.StockValueCost, 0.001)

	repo.stats.TotalProducts = 99
	second, err := svc.InventoryStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, second.TotalProducts)
	assert.Equal(t, 1, repo.statsCalls)
}

func TestBumpInvalidatesCachedReports(t *testing.T) {
	repo := &mockRepo{low: []LowStockProduct{{ID: 1, SKU: "A1", Name: "Beans", CurrentStock: 2, LowStockThreshold: 5}}}
	svc := newTestService(t, repo)
	ctx := context.Background()

	before, err := svc.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, before, 1)

	repo.low = append(repo.low, LowStockProduct{ID: 2, SKU: "B2", Name: "Mug", CurrentStock: 0, LowStockThreshold: 3})
	require.NoError(t, svc.cache.Bump(ctx))

	after, err := svc.LowStock(ctx)
	require.NoError(t, err)
	assert.Len(t, after, 2)
	assert.Equal(t, 2, repo.lowCalls)
}

func TestSalesSummaryKeyedByWindow(t *testing.T) {
	repo := &mockRepo{summary: SalesSummary{SaleCount: 3, TotalAmount: 42.50}}
	svc := newTestService(t, repo)
	ctx := context.Background()

	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	_, err := svc.SalesSummary(ctx, from, to)
	require.NoError(t, err)
	_, err = svc.SalesSummary(ctx, from, to)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.summaryCalls)

	// A different window is a different cache key.
	_, err = svc.SalesSummary(ctx, from.AddDate(0, 0, -7), to)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.summaryCalls)
}

func TestNilCacheFallsThroughToRepository(t *testing.T) {
	repo := &mockRepo{stats: InventoryStats{TotalProducts: 2}}
	svc := NewService(repo, nil)

	stats, err := svc.InventoryStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalProducts)

	_, err = svc.InventoryStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.statsCalls)
}
