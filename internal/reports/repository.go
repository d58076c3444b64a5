package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs the read-model queries against PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InventoryStats aggregates over the products table. Valuation uses the
// aggregate current_stock column directly.
func (r *Repository) InventoryStats(ctx context.Context) (InventoryStats, error) {
	const query = `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE is_active),
			COALESCE(SUM(current_stock) FILTER (WHERE is_active), 0),
			COALESCE(SUM(current_stock * buy_price) FILTER (WHERE is_active), 0),
			COALESCE(SUM(current_stock * sell_price) FILTER (WHERE is_active), 0),
			COUNT(*) FILTER (WHERE is_active AND current_stock <= low_stock_threshold),
			COUNT(*) FILTER (WHERE is_active AND current_stock = 0)
		FROM products`

	var stats InventoryStats
	err := r.pool.QueryRow(ctx, query).Scan(
		&stats.TotalProducts,
		&stats.ActiveProducts,
		&stats.TotalUnits,
		&stats.StockValueCost,
		&stats.StockValueRetail,
		&stats.LowStockCount,
		&stats.OutOfStockCount,
	)
	if err != nil {
		return InventoryStats{}, fmt.Errorf("reports: inventory stats: %w", err)
	}
	return stats, nil
}

// LowStock lists active products at or below their threshold, emptiest first.
func (r *Repository) LowStock(ctx context.Context) ([]LowStockProduct, error) {
	return r.stockListing(ctx, "current_stock <= low_stock_threshold")
}

// OutOfStock lists active products with zero units on hand.
func (r *Repository) OutOfStock(ctx context.Context) ([]LowStockProduct, error) {
	return r.stockListing(ctx, "current_stock = 0")
}

func (r *Repository) stockListing(ctx context.Context, predicate string) ([]LowStockProduct, error) {
	query := fmt.Sprintf(`
		SELECT id, sku, name, current_stock, low_stock_threshold
		FROM products
		WHERE is_active AND %s
		ORDER BY current_stock ASC, name ASC`, predicate)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("reports: stock listing: %w", err)
	}
	defer rows.Close()

	var products []LowStockProduct
	for rows.Next() {
		var p LowStockProduct
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.CurrentStock, &p.LowStockThreshold); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// SalesSummary totals sales created in [from, to) and breaks them down per day.
func (r *Repository) SalesSummary(ctx context.Context, from, to time.Time) (SalesSummary, error) {
	summary := SalesSummary{From: from, To: to}

	const totals = `
		SELECT COUNT(*),
			COALESCE(SUM(total_amount), 0),
			COALESCE(SUM(total_cost), 0),
			COALESCE(SUM(total_profit), 0),
			COALESCE(SUM(item_count), 0)
		FROM sales
		WHERE created_at >= $1 AND created_at < $2`
	err := r.pool.QueryRow(ctx, totals, from, to).Scan(
		&summary.SaleCount,
		&summary.TotalAmount,
		&summary.TotalCost,
		&summary.TotalProfit,
		&summary.ItemsSold,
	)
	if err != nil {
		return SalesSummary{}, fmt.Errorf("reports: sales summary: %w", err)
	}

	const perDay = `
		SELECT to_char(created_at::date, 'YYYY-MM-DD'),
			COUNT(*),
			COALESCE(SUM(total_amount), 0),
			COALESCE(SUM(total_profit), 0)
		FROM sales
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY created_at::date
		ORDER BY created_at::date`
	rows, err := r.pool.Query(ctx, perDay, from, to)
	if err != nil {
		return SalesSummary{}, fmt.Errorf("reports: daily breakdown: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var day DailySummary
		if err := rows.Scan(&day.Day, &day.SaleCount, &day.TotalAmount, &day.TotalProfit); err != nil {
			return SalesSummary{}, err
		}
		summary.Days = append(summary.Days, day)
	}
	return summary, rows.Err()
}
