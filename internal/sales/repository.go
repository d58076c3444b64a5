package sales

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockroom-pos/stockroom/internal/inventory"
	"github.com/stockroom-pos/stockroom/internal/platform/db"
)

// TxRepository exposes the operations available inside the sale transaction.
type TxRepository interface {
	GetProductForUpdate(ctx context.Context, productID int64) (inventory.ProductStock, error)
	NextSaleSequence(ctx context.Context, day time.Time) (int, error)
	InsertSale(ctx context.Context, sale Sale) (int64, error)
	InsertSaleItem(ctx context.Context, item SaleItem) (int64, error)
	InsertMovement(ctx context.Context, movement inventory.StockMovement) (inventory.StockMovement, error)
	UpdateProductStock(ctx context.Context, productID int64, newStock int) error
}

// Repository persists sales in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx executes the callback inside one transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// GetSale loads a sale header with its items.
func (r *Repository) GetSale(ctx context.Context, id int64) (Sale, error) {
	var s Sale
	err := r.pool.QueryRow(ctx,
		`SELECT id, sale_number, total_amount, total_cost, total_profit, item_count, notes, created_at FROM sales WHERE id = $1`,
		id).Scan(&s.ID, &s.SaleNumber, &s.TotalAmount, &s.TotalCost, &s.TotalProfit, &s.ItemCount, &s.Notes, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Sale{}, ErrSaleNotFound
	}
	if err != nil {
		return Sale{}, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, sale_id, product_id, product_name, unit_price, unit_cost, quantity, subtotal, profit FROM sale_items WHERE sale_id = $1 ORDER BY id`,
		id)
	if err != nil {
		return Sale{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.ProductName,
			&item.UnitPrice, &item.UnitCost, &item.Quantity, &item.Subtotal, &item.Profit); err != nil {
			return Sale{}, err
		}
		s.Items = append(s.Items, item)
	}
	return s, rows.Err()
}

// ListSales returns sale headers in a creation-time window, newest first.
func (r *Repository) ListSales(ctx context.Context, filter ListFilter) ([]Sale, int, error) {
	query := `SELECT id, sale_number, total_amount, total_cost, total_profit, item_count, notes, created_at FROM sales WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM sales WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if !filter.From.IsZero() {
		argCount++
		clause := ` AND created_at >= $` + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		argCount++
		clause := ` AND created_at < $` + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, filter.To)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY created_at DESC, id DESC`
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	argCount++
	query += ` LIMIT $` + strconv.Itoa(argCount)
	args = append(args, limit)
	argCount++
	query += ` OFFSET $` + strconv.Itoa(argCount)
	offset := (filter.Page - 1) * limit
	if offset < 0 {
		offset = 0
	}
	args = append(args, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var sales []Sale
	for rows.Next() {
		var s Sale
		if err := rows.Scan(&s.ID, &s.SaleNumber, &s.TotalAmount, &s.TotalCost, &s.TotalProfit,
			&s.ItemCount, &s.Notes, &s.CreatedAt); err != nil {
			return nil, 0, err
		}
		sales = append(sales, s)
	}
	return sales, total, rows.Err()
}

// DeleteSale removes a sale header; sale_items cascade with it. Stock
// movements referencing the sale stay untouched.
func (r *Repository) DeleteSale(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sales WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSaleNotFound
	}
	return nil
}

func (r *txRepo) GetProductForUpdate(ctx context.Context, productID int64) (inventory.ProductStock, error) {
	var p inventory.ProductStock
	err := r.tx.QueryRow(ctx,
		`SELECT id, sku, name, current_stock, is_active FROM products WHERE id = $1 FOR UPDATE`,
		productID).Scan(&p.ID, &p.SKU, &p.Name, &p.CurrentStock, &p.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return inventory.ProductStock{}, inventory.ErrProductNotFound
	}
	return p, err
}

// NextSaleSequence bumps the dedicated per-day counter row. A derived
// count-of-today would hand two concurrent sales the same number; the counter
// row is locked by the upsert, so sequences are unique per day.
func (r *txRepo) NextSaleSequence(ctx context.Context, day time.Time) (int, error) {
	var seq int
	err := r.tx.QueryRow(ctx,
		`INSERT INTO sale_counters (day, last_seq) VALUES ($1, 1)
		 ON CONFLICT (day) DO UPDATE SET last_seq = sale_counters.last_seq + 1
		 RETURNING last_seq`,
		day.Format("2006-01-02")).Scan(&seq)
	return seq, err
}

func (r *txRepo) InsertSale(ctx context.Context, sale Sale) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx,
		`INSERT INTO sales (sale_number, total_amount, total_cost, total_profit, item_count, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		sale.SaleNumber, sale.TotalAmount, sale.TotalCost, sale.TotalProfit, sale.ItemCount, sale.Notes, sale.CreatedAt).Scan(&id)
	return id, err
}

func (r *txRepo) InsertSaleItem(ctx context.Context, item SaleItem) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx,
		`INSERT INTO sale_items (sale_id, product_id, product_name, unit_price, unit_cost, quantity, subtotal, profit)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		item.SaleID, item.ProductID, item.ProductName, item.UnitPrice, item.UnitCost, item.Quantity, item.Subtotal, item.Profit).Scan(&id)
	return id, err
}

func (r *txRepo) InsertMovement(ctx context.Context, movement inventory.StockMovement) (inventory.StockMovement, error) {
	if movement.CreatedAt.IsZero() {
		movement.CreatedAt = time.Now().UTC()
	}
	err := r.tx.QueryRow(ctx,
		`INSERT INTO stock_movements (product_id, type, quantity, previous_stock, new_stock, unit_cost, reference, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		movement.ProductID, string(movement.Type), movement.Quantity, movement.PreviousStock, movement.NewStock,
		movement.UnitCost, movement.Reference, movement.Notes, movement.CreatedAt).Scan(&movement.ID)
	if err != nil {
		return inventory.StockMovement{}, err
	}
	return movement, nil
}

func (r *txRepo) UpdateProductStock(ctx context.Context, productID int64, newStock int) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE products SET current_stock = $1, updated_at = $2 WHERE id = $3`,
		newStock, time.Now().UTC(), productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return inventory.ErrProductNotFound
	}
	return nil
}
