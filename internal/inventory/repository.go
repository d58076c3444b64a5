package inventory

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockroom-pos/stockroom/internal/platform/db"
)

// TxRepository exposes the operations available inside a mutation transaction.
type TxRepository interface {
	GetProductForUpdate(ctx context.Context, productID int64) (ProductStock, error)
	InsertMovement(ctx context.Context, movement StockMovement) (StockMovement, error)
	UpdateProductStock(ctx context.Context, productID int64, newStock int) error
}

// Repository persists ledger data in PostgreSQL.
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

// WithTx executes the callback inside one transaction. The product row lock
// taken by GetProductForUpdate serializes concurrent mutations per product.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// ListMovements returns ledger entries for a product, newest first.
func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]StockMovement, error) {
	query := `SELECT id, product_id, type, quantity, previous_stock, new_stock, unit_cost, reference, notes, created_at
		FROM stock_movements WHERE product_id = $1`
	args := []interface{}{filter.ProductID}
	argCount := 1

	if filter.Type != "" {
		argCount++
		query += ` AND type = $` + strconv.Itoa(argCount)
		args = append(args, string(filter.Type))
	}
	if !filter.From.IsZero() {
		argCount++
		query += ` AND created_at >= $` + strconv.Itoa(argCount)
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		argCount++
		query += ` AND created_at < $` + strconv.Itoa(argCount)
		args = append(args, filter.To)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	argCount++
	query += ` ORDER BY created_at DESC, id DESC LIMIT $` + strconv.Itoa(argCount)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []StockMovement
	for rows.Next() {
		var m StockMovement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Type, &m.Quantity, &m.PreviousStock, &m.NewStock,
			&m.UnitCost, &m.Reference, &m.Notes, &m.CreatedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

func (r *txRepo) GetProductForUpdate(ctx context.Context, productID int64) (ProductStock, error) {
	var p ProductStock
	err := r.tx.QueryRow(ctx,
		`SELECT id, sku, name, current_stock, is_active FROM products WHERE id = $1 FOR UPDATE`,
		productID).Scan(&p.ID, &p.SKU, &p.Name, &p.CurrentStock, &p.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return ProductStock{}, ErrProductNotFound
	}
	return p, err
}

func (r *txRepo) InsertMovement(ctx context.Context, movement StockMovement) (StockMovement, error) {
	if movement.CreatedAt.IsZero() {
		movement.CreatedAt = time.Now().UTC()
	}
	err := r.tx.QueryRow(ctx,
		`INSERT INTO stock_movements (product_id, type, quantity, previous_stock, new_stock, unit_cost, reference, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		movement.ProductID, string(movement.Type), movement.Quantity, movement.PreviousStock, movement.NewStock,
		movement.UnitCost, movement.Reference, movement.Notes, movement.CreatedAt).Scan(&movement.ID)
	if err != nil {
		return StockMovement{}, err
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
		return ErrProductNotFound
	}
	return nil
}
