package sales

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/stockroom-pos/stockroom/internal/inventory"
	"github.com/stockroom-pos/stockroom/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetSale(ctx context.Context, id int64) (Sale, error)
	ListSales(ctx context.Context, filter ListFilter) ([]Sale, int, error)
	DeleteSale(ctx context.Context, id int64) error
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CacheInvalidator bumps read-model caches after a committed sale.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// MetricsPort counts completed sales and oversell rejections.
type MetricsPort interface {
	SaleCompleted(itemCount int)
	OversellRejected()
}

// Service orchestrates sale completion and deletion.
type Service struct {
	repo    RepositoryPort
	audit   AuditPort
	cache   CacheInvalidator
	metrics MetricsPort
	now     func() time.Time
}

// NewService builds Service. audit, cache and metrics may be nil.
func NewService(repo RepositoryPort, audit AuditPort, cache CacheInvalidator, metrics MetricsPort) *Service {
	return &Service{
		repo:    repo,
		audit:   audit,
		cache:   cache,
		metrics: metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CompleteSale validates and commits a multi-product sale as one transaction:
// the sale header, one snapshot item per line, one SALE movement per line and
// every product aggregate update land together or not at all. Validation and
// mutation run against the same locked product rows, so two concurrent sales
// cannot both pass validation on the same stock.
func (s *Service) CompleteSale(ctx context.Context, input CompleteSaleInput) (Sale, error) {
	if len(input.Items) == 0 {
		return Sale{}, ErrEmptyCart
	}
	for _, line := range input.Items {
		if line.Quantity <= 0 {
			return Sale{}, fmt.Errorf("%w: %s", ErrInvalidQuantity, line.ProductName)
		}
	}

	var sale Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		// Lock every referenced product in ascending id order so two carts
		// sharing products cannot deadlock on each other.
		locked := make(map[int64]inventory.ProductStock)
		ids := make([]int64, 0, len(input.Items))
		nameByID := make(map[int64]string)
		for _, line := range input.Items {
			if _, seen := nameByID[line.ProductID]; !seen {
				ids = append(ids, line.ProductID)
			}
			nameByID[line.ProductID] = line.ProductName
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			product, err := tx.GetProductForUpdate(ctx, id)
			if err != nil {
				if errors.Is(err, inventory.ErrProductNotFound) {
					return fmt.Errorf("%w: %s", inventory.ErrProductNotFound, nameByID[id])
				}
				return err
			}
			locked[id] = product
		}

		// Validate every line against the locked rows. Stock is projected
		// across lines so two lines of the same product cannot jointly
		// oversell what a single line could not.
		projected := make(map[int64]int, len(locked))
		for id, product := range locked {
			projected[id] = product.CurrentStock
		}
		for _, line := range input.Items {
			available := projected[line.ProductID]
			if line.Quantity > available {
				if s.metrics != nil {
					s.metrics.OversellRejected()
				}
				return &inventory.InsufficientStockError{
					ProductName: locked[line.ProductID].Name,
					Available:   available,
					Requested:   line.Quantity,
				}
			}
			projected[line.ProductID] = available - line.Quantity
		}

		var totalAmount, totalCost float64
		for _, line := range input.Items {
			totalAmount += line.UnitPrice * float64(line.Quantity)
			totalCost += line.UnitCost * float64(line.Quantity)
		}

		now := s.now()
		seq, err := tx.NextSaleSequence(ctx, now)
		if err != nil {
			return fmt.Errorf("sales: next sequence: %w", err)
		}
		saleNumber := fmt.Sprintf("SALE-%s-%03d", now.Format("20060102"), seq)

		sale = Sale{
			SaleNumber:  saleNumber,
			TotalAmount: totalAmount,
			TotalCost:   totalCost,
			TotalProfit: totalAmount - totalCost,
			ItemCount:   len(input.Items),
			Notes:       input.Notes,
			CreatedAt:   now,
		}
		saleID, err := tx.InsertSale(ctx, sale)
		if err != nil {
			return fmt.Errorf("sales: insert sale: %w", err)
		}
		sale.ID = saleID

		// Apply lines in cart order: snapshot item, SALE movement with
		// previous/new stock, aggregate update.
		running := make(map[int64]int, len(locked))
		for id, product := range locked {
			running[id] = product.CurrentStock
		}
		for _, line := range input.Items {
			item := SaleItem{
				SaleID:      saleID,
				ProductID:   line.ProductID,
				ProductName: line.ProductName,
				UnitPrice:   line.UnitPrice,
				UnitCost:    line.UnitCost,
				Quantity:    line.Quantity,
				Subtotal:    line.UnitPrice * float64(line.Quantity),
				Profit:      (line.UnitPrice - line.UnitCost) * float64(line.Quantity),
			}
			itemID, err := tx.InsertSaleItem(ctx, item)
			if err != nil {
				return fmt.Errorf("sales: insert item: %w", err)
			}
			item.ID = itemID
			sale.Items = append(sale.Items, item)

			previous := running[line.ProductID]
			newStock := previous - line.Quantity
			unitCost := line.UnitCost
			if _, err := tx.InsertMovement(ctx, inventory.StockMovement{
				ProductID:     line.ProductID,
				Type:          inventory.MovementTypeSale,
				Quantity:      -line.Quantity,
				PreviousStock: previous,
				NewStock:      newStock,
				UnitCost:      &unitCost,
				Reference:     saleNumber,
				CreatedAt:     now,
			}); err != nil {
				return fmt.Errorf("sales: insert movement: %w", err)
			}
			if err := tx.UpdateProductStock(ctx, line.ProductID, newStock); err != nil {
				return fmt.Errorf("sales: update stock: %w", err)
			}
			running[line.ProductID] = newStock
		}
		return nil
	})
	if err != nil {
		return Sale{}, err
	}

	if s.metrics != nil {
		s.metrics.SaleCompleted(sale.ItemCount)
	}
	if s.cache != nil {
		_ = s.cache.Bump(ctx)
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Actor:    "api",
			Action:   "sales:complete",
			Entity:   "sale",
			EntityID: strconv.FormatInt(sale.ID, 10),
			Meta: map[string]any{
				"sale_number":  sale.SaleNumber,
				"total_amount": sale.TotalAmount,
				"item_count":   sale.ItemCount,
			},
		})
	}
	return sale, nil
}

// GetSale loads one sale with its items.
func (s *Service) GetSale(ctx context.Context, id int64) (Sale, error) {
	if id <= 0 {
		return Sale{}, ErrSaleNotFound
	}
	return s.repo.GetSale(ctx, id)
}

// ListSales returns sale headers in a creation-time window.
func (s *Service) ListSales(ctx context.Context, filter ListFilter) ([]Sale, int, error) {
	return s.repo.ListSales(ctx, filter)
}

// DeleteSale removes the sale and its items. SALE movements referencing the
// sale are kept as the audit trail, so deleting a sale does NOT restore stock.
func (s *Service) DeleteSale(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrSaleNotFound
	}
	if err := s.repo.DeleteSale(ctx, id); err != nil {
		return err
	}
	if s.cache != nil {
		_ = s.cache.Bump(ctx)
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Actor:    "api",
			Action:   "sales:delete",
			Entity:   "sale",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"stock_restored": false},
		})
	}
	return nil
}
