package inventory

import (
	"context"
	"fmt"
	"strconv"

	"github.com/stockroom-pos/stockroom/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListMovements(ctx context.Context, filter MovementFilter) ([]StockMovement, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CacheInvalidator bumps read-model caches after a committed mutation.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// MetricsPort counts committed movements and oversell rejections.
type MetricsPort interface {
	MovementPosted(movementType string)
	OversellRejected()
}

// Service is the stock mutation engine. All three operations are atomic:
// ledger entry and aggregate update commit together or not at all.
type Service struct {
	repo    RepositoryPort
	audit   AuditPort
	cache   CacheInvalidator
	metrics MetricsPort
}

// NewService builds Service. audit, cache and metrics may be nil.
func NewService(repo RepositoryPort, audit AuditPort, cache CacheInvalidator, metrics MetricsPort) *Service {
	return &Service{repo: repo, audit: audit, cache: cache, metrics: metrics}
}

// AddStock receives quantity units into a product. Quantity must be positive;
// anything else is a caller-contract violation rejected before the transaction
// opens.
func (s *Service) AddStock(ctx context.Context, input AddStockInput) (StockMovement, error) {
	if input.Quantity <= 0 {
		return StockMovement{}, ErrInvalidQuantity
	}

	var committed StockMovement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		product, err := tx.GetProductForUpdate(ctx, input.ProductID)
		if err != nil {
			return err
		}
		newStock := product.CurrentStock + input.Quantity
		movement := StockMovement{
			ProductID:     product.ID,
			Type:          MovementTypeIn,
			Quantity:      input.Quantity,
			PreviousStock: product.CurrentStock,
			NewStock:      newStock,
			UnitCost:      input.UnitCost,
			Reference:     input.Reference,
			Notes:         input.Notes,
		}
		committed, err = tx.InsertMovement(ctx, movement)
		if err != nil {
			return err
		}
		return tx.UpdateProductStock(ctx, product.ID, newStock)
	})
	if err != nil {
		return StockMovement{}, err
	}

	s.afterCommit(ctx, "inventory:add", committed)
	return committed, nil
}

// RemoveStock takes quantity units out of a product. Fails without writing
// anything when the product holds less than the requested quantity.
func (s *Service) RemoveStock(ctx context.Context, input RemoveStockInput) (StockMovement, error) {
	if input.Quantity <= 0 {
		return StockMovement{}, ErrInvalidQuantity
	}

	var committed StockMovement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		product, err := tx.GetProductForUpdate(ctx, input.ProductID)
		if err != nil {
			return err
		}
		if input.Quantity > product.CurrentStock {
			if s.metrics != nil {
				s.metrics.OversellRejected()
			}
			return &InsufficientStockError{
				ProductName: product.Name,
				Available:   product.CurrentStock,
				Requested:   input.Quantity,
			}
		}
		newStock := product.CurrentStock - input.Quantity
		movement := StockMovement{
			ProductID:     product.ID,
			Type:          MovementTypeOut,
			Quantity:      -input.Quantity,
			PreviousStock: product.CurrentStock,
			NewStock:      newStock,
			Reference:     input.Reference,
			Notes:         input.Notes,
		}
		committed, err = tx.InsertMovement(ctx, movement)
		if err != nil {
			return err
		}
		return tx.UpdateProductStock(ctx, product.ID, newStock)
	})
	if err != nil {
		return StockMovement{}, err
	}

	s.afterCommit(ctx, "inventory:remove", committed)
	return committed, nil
}

// AdjustStock sets an absolute level. An adjustment that changes nothing is
// rejected with ErrNoChange instead of writing a zero-delta movement.
func (s *Service) AdjustStock(ctx context.Context, input AdjustStockInput) (StockMovement, error) {
	if input.NewLevel < 0 {
		return StockMovement{}, ErrInvalidStockLevel
	}

	var committed StockMovement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		product, err := tx.GetProductForUpdate(ctx, input.ProductID)
		if err != nil {
			return err
		}
		if input.NewLevel == product.CurrentStock {
			return ErrNoChange
		}
		movement := StockMovement{
			ProductID:     product.ID,
			Type:          MovementTypeAdjustment,
			Quantity:      input.NewLevel - product.CurrentStock,
			PreviousStock: product.CurrentStock,
			NewStock:      input.NewLevel,
			Notes:         input.Notes,
		}
		committed, err = tx.InsertMovement(ctx, movement)
		if err != nil {
			return err
		}
		return tx.UpdateProductStock(ctx, product.ID, input.NewLevel)
	})
	if err != nil {
		return StockMovement{}, err
	}

	s.afterCommit(ctx, "inventory:adjust", committed)
	return committed, nil
}

// MovementHistory lists ledger entries for one product.
func (s *Service) MovementHistory(ctx context.Context, filter MovementFilter) ([]StockMovement, error) {
	if filter.ProductID <= 0 {
		return nil, fmt.Errorf("%w: product id %d", ErrProductNotFound, filter.ProductID)
	}
	return s.repo.ListMovements(ctx, filter)
}

func (s *Service) afterCommit(ctx context.Context, action string, movement StockMovement) {
	if s.metrics != nil {
		s.metrics.MovementPosted(string(movement.Type))
	}
	if s.cache != nil {
		_ = s.cache.Bump(ctx)
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Actor:    "api",
			Action:   action,
			Entity:   "stock_movement",
			EntityID: strconv.FormatInt(movement.ID, 10),
			Meta: map[string]any{
				"product_id":     movement.ProductID,
				"type":           string(movement.Type),
				"quantity":       movement.Quantity,
				"previous_stock": movement.PreviousStock,
				"new_stock":      movement.NewStock,
			},
		})
	}
}
