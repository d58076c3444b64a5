// Package inventory implements the stock ledger and the mutation engine that
// keeps the per-product current_stock aggregate and the append-only movement
// log consistent. Every mutation writes a movement and updates the aggregate
// inside a single transaction; neither half is ever observable alone.
package inventory

import (
	"errors"
	"fmt"
	"time"
)

// MovementType enumerates supported stock movements.
type MovementType string

const (
	// MovementTypeIn represents an inbound receipt.
	MovementTypeIn MovementType = "IN"
	// MovementTypeOut represents a manual outbound removal.
	MovementTypeOut MovementType = "OUT"
	// MovementTypeAdjustment represents a correction to an absolute level.
	MovementTypeAdjustment MovementType = "ADJUSTMENT"
	// MovementTypeSale represents stock consumed by a completed sale.
	MovementTypeSale MovementType = "SALE"
)

// StockMovement is one immutable ledger entry. Quantity is a signed delta and
// NewStock = PreviousStock + Quantity always holds.
type StockMovement struct {
	ID            int64        `json:"id"`
	ProductID     int64        `json:"product_id"`
	Type          MovementType `json:"type"`
	Quantity      int          `json:"quantity"`
	PreviousStock int          `json:"previous_stock"`
	NewStock      int          `json:"new_stock"`
	UnitCost      *float64     `json:"unit_cost,omitempty"`
	Reference     string       `json:"reference,omitempty"`
	Notes         string       `json:"notes,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

// ProductStock is the slice of the product row the mutation engine works with.
type ProductStock struct {
	ID           int64
	SKU          string
	Name         string
	CurrentStock int
	IsActive     bool
}

// AddStockInput describes an inbound receipt.
type AddStockInput struct {
	ProductID int64
	Quantity  int
	UnitCost  *float64
	Reference string
	Notes     string
}

// RemoveStockInput describes a manual removal (damage, loss, shrinkage).
type RemoveStockInput struct {
	ProductID int64
	Quantity  int
	Reference string
	Notes     string
}

// AdjustStockInput sets an absolute stock level after a physical count.
type AdjustStockInput struct {
	ProductID int64
	NewLevel  int
	Notes     string
}

// MovementFilter narrows movement history queries.
type MovementFilter struct {
	ProductID int64
	Type      MovementType
	From      time.Time
	To        time.Time
	Limit     int
}

var (
	// ErrInvalidQuantity flags a non-positive quantity before any transaction opens.
	ErrInvalidQuantity = errors.New("inventory: quantity must be positive")
	// ErrInvalidStockLevel flags a negative adjustment target before any transaction opens.
	ErrInvalidStockLevel = errors.New("inventory: target stock level must be >= 0")
	// ErrProductNotFound indicates the referenced product does not exist.
	ErrProductNotFound = errors.New("inventory: product not found")
	// ErrNoChange rejects an adjustment that matches the current stock level.
	ErrNoChange = errors.New("inventory: adjustment matches current stock")
)

// InsufficientStockError reports an oversell rejection with enough detail for
// the caller to build a message.
type InsufficientStockError struct {
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("inventory: insufficient stock for %q: available %d, requested %d", e.ProductName, e.Available, e.Requested)
}
