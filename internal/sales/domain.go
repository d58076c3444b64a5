// Package sales implements sale completion: one atomic transaction that
// validates a cart, writes the sale header, line-item snapshots, SALE ledger
// entries and the per-product stock aggregates together.
package sales

import (
	"errors"
	"time"
)

// Sale is the header of a completed sale.
type Sale struct {
	ID          int64      `json:"id"`
	SaleNumber  string     `json:"sale_number"`
	TotalAmount float64    `json:"total_amount"`
	TotalCost   float64    `json:"total_cost"`
	TotalProfit float64    `json:"total_profit"`
	ItemCount   int        `json:"item_count"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	Items       []SaleItem `json:"items,omitempty"`
}

// SaleItem is a line-item snapshot. Name, prices and cost are copied at sale
// time; later catalog edits never rewrite them.
type SaleItem struct {
	ID          int64   `json:"id"`
	SaleID      int64   `json:"sale_id"`
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	UnitPrice   float64 `json:"unit_price"`
	UnitCost    float64 `json:"unit_cost"`
	Quantity    int     `json:"quantity"`
	Subtotal    float64 `json:"subtotal"`
	Profit      float64 `json:"profit"`
}

// CartLine is one requested line of a sale.
type CartLine struct {
	ProductID   int64
	ProductName string
	Quantity    int
	UnitPrice   float64
	UnitCost    float64
}

// CompleteSaleInput carries the cart handed to CompleteSale.
type CompleteSaleInput struct {
	Items []CartLine
	Notes string
}

// ListFilter narrows sale listings.
type ListFilter struct {
	From  time.Time
	To    time.Time
	Page  int
	Limit int
}

var (
	// ErrEmptyCart rejects a sale with no lines before any transaction opens.
	ErrEmptyCart = errors.New("sales: cart is empty")
	// ErrInvalidQuantity flags a non-positive line quantity.
	ErrInvalidQuantity = errors.New("sales: line quantity must be positive")
	// ErrSaleNotFound indicates the requested sale does not exist.
	ErrSaleNotFound = errors.New("sales: sale not found")
)
