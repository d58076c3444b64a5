// Package catalog manages the product, category and supplier master records.
// Stock quantities on products are owned by the inventory and sales modules;
// catalog never mutates current_stock.
package catalog

import "time"

// Product is a sellable item. CurrentStock is read-only here.
type Product struct {
	ID                int64     `json:"id"`
	SKU               string    `json:"sku"`
	Name              string    `json:"name"`
	CategoryID        *int64    `json:"category_id,omitempty"`
	SupplierID        *int64    `json:"supplier_id,omitempty"`
	BuyPrice          float64   `json:"buy_price"`
	SellPrice         float64   `json:"sell_price"`
	CurrentStock      int       `json:"current_stock"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Category groups products.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Supplier is a source of purchased stock.
type Supplier struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Contact   string    `json:"contact"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListFilters narrows list queries.
type ListFilters struct {
	Page       int
	Limit      int
	Search     string
	CategoryID *int64
	IsActive   *bool
	SortBy     string
	SortDir    string
}
