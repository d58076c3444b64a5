// Package reports serves read-model queries over the product and sale tables.
// All figures come straight from the aggregate columns; the movement ledger is
// never replayed to answer a report.
package reports

import "time"

// InventoryStats summarises the catalog's stock position.
type InventoryStats struct {
	TotalProducts    int     `json:"total_products"`
	ActiveProducts   int     `json:"active_products"`
	TotalUnits       int     `json:"total_units"`
	StockValueCost   float64 `json:"stock_value_cost"`
	StockValueRetail float64 `json:"stock_value_retail"`
	LowStockCount    int     `json:"low_stock_count"`
	OutOfStockCount  int     `json:"out_of_stock_count"`
}

// LowStockProduct is one row of the low-stock or out-of-stock listing.
type LowStockProduct struct {
	ID                int64  `json:"id"`
	SKU               string `json:"sku"`
	Name              string `json:"name"`
	CurrentStock      int    `json:"current_stock"`
	LowStockThreshold int    `json:"low_stock_threshold"`
}

// SalesSummary aggregates sales over a creation-time window.
type SalesSummary struct {
	From        time.Time      `json:"from"`
	To          time.Time      `json:"to"`
	SaleCount   int            `json:"sale_count"`
	TotalAmount float64        `json:"total_amount"`
	TotalCost   float64        `json:"total_cost"`
	TotalProfit float64        `json:"total_profit"`
	ItemsSold   int            `json:"items_sold"`
	Days        []DailySummary `json:"days,omitempty"`
}

// DailySummary is the per-day breakdown inside a SalesSummary.
type DailySummary struct {
	Day         string  `json:"day"`
	SaleCount   int     `json:"sale_count"`
	TotalAmount float64 `json:"total_amount"`
	TotalProfit float64 `json:"total_profit"`
}
