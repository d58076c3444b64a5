// Package jobs runs background work over Asynq: a periodic low-stock scan and
// a sales summary cache warmup.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeLowStockScan scans for products at or below their threshold.
	TaskTypeLowStockScan = "inventory:low_stock_scan"
	// TaskTypeSummaryWarmup pre-computes the daily sales summary into the cache.
	TaskTypeSummaryWarmup = "reports:summary_warmup"
)

// LowStockScanPayload configures a low-stock scan run.
type LowStockScanPayload struct {
	// Limit caps how many products are logged per run. 0 means all.
	Limit int `json:"limit"`
}

// SummaryWarmupPayload configures a summary warmup run.
type SummaryWarmupPayload struct {
	// Days counts backwards from today; the warmup covers [today-Days, tomorrow).
	Days int `json:"days"`
}

// NewLowStockScanTask constructs an Asynq task for the scan.
func NewLowStockScanTask(payload LowStockScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeLowStockScan, data), nil
}

// NewSummaryWarmupTask constructs an Asynq task for the warmup.
func NewSummaryWarmupTask(payload SummaryWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSummaryWarmup, data), nil
}
