package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/stockroom-pos/stockroom/internal/reports"
)

// LowStockScanner handles low-stock scan tasks. Running the query through the
// reports service also warms its cache for the API.
type LowStockScanner struct {
	reports *reports.Service
	logger  *slog.Logger
}

// NewLowStockScanner constructs the scan handler.
func NewLowStockScanner(svc *reports.Service, logger *slog.Logger) *LowStockScanner {
	return &LowStockScanner{reports: svc, logger: logger}
}

// Handle processes one TaskTypeLowStockScan task.
func (s *LowStockScanner) Handle(ctx context.Context, t *asynq.Task) error {
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	products, err := s.reports.LowStock(ctx)
	if err != nil {
		return err
	}
	logged := 0
	for _, p := range products {
		if payload.Limit > 0 && logged >= payload.Limit {
			break
		}
		s.logger.Warn("low stock",
			slog.String("sku", p.SKU),
			slog.String("name", p.Name),
			slog.Int("current_stock", p.CurrentStock),
			slog.Int("threshold", p.LowStockThreshold))
		logged++
	}
	s.logger.Info("low stock scan finished", slog.Int("flagged", len(products)))
	return nil
}
