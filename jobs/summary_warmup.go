package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/stockroom-pos/stockroom/internal/reports"
)

// SummaryWarmer pre-computes sales summaries so the first dashboard hit of the
// day is served from cache.
type SummaryWarmer struct {
	reports *reports.Service
	logger  *slog.Logger
}

// NewSummaryWarmer constructs the warmup handler.
func NewSummaryWarmer(svc *reports.Service, logger *slog.Logger) *SummaryWarmer {
	return &SummaryWarmer{reports: svc, logger: logger}
}

// Handle processes one TaskTypeSummaryWarmup task.
func (s *SummaryWarmer) Handle(ctx context.Context, t *asynq.Task) error {
	var payload SummaryWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Days <= 0 {
		payload.Days = 7
	}
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	from := today.AddDate(0, 0, -payload.Days)
	to := today.AddDate(0, 0, 1)

	summary, err := s.reports.SalesSummary(ctx, from, to)
	if err != nil {
		return err
	}
	if _, err := s.reports.InventoryStats(ctx); err != nil {
		return err
	}
	s.logger.Info("summary warmup finished",
		slog.Int("days", payload.Days),
		slog.Int("sale_count", summary.SaleCount))
	return nil
}
