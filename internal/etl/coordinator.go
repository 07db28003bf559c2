package etl

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gatewayetl/internal/model"
)

// Coordinator runs one ETL pass: every federation sequentially, then a
// single aggregated notification. A fatal error stops the pass at the
// current federation; later federations wait for the next scheduled run.
type Coordinator struct {
	gateway       Gateway
	warehouse     Warehouse
	notifier      Notifier
	logger        *zap.Logger
	epoch         *int32
	summaryWindow time.Duration
}

// NewCoordinator builds a Coordinator. epoch is nil for deployments that do
// not partition by gateway epoch.
func NewCoordinator(
	gw Gateway,
	warehouse Warehouse,
	notifier Notifier,
	epoch *int32,
	summaryWindow time.Duration,
	logger *zap.Logger,
) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if summaryWindow <= 0 {
		summaryWindow = 24 * time.Hour
	}
	return &Coordinator{
		gateway:       gw,
		warehouse:     warehouse,
		notifier:      notifier,
		logger:        logger,
		epoch:         epoch,
		summaryWindow: summaryWindow,
	}
}

// Run executes the pass and sends the combined report.
func (c *Coordinator) Run(ctx context.Context) error {
	logger := c.logger.With(zap.String("run_id", uuid.NewString()))
	logger.Info("getting gateway info")

	info, err := c.gateway.Info(ctx)
	if err != nil {
		return fmt.Errorf("gateway info: %w", err)
	}

	var report strings.Builder
	var totals tally

	for _, fed := range info.Federations {
		processor, err := NewProcessor(ctx, fed, c.epoch, c.gateway, c.warehouse, c.notifier, logger)
		if err != nil {
			return err
		}
		if err := processor.Process(ctx); err != nil {
			return fmt.Errorf("federation %s: %w", fed.Name, err)
		}
		report.WriteString(processor.Summary())
		totals.add(processor.counts)
	}

	fmt.Fprintf(&report, "Total Events Processed: %d\n", totals.total())

	end := time.Now().UTC()
	summary, err := c.gateway.PaymentSummary(ctx, end.Add(-c.summaryWindow), end)
	if err != nil {
		logger.Warn("payment summary unavailable", zap.Error(err))
	} else {
		report.WriteString(renderPaymentSummary(summary, c.summaryWindow))
	}

	logger.Info("run complete", zap.Uint64("total_events", totals.total()))

	if err := c.notifier.Send(ctx, report.String()); err != nil {
		logger.Warn("notification failed", zap.Error(err))
	}
	return nil
}

func renderPaymentSummary(summary model.PaymentSummary, window time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\nPayment Summary (last %s)\n", window)
	fmt.Fprintf(&b, "Outgoing - Avg Latency: %d ms, Median Latency: %d ms, Fees: %d sat\n",
		summary.Outgoing.AverageLatencyMs,
		summary.Outgoing.MedianLatencyMs,
		summary.Outgoing.TotalFeesMsat/1000)
	fmt.Fprintf(&b, "Incoming - Avg Latency: %d ms, Median Latency: %d ms, Fees: %d sat\n",
		summary.Incoming.AverageLatencyMs,
		summary.Incoming.MedianLatencyMs,
		summary.Incoming.TotalFeesMsat/1000)
	return b.String()
}
