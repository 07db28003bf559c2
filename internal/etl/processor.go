package etl

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"gatewayetl/internal/model"
)

// Processor drains one federation's payment log into the warehouse. It is
// single-use: counters are zeroed at construction and only ever increment.
// Running two processors for the same federation concurrently is an
// operational error; nothing here takes a lock.
type Processor struct {
	fed       model.FederationDescriptor
	epoch     *int32
	watermark int64

	gateway   Gateway
	warehouse Warehouse
	notifier  Notifier
	logger    *zap.Logger

	counts         tally
	decodeFailures uint64
}

// NewProcessor resolves the federation's watermark and returns a processor
// ready for a single Process call. A missing federation name is a
// configuration error.
func NewProcessor(
	ctx context.Context,
	fed model.FederationDescriptor,
	epoch *int32,
	gw Gateway,
	warehouse Warehouse,
	notifier Notifier,
	logger *zap.Logger,
) (*Processor, error) {
	if fed.Name == "" {
		return nil, fmt.Errorf("federation %s has no name", fed.ID)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	watermark, err := resolveWatermark(ctx, warehouse, fed.ID, epoch)
	if err != nil {
		return nil, err
	}

	return &Processor{
		fed:       fed,
		epoch:     epoch,
		watermark: watermark,
		gateway:   gw,
		warehouse: warehouse,
		notifier:  notifier,
		logger:    logger.With(zap.String("federation_name", fed.Name)),
	}, nil
}

// Process fetches the federation's payment log and dispatches every entry
// newer than the watermark. Entries arrive newest-first, so iteration stops
// at the first ordinal at or below the watermark. Decode failures are
// journaled and skipped; insert and fetch failures abort the run, and the
// next run's watermark is the only recovery mechanism.
func (p *Processor) Process(ctx context.Context) error {
	p.logger.Info("processing federation", zap.Int64("watermark", p.watermark))

	entries, err := p.gateway.PaymentLog(ctx, p.fed.ID)
	if err != nil {
		return fmt.Errorf("fetch payment log: %w", err)
	}

	for _, entry := range entries {
		ordinal, err := model.ParseLogOrdinal(entry.EventID)
		if err != nil {
			p.journalFailure(ctx, entry, 0, err)
			continue
		}
		if ordinal <= p.watermark {
			break
		}

		p.logger.Debug("processing event",
			zap.Int64("log_id", ordinal),
			zap.String("event_id", entry.EventID),
		)

		kind, err := model.ParseKindToken(entry.Kind)
		if err != nil {
			p.journalFailure(ctx, entry, ordinal, err)
			continue
		}

		if entry.Module == nil {
			p.logger.Warn("no module provided", zap.Int64("log_id", ordinal))
			if err := p.notifier.Send(ctx, "Found event without a module"); err != nil {
				p.logger.Warn("notification failed", zap.Error(err))
			}
			continue
		}
		module := *entry.Module

		rec, handled, err := decodeEvent(module, kind, entry.Payload)
		if !handled {
			if knownModule(module) {
				p.logger.Warn("unrecognized event kind",
					zap.String("module", module),
					zap.String("kind", kind),
					zap.Int64("log_id", ordinal),
				)
			} else {
				// Alerting on unsupported modules is deliberately
				// suppressed; a warn log is the only trace.
				p.logger.Warn("unsupported module",
					zap.String("module", module),
					zap.Int64("log_id", ordinal),
				)
			}
			continue
		}
		if err != nil {
			p.decodeFailures++
			p.journalFailure(ctx, entry, ordinal, err)
			continue
		}

		ts, err := timestampFromMicros(entry.TimestampMicros)
		if err != nil {
			return fmt.Errorf("entry log_id %d: %w", ordinal, err)
		}

		meta := rowMeta{
			LogID:          ordinal,
			TS:             ts,
			FederationID:   p.fed.ID,
			FederationName: p.fed.Name,
			Epoch:          p.epoch,
		}
		if err := insertRecord(ctx, p.warehouse, rec, meta); err != nil {
			return err
		}
		// Counted only after the insert committed, so the summary never
		// claims events the store does not hold.
		p.counts.inc(rec.bucket())
	}

	p.logger.Info("federation complete",
		zap.Uint64("total_events", p.counts.total()),
		zap.Uint64("outgoing_started", p.counts[counterOutgoingStarted]),
		zap.Uint64("outgoing_succeeded", p.counts[counterOutgoingSucceeded]),
		zap.Uint64("outgoing_failed", p.counts[counterOutgoingFailed]),
		zap.Uint64("incoming_started", p.counts[counterIncomingStarted]),
		zap.Uint64("incoming_succeeded", p.counts[counterIncomingSucceeded]),
		zap.Uint64("incoming_failed", p.counts[counterIncomingFailed]),
		zap.Uint64("complete_lightning_payment_succeeded", p.counts[counterCompleteLightningPayment]),
		zap.Uint64("decode_failures", p.decodeFailures),
	)

	return nil
}

func (p *Processor) journalFailure(ctx context.Context, entry model.LogEntry, ordinal int64, cause error) {
	module := ""
	if entry.Module != nil {
		module = *entry.Module
	}

	p.logger.Warn("event not decodable",
		zap.Int64("log_id", ordinal),
		zap.String("event_id", entry.EventID),
		zap.String("kind", entry.Kind),
		zap.Error(cause),
	)

	failure := model.DecodeFailure{
		FederationID: p.fed.ID,
		LogOrdinal:   ordinal,
		Module:       module,
		Kind:         entry.Kind,
		Reason:       cause.Error(),
		Payload:      entry.Payload,
	}
	if err := p.warehouse.RecordDecodeFailure(ctx, failure); err != nil {
		p.logger.Warn("journal decode failure failed", zap.Error(err))
	}
}

// Summary renders the federation's block of the run report.
func (p *Processor) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Federation: %s\n", p.fed.Name)
	if p.fed.BalanceMsat != nil {
		fmt.Fprintf(&b, "Balance: %d sat\n", *p.fed.BalanceMsat/1000)
	}
	fmt.Fprintf(&b, "Outgoing Payments - Succeeded: %d, Failed: %d\n",
		p.counts[counterOutgoingSucceeded], p.counts[counterOutgoingFailed])
	fmt.Fprintf(&b, "Incoming Payments - Succeeded: %d, Failed: %d\n",
		p.counts[counterIncomingSucceeded], p.counts[counterIncomingFailed])
	if p.decodeFailures > 0 {
		fmt.Fprintf(&b, "Decode Failures: %d\n", p.decodeFailures)
	}
	b.WriteString("\n")
	return b.String()
}
