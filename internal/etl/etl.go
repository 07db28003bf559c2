package etl

import (
	"context"
	"time"

	"gatewayetl/internal/model"
)

// Gateway is the upstream payment gateway collaborator.
type Gateway interface {
	Info(ctx context.Context) (model.GatewayInfo, error)
	PaymentLog(ctx context.Context, federationID string) ([]model.LogEntry, error)
	PaymentSummary(ctx context.Context, start, end time.Time) (model.PaymentSummary, error)
}

// Warehouse is the relational store collaborator. Each event is inserted
// independently; no transaction spans multiple events.
type Warehouse interface {
	InsertRow(ctx context.Context, table string, columns []string, values []any) error
	MaxLogID(ctx context.Context, query string, args ...any) (int64, bool, error)
	RecordDecodeFailure(ctx context.Context, failure model.DecodeFailure) error
}

// Notifier forwards a plain-text message to the messaging collaborator.
// Failures are logged by callers, never propagated.
type Notifier interface {
	Send(ctx context.Context, text string) error
}
