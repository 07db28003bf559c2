package etl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gatewayetl/internal/model"
)

type fakeGateway struct {
	info       model.GatewayInfo
	logs       map[string][]model.LogEntry
	summary    model.PaymentSummary
	summaryErr error
	logErr     error
}

func (f *fakeGateway) Info(_ context.Context) (model.GatewayInfo, error) {
	return f.info, nil
}

func (f *fakeGateway) PaymentLog(_ context.Context, federationID string) ([]model.LogEntry, error) {
	if f.logErr != nil {
		return nil, f.logErr
	}
	return f.logs[federationID], nil
}

func (f *fakeGateway) PaymentSummary(_ context.Context, _, _ time.Time) (model.PaymentSummary, error) {
	if f.summaryErr != nil {
		return model.PaymentSummary{}, f.summaryErr
	}
	return f.summary, nil
}

type insertedRow struct {
	table   string
	columns []string
	values  []any
}

func (r insertedRow) value(column string) (any, bool) {
	for i, c := range r.columns {
		if c == column {
			return r.values[i], true
		}
	}
	return nil, false
}

type fakeWarehouse struct {
	rows      []insertedRow
	failures  []model.DecodeFailure
	insertErr error
}

func (f *fakeWarehouse) InsertRow(_ context.Context, table string, columns []string, values []any) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.rows = append(f.rows, insertedRow{table: table, columns: columns, values: values})
	return nil
}

// MaxLogID mirrors the union query against the captured rows: the maximum
// log_id across every table scoped to the federation in args[0].
func (f *fakeWarehouse) MaxLogID(_ context.Context, _ string, args ...any) (int64, bool, error) {
	var max int64
	found := false
	for _, row := range f.rows {
		if fed, ok := row.value("federation_id"); ok && len(args) > 0 && fed != args[0] {
			continue
		}
		logID, ok := row.value("log_id")
		if !ok {
			continue
		}
		if id := logID.(int64); !found || id > max {
			max = id
			found = true
		}
	}
	return max, found, nil
}

func (f *fakeWarehouse) RecordDecodeFailure(_ context.Context, failure model.DecodeFailure) error {
	f.failures = append(f.failures, failure)
	return nil
}

type fakeNotifier struct {
	messages []string
	err      error
}

func (f *fakeNotifier) Send(_ context.Context, text string) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, text)
	return nil
}

const testTimestampMicros = 1_700_000_000_000_000

func logEntry(ordinal int64, module, kind, payload string) model.LogEntry {
	entry := model.LogEntry{
		EventID:         fmt.Sprintf("EventLogId(%d)", ordinal),
		Kind:            fmt.Sprintf("EventKind(%q)", kind),
		TimestampMicros: testTimestampMicros,
		Payload:         json.RawMessage(payload),
	}
	if module != "" {
		entry.Module = &module
	}
	return entry
}

func testFederation() model.FederationDescriptor {
	return model.FederationDescriptor{ID: "fed1", Name: "Test Federation"}
}

func newTestProcessor(t *testing.T, gw *fakeGateway, warehouse *fakeWarehouse, notifier *fakeNotifier, epoch *int32) *Processor {
	t.Helper()
	p, err := NewProcessor(context.Background(), testFederation(), epoch, gw, warehouse, notifier, zap.NewNop())
	require.NoError(t, err)
	return p
}

func TestProcessorRoundTripIncomingStarted(t *testing.T) {
	gw := &fakeGateway{logs: map[string][]model.LogEntry{
		"fed1": {
			logEntry(5, "ln", "incoming-payment-started",
				`{"contract_id":"c1","contract_amount":1000,"invoice_amount":1010,"operation_id":"op1","payment_hash":"h1"}`),
		},
	}}
	warehouse := &fakeWarehouse{}
	notifier := &fakeNotifier{}

	p := newTestProcessor(t, gw, warehouse, notifier, nil)
	require.NoError(t, p.Process(context.Background()))

	require.Len(t, warehouse.rows, 1)
	row := warehouse.rows[0]
	require.Equal(t, "lnv1_incoming_payment_started", row.table)

	logID, _ := row.value("log_id")
	require.Equal(t, int64(5), logID)

	ts, _ := row.value("ts")
	require.Equal(t, time.UnixMicro(testTimestampMicros).UTC(), ts)

	contractAmount, _ := row.value("contract_amount")
	require.Equal(t, int64(1000), contractAmount)

	invoiceAmount, _ := row.value("invoice_amount")
	require.Equal(t, int64(1010), invoiceAmount)

	fedName, _ := row.value("federation_name")
	require.Equal(t, "Test Federation", fedName)

	_, hasEpoch := row.value("gateway_epoch")
	require.False(t, hasEpoch, "epoch column must be absent when not partitioning")

	require.Equal(t, uint64(1), p.counts[counterIncomingStarted])
}

func TestProcessorEarlyExitAtWatermark(t *testing.T) {
	warehouse := &fakeWarehouse{rows: []insertedRow{{
		table:   "lnv1_incoming_payment_succeeded",
		columns: []string{"log_id", "federation_id"},
		values:  []any{int64(10), "fed1"},
	}}}

	// Entries at or below the watermark carry payloads that would fail
	// decoding, so touching them would show up as journaled failures.
	gw := &fakeGateway{logs: map[string][]model.LogEntry{
		"fed1": {
			logEntry(12, "ln", "incoming-payment-succeeded", `{"payment_hash":"h12","preimage":"p12"}`),
			logEntry(11, "ln", "incoming-payment-succeeded", `{"payment_hash":"h11","preimage":"p11"}`),
			logEntry(10, "ln", "incoming-payment-succeeded", `not even json`),
			logEntry(9, "ln", "incoming-payment-succeeded", `not even json`),
		},
	}}
	notifier := &fakeNotifier{}

	p := newTestProcessor(t, gw, warehouse, notifier, nil)
	require.Equal(t, int64(10), p.watermark)
	require.NoError(t, p.Process(context.Background()))

	require.Len(t, warehouse.rows, 3) // the seeded row plus ordinals 12 and 11
	require.Empty(t, warehouse.failures)
	require.Equal(t, uint64(2), p.counts[counterIncomingSucceeded])
}

func TestProcessorIdempotence(t *testing.T) {
	entries := []model.LogEntry{
		logEntry(7, "lnv2", "incoming-payment-succeeded", `{"payment_image":"img7","preimage":"p7"}`),
		logEntry(6, "ln", "complete-lightning-payment-succeeded", `{"payment_hash":"h6"}`),
	}
	gw := &fakeGateway{logs: map[string][]model.LogEntry{"fed1": entries}}
	warehouse := &fakeWarehouse{}
	notifier := &fakeNotifier{}

	first := newTestProcessor(t, gw, warehouse, notifier, nil)
	require.NoError(t, first.Process(context.Background()))
	require.Len(t, warehouse.rows, 2)

	// Second run with no new upstream entries: the watermark now reflects
	// what the first run stored, so nothing is touched.
	second := newTestProcessor(t, gw, warehouse, notifier, nil)
	require.Equal(t, int64(7), second.watermark)
	require.NoError(t, second.Process(context.Background()))

	require.Len(t, warehouse.rows, 2)
	require.Equal(t, uint64(0), second.counts.total())
}

func TestProcessorWatermarkMonotonicity(t *testing.T) {
	gw := &fakeGateway{logs: map[string][]model.LogEntry{
		"fed1": {logEntry(42, "ln", "incoming-payment-succeeded", `{"payment_hash":"h","preimage":"p"}`)},
	}}
	warehouse := &fakeWarehouse{}
	notifier := &fakeNotifier{}

	first := newTestProcessor(t, gw, warehouse, notifier, nil)
	require.NoError(t, first.Process(context.Background()))

	second := newTestProcessor(t, gw, warehouse, notifier, nil)
	require.GreaterOrEqual(t, second.watermark, int64(42))
}

func TestProcessorModuleAbsentNotifies(t *testing.T) {
	gw := &fakeGateway{logs: map[string][]model.LogEntry{
		"fed1": {
			logEntry(3, "", "incoming-payment-succeeded", `{}`),
			logEntry(2, "ln", "incoming-payment-succeeded", `{"payment_hash":"h2","preimage":"p2"}`),
		},
	}}
	warehouse := &fakeWarehouse{}
	notifier := &fakeNotifier{}

	p := newTestProcessor(t, gw, warehouse, notifier, nil)
	require.NoError(t, p.Process(context.Background()))

	require.Equal(t, []string{"Found event without a module"}, notifier.messages)
	require.Len(t, warehouse.rows, 1, "processing continues past the moduleless entry")
}

func TestProcessorSoftSkips(t *testing.T) {
	gw := &fakeGateway{logs: map[string][]model.LogEntry{
		"fed1": {
			logEntry(5, "mint", "note-issued", `{}`),
			logEntry(4, "ln", "channel-opened", `{}`),
			logEntry(3, "ln", "incoming-payment-succeeded", `{"payment_hash":"h3","preimage":"p3"}`),
		},
	}}
	warehouse := &fakeWarehouse{}
	notifier := &fakeNotifier{}

	p := newTestProcessor(t, gw, warehouse, notifier, nil)
	require.NoError(t, p.Process(context.Background()))

	require.Len(t, warehouse.rows, 1)
	require.Empty(t, warehouse.failures)
	require.Empty(t, notifier.messages)
	require.Equal(t, uint64(1), p.counts.total())
}

func TestProcessorDecodeFailureJournaledAndSkipped(t *testing.T) {
	gw := &fakeGateway{logs: map[string][]model.LogEntry{
		"fed1": {
			logEntry(9, "ln", "incoming-payment-succeeded", `{"payment_hash":"h9"}`), // preimage missing
			logEntry(8, "ln", "incoming-payment-succeeded", `{"payment_hash":"h8","preimage":"p8"}`),
		},
	}}
	warehouse := &fakeWarehouse{}
	notifier := &fakeNotifier{}

	p := newTestProcessor(t, gw, warehouse, notifier, nil)
	require.NoError(t, p.Process(context.Background()))

	require.Len(t, warehouse.failures, 1)
	failure := warehouse.failures[0]
	require.Equal(t, "fed1", failure.FederationID)
	require.Equal(t, int64(9), failure.LogOrdinal)
	require.Equal(t, "ln", failure.Module)
	require.NotEmpty(t, failure.Reason)

	require.Len(t, warehouse.rows, 1, "the decodable entry is still inserted")
	require.Equal(t, uint64(1), p.decodeFailures)
}

func TestProcessorMalformedTokensJournaled(t *testing.T) {
	bad := logEntry(9, "ln", "incoming-payment-succeeded", `{"payment_hash":"h","preimage":"p"}`)
	bad.EventID = "garbage"

	gw := &fakeGateway{logs: map[string][]model.LogEntry{
		"fed1": {
			bad,
			logEntry(8, "ln", "incoming-payment-succeeded", `{"payment_hash":"h8","preimage":"p8"}`),
		},
	}}
	warehouse := &fakeWarehouse{}
	notifier := &fakeNotifier{}

	p := newTestProcessor(t, gw, warehouse, notifier, nil)
	require.NoError(t, p.Process(context.Background()))

	require.Len(t, warehouse.failures, 1)
	require.Len(t, warehouse.rows, 1)
}

func TestProcessorInsertErrorIsFatal(t *testing.T) {
	gw := &fakeGateway{logs: map[string][]model.LogEntry{
		"fed1": {logEntry(5, "ln", "incoming-payment-succeeded", `{"payment_hash":"h","preimage":"p"}`)},
	}}
	warehouse := &fakeWarehouse{insertErr: errors.New("duplicate key value violates unique constraint")}
	notifier := &fakeNotifier{}

	p := newTestProcessor(t, gw, warehouse, notifier, nil)
	err := p.Process(context.Background())
	require.Error(t, err)
	require.Equal(t, uint64(0), p.counts.total(), "failed insert must not be counted")
}

func TestProcessorEpochThreadedThroughInserts(t *testing.T) {
	epoch := int32(3)
	gw := &fakeGateway{logs: map[string][]model.LogEntry{
		"fed1": {logEntry(5, "ln", "incoming-payment-succeeded", `{"payment_hash":"h","preimage":"p"}`)},
	}}
	warehouse := &fakeWarehouse{}
	notifier := &fakeNotifier{}

	p := newTestProcessor(t, gw, warehouse, notifier, &epoch)
	require.NoError(t, p.Process(context.Background()))

	require.Len(t, warehouse.rows, 1)
	got, ok := warehouse.rows[0].value("gateway_epoch")
	require.True(t, ok)
	require.Equal(t, int32(3), got)
}

func TestProcessorMissingFederationName(t *testing.T) {
	_, err := NewProcessor(
		context.Background(),
		model.FederationDescriptor{ID: "fed1"},
		nil,
		&fakeGateway{},
		&fakeWarehouse{},
		&fakeNotifier{},
		zap.NewNop(),
	)
	require.Error(t, err)
}

func TestProcessorSummaryRendering(t *testing.T) {
	gw := &fakeGateway{logs: map[string][]model.LogEntry{
		"fed1": {
			logEntry(4, "ln", "incoming-payment-succeeded", `{"payment_hash":"h4","preimage":"p4"}`),
			logEntry(3, "ln", "incoming-payment-failed", `{"payment_hash":"h3","error":"expired"}`),
			logEntry(2, "lnv2", "incoming-payment-succeeded", `{"payment_image":"img2","preimage":"p2"}`),
		},
	}}
	warehouse := &fakeWarehouse{}
	notifier := &fakeNotifier{}

	fed := testFederation()
	balance := uint64(123_456)
	fed.BalanceMsat = &balance

	p, err := NewProcessor(context.Background(), fed, nil, gw, warehouse, notifier, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, p.Process(context.Background()))

	summary := p.Summary()
	require.Contains(t, summary, "Federation: Test Federation\n")
	require.Contains(t, summary, "Balance: 123 sat\n")
	require.Contains(t, summary, "Incoming Payments - Succeeded: 2, Failed: 1\n")
	require.Contains(t, summary, "Outgoing Payments - Succeeded: 0, Failed: 0\n")
	require.NotContains(t, summary, "Decode Failures")
}
