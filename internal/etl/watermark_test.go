package etl

import (
	"strings"
	"testing"
)

func TestWatermarkQueryCoversAllTables(t *testing.T) {
	query := watermarkQuery(false)
	for _, table := range eventTables {
		if !strings.Contains(query, "FROM "+table+" WHERE") {
			t.Fatalf("watermark query misses table %s", table)
		}
	}
	if strings.Contains(query, "gateway_epoch") {
		t.Fatalf("epoch predicate present without epoch")
	}
}

func TestWatermarkQueryEpochPredicate(t *testing.T) {
	query := watermarkQuery(true)
	if got := strings.Count(query, "AND gateway_epoch = $2"); got != len(eventTables) {
		t.Fatalf("epoch predicate count mismatch: %d", got)
	}
}

// Every table an insert adapter can target must participate in the watermark
// union, otherwise a run could re-insert rows it already stored.
func TestEventRecordTablesMatchWatermark(t *testing.T) {
	records := []record{
		&LNv1OutgoingPaymentStarted{},
		&LNv1OutgoingPaymentSucceeded{},
		&LNv1OutgoingPaymentFailed{},
		&LNv1IncomingPaymentStarted{},
		&LNv1IncomingPaymentSucceeded{},
		&LNv1IncomingPaymentFailed{},
		&LNv1CompleteLightningPaymentSucceeded{},
		&LNv2OutgoingPaymentStarted{},
		&LNv2OutgoingPaymentSucceeded{},
		&LNv2OutgoingPaymentFailed{},
		&LNv2IncomingPaymentStarted{},
		&LNv2IncomingPaymentSucceeded{},
		&LNv2IncomingPaymentFailed{},
		&LNv2CompleteLightningPaymentSucceeded{},
	}

	watermarked := make(map[string]bool, len(eventTables))
	for _, table := range eventTables {
		watermarked[table] = true
	}

	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		if !watermarked[rec.table()] {
			t.Fatalf("table %s not covered by watermark", rec.table())
		}
		if seen[rec.table()] {
			t.Fatalf("table %s used by more than one record", rec.table())
		}
		seen[rec.table()] = true

		if len(rec.columns()) != len(rec.values()) {
			t.Fatalf("table %s: column/value arity mismatch", rec.table())
		}
	}

	if len(seen) != len(eventTables) {
		t.Fatalf("record tables (%d) do not cover watermark tables (%d)", len(seen), len(eventTables))
	}
}

func TestEveryDecoderBucketDispatches(t *testing.T) {
	if len(decoders) != 14 {
		t.Fatalf("expected 14 (module, kind) pairs, got %d", len(decoders))
	}
	for key := range decoders {
		if !knownModule(key.module) {
			t.Fatalf("decoder registered for unknown module %q", key.module)
		}
	}
}
