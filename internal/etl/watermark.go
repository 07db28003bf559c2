package etl

import (
	"context"
	"fmt"
	"strings"
)

// eventTables lists every kind-table the watermark spans. The watermark is a
// property of what is already durably stored, not a separately tracked
// cursor, so it is derived fresh from the union of all of these each run.
var eventTables = []string{
	"lnv1_outgoing_payment_started",
	"lnv1_outgoing_payment_succeeded",
	"lnv1_outgoing_payment_failed",
	"lnv1_incoming_payment_started",
	"lnv1_incoming_payment_succeeded",
	"lnv1_incoming_payment_failed",
	"lnv1_complete_lightning_payment_succeeded",
	"lnv2_outgoing_payment_started",
	"lnv2_outgoing_payment_succeeded",
	"lnv2_outgoing_payment_failed",
	"lnv2_incoming_payment_started",
	"lnv2_incoming_payment_succeeded",
	"lnv2_incoming_payment_failed",
	"lnv2_complete_lightning_payment_succeeded",
}

// watermarkQuery renders the MAX(log_id) union query scoped to a federation,
// and to a gateway epoch when the deployment partitions by epoch.
func watermarkQuery(withEpoch bool) string {
	predicate := "federation_id = $1"
	if withEpoch {
		predicate += " AND gateway_epoch = $2"
	}

	selects := make([]string, len(eventTables))
	for i, table := range eventTables {
		selects[i] = fmt.Sprintf("SELECT log_id FROM %s WHERE %s", table, predicate)
	}

	return fmt.Sprintf(
		"SELECT MAX(log_id) FROM (%s) AS combined_log_ids",
		strings.Join(selects, " UNION ALL "),
	)
}

// resolveWatermark returns the highest log ordinal already stored for the
// federation (and epoch when set), or 0 when nothing is stored yet, meaning
// the entire history is processed.
func resolveWatermark(ctx context.Context, warehouse Warehouse, federationID string, epoch *int32) (int64, error) {
	args := []any{federationID}
	if epoch != nil {
		args = append(args, *epoch)
	}

	max, ok, err := warehouse.MaxLogID(ctx, watermarkQuery(epoch != nil), args...)
	if err != nil {
		return 0, fmt.Errorf("resolve watermark: %w", err)
	}
	if !ok {
		return 0, nil
	}
	return max, nil
}
