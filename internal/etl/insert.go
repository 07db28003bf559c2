package etl

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// rowMeta is the context every inserted row carries alongside its decoded
// payload columns.
type rowMeta struct {
	LogID          int64
	TS             time.Time
	FederationID   string
	FederationName string
	Epoch          *int32
}

// insertRecord renders and executes exactly one parameterized insert for a
// decoded record. Ordinals are unique per table by construction of the
// watermark check, so this is a plain insert: a constraint violation means
// the operational single-runner precondition was broken and surfaces as a
// hard error.
func insertRecord(ctx context.Context, warehouse Warehouse, rec record, meta rowMeta) error {
	columns := []string{"log_id", "ts", "federation_id", "federation_name"}
	values := []any{meta.LogID, meta.TS, meta.FederationID, meta.FederationName}
	if meta.Epoch != nil {
		columns = append(columns, "gateway_epoch")
		values = append(values, *meta.Epoch)
	}
	columns = append(columns, rec.columns()...)
	values = append(values, rec.values()...)

	if err := warehouse.InsertRow(ctx, rec.table(), columns, values); err != nil {
		return fmt.Errorf("insert %s log_id %d: %w", rec.table(), meta.LogID, err)
	}
	return nil
}

// BuildInsertSQL renders a parameterized INSERT statement. Table and column
// names come from the closed set defined by the event records, never from
// input data.
func BuildInsertSQL(table string, columns []string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)
}
