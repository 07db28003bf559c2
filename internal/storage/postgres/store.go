package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gatewayetl/internal/etl"
	"gatewayetl/internal/model"
)

//go:embed schema.sql
var schemaDDL string

// Schema returns the DDL for every table the ETL writes.
func Schema() string {
	return schemaDDL
}

// Store provides Postgres persistence for decoded payment events.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InsertRow executes one parameterized insert. Table and column names come
// from the fixed set defined by the event records, never from event data.
func (s *Store) InsertRow(ctx context.Context, table string, columns []string, values []any) error {
	_, err := s.pool.Exec(ctx, etl.BuildInsertSQL(table, columns), values...)
	return err
}

// MaxLogID runs an aggregate query expected to return a single nullable
// int8. The bool reports whether a value was present.
func (s *Store) MaxLogID(ctx context.Context, query string, args ...any) (int64, bool, error) {
	var max *int64
	row := s.pool.QueryRow(ctx, query, args...)
	if err := row.Scan(&max); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	if max == nil {
		return 0, false, nil
	}
	return *max, true, nil
}

// RecordDecodeFailure journals an undecodable entry for later replay.
func (s *Store) RecordDecodeFailure(ctx context.Context, failure model.DecodeFailure) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO etl_decode_failures (federation_id, log_id, module, kind, reason, payload, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
	`,
		failure.FederationID,
		failure.LogOrdinal,
		failure.Module,
		failure.Kind,
		failure.Reason,
		[]byte(failure.Payload),
	)
	return err
}
