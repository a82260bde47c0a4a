// Package db provides shared Postgres helpers for pooled access, transactions
// and bulk loading.
package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// CopyFrom bulk-inserts rows into a table, optionally schema-qualified
// ("finprofile.financial_facts"), using the COPY protocol.
func CopyFrom(ctx context.Context, q Querier, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := q.CopyFrom(ctx, identifier(table), columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", table)
	}
	return n, nil
}

// CopyInBatches splits rows into chunks of batchSize and copies each chunk in
// turn. Returns the total number of rows copied.
func CopyInBatches(ctx context.Context, q Querier, table string, columns []string, rows [][]any, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = len(rows)
	}

	var total int64
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))
		n, err := CopyFrom(ctx, q, table, columns, rows[start:end])
		if err != nil {
			return total, eris.Wrapf(err, "db: batch starting at row %d", start)
		}
		total += n
	}
	return total, nil
}
