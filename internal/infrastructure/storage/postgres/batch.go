package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// copyThreshold is the row count from which COPY beats a multi-row INSERT.
const copyThreshold = 16

// BatchInserter writes many rows of one table in one round trip.
// Large batches inside a transaction use the COPY protocol, everything else
// a single multi-row INSERT.
type BatchInserter struct {
	txManager *TxManager
}

// NewBatchInserter creates a new batch inserter.
func NewBatchInserter(txManager *TxManager) *BatchInserter {
	return &BatchInserter{txManager: txManager}
}

// InsertRows inserts rows (each matching columns) into table.
func (b *BatchInserter) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	if tx := b.txManager.GetTx(ctx); tx != nil && len(rows) >= copyThreshold {
		n, err := tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
		if err != nil {
			return 0, fmt.Errorf("copy into %s: %w", table, err)
		}
		return n, nil
	}

	q := Builder().Insert(table).Columns(columns...)
	for _, row := range rows {
		q = q.Values(row...)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}
	tag, err := b.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("insert into %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}
