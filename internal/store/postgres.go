package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mejo-sal/pinable/internal/domain/order"
)

// PostgresBackend persists the correlation map in the order_correlations
// table. Save rewrites the whole table in one transaction, matching the
// file backend's whole-snapshot semantics.
//
// Schema:
//
//	CREATE TABLE order_correlations (
//	    order_id      TEXT PRIMARY KEY,
//	    phone         TEXT NOT NULL,
//	    customer_name TEXT NOT NULL DEFAULT '',
//	    recorded_at   TIMESTAMPTZ NOT NULL
//	);
type PostgresBackend struct {
	pool *pgxpool.Pool
}

func NewPostgresBackend(pool *pgxpool.Pool) *PostgresBackend {
	return &PostgresBackend{pool: pool}
}

func (b *PostgresBackend) Load(ctx context.Context) (map[string]order.Correlation, error) {
	const sql = `
		SELECT order_id, phone, COALESCE(customer_name, ''), recorded_at
		FROM order_correlations
	`

	rows, err := b.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("query correlations: %w", err)
	}
	defer rows.Close()

	data := map[string]order.Correlation{}
	for rows.Next() {
		var id string
		var c order.Correlation
		if err := rows.Scan(&id, &c.Phone, &c.Name, &c.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan correlation: %w", err)
		}
		data[id] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read correlations: %w", err)
	}

	return data, nil
}

func (b *PostgresBackend) Save(ctx context.Context, data map[string]order.Correlation) error {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM order_correlations`); err != nil {
		return fmt.Errorf("clear correlations: %w", err)
	}

	batch := &pgx.Batch{}
	for id, c := range data {
		batch.Queue(
			`INSERT INTO order_correlations (order_id, phone, customer_name, recorded_at)
			 VALUES ($1, $2, $3, $4)`,
			id, c.Phone, c.Name, c.RecordedAt,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert correlations: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
