package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is the subset of pgxpool.Pool used for schema bootstrap.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// schemaStatements create the snapshot tables. Unique constraints back the
// insert-or-ignore writes in the writer package.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS vix_futures (
		id             BIGSERIAL PRIMARY KEY,
		ts             TIMESTAMPTZ NOT NULL,
		contract_month TEXT NOT NULL,
		price          NUMERIC(12, 4) NOT NULL,
		open_interest  BIGINT,
		volume         BIGINT,
		UNIQUE (ts, contract_month)
	)`,
	`CREATE TABLE IF NOT EXISTS vix_index (
		id    BIGSERIAL PRIMARY KEY,
		ts    TIMESTAMPTZ NOT NULL,
		value NUMERIC(12, 4) NOT NULL,
		UNIQUE (ts)
	)`,
	`CREATE INDEX IF NOT EXISTS vix_futures_month_ts_idx ON vix_futures (contract_month, ts DESC)`,
}

// EnsureSchema creates the snapshot tables if they do not exist.
func EnsureSchema(ctx context.Context, db Execer) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
