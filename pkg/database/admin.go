package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TableExists reports whether a table is present in the public schema.
func TableExists(ctx context.Context, pool *pgxpool.Pool, table string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1)`,
		table,
	).Scan(&exists)
	return exists, err
}

// TableCount returns the number of rows in a table.
func TableCount(ctx context.Context, pool *pgxpool.Pool, table string) (int64, error) {
	var count int64
	err := pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&count)
	return count, err
}

// Reset drops every coordinator table. Destructive; tooling only.
func Reset(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `DROP TABLE IF EXISTS messages, conversations CASCADE`)
	if err != nil {
		return fmt.Errorf("drop tables: %w", err)
	}
	return nil
}

// Truncate empties every coordinator table. Destructive; tooling only.
func Truncate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `TRUNCATE messages, conversations CASCADE`)
	if err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}
