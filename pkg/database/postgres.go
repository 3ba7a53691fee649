package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"techlight-support/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id               UUID PRIMARY KEY,
	user_id          UUID NOT NULL,
	user_name        TEXT NOT NULL,
	user_email       TEXT NOT NULL,
	user_phone       TEXT,
	subject          TEXT NOT NULL,
	category         TEXT NOT NULL,
	status           TEXT NOT NULL,
	assigned_to      UUID,
	assigned_to_name TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL,
	last_message_at  TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_conversations_status ON conversations (status);
CREATE INDEX IF NOT EXISTS idx_conversations_assigned_to ON conversations (assigned_to);
CREATE INDEX IF NOT EXISTS idx_conversations_last_message_at ON conversations (last_message_at DESC NULLS LAST);

CREATE TABLE IF NOT EXISTS messages (
	id              UUID PRIMARY KEY,
	conversation_id UUID NOT NULL REFERENCES conversations(id),
	seq             BIGINT NOT NULL,
	sender_id       UUID NOT NULL,
	sender_name     TEXT NOT NULL,
	sender_role     TEXT NOT NULL,
	body            TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	UNIQUE (conversation_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation_seq ON messages (conversation_id, seq);
`

// Connect opens a pgx connection pool against the configured database.
func Connect(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolCfg.MaxConns = 20
	poolCfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Migrate applies the coordinator schema. Statements are idempotent so
// this is safe to run on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
