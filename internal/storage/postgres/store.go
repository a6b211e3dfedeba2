// Package postgres provides Postgres-backed persistence implementations.
//
// Expected schema:
//
//	CREATE TABLE sources (
//		id UUID PRIMARY KEY,
//		name TEXT NOT NULL,
//		url TEXT NOT NULL,
//		category TEXT NOT NULL DEFAULT '',
//		active BOOLEAN NOT NULL DEFAULT TRUE
//	);
//
//	CREATE TABLE snapshots (
//		id UUID PRIMARY KEY,
//		source_id UUID NOT NULL REFERENCES sources(id),
//		content BYTEA NOT NULL DEFAULT '',
//		fingerprint TEXT NOT NULL DEFAULT '',
//		outcome TEXT NOT NULL,
//		http_status INT,
//		error_message TEXT NOT NULL DEFAULT '',
//		blob_uri TEXT NOT NULL DEFAULT '',
//		fetched_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX snapshots_source_fetched ON snapshots (source_id, fetched_at DESC);
//
//	CREATE TABLE change_events (
//		id UUID PRIMARY KEY,
//		source_id UUID NOT NULL REFERENCES sources(id),
//		before_snapshot_id UUID REFERENCES snapshots(id),
//		after_snapshot_id UUID NOT NULL REFERENCES snapshots(id),
//		summary TEXT NOT NULL,
//		tags JSONB NOT NULL DEFAULT '[]',
//		doc_status TEXT NOT NULL DEFAULT 'unknown',
//		effective_date DATE,
//		needs_review BOOLEAN NOT NULL DEFAULT TRUE,
//		reviewed_at TIMESTAMPTZ,
//		detected_at TIMESTAMPTZ NOT NULL,
//		UNIQUE (source_id, after_snapshot_id)
//	);
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolConfig controls the shared Postgres connection pool.
type PoolConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// dbPool is the slice of pgxpool.Pool the stores depend on; pgxmock
// satisfies it for tests.
type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// NewPool creates a pgx connection pool from config. The pool is safe for
// concurrent use, so all three stores and every runner worker share it.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}
