package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresMaxConns = 4

// Postgres is a Store backed by a pgx pool. Every connection has its
// search_path pinned to the configured schema.
type Postgres struct {
	pool   *pgxpool.Pool
	config *pgxpool.Config
	schema string
}

// OpenPostgres connects to dsn and creates schema if needed.
func OpenPostgres(ctx context.Context, dsn, schema string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	cfg.MaxConns = postgresMaxConns
	if schema != "" {
		cfg.ConnConfig.RuntimeParams["search_path"] = schema
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if schema != "" {
		if _, err := pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{schema}.Sanitize()); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create schema %s: %w", schema, err)
		}
	}

	slog.Debug("Connected to postgres", "host", cfg.ConnConfig.Host, "database", cfg.ConnConfig.Database, "schema", schema)
	return &Postgres{pool: pool, config: cfg, schema: schema}, nil
}

func (p *Postgres) Driver() string { return "postgres" }

// Begin starts a transaction on a single pooled connection.
func (p *Postgres) Begin(ctx context.Context) (Tx, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgTx{tx: tx}, nil
}

func (p *Postgres) QueryKeys(ctx context.Context, query string, args ...any) (map[string]int64, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[string]int64)
	for rows.Next() {
		var (
			id  int64
			key string
		)
		if err := rows.Scan(&id, &key); err != nil {
			return nil, err
		}
		keys[key] = id
	}
	return keys, rows.Err()
}

func (p *Postgres) QueryIDs(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (p *Postgres) Count(ctx context.Context, table string) (int64, error) {
	query, err := countQuery(table)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := p.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

type pgTx struct {
	tx pgx.Tx
}

// ExecBatch queues every statement into one pgx.Batch.
func (t *pgTx) ExecBatch(ctx context.Context, stmts []Statement) error {
	if len(stmts) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, s := range stmts {
		b.Queue(s.SQL, s.Args...)
	}

	br := t.tx.SendBatch(ctx, b)
	for i := range stmts {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("statement %d of batch: %w", i, err)
		}
	}
	return br.Close()
}

// QueryBatch queues every statement into one pgx.Batch and reads back the
// RETURNING id of each, so generated keys cost no extra round trips.
func (t *pgTx) QueryBatch(ctx context.Context, stmts []Statement) ([]int64, error) {
	if len(stmts) == 0 {
		return nil, nil
	}
	b := &pgx.Batch{}
	for _, s := range stmts {
		b.Queue(s.SQL, s.Args...)
	}

	ids := make([]int64, len(stmts))
	br := t.tx.SendBatch(ctx, b)
	for i := range stmts {
		if err := br.QueryRow().Scan(&ids[i]); err != nil {
			_ = br.Close()
			return nil, fmt.Errorf("statement %d of batch: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (t *pgTx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *pgTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }
