package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "modernc.org/sqlite"
)

var placeholder = regexp.MustCompile(`\$(\d+)`)

// rebind turns $N placeholders into SQLite's ?N form.
func rebind(query string) string {
	return placeholder.ReplaceAllString(query, "?$1")
}

// SQLite is a Store backed by a local SQLite file.
type SQLite struct {
	db     *sql.DB
	dbPath string
}

// OpenSQLite opens (creating if needed) the database at dbPath with foreign
// keys enforced. A "sqlite://" prefix is accepted.
func OpenSQLite(dbPath string) (*SQLite, error) {
	dbPath = strings.TrimPrefix(dbPath, "sqlite://")
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Writes are serialized through one connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open database %s: %w", dbPath, err)
	}
	return &SQLite{db: db, dbPath: dbPath}, nil
}

func (s *SQLite) Driver() string { return "sqlite" }

// Path returns the database file.
func (s *SQLite) Path() string { return s.dbPath }

func (s *SQLite) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx}, nil
}

func (s *SQLite) QueryKeys(ctx context.Context, query string, args ...any) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

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

func (s *SQLite) QueryIDs(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLite) Count(ctx context.Context, table string) (int64, error) {
	query, err := countQuery(table)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// sqliteTx prepares each distinct query once per batch. SQLite runs in
// process, so there are no round trips to save.
type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) prepare(ctx context.Context, cache map[string]*sql.Stmt, query string) (*sql.Stmt, error) {
	if stmt, ok := cache[query]; ok {
		return stmt, nil
	}
	stmt, err := t.tx.PrepareContext(ctx, rebind(query))
	if err != nil {
		return nil, err
	}
	cache[query] = stmt
	return stmt, nil
}

func closeAll(cache map[string]*sql.Stmt) {
	for _, stmt := range cache {
		_ = stmt.Close()
	}
}

func (t *sqliteTx) ExecBatch(ctx context.Context, stmts []Statement) error {
	cache := make(map[string]*sql.Stmt)
	defer closeAll(cache)

	for i, s := range stmts {
		stmt, err := t.prepare(ctx, cache, s.SQL)
		if err != nil {
			return fmt.Errorf("statement %d of batch: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, s.Args...); err != nil {
			return fmt.Errorf("statement %d of batch: %w", i, err)
		}
	}
	return nil
}

func (t *sqliteTx) QueryBatch(ctx context.Context, stmts []Statement) ([]int64, error) {
	cache := make(map[string]*sql.Stmt)
	defer closeAll(cache)

	ids := make([]int64, len(stmts))
	for i, s := range stmts {
		stmt, err := t.prepare(ctx, cache, s.SQL)
		if err != nil {
			return nil, fmt.Errorf("statement %d of batch: %w", i, err)
		}
		if err := stmt.QueryRowContext(ctx, s.Args...).Scan(&ids[i]); err != nil {
			return nil, fmt.Errorf("statement %d of batch: %w", i, err)
		}
	}
	return ids, nil
}

func (t *sqliteTx) Commit(context.Context) error   { return t.tx.Commit() }
func (t *sqliteTx) Rollback(context.Context) error { return t.tx.Rollback() }
