// Package store is the relational sink. Postgres is the production
// backend; SQLite serves local runs and tests. Both accept the same
// $N-placeholder SQL.
package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/CHRISHLOH/tmdb-etl/internal/config"
	etlerrors "github.com/CHRISHLOH/tmdb-etl/internal/errors"
)

// Statement is one SQL statement with its bind arguments.
type Statement struct {
	SQL  string
	Args []any
}

// Tx is a write transaction. All writes of one load go through one Tx.
type Tx interface {
	// ExecBatch runs stmts in order, sending them in as few round trips as
	// the driver allows.
	ExecBatch(ctx context.Context, stmts []Statement) error
	// QueryBatch runs stmts that each return one generated id and returns
	// the ids in statement order.
	QueryBatch(ctx context.Context, stmts []Statement) ([]int64, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store is a migrated database.
type Store interface {
	Driver() string
	Migrate(ctx context.Context) error
	Begin(ctx context.Context) (Tx, error)
	// QueryKeys runs a query selecting (id, key) pairs.
	QueryKeys(ctx context.Context, query string, args ...any) (map[string]int64, error)
	// QueryIDs runs a query selecting a single id column.
	QueryIDs(ctx context.Context, query string, args ...any) ([]int64, error)
	Count(ctx context.Context, table string) (int64, error)
	Close() error
}

// Tables lists every table in dependency order.
var Tables = []string{
	"genres",
	"countries",
	"languages",
	"careers",
	"content",
	"movie_details",
	"series_details",
	"content_translations",
	"content_genres",
	"content_countries",
	"seasons",
	"season_translations",
	"episodes",
	"episode_translations",
	"persons",
	"person_translations",
	"person_careers",
	"person_countries",
}

// Open connects to the database configured in cfg.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.DatabaseURL, cfg.DatabaseSchema)
	case config.DriverSQLite:
		return OpenSQLite(cfg.DatabaseURL)
	default:
		return nil, etlerrors.NewConfigurationError("database.driver", "unknown driver "+cfg.DatabaseDriver)
	}
}

func countQuery(table string) (string, error) {
	if !slices.Contains(Tables, table) {
		return "", fmt.Errorf("unknown table %q", table)
	}
	return "SELECT COUNT(*) FROM " + table, nil
}

// WithTx runs fn in a transaction, committing when it returns nil.
func WithTx(ctx context.Context, s Store, fn func(Tx) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original: %w)", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}
