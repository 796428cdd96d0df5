// Package loader writes transformed row sets into the store. A Plan lists
// one Step per table in dependency order; steps whose rows feed a later
// table's foreign key capture the generated ids as they insert.
package loader

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/CHRISHLOH/tmdb-etl/internal/metrics"
	"github.com/CHRISHLOH/tmdb-etl/internal/store"
)

// DefaultChunkSize is the number of rows sent per batch.
const DefaultChunkSize = 1000

// Step upserts the rows of one table.
type Step struct {
	Table string
	SQL   string
	Rows  int
	// Args returns the bind arguments of row i. ok is false when the row's
	// parent key was never generated; the row is dropped and counted.
	Args func(i int) (args []any, ok bool)
	// Returning, when set, receives the id generated for row i. Steps with
	// Returning run their chunks through Tx.QueryBatch.
	Returning func(i int, id int64)
}

// Plan is an ordered list of steps loaded in one transaction.
type Plan struct {
	Name  string
	Steps []Step
}

// TableReport counts the outcome of one step.
type TableReport struct {
	Table   string `yaml:"table"`
	Loaded  int    `yaml:"loaded"`
	Dropped int    `yaml:"dropped"`
}

// Report is the outcome of a committed plan.
type Report struct {
	Plan   string        `yaml:"plan"`
	Tables []TableReport `yaml:"tables"`
}

// Loaded returns the number of rows written across all tables.
func (r Report) Loaded() int {
	n := 0
	for _, t := range r.Tables {
		n += t.Loaded
	}
	return n
}

// Dropped returns the number of child rows dropped for a missing parent.
func (r Report) Dropped() int {
	n := 0
	for _, t := range r.Tables {
		n += t.Dropped
	}
	return n
}

// Table returns the report of one table, zero when it was not part of the plan.
func (r Report) Table(name string) TableReport {
	for _, t := range r.Tables {
		if t.Table == name {
			return t
		}
	}
	return TableReport{Table: name}
}

// Loader runs plans against a store.
type Loader struct {
	store     store.Store
	chunkSize int
}

// New creates a loader. chunkSize <= 0 selects DefaultChunkSize.
func New(s store.Store, chunkSize int) *Loader {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Loader{store: s, chunkSize: chunkSize}
}

// Load runs every step of plan inside a single transaction. Any failed
// chunk rolls back the whole plan and nothing of it is reported as loaded.
func (l *Loader) Load(ctx context.Context, plan Plan) (Report, error) {
	report := Report{Plan: plan.Name}

	err := store.WithTx(ctx, l.store, func(tx store.Tx) error {
		for _, step := range plan.Steps {
			tr, err := l.loadStep(ctx, tx, step)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", step.Table, err)
			}
			report.Tables = append(report.Tables, tr)
		}
		return nil
	})
	if err != nil {
		return Report{Plan: plan.Name}, fmt.Errorf("%s load rolled back: %w", plan.Name, err)
	}

	for _, t := range report.Tables {
		metrics.RowsLoaded.WithLabelValues(t.Table).Add(float64(t.Loaded))
		if t.Dropped > 0 {
			metrics.RowsDropped.WithLabelValues(t.Table).Add(float64(t.Dropped))
			slog.Warn("Dropped rows with missing parent", "plan", plan.Name, "table", t.Table, "dropped", t.Dropped)
		}
	}
	slog.Info("Loaded rows",
		"plan", plan.Name,
		"rows", humanize.Comma(int64(report.Loaded())),
		"dropped", report.Dropped(),
	)
	return report, nil
}

func (l *Loader) loadStep(ctx context.Context, tx store.Tx, step Step) (TableReport, error) {
	tr := TableReport{Table: step.Table}

	stmts := make([]store.Statement, 0, min(step.Rows, l.chunkSize))
	rows := make([]int, 0, cap(stmts))

	flush := func() error {
		if len(stmts) == 0 {
			return nil
		}
		if step.Returning == nil {
			if err := tx.ExecBatch(ctx, stmts); err != nil {
				return err
			}
		} else {
			ids, err := tx.QueryBatch(ctx, stmts)
			if err != nil {
				return err
			}
			for j, id := range ids {
				step.Returning(rows[j], id)
			}
		}
		tr.Loaded += len(stmts)
		stmts = stmts[:0]
		rows = rows[:0]
		return nil
	}

	for i := range step.Rows {
		args, ok := step.Args(i)
		if !ok {
			tr.Dropped++
			continue
		}
		stmts = append(stmts, store.Statement{SQL: step.SQL, Args: args})
		rows = append(rows, i)
		if len(stmts) == l.chunkSize {
			if err := flush(); err != nil {
				return tr, err
			}
		}
	}
	if err := flush(); err != nil {
		return tr, err
	}

	slog.Debug("Loaded table", "table", step.Table, "rows", tr.Loaded, "dropped", tr.Dropped)
	return tr, nil
}
