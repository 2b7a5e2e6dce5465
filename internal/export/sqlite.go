package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/dusk-indust/repograph/internal/extract"
	"github.com/dusk-indust/repograph/internal/graph"
)

// sqliteBatch bounds rows per INSERT to stay under SQLite's variable limit.
const sqliteBatch = 500

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		root TEXT PRIMARY KEY,
		local_path TEXT NOT NULL,
		started_at TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		units INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS facts (
		root TEXT NOT NULL,
		seq INTEGER NOT NULL,
		unit TEXT NOT NULL,
		kind TEXT NOT NULL,
		symbol TEXT NOT NULL,
		qualifier TEXT NOT NULL,
		original TEXT NOT NULL,
		line INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_facts_root_unit ON facts(root, unit)`,
	`CREATE TABLE IF NOT EXISTS edges (
		root TEXT NOT NULL,
		seq INTEGER NOT NULL,
		defining_unit TEXT NOT NULL,
		using_unit TEXT NOT NULL,
		kind TEXT NOT NULL,
		symbol TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_edges_root ON edges(root)`,
	`CREATE TABLE IF NOT EXISTS scan_errors (
		root TEXT NOT NULL,
		unit TEXT NOT NULL,
		message TEXT NOT NULL,
		line INTEGER NOT NULL
	)`,
}

// SQLiteSink stores results in a SQLite database file. Each write replaces
// the rows previously stored for the same root.
type SQLiteSink struct {
	Path string
}

// Name implements Sink.
func (s *SQLiteSink) Name() string { return "sqlite" }

// Write implements Sink.
func (s *SQLiteSink) Write(ctx context.Context, res *extract.Result) error {
	db, err := OpenSQLite(s.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"runs", "facts", "edges", "scan_errors"} {
		if _, err := sq.Delete(table).Where(sq.Eq{"root": res.Root}).RunWith(tx).ExecContext(ctx); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	_, err = sq.Insert("runs").
		Columns("root", "local_path", "started_at", "duration_ms", "units").
		Values(res.Root, res.LocalPath, res.StartedAt.UTC().Format(time.RFC3339), res.Duration.Milliseconds(), len(res.Units)).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if err := insertBatched(ctx, tx, len(res.Facts), func() sq.InsertBuilder {
		return sq.Insert("facts").Columns("root", "seq", "unit", "kind", "symbol", "qualifier", "original", "line")
	}, func(b sq.InsertBuilder, i int) sq.InsertBuilder {
		f := res.Facts[i]
		return b.Values(res.Root, i, f.Unit, string(f.Kind), f.Symbol, f.Qualifier, f.Original, f.Line)
	}); err != nil {
		return fmt.Errorf("insert facts: %w", err)
	}

	if err := insertBatched(ctx, tx, len(res.Edges), func() sq.InsertBuilder {
		return sq.Insert("edges").Columns("root", "seq", "defining_unit", "using_unit", "kind", "symbol")
	}, func(b sq.InsertBuilder, i int) sq.InsertBuilder {
		e := res.Edges[i]
		return b.Values(res.Root, i, e.Defining, e.Using, string(e.Kind), e.Symbol)
	}); err != nil {
		return fmt.Errorf("insert edges: %w", err)
	}

	if err := insertBatched(ctx, tx, len(res.ScanErrors), func() sq.InsertBuilder {
		return sq.Insert("scan_errors").Columns("root", "unit", "message", "line")
	}, func(b sq.InsertBuilder, i int) sq.InsertBuilder {
		se := res.ScanErrors[i]
		return b.Values(res.Root, se.Unit, se.Msg, se.Line)
	}); err != nil {
		return fmt.Errorf("insert scan errors: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertBatched(ctx context.Context, tx *sql.Tx, n int, start func() sq.InsertBuilder, add func(sq.InsertBuilder, int) sq.InsertBuilder) error {
	for lo := 0; lo < n; lo += sqliteBatch {
		hi := min(lo+sqliteBatch, n)
		b := start()
		for i := lo; i < hi; i++ {
			b = add(b, i)
		}
		if _, err := b.RunWith(tx).ExecContext(ctx); err != nil {
			return err
		}
	}
	return nil
}

// OpenSQLite opens (creating if needed) the database at path and ensures the
// schema exists.
func OpenSQLite(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, stmt := range append(pragmas, sqliteSchema...) {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
	}
	return db, nil
}

// ReadEdges returns the edges stored for root in insertion order.
func ReadEdges(ctx context.Context, db *sql.DB, root string) ([]graph.ResolvedEdge, error) {
	rows, err := sq.Select("defining_unit", "using_unit", "kind", "symbol").
		From("edges").
		Where(sq.Eq{"root": root}).
		OrderBy("seq").
		RunWith(db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()

	var out []graph.ResolvedEdge
	for rows.Next() {
		var e graph.ResolvedEdge
		var kind string
		if err := rows.Scan(&e.Defining, &e.Using, &kind, &e.Symbol); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		e.Kind = graph.FactKind(kind)
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountFacts returns the number of facts stored for root.
func CountFacts(ctx context.Context, db *sql.DB, root string) (int, error) {
	var n int
	err := sq.Select("COUNT(*)").
		From("facts").
		Where(sq.Eq{"root": root}).
		RunWith(db).
		QueryRowContext(ctx).
		Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count facts: %w", err)
	}
	return n, nil
}
