// Package indexdb exports the workspace index to a SQLite database so that
// symbols and include edges can be queried outside the server.
package indexdb

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"go.lsp.dev/uri"

	// Registers the pure Go "sqlite" driver.
	_ "modernc.org/sqlite"

	"github.com/yaklabco/pawnls/pkg/source"
	"github.com/yaklabco/pawnls/pkg/symbols"
	"github.com/yaklabco/pawnls/pkg/workspace"
)

//go:embed schema.sql
var schema string

// Memory names a private in-memory database.
const Memory = ":memory:"

// ErrEmptyName is returned by Lookup for an empty name.
var ErrEmptyName = errors.New("empty symbol name")

// DB is an index database.
type DB struct {
	db *sqlx.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(ctx context.Context, path string) (*DB, error) {
	if path != Memory && !filepath.IsAbs(path) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", path, err)
		}
		path = abs
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index database: %w", err)
	}
	// Every connection to ":memory:" is a database of its own.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize index database: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// FileRow is a row of the files table.
type FileRow struct {
	ID          int64  `db:"id"`
	URI         string `db:"uri"`
	Path        string `db:"path"`
	Symbols     int    `db:"symbols"`
	Diagnostics int    `db:"diagnostics"`
}

// SymbolRow is a row of the symbols table joined with its file.
type SymbolRow struct {
	ID         int64  `db:"id"`
	FileID     int64  `db:"file_id"`
	URI        string `db:"uri"`
	Name       string `db:"name"`
	Qualified  string `db:"qualified"`
	Kind       string `db:"kind"`
	Parent     string `db:"parent"`
	Type       string `db:"type"`
	Detail     string `db:"detail"`
	Doc        string `db:"doc"`
	Exported   bool   `db:"exported"`
	Deprecated bool   `db:"deprecated"`
	Line       int    `db:"line"`
	Col        int    `db:"col"`
	EndLine    int    `db:"end_line"`
	EndCol     int    `db:"end_col"`
}

// Location renders the row as path:line:col.
func (r SymbolRow) Location() string {
	return fmt.Sprintf("%s:%d:%d", source.Path(uri.URI(r.URI)), r.Line, r.Col)
}

// IncludeRow is a row of the includes table.
type IncludeRow struct {
	FileID    int64  `db:"file_id"`
	Path      string `db:"path"`
	TargetURI string `db:"target_uri"`
	Optional  bool   `db:"optional"`
	Line      int    `db:"line"`
}

// Stats counts what an export wrote.
type Stats struct {
	Files    int
	Symbols  int
	Includes int
}

// Export replaces the database content with the current index. Diagnostic
// counts per file are taken from counts when it is non-nil.
func (d *DB) Export(ctx context.Context, ix *workspace.Index, counts map[uri.URI]int) (Stats, error) {
	var stats Stats

	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("begin export: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"includes", "symbols", "files"} {
		query, args, err := sq.Delete(table).ToSql()
		if err != nil {
			return stats, fmt.Errorf("build delete: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return stats, fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, u := range ix.Files() {
		table := ix.Table(u)
		if table == nil {
			continue
		}
		fileID, err := insertFile(ctx, tx, u, len(table.Symbols), counts[u])
		if err != nil {
			return stats, err
		}
		stats.Files++

		for _, sym := range table.Symbols {
			if sym.Kind == symbols.KindInclude {
				continue
			}
			if _, err := tx.NamedExecContext(ctx, insertSymbol, symbolRow(fileID, sym)); err != nil {
				return stats, fmt.Errorf("insert symbol %s: %w", sym.Name, err)
			}
			stats.Symbols++
		}

		for _, edge := range ix.Edges(u) {
			row := IncludeRow{
				FileID:    fileID,
				Path:      edge.Path,
				TargetURI: string(edge.To),
				Optional:  edge.Optional,
				Line:      edge.Span.Range.Start.Line,
			}
			if _, err := tx.NamedExecContext(ctx, insertInclude, row); err != nil {
				return stats, fmt.Errorf("insert include %s: %w", edge.Path, err)
			}
			stats.Includes++
		}
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("commit export: %w", err)
	}
	return stats, nil
}

const insertSymbol = `INSERT INTO symbols (
	file_id, name, qualified, kind, parent, type, detail, doc,
	exported, deprecated, line, col, end_line, end_col
) VALUES (
	:file_id, :name, :qualified, :kind, :parent, :type, :detail, :doc,
	:exported, :deprecated, :line, :col, :end_line, :end_col
)`

const insertInclude = `INSERT INTO includes (file_id, path, target_uri, optional, line)
VALUES (:file_id, :path, :target_uri, :optional, :line)`

func insertFile(ctx context.Context, tx *sqlx.Tx, u uri.URI, syms, diags int) (int64, error) {
	query, args, err := sq.Insert("files").
		Columns("uri", "path", "symbols", "diagnostics").
		Values(string(u), source.Path(u), syms, diags).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert file %s: %w", u, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert file %s: %w", u, err)
	}
	return id, nil
}

func symbolRow(fileID int64, sym *symbols.Symbol) SymbolRow {
	r := sym.Span.Range
	return SymbolRow{
		FileID:     fileID,
		Name:       sym.Name,
		Qualified:  sym.QualifiedName(),
		Kind:       sym.Kind.String(),
		Parent:     sym.Parent,
		Type:       sym.Type,
		Detail:     sym.Detail,
		Doc:        sym.Doc,
		Exported:   sym.Visibility == symbols.VisibilityExported,
		Deprecated: sym.Deprecated,
		Line:       r.Start.Line,
		Col:        r.Start.Column,
		EndLine:    r.End.Line,
		EndCol:     r.End.Column,
	}
}

// LookupOptions narrows a Lookup.
type LookupOptions struct {
	// Kind restricts results to one symbol kind, as printed by Kind.String.
	Kind string

	// Prefix matches names starting with the given name.
	Prefix bool

	// Limit caps the number of rows. 0 means no limit.
	Limit uint64
}

// Lookup returns the symbols named name, or qualified as Type.name.
func (d *DB) Lookup(ctx context.Context, name string, opts LookupOptions) ([]SymbolRow, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	q := sq.Select(
		"s.id", "s.file_id", "f.uri", "s.name", "s.qualified", "s.kind", "s.parent",
		"s.type", "s.detail", "s.doc", "s.exported", "s.deprecated",
		"s.line", "s.col", "s.end_line", "s.end_col",
	).From("symbols s").
		Join("files f ON f.id = s.file_id").
		OrderBy("f.uri", "s.line", "s.col")

	if opts.Prefix {
		q = q.Where(sq.Or{sq.Like{"s.name": name + "%"}, sq.Like{"s.qualified": name + "%"}})
	} else {
		q = q.Where(sq.Or{sq.Eq{"s.name": name}, sq.Eq{"s.qualified": name}})
	}
	if opts.Kind != "" {
		q = q.Where(sq.Eq{"s.kind": opts.Kind})
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lookup: %w", err)
	}
	var rows []SymbolRow
	if err := d.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("lookup %s: %w", name, err)
	}
	return rows, nil
}

// Includers returns the files whose includes resolve to target.
func (d *DB) Includers(ctx context.Context, target uri.URI) ([]FileRow, error) {
	query, args, err := sq.Select("f.id", "f.uri", "f.path", "f.symbols", "f.diagnostics").
		Distinct().
		From("files f").
		Join("includes i ON i.file_id = f.id").
		Where(sq.Eq{"i.target_uri": string(target)}).
		OrderBy("f.uri").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build includers: %w", err)
	}
	var rows []FileRow
	if err := d.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("includers of %s: %w", target, err)
	}
	return rows, nil
}

// Files returns every exported file.
func (d *DB) Files(ctx context.Context) ([]FileRow, error) {
	var rows []FileRow
	if err := d.db.SelectContext(ctx, &rows, "SELECT id, uri, path, symbols, diagnostics FROM files ORDER BY uri"); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return rows, nil
}
