// Package sqlite stores workbook sheets as SQLite tables.
//
// Each sheet is a table whose column names are the header labels. Row order
// is rowid order, so rows keep their position between reads and flushes.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/okian/vists/internal/adapters/sheet"
	"github.com/okian/vists/internal/domain/model"
	_ "modernc.org/sqlite"
)

// Store is a SQLite workbook.
type Store struct {
	sqlDB *sql.DB
}

// Sheet is one loaded sheet. RowIDs[i] is the rowid of Table[i+1].
type Sheet struct {
	Name   string
	RowIDs []int64
	Table  model.Table
}

// Open opens or creates the workbook at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// LoadSheet reads a sheet with its header.
func (s *Store) LoadSheet(ctx context.Context, name string) (*Sheet, error) {
	if err := s.exists(ctx, name); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, "SELECT rowid, * FROM "+quote(name)+" ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("query sheet %q: %w", name, err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("sheet %q columns: %w", name, err)
	}
	sh := &Sheet{Name: name, Table: model.Table{slices.Clone(cols[1:])}}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan sheet %q: %w", name, err)
		}
		rowID, ok := values[0].(int64)
		if !ok {
			return nil, fmt.Errorf("sheet %q: unexpected rowid %T", name, values[0])
		}
		row := make([]string, len(cols)-1)
		for i, v := range values[1:] {
			row[i] = text(v)
		}
		sh.RowIDs = append(sh.RowIDs, rowID)
		sh.Table = append(sh.Table, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sheet %q: %w", name, err)
	}
	return sh, nil
}

// LoadSettings reads a two-column key/value sheet.
func (s *Store) LoadSettings(ctx context.Context, name string) (map[string]string, error) {
	sh, err := s.LoadSheet(ctx, name)
	if err != nil {
		return nil, err
	}
	return sheet.KeyValues(sh.Table[1:]), nil
}

// Flush writes columns back into the sheet rows in one transaction. Keys
// are header labels; each value slice holds one cell per sheet row.
func (s *Store) Flush(ctx context.Context, sh *Sheet, columns map[string][]string) error {
	if len(columns) == 0 {
		return nil
	}

	labels := slices.Sorted(maps.Keys(columns))
	values := make([][]string, len(labels))
	sets := make([]string, len(labels))
	for i, c := range labels {
		if !slices.Contains(sh.Table[0], c) {
			return fmt.Errorf("%w: %q", ErrColumnMissing, c)
		}
		values[i] = columns[c]
		if len(values[i]) != len(sh.RowIDs) {
			return fmt.Errorf("%w: %q has %d rows for %d", ErrRowMismatch, c, len(values[i]), len(sh.RowIDs))
		}
		sets[i] = quote(c) + " = ?"
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin flush: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, "UPDATE "+quote(sh.Name)+" SET "+strings.Join(sets, ", ")+" WHERE rowid = ?")
	if err != nil {
		return fmt.Errorf("prepare flush: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	args := make([]any, len(labels)+1)
	for r, rowID := range sh.RowIDs {
		for i := range labels {
			args[i] = values[i][r]
		}
		args[len(labels)] = rowID
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("flush row %d: %w", rowID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit flush: %w", err)
	}
	return nil
}

// ImportTable replaces the sheet name with table. Row 0 becomes the column
// names; every column is stored as TEXT.
func (s *Store) ImportTable(ctx context.Context, name string, table model.Table) error {
	if len(table) == 0 || len(table[0]) == 0 {
		return fmt.Errorf("import %q: header row is missing", name)
	}
	header := table[0]

	defs := make([]string, len(header))
	marks := make([]string, len(header))
	for i, h := range header {
		defs[i] = quote(h) + " TEXT"
		marks[i] = "?"
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quote(name)); err != nil {
		return fmt.Errorf("drop %q: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, "CREATE TABLE "+quote(name)+" ("+strings.Join(defs, ", ")+")"); err != nil {
		return fmt.Errorf("create %q: %w", name, err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO "+quote(name)+" VALUES ("+strings.Join(marks, ", ")+")")
	if err != nil {
		return fmt.Errorf("prepare import: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	args := make([]any, len(header))
	for _, row := range table[1:] {
		for i := range args {
			args[i] = ""
			if i < len(row) {
				args[i] = row[i]
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert into %q: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

func (s *Store) exists(ctx context.Context, name string) error {
	var n int
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&n)
	if err != nil {
		return fmt.Errorf("lookup sheet %q: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrSheetNotFound, name)
	}
	return nil
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.DateOnly)
	default:
		return fmt.Sprint(x)
	}
}
