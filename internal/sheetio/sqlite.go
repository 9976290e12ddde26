package sheetio

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// ResultTable is the table name used for sqlite result files.
const ResultTable = "results"

type sqliteSource struct {
	rows *sql.Rows
	cols []string
	base string
}

func (r *Reader) openSQLite() error {
	db, err := sql.Open("sqlite", r.path)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(r.path), err)
	}
	r.close = db.Close
	r.open = []func() (sheetSource, error){func() (sheetSource, error) {
		rows, err := db.Query("SELECT * FROM " + quoteIdent(ResultTable))
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", filepath.Base(r.path), err)
		}
		cols, err := rows.Columns()
		if err != nil {
			rows.Close()
			return nil, err
		}
		return &sqliteSource{rows: rows, cols: cols, base: filepath.Base(r.path)}, nil
	}}
	return nil
}

func (s *sqliteSource) name() string     { return s.base }
func (s *sqliteSource) header() []string { return s.cols }
func (s *sqliteSource) close() error     { return s.rows.Close() }

func (s *sqliteSource) row() ([]string, error) {
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	vals := make([]sql.NullString, len(s.cols))
	ptrs := make([]any, len(vals))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := s.rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = v.String
	}
	return out, nil
}

func estimateSQLite(path string) int {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return 0
	}
	defer db.Close()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + quoteIdent(ResultTable)).Scan(&n); err != nil {
		return 0
	}
	return n
}

// WriteSQLite replaces the results table in the sqlite file at path.
func WriteSQLite(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DROP TABLE IF EXISTS " + quoteIdent(ResultTable)); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	cols := make([]string, len(header))
	marks := make([]string, len(header))
	for i, h := range header {
		cols[i] = quoteIdent(h) + " TEXT"
		marks[i] = "?"
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(ResultTable), strings.Join(cols, ", "))
	if _, err := tx.Exec(create); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(ResultTable), strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	args := make([]any, len(header))
	for _, row := range rows {
		for i := range args {
			args[i] = ""
			if i < len(row) {
				args[i] = row[i]
			}
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("insert row: %w", err)
		}
	}
	return tx.Commit()
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
