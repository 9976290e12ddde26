package sheetio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type xlsxSource struct {
	sheet string
	rows  *excelize.Rows
	cols  []string
}

func (r *Reader) openXLSX(selector string) error {
	f, err := excelize.OpenFile(r.path)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(r.path), err)
	}
	if len(f.GetSheetList()) == 0 {
		f.Close()
		return fmt.Errorf("open %s: %w", filepath.Base(r.path), errNoSheets)
	}
	r.close = f.Close
	for _, sheet := range selectSheets(f, r.path, selector, r.opts.logger()) {
		r.open = append(r.open, func() (sheetSource, error) {
			return openSheet(f, sheet)
		})
	}
	return nil
}

// selectSheets resolves a selector against the workbook. Named sheets that
// do not exist are logged and skipped.
func selectSheets(f *excelize.File, path, selector string, logger *zap.Logger) []string {
	list := f.GetSheetList()
	all, names := SheetSelector(selector)
	switch {
	case all:
		return list
	case len(names) == 0:
		if len(list) == 0 {
			return nil
		}
		return list[:1]
	}
	present := make(map[string]struct{}, len(list))
	for _, s := range list {
		present[s] = struct{}{}
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := present[name]; !ok {
			logger.Warn("sheet not found, skipped", zap.String("file", filepath.Base(path)), zap.String("sheet", name))
			continue
		}
		out = append(out, name)
	}
	return out
}

func openSheet(f *excelize.File, sheet string) (sheetSource, error) {
	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("open sheet %s: %w", sheet, err)
	}
	for rows.Next() {
		first, err := rows.Columns()
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		if isBlank(first) {
			continue
		}
		return &xlsxSource{sheet: sheet, rows: rows, cols: cleanHeader(first)}, nil
	}
	err = rows.Error()
	rows.Close()
	return nil, err
}

func (s *xlsxSource) name() string     { return s.sheet }
func (s *xlsxSource) header() []string { return s.cols }
func (s *xlsxSource) close() error     { return s.rows.Close() }

func (s *xlsxSource) row() ([]string, error) {
	for s.rows.Next() {
		cols, err := s.rows.Columns()
		if err != nil {
			return nil, err
		}
		if isBlank(cols) {
			continue
		}
		return padRow(cols, len(s.cols)), nil
	}
	if err := s.rows.Error(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func estimateXLSX(path, selector string) int {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return 0
	}
	defer f.Close()
	total := 0
	for _, sheet := range selectSheets(f, path, selector, zap.NewNop()) {
		if n, ok := dimensionRows(f, sheet); ok {
			total += n
			continue
		}
		total += countRows(f, sheet)
	}
	return total
}

// dimensionRows reads the data row count from the sheet's dimension record.
// Workbooks written without one report a single cell and are not trusted.
func dimensionRows(f *excelize.File, sheet string) (int, bool) {
	dim, err := f.GetSheetDimension(sheet)
	if err != nil {
		return 0, false
	}
	_, last, found := strings.Cut(dim, ":")
	if !found {
		return 0, false
	}
	_, row, err := excelize.CellNameToCoordinates(last)
	if err != nil || row < 1 {
		return 0, false
	}
	return row - 1, true
}

func countRows(f *excelize.File, sheet string) int {
	rows, err := f.Rows(sheet)
	if err != nil {
		return 0
	}
	defer rows.Close()
	n := 0
	for rows.Next() {
		n++
	}
	if n == 0 {
		return 0
	}
	return n - 1
}

// Kind tells the xlsx writer how to type a column's cells.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
)

// WriteXLSX writes header and rows to a single-sheet workbook. kinds may be
// shorter than header; missing entries are strings.
func WriteXLSX(path string, header []string, rows [][]string, kinds []Kind) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}
	line := make([]interface{}, len(header))
	for i, h := range header {
		line[i] = h
	}
	if err := sw.SetRow("A1", line); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for r, row := range rows {
		line := make([]interface{}, len(header))
		for c := range header {
			v := ""
			if c < len(row) {
				v = row[c]
			}
			line[c] = typedCell(v, kindAt(kinds, c))
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, line); err != nil {
			return fmt.Errorf("write row %d: %w", r+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", filepath.Base(path), err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", filepath.Base(path), err)
	}
	return nil
}

func kindAt(kinds []Kind, i int) Kind {
	if i < len(kinds) {
		return kinds[i]
	}
	return KindString
}

func typedCell(v string, kind Kind) interface{} {
	switch kind {
	case KindNumber:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	case KindBool:
		switch strings.ToLower(v) {
		case "true":
			return true
		case "false":
			return false
		}
	}
	return v
}

var errNoSheets = errors.New("workbook has no sheets")
