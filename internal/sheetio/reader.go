package sheetio

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// DefaultChunkSize is used when Options.ChunkSize is not positive.
const DefaultChunkSize = 50000

// Chunk is a bounded batch of rows from one sheet.
type Chunk struct {
	Sheet  string
	Header []string
	Rows   [][]string
}

// Options control chunked reading.
type Options struct {
	ChunkSize int
	// Limit caps the number of data rows read from the file; 0 is unlimited.
	Limit  int
	Logger *zap.Logger
}

func (o Options) chunkSize() int {
	if o.ChunkSize <= 0 {
		return DefaultChunkSize
	}
	return o.ChunkSize
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// sheetSource yields the rows of one sheet (or the single table of a csv or
// sqlite file). Row returns io.EOF after the last row.
type sheetSource interface {
	name() string
	header() []string
	row() ([]string, error)
	close() error
}

// Reader produces chunks over the sheets selected in one file.
type Reader struct {
	path  string
	opts  Options
	open  []func() (sheetSource, error)
	cur   sheetSource
	read  int
	close func() error
}

// SheetSelector splits a selector into sheet names. "" selects the first
// sheet and "*" selects every sheet; both return nil names.
func SheetSelector(selector string) (all bool, names []string) {
	s := strings.TrimSpace(selector)
	if s == "*" {
		return true, nil
	}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return false, names
}

// Open prepares a chunk reader for path. selector is ignored for csv input.
func Open(path, selector string, opts Options) (*Reader, error) {
	r := &Reader{path: path, opts: opts}
	switch DetectFormat(path) {
	case FormatXLSX:
		if err := r.openXLSX(selector); err != nil {
			return nil, err
		}
	case FormatSQLite:
		if err := r.openSQLite(); err != nil {
			return nil, err
		}
	default:
		r.open = []func() (sheetSource, error){func() (sheetSource, error) {
			return openCSV(path)
		}}
	}
	return r, nil
}

// Next returns the next chunk or io.EOF once every selected sheet is drained
// or the row limit is reached.
func (r *Reader) Next() (Chunk, error) {
	size := r.opts.chunkSize()
	for {
		if r.opts.Limit > 0 && r.read >= r.opts.Limit {
			return Chunk{}, io.EOF
		}
		if r.cur == nil {
			if len(r.open) == 0 {
				return Chunk{}, io.EOF
			}
			next := r.open[0]
			r.open = r.open[1:]
			src, err := next()
			if err != nil {
				return Chunk{}, err
			}
			if src == nil {
				continue
			}
			r.cur = src
		}
		chunk := Chunk{Sheet: r.cur.name(), Header: r.cur.header()}
		for len(chunk.Rows) < size {
			if r.opts.Limit > 0 && r.read >= r.opts.Limit {
				break
			}
			row, err := r.cur.row()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return Chunk{}, fmt.Errorf("read %s [%s]: %w", filepath.Base(r.path), chunk.Sheet, err)
			}
			chunk.Rows = append(chunk.Rows, row)
			r.read++
		}
		if len(chunk.Rows) < size {
			_ = r.cur.close()
			r.cur = nil
		}
		if len(chunk.Rows) > 0 {
			return chunk, nil
		}
	}
}

// Close releases the underlying file handles.
func (r *Reader) Close() error {
	var err error
	if r.cur != nil {
		err = r.cur.close()
		r.cur = nil
	}
	if r.close != nil {
		if cerr := r.close(); err == nil {
			err = cerr
		}
		r.close = nil
	}
	return err
}

// ReadAll loads every row of a previously written result file: the first
// sheet of an xlsx, the whole csv, or the results table of a sqlite file.
func ReadAll(path string) ([]string, [][]string, error) {
	r, err := Open(path, "", Options{ChunkSize: 1 << 20})
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()
	var header []string
	var rows [][]string
	for {
		chunk, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		if header == nil {
			header = chunk.Header
		}
		rows = append(rows, chunk.Rows...)
	}
	if header == nil {
		header, err = r.headerOnly()
		if err != nil {
			return nil, nil, err
		}
	}
	return header, rows, nil
}

// headerOnly re-reads the header of a file that has no data rows.
func (r *Reader) headerOnly() ([]string, error) {
	fresh, err := Open(r.path, "", r.opts)
	if err != nil {
		return nil, err
	}
	defer fresh.Close()
	if len(fresh.open) == 0 {
		return nil, nil
	}
	src, err := fresh.open[0]()
	if err != nil || src == nil {
		return nil, err
	}
	defer src.close()
	return src.header(), nil
}

// EstimateRows returns a best-effort count of data rows for the selected
// sheets, or 0 when it cannot be determined cheaply.
func EstimateRows(path, selector string) int {
	switch DetectFormat(path) {
	case FormatXLSX:
		return estimateXLSX(path, selector)
	case FormatSQLite:
		return estimateSQLite(path)
	default:
		return estimateCSV(path)
	}
}
