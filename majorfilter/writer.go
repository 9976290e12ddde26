package majorfilter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"go.uber.org/zap"

	"yashubustudio/majorfilter/internal/sheetio"
)

// WriteOptions control how result rows are persisted.
type WriteOptions struct {
	Append      bool
	Dedup       bool
	DedupKey    string
	MajorColumn string
	Logger      *zap.Logger
}

// Dedup drops later duplicates, keeping row order. Rows are keyed by DedupKey
// when the block has that column, otherwise by the aggressive-normalized major
// column plus _matched_code. The major column is resolved like
// ResolveMajorColumn, so a header such as 专业 still counts. With neither
// column present the block is returned unchanged.
func Dedup(block *Block, dedupKey, majorColumn string) *Block {
	keyFn, ok := dedupKeyFunc(block, dedupKey, majorColumn)
	if !ok {
		return block
	}
	seen := make(map[string]struct{}, block.Len())
	keep := make([]bool, block.Len())
	for i := range block.Rows {
		k := keyFn(i)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keep[i] = true
	}
	return block.Filter(keep)
}

func dedupKeyFunc(block *Block, dedupKey, majorColumn string) (func(int) string, bool) {
	if dedupKey != "" {
		if col := block.ColumnIndex(dedupKey); col >= 0 {
			return func(i int) string { return block.Value(i, col) }, true
		}
	}
	resolved := ResolveMajorColumn(block.Header, majorColumn)
	if resolved == "" {
		return nil, false
	}
	major := block.ColumnIndex(resolved)
	code := block.ColumnIndex(ColMatchedCode)
	return func(i int) string {
		c := ""
		if code >= 0 {
			c = block.Value(i, code)
		}
		return NormalizeKey(block.Value(i, major)) + "|" + c
	}, true
}

// WriteResult persists block at dest and returns the path actually written.
// Spreadsheet and sqlite destinations fall back to a sibling .csv on any
// failure; an error is returned only when the csv write fails too.
func WriteResult(block *Block, dest string, opts WriteOptions) (string, error) {
	path, _, err := WriteResultRows(block, dest, opts)
	return path, err
}

// WriteResultRows is WriteResult that also reports how many rows were
// written after append and dedup.
func WriteResultRows(block *Block, dest string, opts WriteOptions) (string, int, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dest, err := filepath.Abs(dest)
	if err != nil {
		return "", 0, fmt.Errorf("resolve output path: %w", err)
	}
	out := NewBlock(append([]string(nil), block.Header...), block.Rows)
	if opts.Append {
		if _, err := os.Stat(dest); err == nil {
			header, rows, err := sheetio.ReadAll(dest)
			if err != nil {
				logger.Warn("previous result unreadable, writing new rows only", zap.String("path", dest), zap.Error(err))
			} else {
				merged := NewBlock(header, rows)
				merged.Append(block)
				out = merged
			}
		}
	}
	if opts.Dedup {
		if _, ok := dedupKeyFunc(out, opts.DedupKey, opts.MajorColumn); !ok {
			logger.Warn("dedup skipped: no key column", zap.String("dedup_key", opts.DedupKey), zap.String("major_column", opts.MajorColumn))
		}
		out = Dedup(out, opts.DedupKey, opts.MajorColumn)
	}
	records := out.Records()
	kinds := columnKinds(out.Header)
	err = sheetio.Write(dest, out.Header, records, kinds)
	if err == nil {
		return dest, len(records), nil
	}
	if sheetio.DetectFormat(dest) == sheetio.FormatCSV {
		return "", 0, fmt.Errorf("write %s: %w", dest, err)
	}
	fallback := sheetio.CSVSibling(dest)
	logger.Warn("write failed, falling back to csv", zap.String("path", dest), zap.String("fallback", fallback), zap.Error(err))
	if cerr := sheetio.WriteCSV(fallback, out.Header, records); cerr != nil {
		return "", 0, fmt.Errorf("write %s: %w", fallback, errors.Join(err, cerr))
	}
	return fallback, len(records), nil
}

var (
	scoreColumn = regexp.MustCompile(`^(_score|_score_all|_cond_[0-9]+_score)$`)
	matchColumn = regexp.MustCompile(`^(_match|_match_all|_cond_[0-9]+_match)$`)
)

func columnKinds(header []string) []sheetio.Kind {
	kinds := make([]sheetio.Kind, len(header))
	for i, h := range header {
		switch {
		case scoreColumn.MatchString(h):
			kinds[i] = sheetio.KindNumber
		case matchColumn.MatchString(h):
			kinds[i] = sheetio.KindBool
		}
	}
	return kinds
}
