// Package sheetio reads spreadsheet-like files in bounded chunks and writes
// result tables back out as xlsx, csv or sqlite.
package sheetio

import (
	"path/filepath"
	"strconv"
	"strings"
)

// Format identifies a tabular file format.
type Format int

const (
	FormatCSV Format = iota
	FormatXLSX
	FormatSQLite
)

func (f Format) String() string {
	switch f {
	case FormatXLSX:
		return "xlsx"
	case FormatSQLite:
		return "sqlite"
	default:
		return "csv"
	}
}

// DetectFormat picks a format from the file extension. Unknown extensions are
// treated as delimited text.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xls":
		return FormatXLSX
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite
	default:
		return FormatCSV
	}
}

// CSVSibling returns path with its extension replaced by .csv.
func CSVSibling(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".csv"
}

func delimiterFor(path string) rune {
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		return '\t'
	}
	return ','
}

func cleanCell(v string) string {
	v = strings.TrimPrefix(v, "\ufeff")
	return strings.TrimSpace(v)
}

func cleanHeader(row []string) []string {
	header := make([]string, len(row))
	for i, cell := range row {
		header[i] = cleanCell(cell)
		if header[i] == "" {
			header[i] = unnamedColumn(i)
		}
	}
	return header
}

func unnamedColumn(i int) string {
	return "Unnamed: " + strconv.Itoa(i)
}
