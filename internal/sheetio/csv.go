package sheetio

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

type csvSource struct {
	f     *os.File
	r     *csv.Reader
	base  string
	cols  []string
	width int
}

func openCSV(path string) (sheetSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	reader := csv.NewReader(NewTextReader(f))
	reader.Comma = delimiterFor(path)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	first, err := reader.Read()
	if errors.Is(err, io.EOF) {
		f.Close()
		return nil, nil
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	header := cleanHeader(first)
	return &csvSource{f: f, r: reader, base: filepath.Base(path), cols: header, width: len(header)}, nil
}

func (s *csvSource) name() string     { return s.base }
func (s *csvSource) header() []string { return s.cols }
func (s *csvSource) close() error     { return s.f.Close() }

func (s *csvSource) row() ([]string, error) {
	for {
		rec, err := s.r.Read()
		if err != nil {
			return nil, err
		}
		if isBlank(rec) {
			continue
		}
		return padRow(rec, s.width), nil
	}
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if v != "" {
			return false
		}
	}
	return true
}

func padRow(rec []string, width int) []string {
	if len(rec) >= width {
		return rec
	}
	out := make([]string, width)
	copy(out, rec)
	return out
}

func estimateCSV(path string) int {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()
	buf := make([]byte, 32*1024)
	lines := 0
	var last byte
	for {
		n, err := f.Read(buf)
		if n > 0 {
			lines += bytes.Count(buf[:n], []byte{'\n'})
			last = buf[n-1]
		}
		if err != nil {
			break
		}
	}
	if last != 0 && last != '\n' {
		lines++
	}
	if lines <= 1 {
		return 0
	}
	return lines - 1
}

// WriteCSV writes header and rows as UTF-8 csv with a BOM so spreadsheet
// tools detect the encoding.
func WriteCSV(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	bw := bufio.NewWriter(f)
	if _, err := bw.Write(utf8BOM); err != nil {
		f.Close()
		return err
	}
	w := csv.NewWriter(bw)
	if err := w.Write(header); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
