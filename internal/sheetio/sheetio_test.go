package sheetio

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func readChunks(t *testing.T, path, selector string, opts Options) []Chunk {
	t.Helper()
	r, err := Open(path, selector, opts)
	require.NoError(t, err)
	defer r.Close()
	var out []Chunk
	for {
		c, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, c)
	}
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatXLSX, DetectFormat("a/b.XLSX"))
	assert.Equal(t, FormatSQLite, DetectFormat("out.db"))
	assert.Equal(t, FormatCSV, DetectFormat("in.tsv"))
	assert.Equal(t, FormatCSV, DetectFormat("noext"))
	assert.Equal(t, "dir/out.csv", CSVSibling("dir/out.xlsx"))
}

func TestCSVChunks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.csv")
	content := "\xEF\xBB\xBFPersonID,Major,\n1,软件工程,x\n\n2,数学\n3,\"a,b\",y\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	chunks := readChunks(t, path, "", Options{ChunkSize: 2})
	require.Len(t, chunks, 2)
	assert.Equal(t, []string{"PersonID", "Major", "Unnamed: 2"}, chunks[0].Header)
	assert.Equal(t, [][]string{{"1", "软件工程", "x"}, {"2", "数学", ""}}, chunks[0].Rows)
	assert.Equal(t, [][]string{{"3", "a,b", "y"}}, chunks[1].Rows)

	limited := readChunks(t, path, "", Options{ChunkSize: 10, Limit: 2})
	require.Len(t, limited, 1)
	assert.Len(t, limited[0].Rows, 2)

	assert.Equal(t, 4, EstimateRows(path, ""))
}

func TestTSVDelimiter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.tsv")
	require.NoError(t, os.WriteFile(path, []byte("a\tb\n1\t2,3\n"), 0o644))
	chunks := readChunks(t, path, "", Options{})
	require.Len(t, chunks, 1)
	assert.Equal(t, [][]string{{"1", "2,3"}}, chunks[0].Rows)
}

func TestGBKInput(t *testing.T) {
	encoded, err := simplifiedchinese.GBK.NewEncoder().String("专业,姓名\n软件工程,张三\n")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "gbk.csv")
	require.NoError(t, os.WriteFile(path, []byte(encoded), 0o644))

	header, rows, err := ReadAll(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"专业", "姓名"}, header)
	assert.Equal(t, [][]string{{"软件工程", "张三"}}, rows)

	text, err := DecodeText([]byte(encoded))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "专业"))

	lines, err := ReadLines(path)
	require.NoError(t, err)
	assert.Equal(t, "软件工程,张三", lines[1])
}

func writeWorkbook(t *testing.T, path string, sheets map[string][][]any, order []string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, name := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName(f.GetSheetName(0), name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}
	require.NoError(t, f.SaveAs(path))
}

func TestXLSXSheetSelection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.xlsx")
	writeWorkbook(t, path, map[string][][]any{
		"一班": {{"PersonID", "Major"}, {"1", "软件工程"}, {"2", "数学"}},
		"二班": {{"PersonID", "Major"}, {"3", "汉语言文学"}},
		"三班": {{"PersonID", "Major"}, {"4", "物理学"}},
	}, []string{"一班", "二班", "三班"})

	first := readChunks(t, path, "", Options{})
	require.Len(t, first, 1)
	assert.Equal(t, "一班", first[0].Sheet)
	assert.Len(t, first[0].Rows, 2)

	all := readChunks(t, path, "*", Options{})
	require.Len(t, all, 3)
	assert.Equal(t, "三班", all[2].Sheet)

	named := readChunks(t, path, "三班, 缺失, 一班", Options{ChunkSize: 1})
	require.Len(t, named, 3)
	assert.Equal(t, []string{"三班", "一班", "一班"}, []string{named[0].Sheet, named[1].Sheet, named[2].Sheet})
	assert.Equal(t, "4", named[0].Rows[0][0])

	limited := readChunks(t, path, "*", Options{Limit: 3})
	total := 0
	for _, c := range limited {
		total += len(c.Rows)
	}
	assert.Equal(t, 3, total)

	assert.Equal(t, 2, EstimateRows(path, ""))
	assert.Equal(t, 4, EstimateRows(path, "*"))
}

func TestSheetSelector(t *testing.T) {
	all, names := SheetSelector(" * ")
	assert.True(t, all)
	assert.Nil(t, names)
	all, names = SheetSelector("a, ,b")
	assert.False(t, all)
	assert.Equal(t, []string{"a", "b"}, names)
	_, names = SheetSelector("")
	assert.Nil(t, names)
}

func TestWriteReadRoundTrip(t *testing.T) {
	header := []string{"PersonID", "Major", "_score"}
	rows := [][]string{{"1", "软件工程", "0.95"}, {"2", "数学"}}
	for _, name := range []string{"out.csv", "out.xlsx", "out.sqlite"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "sub", name)
			require.NoError(t, Write(path, header, rows, []Kind{KindString, KindString, KindNumber}))
			gotHeader, gotRows, err := ReadAll(path)
			require.NoError(t, err)
			assert.Equal(t, header, gotHeader)
			require.Len(t, gotRows, 2)
			assert.Equal(t, "软件工程", gotRows[0][1])
			assert.Equal(t, "0.95", gotRows[0][2])
			assert.Equal(t, "2", gotRows[1][0])
			assert.Equal(t, 2, EstimateRows(path, ""))
		})
	}
}

func TestWriteSQLiteReplacesTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.db")
	require.NoError(t, WriteSQLite(path, []string{"a"}, [][]string{{"1"}, {"2"}}))
	require.NoError(t, WriteSQLite(path, []string{"a", "b \"q\""}, [][]string{{"3", "x"}}))
	header, rows, err := ReadAll(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b \"q\""}, header)
	assert.Equal(t, [][]string{{"3", "x"}}, rows)
}

func TestReadAllHeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.csv")
	require.NoError(t, WriteCSV(path, []string{"x", "y"}, nil))
	header, rows, err := ReadAll(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, header)
	assert.Empty(t, rows)
	assert.Zero(t, EstimateRows(path, ""))
}

func TestTypedCell(t *testing.T) {
	assert.Equal(t, 0.5, typedCell("0.5", KindNumber))
	assert.Equal(t, "n/a", typedCell("n/a", KindNumber))
	assert.Equal(t, true, typedCell("true", KindBool))
	assert.Equal(t, "1", typedCell("1", KindString))
}
