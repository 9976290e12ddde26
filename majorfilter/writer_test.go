package majorfilter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yashubustudio/majorfilter/internal/sheetio"
)

func TestDedupByKey(t *testing.T) {
	block := NewBlock([]string{"PersonID", "Name", "Major"}, [][]string{
		{"42", "张三", "软件工程"},
		{"7", "李四", "数学"},
		{"42", "王五", "汉语言文学"},
	})
	out := Dedup(block, "PersonID", "Major")
	require.Equal(t, 2, out.Len())
	assert.Equal(t, []string{"42", "张三", "软件工程"}, out.Rows[0])
	assert.Equal(t, "7", out.Rows[1][0])
}

func TestDedupByMajorAndCode(t *testing.T) {
	block := NewBlock([]string{"Major", ColMatchedCode}, [][]string{
		{"软件 工程", "080902"},
		{"软件工程", "080902"},
		{"软件工程", "080901"},
	})
	out := Dedup(block, "PersonID", "Major")
	assert.Equal(t, 2, out.Len())

	noKey := NewBlock([]string{"Other"}, [][]string{{"a"}, {"a"}})
	assert.Equal(t, 2, Dedup(noKey, "PersonID", "Major").Len())
}

func TestDedupResolvesMajorCandidate(t *testing.T) {
	block := NewBlock([]string{"Name", "专业", ColMatchedCode}, [][]string{
		{"张三", "软件工程", "080902"},
		{"李四", "软件 工程", "080902"},
		{"王五", "数学", "070101"},
	})
	out := Dedup(block, "PersonID", "Major")
	require.Equal(t, 2, out.Len())
	assert.Equal(t, "张三", out.Rows[0][0])
	assert.Equal(t, "王五", out.Rows[1][0])
}

func TestWriteResultAppendDedup(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.csv")
	header := []string{"Major", ColMatchedCode}
	require.NoError(t, sheetio.WriteCSV(dest, header, [][]string{{"X", "1"}}))

	opts := WriteOptions{Append: true, Dedup: true, MajorColumn: "Major"}
	path, rows, err := WriteResultRows(NewBlock(header, [][]string{{" x ", "1"}}), dest, opts)
	require.NoError(t, err)
	assert.Equal(t, dest, path)
	assert.Equal(t, 1, rows)

	_, got, err := sheetio.ReadAll(dest)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"X", "1"}}, got)

	_, rows, err = WriteResultRows(NewBlock(header, [][]string{{"Y", "2"}}), dest, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, rows)
}

func TestWriteResultXLSX(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "nested", "out.xlsx")
	block := NewBlock([]string{"PersonID", ColMatchAll, ColScoreAll}, [][]string{
		{"1", "true", "2"},
		{"2", "true", "0.5"},
		{"1", "true", "2"},
	})
	path, err := WriteResult(block, dest, WriteOptions{Dedup: true, DedupKey: "PersonID"})
	require.NoError(t, err)
	assert.Equal(t, dest, path)

	header, rows, err := sheetio.ReadAll(dest)
	require.NoError(t, err)
	assert.Equal(t, []string{"PersonID", ColMatchAll, ColScoreAll}, header)
	require.Len(t, rows, 2)
	assert.Equal(t, "0.5", rows[1][2])
}

func TestWriteResultFallsBackToCSV(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.xlsx")
	require.NoError(t, os.Mkdir(dest, 0o755))

	block := NewBlock([]string{"PersonID"}, [][]string{{"1"}})
	path, err := WriteResult(block, dest, WriteOptions{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out.csv"), path)

	_, rows, err := sheetio.ReadAll(path)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1"}}, rows)
}

func TestWriteResultCSVFailure(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.Mkdir(dest, 0o755))
	_, err := WriteResult(NewBlock([]string{"a"}, [][]string{{"1"}}), dest, WriteOptions{})
	assert.Error(t, err)
}

func TestColumnKinds(t *testing.T) {
	kinds := columnKinds([]string{"Major", ColScore, ColMatch, "_cond_3_score", "_cond_3_desc", ColMatchAll})
	assert.Equal(t, []sheetio.Kind{
		sheetio.KindString, sheetio.KindNumber, sheetio.KindBool,
		sheetio.KindNumber, sheetio.KindString, sheetio.KindBool,
	}, kinds)
}
