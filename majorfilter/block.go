package majorfilter

import "strings"

// Block is an ordered batch of rows sharing one header. Evaluation adds result
// columns to it in place.
type Block struct {
	Header []string
	Rows   [][]string

	index map[string]int
}

// NewBlock wraps header and rows without copying them.
func NewBlock(header []string, rows [][]string) *Block {
	b := &Block{Header: header, Rows: rows}
	b.reindex()
	return b
}

func (b *Block) reindex() {
	b.index = make(map[string]int, len(b.Header))
	for i, h := range b.Header {
		if _, dup := b.index[h]; !dup {
			b.index[h] = i
		}
	}
}

// Len returns the number of rows.
func (b *Block) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Rows)
}

// ColumnIndex resolves a column name, first exactly and then ignoring case.
// It returns -1 when the column is absent.
func (b *Block) ColumnIndex(name string) int {
	if b.index == nil {
		b.reindex()
	}
	if i, ok := b.index[name]; ok {
		return i
	}
	for i, h := range b.Header {
		if strings.EqualFold(h, name) {
			return i
		}
	}
	return -1
}

// Value returns the cell at (row, col); short rows read as "".
func (b *Block) Value(row, col int) string {
	r := b.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

// Column returns a copy of the named column and whether it exists.
func (b *Block) Column(name string) ([]string, bool) {
	col := b.ColumnIndex(name)
	out := make([]string, len(b.Rows))
	if col < 0 {
		return out, false
	}
	for i := range b.Rows {
		out[i] = b.Value(i, col)
	}
	return out, true
}

// SetColumn replaces the named column or appends it when absent.
func (b *Block) SetColumn(name string, values []string) {
	col, ok := b.index[name]
	if b.index == nil || !ok {
		b.Header = append(b.Header, name)
		b.reindex()
		col = len(b.Header) - 1
	}
	for i := range b.Rows {
		row := b.Rows[i]
		if len(row) <= col {
			grown := make([]string, len(b.Header))
			copy(grown, row)
			row = grown
		}
		if i < len(values) {
			row[col] = values[i]
		} else {
			row[col] = ""
		}
		b.Rows[i] = row
	}
}

// DropColumn removes a column if present.
func (b *Block) DropColumn(name string) {
	col, ok := b.index[name]
	if !ok {
		return
	}
	b.Header = append(b.Header[:col:col], b.Header[col+1:]...)
	for i, row := range b.Rows {
		if col < len(row) {
			b.Rows[i] = append(row[:col:col], row[col+1:]...)
		}
	}
	b.reindex()
}

// Filter returns a new block holding the rows whose keep flag is set. Row
// slices are shared with the receiver.
func (b *Block) Filter(keep []bool) *Block {
	rows := make([][]string, 0)
	for i, row := range b.Rows {
		if i < len(keep) && keep[i] {
			rows = append(rows, row)
		}
	}
	header := make([]string, len(b.Header))
	copy(header, b.Header)
	return NewBlock(header, rows)
}

// Append concatenates other after the receiver's rows. Columns unknown to the
// receiver are added to its header; missing cells read as "".
func (b *Block) Append(other *Block) {
	if other == nil || len(other.Header) == 0 {
		return
	}
	if b.index == nil {
		b.reindex()
	}
	mapping := make([]int, len(other.Header))
	for i, h := range other.Header {
		col, ok := b.index[h]
		if !ok {
			b.Header = append(b.Header, h)
			col = len(b.Header) - 1
			b.index[h] = col
		}
		mapping[i] = col
	}
	for _, row := range other.Rows {
		out := make([]string, len(b.Header))
		for i, v := range row {
			if i < len(mapping) {
				out[mapping[i]] = v
			}
		}
		b.Rows = append(b.Rows, out)
	}
}

// Records returns rows padded to the header width.
func (b *Block) Records() [][]string {
	out := make([][]string, len(b.Rows))
	width := len(b.Header)
	for i, row := range b.Rows {
		if len(row) == width {
			out[i] = row
			continue
		}
		padded := make([]string, width)
		copy(padded, row)
		out[i] = padded
	}
	return out
}
