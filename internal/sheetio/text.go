package sheetio

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

const sniffSize = 64 * 1024

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// NewTextReader returns a UTF-8 view of r. A leading BOM is dropped; input
// whose first bytes are not valid UTF-8 is decoded as GBK.
func NewTextReader(r io.Reader) io.Reader {
	br := bufio.NewReaderSize(r, sniffSize)
	head, _ := br.Peek(sniffSize)
	if bytes.HasPrefix(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
		return br
	}
	if utf8.Valid(trimPartialRune(head)) {
		return br
	}
	return transform.NewReader(br, simplifiedchinese.GBK.NewDecoder())
}

// trimPartialRune cuts a rune split by the sniff window.
func trimPartialRune(b []byte) []byte {
	for i := 0; i < utf8.UTFMax && len(b) > 0; i++ {
		r, size := utf8.DecodeLastRune(b)
		if r != utf8.RuneError || size != 1 {
			return b
		}
		b = b[:len(b)-1]
	}
	return b
}

// DecodeText converts raw bytes to a string: UTF-8 (BOM stripped) when
// valid, GBK otherwise.
func DecodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}
	out, _, err := transform.Bytes(simplifiedchinese.GBK.NewDecoder(), data)
	if err != nil {
		return "", fmt.Errorf("decode gbk: %w", err)
	}
	return string(out), nil
}

// ReadLines reads a text file and returns its lines without line endings.
func ReadLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text, err := DecodeText(data)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n"), nil
}
