// Package lda converts LDA string tables to text.
package lda

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"

	"github.com/jchantrell/arcbank/internal/arcerr"
)

const (
	MagicNarrow = "lda0"
	MagicWide   = "lda1"

	// headerSize covers id, file size, two ids and the item count.
	headerSize = 20
)

// Decode returns the strings of an LDA table in item order. lda0 tables
// hold 8 bit strings and lda1 tables UTF-16LE strings.
func Decode(data []byte) ([]string, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("table of %d bytes: %w", len(data), arcerr.ErrInvalidFormat)
	}
	magic := string(data[:4])
	if magic != MagicNarrow && magic != MagicWide {
		return nil, fmt.Errorf("magic %q: %w", magic, arcerr.ErrInvalidFormat)
	}
	wide := magic == MagicWide

	numItems := int(binary.LittleEndian.Uint32(data[16:]))
	// item offsets, then one reserved word, then the string pool
	pool := headerSize + (numItems+1)*4
	if numItems < 0 || pool > len(data) {
		return nil, fmt.Errorf("%d items past table of %d bytes: %w", numItems, len(data), arcerr.ErrMalformedPayload)
	}

	decoder := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	out := make([]string, numItems)
	for i := range out {
		off := pool + int(binary.LittleEndian.Uint32(data[headerSize+i*4:]))
		if off >= len(data) {
			return nil, fmt.Errorf("item %d at %d past table of %d bytes: %w", i, off, len(data), arcerr.ErrMalformedPayload)
		}

		if !wide {
			out[i] = cut(data[off:], 1)
			continue
		}
		s, err := decoder.Bytes([]byte(cut(data[off:], 2)))
		if err != nil {
			return nil, fmt.Errorf("item %d: %w: %w", i, arcerr.ErrMalformedPayload, err)
		}
		out[i] = string(s)
	}
	return out, nil
}

// cut returns data up to the first all-zero unit of the given width.
func cut(data []byte, width int) string {
	for i := 0; i+width <= len(data); i += width {
		zero := true
		for _, b := range data[i : i+width] {
			zero = zero && b == 0
		}
		if zero {
			return string(data[:i])
		}
	}
	return string(data[:len(data)-len(data)%width])
}

// WriteText writes one string per line.
func WriteText(w io.Writer, items []string) error {
	bw := bufio.NewWriter(w)
	for _, s := range items {
		bw.WriteString(s)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
