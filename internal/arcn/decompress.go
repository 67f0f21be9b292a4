// Package arcn unpacks LZO compressed GameCube bank archives.
package arcn

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	lzo "github.com/rasky/go-lzo"

	"github.com/jchantrell/arcbank/internal/arcerr"
	"github.com/jchantrell/arcbank/internal/binio"
)

const (
	// Magic identifies a GameCube bank.
	Magic = "ARCN"
	// CompressedID marks a compressed body after the fixed header.
	CompressedID = 0xC0DEC0DE

	headerSize = 0x74
	// padSize zero bytes replace the compression header in the output.
	padSize = 0xc
)

// ErrNotCompressed reports a bank whose body is stored as is.
var ErrNotCompressed = errors.New("archive body is not compressed")

// Header is the compression header at the end of the fixed bank header.
type Header struct {
	CompID           uint32
	CompressedSize   uint32
	UncompressedSize uint32
}

// ReadHeader validates the magic and reads the compression header.
func ReadHeader(r *binio.Reader) (Header, error) {
	magic, err := r.ReadString(4)
	if err != nil {
		return Header{}, err
	}
	if magic != Magic {
		return Header{}, fmt.Errorf("magic %q, expected %s: %w", magic, Magic, arcerr.ErrInvalidFormat)
	}
	if err := r.Seek(headerSize); err != nil {
		return Header{}, err
	}
	hdr, err := binio.Read[Header](r)
	if err != nil {
		return Header{}, fmt.Errorf("reading compression header: %w", err)
	}
	if hdr.CompID != CompressedID {
		return hdr, ErrNotCompressed
	}
	return hdr, nil
}

// Decompress writes the decompressed bank to w: the original fixed header,
// zero padding in place of the compression header, then the LZO1X output.
func Decompress(r *binio.Reader, w io.Writer) (int64, error) {
	hdr, err := ReadHeader(r)
	if err != nil {
		return 0, err
	}

	packed, err := r.ReadBytes(int(hdr.CompressedSize))
	if err != nil {
		return 0, fmt.Errorf("reading compressed body: %w", err)
	}
	body, err := lzo.Decompress1X(bytes.NewReader(packed), len(packed), int(hdr.UncompressedSize))
	if err != nil {
		return 0, fmt.Errorf("decompressing LZO1X stream: %w: %w", arcerr.ErrMalformedPayload, err)
	}
	if len(body) != int(hdr.UncompressedSize) {
		return 0, fmt.Errorf("decompressed %d bytes, header declares %d: %w", len(body), hdr.UncompressedSize, arcerr.ErrMalformedPayload)
	}

	if err := r.Seek(0); err != nil {
		return 0, err
	}
	head, err := r.ReadBytes(headerSize)
	if err != nil {
		return 0, err
	}

	var n int64
	for _, chunk := range [][]byte{head, make([]byte, padSize), body} {
		m, err := w.Write(chunk)
		n += int64(m)
		if err != nil {
			return n, fmt.Errorf("writing output: %w", err)
		}
	}
	return n, nil
}
