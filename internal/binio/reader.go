// Package binio provides a seekable binary cursor over archive data.
//
// Offsets passed to Seek and returned by Tell are relative to the current
// origin, which starts at the beginning of the stream and can be moved with
// SetRelativeOrigin. Push and Pop save and restore the position together
// with the origin and byte order, and must be strictly nested.
package binio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/jchantrell/arcbank/internal/arcerr"
)

type state struct {
	pos     int64
	origin  int64
	swapped bool
}

// Reader is a little-endian cursor over an io.ReaderAt with an optional
// byte order swap.
type Reader struct {
	src     io.ReaderAt
	size    int64
	pos     int64
	origin  int64
	swapped bool
	stack   []state
}

// NewReader creates a cursor over size bytes of src.
func NewReader(src io.ReaderAt, size int64) *Reader {
	return &Reader{src: src, size: size}
}

// FromBytes creates a cursor over an in-memory buffer.
func FromBytes(data []byte) *Reader {
	return NewReader(bytes.NewReader(data), int64(len(data)))
}

// File is a Reader backed by an open file.
type File struct {
	*Reader
	f *os.File
}

// OpenFile opens name for reading through a cursor.
func OpenFile(name string) (*File, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", name, err)
	}
	return &File{Reader: NewReader(f, info.Size()), f: f}, nil
}

// Close closes the underlying file.
func (f *File) Close() error {
	return f.f.Close()
}

// Name returns the path the file was opened with.
func (f *File) Name() string {
	return f.f.Name()
}

// ByteOrder returns the order used for multi-byte reads.
func (r *Reader) ByteOrder() binary.ByteOrder {
	if r.swapped {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// SwapEndian switches reads to big-endian when swap is true.
func (r *Reader) SwapEndian(swap bool) {
	r.swapped = swap
}

// SwappedEndian reports whether reads are currently big-endian.
func (r *Reader) SwappedEndian() bool {
	return r.swapped
}

// Size returns the number of bytes between the origin and the end of the stream.
func (r *Reader) Size() int64 {
	return r.size - r.origin
}

// Remaining returns the number of bytes left after the cursor.
func (r *Reader) Remaining() int64 {
	return r.size - r.pos
}

// Tell returns the cursor position relative to the origin.
func (r *Reader) Tell() int64 {
	return r.pos - r.origin
}

// Seek moves the cursor to off, relative to the origin.
func (r *Reader) Seek(off int64) error {
	abs := r.origin + off
	if abs < 0 || abs > r.size {
		return fmt.Errorf("seek to %#x outside stream of %d bytes: %w", abs, r.size, arcerr.ErrMalformedPayload)
	}
	r.pos = abs
	return nil
}

// Skip moves the cursor n bytes forward (or backward when negative).
func (r *Reader) Skip(n int64) error {
	return r.Seek(r.Tell() + n)
}

// SetRelativeOrigin moves the origin to off, given in current relative
// coordinates, and places the cursor on it.
func (r *Reader) SetRelativeOrigin(off int64) {
	r.origin += off
	r.pos = r.origin
}

// Push saves the position, origin and byte order.
func (r *Reader) Push() {
	r.stack = append(r.stack, state{pos: r.pos, origin: r.origin, swapped: r.swapped})
}

// Pop restores the state saved by the matching Push.
func (r *Reader) Pop() {
	if len(r.stack) == 0 {
		panic("binio: Pop without matching Push")
	}
	s := r.stack[len(r.stack)-1]
	r.stack = r.stack[:len(r.stack)-1]
	r.pos, r.origin, r.swapped = s.pos, s.origin, s.swapped
}

// Save pushes the current state and returns the matching Pop, so callers
// can write `defer r.Save()()`.
func (r *Reader) Save() func() {
	r.Push()
	return r.Pop
}

// Depth returns the number of outstanding pushes.
func (r *Reader) Depth() int {
	return len(r.stack)
}

// Read implements io.Reader from the cursor position.
func (r *Reader) Read(p []byte) (int, error) {
	if r.pos >= r.size {
		return 0, io.EOF
	}
	if rem := r.size - r.pos; int64(len(p)) > rem {
		p = p[:rem]
	}
	n, err := r.src.ReadAt(p, r.pos)
	r.pos += int64(n)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

// ReadValue decodes a fixed-size value (or slice of them) at the cursor.
func (r *Reader) ReadValue(v any) error {
	at := r.Tell()
	if err := binary.Read(r, r.ByteOrder(), v); err != nil {
		return fmt.Errorf("reading %T at %#x: %w: %w", v, at, arcerr.ErrMalformedPayload, err)
	}
	return nil
}

// ReadBytes reads exactly n raw bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || int64(n) > r.Remaining() {
		return nil, fmt.Errorf("reading %d bytes at %#x with %d left: %w", n, r.Tell(), r.Remaining(), arcerr.ErrMalformedPayload)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("reading %d bytes at %#x: %w: %w", n, r.Tell(), arcerr.ErrMalformedPayload, err)
	}
	return buf, nil
}

// ReadString reads a fixed-length field and cuts it at the first NUL.
func (r *Reader) ReadString(n int) (string, error) {
	buf, err := r.ReadBytes(n)
	if err != nil {
		return "", err
	}
	return CString(buf, 0), nil
}

// ReadCString reads a NUL-terminated string and leaves the cursor after the terminator.
func (r *Reader) ReadCString() (string, error) {
	var out []byte
	var chunk [64]byte
	for {
		start := r.pos
		n, err := r.Read(chunk[:])
		if n == 0 {
			if err == nil {
				err = io.ErrUnexpectedEOF
			}
			return "", fmt.Errorf("reading string at %#x: %w: %w", start-r.origin, arcerr.ErrMalformedPayload, err)
		}
		if i := bytes.IndexByte(chunk[:n], 0); i >= 0 {
			out = append(out, chunk[:i]...)
			r.pos = start + int64(i) + 1
			return string(out), nil
		}
		out = append(out, chunk[:n]...)
	}
}

// Read decodes a single fixed-size value of type T.
func Read[T any](r *Reader) (T, error) {
	var v T
	err := r.ReadValue(&v)
	return v, err
}

// ReadContainer decodes count consecutive values of type T.
func ReadContainer[T any](r *Reader, count int) ([]T, error) {
	var zero T
	elem := binary.Size(zero)
	if elem < 0 {
		return nil, fmt.Errorf("binio: %T has no fixed size", zero)
	}
	if count < 0 || int64(count)*int64(elem) > r.Remaining() {
		return nil, fmt.Errorf("reading %d x %T at %#x with %d bytes left: %w", count, zero, r.Tell(), r.Remaining(), arcerr.ErrMalformedPayload)
	}
	out := make([]T, count)
	if count == 0 {
		return out, nil
	}
	if err := r.ReadValue(out); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadCounted reads a u32 element count followed by that many values.
func ReadCounted[T any](r *Reader) ([]T, error) {
	n, err := Read[uint32](r)
	if err != nil {
		return nil, err
	}
	return ReadContainer[T](r, int(n))
}

// CString returns the NUL-terminated string starting at off in data.
func CString(data []byte, off int) string {
	if off < 0 || off >= len(data) {
		return ""
	}
	end := bytes.IndexByte(data[off:], 0)
	if end < 0 {
		return string(data[off:])
	}
	return string(data[off : off+end])
}
