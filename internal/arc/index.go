package arc

import (
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/jchantrell/arcbank/internal/binio"
)

// RestartIndex is the strip-restart sentinel that forces 32 bit output.
const RestartIndex = 0xffff

// IndexBuffer is a triangle list with winding already flipped.
type IndexBuffer struct {
	Indices []uint16
}

// ReadIndexBuffer decodes an index buffer record at the cursor.
func ReadIndexBuffer(r *binio.Reader) (*IndexBuffer, error) {
	indices, err := binio.ReadCounted[uint16](r)
	if err != nil {
		return nil, fmt.Errorf("reading index buffer: %w", err)
	}
	SwapWinding(indices)
	return &IndexBuffer{Indices: indices}, nil
}

// SwapWinding swaps the first two indices of every triangle in place.
// Applying it twice restores the input.
func SwapWinding(indices []uint16) {
	for i := 0; i+1 < len(indices); i += 3 {
		indices[i], indices[i+1] = indices[i+1], indices[i]
	}
}

// Wide reports whether the buffer holds a restart index and must be
// written with 32 bit elements.
func (ib *IndexBuffer) Wide() bool {
	return slices.Contains(ib.Indices, RestartIndex)
}

// ElementSize returns 4 for widened buffers and 2 otherwise.
func (ib *IndexBuffer) ElementSize() int {
	if ib.Wide() {
		return 4
	}
	return 2
}

// Encode returns the little-endian index bytes and their element size.
func (ib *IndexBuffer) Encode() ([]byte, int) {
	size := ib.ElementSize()
	out := make([]byte, len(ib.Indices)*size)
	for i, v := range ib.Indices {
		if size == 4 {
			binary.LittleEndian.PutUint32(out[i*4:], uint32(v))
		} else {
			binary.LittleEndian.PutUint16(out[i*2:], v)
		}
	}
	return out, size
}
