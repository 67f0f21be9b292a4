package arc

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/jchantrell/arcbank/internal/arcerr"
	"github.com/jchantrell/arcbank/internal/binio"
)

// VertexFlags selects the channels present in a vertex buffer.
type VertexFlags uint32

const (
	VertexPosition VertexFlags = 1 << iota
	VertexColor
	VertexNormal
	VertexUV0
	VertexUV1
	VertexUV2
	VertexBoneWeight
	VertexDeformCurve
)

// Has reports whether flag is set. Each channel is tested on its own bit.
func (f VertexFlags) Has(flag VertexFlags) bool {
	return f&flag != 0
}

// Usage is the semantic of a vertex channel.
type Usage int

const (
	UsagePosition Usage = iota
	UsageNormal
	UsageColor
	UsageTexCoord
	UsageBoneWeights
	UsageBoneIndices
)

// Format is the in-buffer encoding of a vertex channel.
type Format int

const (
	FormatFloat3 Format = iota
	FormatFloat2
	FormatFloat4
	FormatUnorm8x4
	FormatUint8x4
)

// Width returns the encoded size of one element.
func (f Format) Width() int {
	switch f {
	case FormatFloat3:
		return 12
	case FormatFloat2:
		return 8
	case FormatFloat4:
		return 16
	default:
		return 4
	}
}

// Attribute describes one channel inside an interleaved vertex.
type Attribute struct {
	Usage  Usage
	Set    int
	Offset int
	Format Format
}

const deformCurveSize = 36

// VertexBuffer is an interleaved vertex block.
type VertexBuffer struct {
	NumVertices uint32
	Stride      uint32
	Flags       VertexFlags
	Data        []byte

	attrs        []Attribute
	deformOffset int
}

// ReadVertexBuffer decodes a vertex buffer record at the cursor.
func ReadVertexBuffer(r *binio.Reader) (*VertexBuffer, error) {
	var hdr struct {
		NumVertices uint32
		Stride      uint32
		Flags       VertexFlags
	}
	if err := r.ReadValue(&hdr); err != nil {
		return nil, fmt.Errorf("reading vertex buffer header: %w", err)
	}

	vb := &VertexBuffer{
		NumVertices: hdr.NumVertices,
		Stride:      hdr.Stride,
		Flags:       hdr.Flags,
	}
	vb.layout()

	end := vb.deformOffset
	if vb.Flags.Has(VertexDeformCurve) {
		end += deformCurveSize
	}
	if end > int(vb.Stride) {
		return nil, fmt.Errorf("vertex flags %#x need %d bytes, stride is %d: %w", vb.Flags, end, vb.Stride, arcerr.ErrMalformedPayload)
	}

	var err error
	vb.Data, err = r.ReadBytes(int(vb.NumVertices) * int(vb.Stride))
	if err != nil {
		return nil, fmt.Errorf("reading vertex data: %w", err)
	}

	return vb, nil
}

// layout accumulates channel offsets in the fixed channel order. A channel's
// offset depends only on which earlier flags are set.
func (vb *VertexBuffer) layout() {
	off := 0
	add := func(flag VertexFlags, usage Usage, set int, format Format) {
		if !vb.Flags.Has(flag) {
			return
		}
		vb.attrs = append(vb.attrs, Attribute{Usage: usage, Set: set, Offset: off, Format: format})
		off += format.Width()
	}

	add(VertexPosition, UsagePosition, 0, FormatFloat3)
	add(VertexNormal, UsageNormal, 0, FormatFloat3)
	add(VertexColor, UsageColor, 0, FormatUnorm8x4)
	add(VertexUV0, UsageTexCoord, 0, FormatFloat2)
	add(VertexUV1, UsageTexCoord, 1, FormatFloat2)
	add(VertexUV2, UsageTexCoord, 2, FormatFloat2)
	if vb.Flags.Has(VertexBoneWeight) {
		add(VertexBoneWeight, UsageBoneWeights, 0, FormatFloat4)
		add(VertexBoneWeight, UsageBoneIndices, 0, FormatUint8x4)
	}

	vb.deformOffset = off
}

// Attributes returns the standard channels in layout order.
func (vb *VertexBuffer) Attributes() []Attribute {
	return vb.attrs
}

// DeformPositions returns the on-curve point of every vertex's deform
// curve, or nil when the buffer has none. The curve stores three control
// points per axis and only the middle one is kept.
func (vb *VertexBuffer) DeformPositions() []mgl32.Vec3 {
	if !vb.Flags.Has(VertexDeformCurve) {
		return nil
	}
	out := make([]mgl32.Vec3, vb.NumVertices)
	for i := range out {
		base := i*int(vb.Stride) + vb.deformOffset
		for axis, off := range [3]int{4, 16, 28} {
			bits := binary.LittleEndian.Uint32(vb.Data[base+off:])
			out[i][axis] = math.Float32frombits(bits)
		}
	}
	return out
}
