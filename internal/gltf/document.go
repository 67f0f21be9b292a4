package gltf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const generator = "arcbank"

var errForeignAccessor = errors.New("accessor is not backed by a writable stream")

// New returns an empty document with a single default scene.
func New() *Document {
	return &Document{
		Asset:  Asset{Version: "2.0", Generator: generator},
		Scene:  Ptr(0),
		Scenes: []Scene{{}},
	}
}

// Stream is an addressable byte store that becomes one buffer view when
// the document is finalized. Bytes already written may be patched in place.
type Stream struct {
	Name string
	slot int
	data []byte
}

// Slot returns the buffer view index backing the stream.
func (s *Stream) Slot() int { return s.slot }

// Len returns the number of bytes written so far.
func (s *Stream) Len() int { return len(s.data) }

// Write appends p to the stream.
func (s *Stream) Write(p []byte) (int, error) {
	s.data = append(s.data, p...)
	return len(p), nil
}

// Bytes returns the stream contents. Writes through the returned slice
// patch the stream.
func (s *Stream) Bytes() []byte { return s.data }

// Align pads the stream with zeros to a multiple of n.
func (s *Stream) Align(n int) {
	if n <= 1 {
		return
	}
	if rem := len(s.data) % n; rem != 0 {
		s.data = append(s.data, make([]byte, n-rem)...)
	}
}

// NewStream allocates a stream and reserves its buffer view.
func (d *Document) NewStream(name string) *Stream {
	s := &Stream{Name: name, slot: len(d.BufferViews)}
	d.BufferViews = append(d.BufferViews, &BufferView{Name: name})
	d.streams = append(d.streams, s)
	return s
}

// NewAccessor aligns the stream and returns an accessor starting at its end.
func (d *Document) NewAccessor(s *Stream, alignment int) (*Accessor, int) {
	s.Align(alignment)
	acc := &Accessor{BufferView: Ptr(s.slot), ByteOffset: s.Len()}
	d.Accessors = append(d.Accessors, acc)
	return acc, len(d.Accessors) - 1
}

// CloneAccessor appends a copy of accessor idx and returns the copy.
func (d *Document) CloneAccessor(idx int) (*Accessor, int) {
	c := *d.Accessors[idx]
	d.Accessors = append(d.Accessors, &c)
	return &c, len(d.Accessors) - 1
}

// AccessorBytes returns the stream bytes covered by accessor idx.
func (d *Document) AccessorBytes(idx int) ([]byte, error) {
	if idx < 0 || idx >= len(d.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", idx)
	}
	acc := d.Accessors[idx]
	s := d.streamFor(acc)
	if s == nil {
		return nil, errForeignAccessor
	}
	end := acc.ByteOffset + acc.Count*acc.ElementSize()
	if end > s.Len() {
		return nil, fmt.Errorf("accessor %d ends at %d past stream %q of %d bytes", idx, end, s.Name, s.Len())
	}
	return s.data[acc.ByteOffset:end], nil
}

func (d *Document) streamFor(acc *Accessor) *Stream {
	if acc.BufferView == nil {
		return nil
	}
	for _, s := range d.streams {
		if s.slot == *acc.BufferView {
			return s
		}
	}
	return nil
}

// AppendNode adds an empty node and returns it with its index.
func (d *Document) AppendNode() (*Node, int) {
	n := &Node{}
	d.Nodes = append(d.Nodes, n)
	return n, len(d.Nodes) - 1
}

// AddRoot lists node idx as a root of the default scene.
func (d *Document) AddRoot(idx int) {
	d.Scenes[0].Nodes = append(d.Scenes[0].Nodes, idx)
}

// FindNode returns the index of the first node called name, or -1.
func (d *Document) FindNode(name string) int {
	for i, n := range d.Nodes {
		if n.Name == name {
			return i
		}
	}
	return -1
}

// AddImage embeds an encoded image in its own stream and returns the
// texture index that samples it.
func (d *Document) AddImage(name, mimeType string, data []byte) int {
	s := d.NewStream(name)
	s.Write(data)
	d.Images = append(d.Images, Image{Name: name, MimeType: mimeType, BufferView: Ptr(s.slot)})
	d.Textures = append(d.Textures, Texture{Name: name, Source: Ptr(len(d.Images) - 1)})
	return len(d.Textures) - 1
}

// VertexFormat is the source encoding of an interleaved vertex channel.
type VertexFormat int

const (
	VertexFloat2 VertexFormat = iota
	VertexFloat3
	VertexFloat4
	VertexUnorm8x4
	VertexUint8x4
	// VertexFloat4Unorm8 is four floats in [0,1] written as normalized bytes.
	VertexFloat4Unorm8
)

func (f VertexFormat) sourceWidth() int {
	switch f {
	case VertexFloat2:
		return 8
	case VertexFloat3:
		return 12
	case VertexFloat4, VertexFloat4Unorm8:
		return 16
	default:
		return 4
	}
}

// VertexAttribute describes one channel of an interleaved vertex.
type VertexAttribute struct {
	Semantic string
	Offset   int
	Format   VertexFormat
}

// SaveVertices de-interleaves count vertices of the given stride into
// tightly packed accessors on s, one per attribute, and returns the
// semantic to accessor map.
func (d *Document) SaveVertices(s *Stream, data []byte, count, stride int, attrs []VertexAttribute) (map[string]int, error) {
	if count*stride > len(data) {
		return nil, fmt.Errorf("%d vertices of stride %d need %d bytes, have %d", count, stride, count*stride, len(data))
	}

	out := make(map[string]int, len(attrs))
	for _, attr := range attrs {
		if attr.Offset+attr.Format.sourceWidth() > stride {
			return nil, fmt.Errorf("attribute %s at %d overruns stride %d", attr.Semantic, attr.Offset, stride)
		}

		acc, idx := d.NewAccessor(s, 4)
		acc.Count = count

		switch attr.Format {
		case VertexFloat2, VertexFloat3, VertexFloat4:
			acc.ComponentType = ComponentFloat
			acc.Type = map[VertexFormat]string{VertexFloat2: TypeVec2, VertexFloat3: TypeVec3, VertexFloat4: TypeVec4}[attr.Format]
			width := attr.Format.sourceWidth()
			for i := 0; i < count; i++ {
				base := i*stride + attr.Offset
				s.Write(data[base : base+width])
			}
		case VertexUnorm8x4, VertexUint8x4:
			acc.ComponentType = ComponentUnsignedByte
			acc.Type = TypeVec4
			acc.Normalized = attr.Format == VertexUnorm8x4
			for i := 0; i < count; i++ {
				base := i*stride + attr.Offset
				s.Write(data[base : base+4])
			}
		case VertexFloat4Unorm8:
			acc.ComponentType = ComponentUnsignedByte
			acc.Type = TypeVec4
			acc.Normalized = true
			var packed [4]byte
			for i := 0; i < count; i++ {
				base := i*stride + attr.Offset
				for c := 0; c < 4; c++ {
					packed[c] = unorm8(math.Float32frombits(binary.LittleEndian.Uint32(data[base+c*4:])))
				}
				s.Write(packed[:])
			}
		default:
			return nil, fmt.Errorf("attribute %s has unknown format %d", attr.Semantic, attr.Format)
		}

		if attr.Semantic == "POSITION" {
			d.setFloatBounds(s, acc)
		}
		out[attr.Semantic] = idx
	}

	return out, nil
}

// SavePositions writes packed float3 positions, used for morph targets.
func (d *Document) SavePositions(s *Stream, positions []mgl32.Vec3) int {
	acc, idx := d.NewAccessor(s, 4)
	acc.ComponentType = ComponentFloat
	acc.Type = TypeVec3
	acc.Count = len(positions)
	for _, p := range positions {
		binary.Write(s, binary.LittleEndian, p)
	}
	d.setFloatBounds(s, acc)
	return idx
}

// SaveIndices writes count indices of elementSize bytes (2 or 4) and
// returns the accessor index.
func (d *Document) SaveIndices(s *Stream, data []byte, count, elementSize int) (int, error) {
	if elementSize != 2 && elementSize != 4 {
		return -1, fmt.Errorf("index element size %d", elementSize)
	}
	if count*elementSize > len(data) {
		return -1, fmt.Errorf("%d indices need %d bytes, have %d", count, count*elementSize, len(data))
	}
	acc, idx := d.NewAccessor(s, 4)
	acc.Count = count
	acc.Type = TypeScalar
	acc.ComponentType = ComponentUnsignedShort
	if elementSize == 4 {
		acc.ComponentType = ComponentUnsignedInt
	}
	s.Write(data[:count*elementSize])
	return idx, nil
}

// setFloatBounds fills min/max from a float accessor's stream bytes.
func (d *Document) setFloatBounds(s *Stream, acc *Accessor) {
	n := ComponentCount(acc.Type)
	if acc.Count == 0 {
		return
	}
	acc.Min = make([]float32, n)
	acc.Max = make([]float32, n)
	for c := 0; c < n; c++ {
		acc.Min[c] = float32(math.Inf(1))
		acc.Max[c] = float32(math.Inf(-1))
	}
	for i := 0; i < acc.Count; i++ {
		for c := 0; c < n; c++ {
			off := acc.ByteOffset + (i*n+c)*4
			v := math.Float32frombits(binary.LittleEndian.Uint32(s.data[off:]))
			acc.Min[c] = min(acc.Min[c], v)
			acc.Max[c] = max(acc.Max[c], v)
		}
	}
}

func unorm8(v float32) byte {
	switch {
	case v <= 0 || math.IsNaN(float64(v)):
		return 0
	case v >= 1:
		return 255
	}
	return byte(math.Round(float64(v) * 255))
}
