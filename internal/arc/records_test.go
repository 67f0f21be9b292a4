package arc_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/jchantrell/arcbank/internal/arc"
	"github.com/jchantrell/arcbank/internal/arcerr"
	"github.com/jchantrell/arcbank/internal/binio"
)

func encode(fields ...any) *binio.Reader {
	var buf bytes.Buffer
	for _, f := range fields {
		if err := binary.Write(&buf, binary.LittleEndian, f); err != nil {
			panic(err)
		}
	}
	return binio.FromBytes(buf.Bytes())
}

func TestSwapWindingInvolution(t *testing.T) {
	tests := [][]uint16{
		{},
		{1},
		{0, 1, 2},
		{0, 1, 2, 3, 4, 5},
		{0, 1, 2, 3, 4},
	}

	for _, orig := range tests {
		got := slices.Clone(orig)
		arc.SwapWinding(got)
		if len(orig) >= 2 && got[0] != orig[1] {
			t.Errorf("SwapWinding(%v)[0] = %d, want %d", orig, got[0], orig[1])
		}
		arc.SwapWinding(got)
		if !slices.Equal(got, orig) {
			t.Errorf("SwapWinding twice = %v, want %v", got, orig)
		}
	}
}

func TestReadIndexBuffer(t *testing.T) {
	tests := []struct {
		name     string
		indices  []uint16
		want     []uint16
		elemSize int
	}{
		{"narrow", []uint16{0, 1, 2, 2, 1, 3}, []uint16{1, 0, 2, 1, 2, 3}, 2},
		{"restart widens", []uint16{0, 1, 0xffff}, []uint16{1, 0, 0xffff}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ib, err := arc.ReadIndexBuffer(encode(uint32(len(tt.indices)), tt.indices))
			if err != nil {
				t.Fatalf("ReadIndexBuffer() error = %v", err)
			}
			if !slices.Equal(ib.Indices, tt.want) {
				t.Errorf("Indices = %v, want %v", ib.Indices, tt.want)
			}

			data, size := ib.Encode()
			if size != tt.elemSize {
				t.Errorf("Encode() element size = %d, want %d", size, tt.elemSize)
			}
			if len(data) != len(tt.want)*size {
				t.Errorf("Encode() length = %d, want %d", len(data), len(tt.want)*size)
			}
			if size == 4 && binary.LittleEndian.Uint32(data[8:]) != 0xffff {
				t.Errorf("widened restart index = %#x, want 0xffff", binary.LittleEndian.Uint32(data[8:]))
			}
		})
	}
}

func TestVertexLayout(t *testing.T) {
	tests := []struct {
		name  string
		flags arc.VertexFlags
		want  []arc.Attribute
	}{
		{
			name:  "position only",
			flags: arc.VertexPosition,
			want:  []arc.Attribute{{Usage: arc.UsagePosition, Offset: 0, Format: arc.FormatFloat3}},
		},
		{
			name:  "color after normal",
			flags: arc.VertexPosition | arc.VertexColor | arc.VertexNormal | arc.VertexUV0,
			want: []arc.Attribute{
				{Usage: arc.UsagePosition, Offset: 0, Format: arc.FormatFloat3},
				{Usage: arc.UsageNormal, Offset: 12, Format: arc.FormatFloat3},
				{Usage: arc.UsageColor, Offset: 24, Format: arc.FormatUnorm8x4},
				{Usage: arc.UsageTexCoord, Offset: 28, Format: arc.FormatFloat2},
			},
		},
		{
			name:  "skinned",
			flags: arc.VertexPosition | arc.VertexUV1 | arc.VertexBoneWeight,
			want: []arc.Attribute{
				{Usage: arc.UsagePosition, Offset: 0, Format: arc.FormatFloat3},
				{Usage: arc.UsageTexCoord, Set: 1, Offset: 12, Format: arc.FormatFloat2},
				{Usage: arc.UsageBoneWeights, Offset: 20, Format: arc.FormatFloat4},
				{Usage: arc.UsageBoneIndices, Offset: 36, Format: arc.FormatUint8x4},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stride := uint32(64)
			vb, err := arc.ReadVertexBuffer(encode(uint32(1), stride, tt.flags, make([]byte, stride)))
			if err != nil {
				t.Fatalf("ReadVertexBuffer() error = %v", err)
			}
			if !slices.Equal(vb.Attributes(), tt.want) {
				t.Errorf("Attributes() = %+v, want %+v", vb.Attributes(), tt.want)
			}
		})
	}
}

func TestVertexBufferStrideTooSmall(t *testing.T) {
	_, err := arc.ReadVertexBuffer(encode(uint32(1), uint32(8), arc.VertexPosition, make([]byte, 8)))
	if !errors.Is(err, arcerr.ErrMalformedPayload) {
		t.Errorf("ReadVertexBuffer() error = %v, want ErrMalformedPayload", err)
	}
}

func TestDeformPositions(t *testing.T) {
	curve := make([]float32, 9)
	for i := range curve {
		curve[i] = float32(i)
	}
	stride := uint32(12 + 36)
	vb, err := arc.ReadVertexBuffer(encode(uint32(1), stride, arc.VertexPosition|arc.VertexDeformCurve, [3]float32{}, curve))
	if err != nil {
		t.Fatalf("ReadVertexBuffer() error = %v", err)
	}

	got := vb.DeformPositions()
	want := mgl32.Vec3{1, 4, 7}
	if len(got) != 1 || got[0] != want {
		t.Errorf("DeformPositions() = %v, want [%v]", got, want)
	}
}

func TestReadMesh(t *testing.T) {
	var hdr arc.MeshHeader
	hdr.NumPrimitives = 1
	prim := arc.PrimitiveHeader{MaterialIndex: 1}

	r := encode(hdr, prim, uint32(2),
		uint32(1), uint32(2), []uint32{3, 6},
		uint32(0), arc.Cluster{IndexStart: 3, IndexCount: 6, VertexStart: 0, VertexCount: 4})

	m, err := arc.ReadMesh(r)
	if err != nil {
		t.Fatalf("ReadMesh() error = %v", err)
	}
	if len(m.Primitives) != 1 || len(m.Primitives[0].Modifiers) != 2 {
		t.Fatalf("ReadMesh() primitives = %+v", m.Primitives)
	}
	skin, ok := m.Primitives[0].Modifiers[0].(arc.Skin)
	if !ok || !slices.Equal(skin.Joints, []uint32{3, 6}) {
		t.Errorf("modifier 0 = %+v, want skin [3 6]", m.Primitives[0].Modifiers[0])
	}
	cluster, ok := m.Primitives[0].Modifiers[1].(arc.Cluster)
	if !ok || cluster.IndexCount != 6 {
		t.Errorf("modifier 1 = %+v, want cluster of 6", m.Primitives[0].Modifiers[1])
	}

	bad := encode(hdr, prim, uint32(1), uint32(9))
	if _, err := arc.ReadMesh(bad); !errors.Is(err, arcerr.ErrMalformedPayload) {
		t.Errorf("ReadMesh() with unknown modifier error = %v, want ErrMalformedPayload", err)
	}
}

func TestReadMaterial(t *testing.T) {
	var hdr arc.MaterialHeader
	hdr.TextureBaseIndex = 2

	r := encode(hdr, uint32(5),
		uint32(2), [3]float32{1, 2, 3},
		uint32(7),
		uint32(0), int32(-1), [6]int32{},
		uint32(5), int32(1), [6]int32{}, uint32(2), []uint32{9, 9},
		uint32(6), int32(0), [6]int32{}, uint32(0), [4]uint8{1, 2, 3, 4},
	)

	m, err := arc.ReadMaterial(r)
	if err != nil {
		t.Fatalf("ReadMaterial() error = %v", err)
	}

	wantKinds := []uint32{2, 7, 0, 5, 6}
	for i, p := range m.Params {
		if p.Kind() != wantKinds[i] {
			t.Errorf("param %d Kind() = %d, want %d", i, p.Kind(), wantKinds[i])
		}
	}

	if _, ok := m.Params[2].TextureIndex(); ok {
		t.Error("param with texture -1 reports a texture")
	}
	if idx, ok := m.Params[3].TextureIndex(); !ok || idx != 1 {
		t.Errorf("list param TextureIndex() = %d, %v, want 1, true", idx, ok)
	}
	if lb, ok := m.Params[4].(arc.ListBytesParam); !ok || lb.Bytes != [4]uint8{1, 2, 3, 4} {
		t.Errorf("param 4 = %+v, want ListBytesParam", m.Params[4])
	}

	bad := encode(hdr, uint32(1), uint32(8))
	if _, err := arc.ReadMaterial(bad); !errors.Is(err, arcerr.ErrMalformedPayload) {
		t.Errorf("ReadMaterial() with unknown param error = %v, want ErrMalformedPayload", err)
	}
}

func TestReadTexturePalette(t *testing.T) {
	palette := make([]uint32, 256)
	palette[1] = 0xff0000ff
	palette[2] = 0x80402010
	indices := []byte{1, 2, 0, 1}

	hdr := arc.TextureHeader{Width: 2, Height: 2, NumMips: 1, Format: arc.FormatPalette}
	size := 20 + 4 + 1024 + len(indices)

	tex, err := arc.ReadTexture(encode(hdr, uint32(1), palette, indices), size)
	if err != nil {
		t.Fatalf("ReadTexture() error = %v", err)
	}
	if tex.Format != arc.FormatRGBA8 {
		t.Errorf("Format = %v, want RGBA8", tex.Format)
	}
	want := []byte{0xff, 0, 0, 0xff, 0x10, 0x20, 0x40, 0x80, 0, 0, 0, 0, 0xff, 0, 0, 0xff}
	if !bytes.Equal(tex.Data, want) {
		t.Errorf("Data = %x, want %x", tex.Data, want)
	}
}

func TestReadTextureUnknownFormat(t *testing.T) {
	hdr := arc.TextureHeader{Width: 1, Height: 1, Format: 0x77}
	_, err := arc.ReadTexture(encode(hdr, uint32(0)), 24)
	if !errors.Is(err, arcerr.ErrMalformedPayload) {
		t.Errorf("ReadTexture() error = %v, want ErrMalformedPayload", err)
	}
}

func TestReadNodes(t *testing.T) {
	base := arc.NodeBase{ParentBone: -1, TM0: mgl32.Ident4()}

	dm := arc.DeformedModel{Model: arc.Model{NodeBase: base, MeshIndex: 4}}
	for i := range dm.Meshes {
		dm.Meshes[i] = -1
	}
	dm.Meshes[3] = 7

	n, err := arc.ReadNode(encode(dm), arc.TypeAnimatedModel)
	if err != nil {
		t.Fatalf("ReadNode() error = %v", err)
	}
	mn, ok := n.(arc.MeshNode)
	if !ok {
		t.Fatalf("ReadNode() = %T, want MeshNode", n)
	}
	if got := mn.MeshKeys(); !slices.Equal(got, []int32{4, 7}) {
		t.Errorf("MeshKeys() = %v, want [4 7]", got)
	}
	if n.Base().ParentBone != -1 {
		t.Errorf("ParentBone = %d, want -1", n.Base().ParentBone)
	}

	bone := arc.Bone{NodeBase: base, Slot: 2, Position: mgl32.Vec3{1, 2, 3}, Rotation: mgl32.Vec4{0.6, 0, 0, 0.8}}
	n, err = arc.ReadNode(encode(bone), arc.TypeRigNode)
	if err != nil {
		t.Fatalf("ReadNode(bone) error = %v", err)
	}
	b := n.(*arc.Bone)
	if b.Slot != 2 || b.Position != (mgl32.Vec3{1, 2, 3}) {
		t.Errorf("bone = %+v", b)
	}
	if q := arc.QuatXYZW(b.Rotation); q.W != 0.8 || q.V != (mgl32.Vec3{0.6, 0, 0}) {
		t.Errorf("QuatXYZW(Rotation) = %v, want w 0.8 and x 0.6", q)
	}

	inst := arc.Model{NodeBase: base, MeshIndex: 1}
	n, err = arc.ReadNode(encode(inst, uint32(2), uint32(0), [][4]int8{{1, 2, 3, 4}, {5, 6, 7, 8}}, [][4]int8{{0, 0, 0, 127}, {0, 0, 0, 127}}), arc.TypeInstancedModel)
	if err != nil {
		t.Fatalf("ReadNode(instanced) error = %v", err)
	}
	if im := n.(*arc.InstancedModel); len(im.Positions) != 2 || im.Positions[1][0] != 5 {
		t.Errorf("instanced = %+v", im)
	}

	if _, err := arc.ReadNode(encode(base), arc.TypeMesh); !errors.Is(err, arcerr.ErrMalformedPayload) {
		t.Errorf("ReadNode(mesh) error = %v, want ErrMalformedPayload", err)
	}
}

func TestQuatXYZW(t *testing.T) {
	q := arc.QuatXYZW(mgl32.Vec4{0.1, 0.2, 0.3, 0.9})
	if q.W != 0.9 || q.V != (mgl32.Vec3{0.1, 0.2, 0.3}) {
		t.Errorf("QuatXYZW() = %v, want w last", q)
	}
	if c := q.Conjugate(); c.W != 0.9 || c.V[0] != -0.1 {
		t.Errorf("Conjugate() = %v", c)
	}
}

func TestReadAnimatedNode(t *testing.T) {
	hdr := arc.AnimatedNodeHeader{NumFrames: 10, NumPosFrames: 2, NumRotFrames: 1}
	r := encode(hdr, []uint16{0, 9}, []mgl32.Vec3{{1, 2, 3}, {4, 5, 6}}, []uint16{4}, []mgl32.Vec4{{0, 0, float32(math.Sqrt2 / 2), float32(math.Sqrt2 / 2)}})

	n, err := arc.ReadAnimatedNode(r)
	if err != nil {
		t.Fatalf("ReadAnimatedNode() error = %v", err)
	}
	if !slices.Equal(n.PosFrames, []uint16{0, 9}) || n.Positions[1] != (mgl32.Vec3{4, 5, 6}) {
		t.Errorf("positions = %v %v", n.PosFrames, n.Positions)
	}
	if len(n.Rotations) != 1 || n.RotFrames[0] != 4 {
		t.Errorf("rotations = %v %v", n.RotFrames, n.Rotations)
	}
}
