package arc

import (
	"fmt"

	"github.com/jchantrell/arcbank/internal/arcerr"
	"github.com/jchantrell/arcbank/internal/binio"
)

const (
	modifierCluster = 0
	modifierSkin    = 1
)

// Modifier is a Cluster or a Skin attached to a primitive.
type Modifier interface {
	modifier()
}

// Cluster is a drawable sub-range of the primitive's buffers.
type Cluster struct {
	IndexStart  uint32
	IndexCount  uint32
	VertexStart uint32
	VertexCount uint32
}

// Skin remaps the packed joint bytes of the clusters that follow it.
type Skin struct {
	Joints []uint32
}

func (Cluster) modifier() {}
func (Skin) modifier()    {}

// PrimitiveHeader holds buffer and material indices, local to the mesh's
// base indices.
type PrimitiveHeader struct {
	MaterialIndex     uint32
	IndexBufferIndex  uint32
	VertexBufferIndex uint32
	VertexBegin       uint32
	NumUsedVertices   uint32
	Offset0           uint32
	Count0            uint32
}

// Primitive is one draw call of a mesh. Its modifiers are applied in
// order, so a Skin affects the clusters after it.
type Primitive struct {
	PrimitiveHeader
	Modifiers []Modifier
}

// MeshHeader holds the base indices that primitive indices are added to.
type MeshHeader struct {
	NumCameras        uint32
	MaterialBaseIndex uint32
	IndexBaseIndex    uint32
	VertexBaseIndex   uint32
	Unk0              int32
	DeformedMeshIndex int32
	Unk1              uint32
	Unk2              [5]int32
	NumPrimitives     uint32
}

// Mesh is a Mesh, SkinnedMesh or DeformedMesh record.
type Mesh struct {
	MeshHeader
	Primitives []Primitive
}

// ReadMesh decodes a Mesh, SkinnedMesh or DeformedMesh record at the cursor.
func ReadMesh(r *binio.Reader) (*Mesh, error) {
	hdr, err := binio.Read[MeshHeader](r)
	if err != nil {
		return nil, fmt.Errorf("reading mesh header: %w", err)
	}

	m := &Mesh{MeshHeader: hdr}
	for i := 0; i < int(hdr.NumPrimitives); i++ {
		p, err := readPrimitive(r)
		if err != nil {
			return nil, fmt.Errorf("primitive %d: %w", i, err)
		}
		m.Primitives = append(m.Primitives, p)
	}

	return m, nil
}

func readPrimitive(r *binio.Reader) (Primitive, error) {
	var p Primitive
	if err := r.ReadValue(&p.PrimitiveHeader); err != nil {
		return p, err
	}

	numMods, err := binio.Read[uint32](r)
	if err != nil {
		return p, err
	}

	for i := 0; i < int(numMods); i++ {
		kind, err := binio.Read[uint32](r)
		if err != nil {
			return p, err
		}

		switch kind {
		case modifierCluster:
			c, err := binio.Read[Cluster](r)
			if err != nil {
				return p, err
			}
			p.Modifiers = append(p.Modifiers, c)
		case modifierSkin:
			joints, err := binio.ReadCounted[uint32](r)
			if err != nil {
				return p, err
			}
			p.Modifiers = append(p.Modifiers, Skin{Joints: joints})
		default:
			return p, fmt.Errorf("unknown primitive modifier %d: %w", kind, arcerr.ErrMalformedPayload)
		}
	}

	return p, nil
}
