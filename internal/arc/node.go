package arc

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/jchantrell/arcbank/internal/arcerr"
	"github.com/jchantrell/arcbank/internal/binio"
)

// NodeBase is the transform header shared by every node record. The
// matrices are stored row by row with the translation in the last row,
// which is the column-major layout of mgl32 and glTF, so they are used as read.
type NodeBase struct {
	Unk0            [2]uint32
	TM0             mgl32.Mat4
	TM1             mgl32.Mat4
	BBox            [6]float32
	Unk1            int32
	ParentBone      int32
	NumChildren     int32
	StartChildIndex int32
}

// Base returns the shared header.
func (n *NodeBase) Base() *NodeBase { return n }

func (*NodeBase) node() {}

// Node is one of the node record types listed in ReadNode.
type Node interface {
	Base() *NodeBase
	node()
}

// MeshNode is a node that draws one or more meshes, addressed by mesh key.
type MeshNode interface {
	Node
	MeshKeys() []int32
}

// Skeleton is the root of a rig. IBM is the bind matrix every bone's TM2
// is combined with to form its inverse bind matrix.
type Skeleton struct {
	NodeBase
	MeshIndex           int32
	BBox1               [24]float32
	NumBones            uint32
	StartBoneEntryIndex uint32
	Unk1                uint32
	IBM                 mgl32.Mat4
}

func (s *Skeleton) MeshKeys() []int32 { return []int32{s.MeshIndex} }

// Bone is a rig node. Slot is its joint index in the archive's skin, or -1.
type Bone struct {
	NodeBase
	Slot     int32
	TM2      mgl32.Mat4
	Radius   float32
	Unk1     [4]uint16
	Null1    [4]uint32
	Null2    uint16
	Position mgl32.Vec3
	Null3    uint16
	// Rotation is the rest rotation as x, y, z, w.
	Rotation mgl32.Vec4
}

// QuatXYZW converts a quaternion stored as x, y, z, w.
func QuatXYZW(v mgl32.Vec4) mgl32.Quat {
	return mgl32.Quat{W: v[3], V: v.Vec3()}
}

// Model is a static node drawing the mesh with key MeshIndex.
type Model struct {
	NodeBase
	MeshIndex int32
	BBox1     [24]float32
}

func (m *Model) MeshKeys() []int32 { return []int32{m.MeshIndex} }

// SkinnedModel draws a mesh deformed by the bank's skin.
type SkinnedModel struct {
	Model
}

// DeformedModel draws its primary mesh plus up to 16 secondary meshes.
type DeformedModel struct {
	Model
	Meshes [16]int32
}

func (m *DeformedModel) MeshKeys() []int32 {
	keys := []int32{m.MeshIndex}
	for _, k := range m.Meshes {
		if k >= 0 {
			keys = append(keys, k)
		}
	}
	return keys
}

// AnimatedModel has the layout of DeformedModel.
type AnimatedModel struct {
	DeformedModel
}

// InstancedModel carries packed per-instance placements.
type InstancedModel struct {
	Model
	NumInstances uint32
	Unk          uint32
	Positions    [][4]int8
	Rotations    [][4]int8
}

// Transform-only nodes.
type (
	LightNode  struct{ NodeBase }
	Camera     struct{ NodeBase }
	Attachment struct{ NodeBase }
	UnkNode    struct{ NodeBase }
)

// ReadNode decodes the node record of type t at the cursor.
func ReadNode(r *binio.Reader, t Type) (Node, error) {
	var n Node
	switch t {
	case TypeSkeleton:
		n = &Skeleton{}
	case TypeRigNode:
		n = &Bone{}
	case TypeModel:
		n = &Model{}
	case TypeSkinnedModel:
		n = &SkinnedModel{}
	case TypeDeformedModel:
		n = &DeformedModel{}
	case TypeAnimatedModel:
		n = &AnimatedModel{}
	case TypeLightNode:
		n = &LightNode{}
	case TypeCamera:
		n = &Camera{}
	case TypeAttachment:
		n = &Attachment{}
	case TypeUnkNode:
		n = &UnkNode{}
	case TypeInstancedModel:
		return readInstancedModel(r)
	default:
		return nil, fmt.Errorf("%s is not a node: %w", t, arcerr.ErrMalformedPayload)
	}

	if err := r.ReadValue(n); err != nil {
		return nil, fmt.Errorf("reading %s: %w", t, err)
	}
	return n, nil
}

func readInstancedModel(r *binio.Reader) (*InstancedModel, error) {
	m := &InstancedModel{}
	if err := r.ReadValue(&m.Model); err != nil {
		return nil, fmt.Errorf("reading instanced model: %w", err)
	}

	var counts struct {
		NumInstances uint32
		Unk          uint32
	}
	if err := r.ReadValue(&counts); err != nil {
		return nil, fmt.Errorf("reading instance count: %w", err)
	}
	m.NumInstances, m.Unk = counts.NumInstances, counts.Unk

	var err error
	if m.Positions, err = binio.ReadContainer[[4]int8](r, int(m.NumInstances)); err != nil {
		return nil, fmt.Errorf("reading instance positions: %w", err)
	}
	if m.Rotations, err = binio.ReadContainer[[4]int8](r, int(m.NumInstances)); err != nil {
		return nil, fmt.Errorf("reading instance rotations: %w", err)
	}
	return m, nil
}
