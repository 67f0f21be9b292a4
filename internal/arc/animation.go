package arc

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/jchantrell/arcbank/internal/binio"
)

type AnimationHeader struct {
	EndFrame  uint32
	FrameRate uint32
	NumNodes  uint32
}

// Animation starts a clip. Its channels are the AnimatedNode entries that
// follow it in the table.
type Animation struct {
	AnimationHeader
	Name  string
	Nulls []uint32
}

// ReadAnimation decodes an animation record at the cursor.
func ReadAnimation(r *binio.Reader) (*Animation, error) {
	hdr, err := binio.Read[AnimationHeader](r)
	if err != nil {
		return nil, fmt.Errorf("reading animation header: %w", err)
	}
	nulls, err := binio.ReadContainer[uint32](r, int(hdr.NumNodes))
	if err != nil {
		return nil, fmt.Errorf("reading animation node slots: %w", err)
	}
	return &Animation{AnimationHeader: hdr, Nulls: nulls}, nil
}

type AnimatedNodeHeader struct {
	NumFrames    uint16
	NumPosFrames uint16
	NumRotFrames uint16
	Null0        [9]uint16
}

// AnimatedNode is one channel: sparse position and rotation keys for the
// node of the same name.
type AnimatedNode struct {
	AnimatedNodeHeader
	Name      string
	PosFrames []uint16
	Positions []mgl32.Vec3
	RotFrames []uint16
	Rotations []mgl32.Vec4
}

// ReadAnimatedNode decodes an animated node record at the cursor.
func ReadAnimatedNode(r *binio.Reader) (*AnimatedNode, error) {
	hdr, err := binio.Read[AnimatedNodeHeader](r)
	if err != nil {
		return nil, fmt.Errorf("reading animated node header: %w", err)
	}

	n := &AnimatedNode{AnimatedNodeHeader: hdr}
	if n.PosFrames, err = binio.ReadContainer[uint16](r, int(hdr.NumPosFrames)); err != nil {
		return nil, fmt.Errorf("reading position frames: %w", err)
	}
	if n.Positions, err = binio.ReadContainer[mgl32.Vec3](r, int(hdr.NumPosFrames)); err != nil {
		return nil, fmt.Errorf("reading positions: %w", err)
	}
	if n.RotFrames, err = binio.ReadContainer[uint16](r, int(hdr.NumRotFrames)); err != nil {
		return nil, fmt.Errorf("reading rotation frames: %w", err)
	}
	if n.Rotations, err = binio.ReadContainer[mgl32.Vec4](r, int(hdr.NumRotFrames)); err != nil {
		return nil, fmt.Errorf("reading rotations: %w", err)
	}
	return n, nil
}
