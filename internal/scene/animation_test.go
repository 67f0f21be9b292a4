package scene

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/jchantrell/arcbank/internal/arc"
	"github.com/jchantrell/arcbank/internal/arc/arctest"
	"github.com/jchantrell/arcbank/internal/arcerr"
	"github.com/jchantrell/arcbank/internal/binio"
	"github.com/jchantrell/arcbank/internal/gltf"
)

func addChannel(b *arctest.Builder, name string, frames []uint16) {
	b.Add(arc.TypeAnimatedNode, name,
		arc.AnimatedNodeHeader{NumFrames: uint16(len(frames)), NumPosFrames: uint16(len(frames)), NumRotFrames: uint16(len(frames))},
		frames, make([]mgl32.Vec3, len(frames)),
		frames, make([]mgl32.Vec4, len(frames)),
	)
}

func TestReadClips(t *testing.T) {
	b := arctest.New()
	addChannel(b, "early", []uint16{0})
	b.Add(arc.TypeAnimation, "walk", arc.AnimationHeader{EndFrame: 30, FrameRate: 30, NumNodes: 2}, []uint32{0, 0})
	addChannel(b, "hip", []uint16{0, 15, 30})
	addChannel(b, "knee", []uint16{0})
	b.Add(arc.TypeAnimation, "run", arc.AnimationHeader{FrameRate: 60})

	a, err := arc.Open(binio.FromBytes(b.Bytes()))
	if err != nil {
		t.Fatalf("arc.Open() error = %v", err)
	}
	clips, ws, err := ReadClips(a)
	if err != nil {
		t.Fatalf("ReadClips() error = %v", err)
	}

	if len(clips) != 2 || clips[0].Name != "walk" || clips[1].Name != "run" {
		t.Fatalf("clips = %v, want walk and run", clips)
	}
	if len(clips[0].Channels) != 2 || len(clips[1].Channels) != 0 {
		t.Errorf("channels = %d/%d, want 2/0", len(clips[0].Channels), len(clips[1].Channels))
	}
	if len(ws) != 1 || ws[0].Kind != WarnOrphanChannel || ws[0].Name != "early" {
		t.Errorf("warnings = %v, want orphan channel early", ws)
	}
}

func TestAnimatorAdd(t *testing.T) {
	doc := gltf.New()
	node, _ := doc.AppendNode()
	node.Name = "hip"

	clip := &Clip{
		Animation: &arc.Animation{AnimationHeader: arc.AnimationHeader{FrameRate: 30}, Name: "walk"},
		Channels: []*arc.AnimatedNode{
			{
				Name:      "hip",
				PosFrames: []uint16{15, 30},
				Positions: []mgl32.Vec3{{0, 1, 0}, {0, 2, 0}},
				RotFrames: []uint16{0},
				Rotations: []mgl32.Vec4{{0, 0, 0, 1}},
			},
			{Name: "tail", PosFrames: []uint16{0}, Positions: []mgl32.Vec3{{}}},
		},
	}

	an := NewAnimator(doc)
	if err := an.Add(clip); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if len(doc.Animations) != 1 {
		t.Fatalf("animations = %d, want 1", len(doc.Animations))
	}
	anim := doc.Animations[0]
	if len(anim.Channels) != 2 || len(anim.Samplers) != 2 {
		t.Fatalf("channels/samplers = %d/%d, want 2/2", len(anim.Channels), len(anim.Samplers))
	}
	if p := anim.Channels[0].Target.Path; p != gltf.PathTranslation {
		t.Errorf("first channel path = %s, want translation", p)
	}

	times := doc.Accessors[anim.Samplers[0].Input]
	if times.Min[0] != 0.5 || times.Max[0] != 1 {
		t.Errorf("time bounds = %v..%v, want 0.5..1", times.Min, times.Max)
	}

	rot := doc.Accessors[anim.Samplers[1].Output]
	if rot.ComponentType != gltf.ComponentShort || !rot.Normalized || rot.Type != gltf.TypeVec4 {
		t.Errorf("rotation accessor = %+v, want normalized short VEC4", rot)
	}

	ws := an.Warnings()
	if len(ws) != 1 || ws[0].Kind != WarnMissingNode || ws[0].Name != "tail" {
		t.Errorf("Warnings() = %v, want missing node tail", ws)
	}
}

func TestAnimatorRejectsZeroFrameRate(t *testing.T) {
	clip := &Clip{Animation: &arc.Animation{Name: "still"}}
	err := NewAnimator(gltf.New()).Add(clip)
	if !errors.Is(err, arcerr.ErrMalformedPayload) {
		t.Errorf("Add() error = %v, want ErrMalformedPayload", err)
	}
}
