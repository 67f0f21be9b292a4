package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/jchantrell/arcbank/internal/arc"
	"github.com/jchantrell/arcbank/internal/arc/arctest"
)

func animationBank() []byte {
	b := arctest.New()
	b.Add(arc.TypeAnimation, "walk", arc.AnimationHeader{EndFrame: 30, FrameRate: 30, NumNodes: 1}, []uint32{0})
	b.Add(arc.TypeAnimatedNode, "body",
		arc.AnimatedNodeHeader{NumFrames: 2, NumPosFrames: 2, NumRotFrames: 1},
		[]uint16{0, 30}, []mgl32.Vec3{{0, 0, 0}, {0, 1, 0}},
		[]uint16{0}, []mgl32.Vec4{{0, 0, 0, 1}},
	)
	return b.Bytes()
}

func TestLoadClipsSkipsBadBanks(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "WALK.ARC")
	corrupt := filepath.Join(dir, "BROKEN.ARC")
	if err := os.WriteFile(good, animationBank(), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(corrupt, []byte("ARCC\x01"), 0644); err != nil {
		t.Fatal(err)
	}

	banks, failed := loadClips([]string{corrupt, good, filepath.Join(dir, "MISSING.ARC")})
	if failed != 2 {
		t.Errorf("loadClips() failed = %d, want 2", failed)
	}
	if len(banks) != 1 || banks[0].path != good {
		t.Fatalf("loadClips() = %+v, want only %s", banks, good)
	}
	if len(banks[0].clips) != 1 || banks[0].clips[0].Name != "walk" || len(banks[0].clips[0].Channels) != 1 {
		t.Errorf("clips = %+v, want walk with one channel", banks[0].clips)
	}
}
