package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/jchantrell/arcbank/internal/arc"
	"github.com/jchantrell/arcbank/internal/arc/arctest"
	"github.com/jchantrell/arcbank/internal/catalog"
	"github.com/jchantrell/arcbank/internal/config"
	"github.com/jchantrell/arcbank/internal/export"
	"github.com/jchantrell/arcbank/internal/gltf"
	"github.com/jchantrell/arcbank/internal/texel"
)

func testBank() []byte {
	root := arc.NodeBase{TM0: mgl32.Ident4(), ParentBone: -1}

	b := arctest.New()
	b.Add(arc.TypeModel, "body", arc.Model{NodeBase: root, MeshIndex: 0})
	b.Add(arc.TypeMaterial, "mat", arc.MaterialHeader{}, uint32(0))
	b.Add(arc.TypeVertexBuffer, "", uint32(3), uint32(12), arc.VertexPosition,
		[3][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	b.Add(arc.TypeIndexBuffer, "", uint32(3), []uint16{0, 1, 2})
	b.Add(arc.TypeMesh, "body_mesh",
		arc.MeshHeader{NumPrimitives: 1}, arc.PrimitiveHeader{}, uint32(1),
		uint32(0), arc.Cluster{IndexCount: 3, VertexCount: 3})
	b.Add(arc.TypePlainData, "notes", []byte("hello"))
	return b.Bytes()
}

func TestExtractBank(t *testing.T) {
	cfg = &config.Config{TextureFormat: "png", LogLevel: "info", LogFormat: "text"}

	dir := t.TempDir()
	path := filepath.Join(dir, "HERO.ARC")
	if err := os.WriteFile(path, testBank(), 0644); err != nil {
		t.Fatal(err)
	}

	j := &job{
		path:   path,
		record: &catalog.Archive{Path: path, Kind: "arc"},
		out:    export.NewExporter(dir),
	}
	if err := extractBank(j, texel.NewCache(0)); err != nil {
		t.Fatalf("extractBank() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "HERO.glb"))
	if err != nil {
		t.Fatalf("scene not written: %v", err)
	}
	doc, err := gltf.Load(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("gltf.Load() error = %v", err)
	}
	if len(doc.Meshes) != 1 {
		t.Errorf("scene meshes = %d, want 1", len(doc.Meshes))
	}

	notes, err := os.ReadFile(filepath.Join(dir, "HERO", "notes"))
	if err != nil || string(notes) != "hello" {
		t.Errorf("loose notes = %q, %v, want hello", notes, err)
	}

	if j.record.Platform != arc.PlatformPC.String() || j.record.Version != arc.SupportedVersion {
		t.Errorf("record = %s v%d, want PC v%d", j.record.Platform, j.record.Version, arc.SupportedVersion)
	}
	if len(j.record.Entries) != 7 {
		t.Errorf("record entries = %d, want 7", len(j.record.Entries))
	}
	if got := len(j.out.Files()); got != 2 {
		t.Errorf("files written = %d, want 2", got)
	}
	if len(j.record.Warnings) != 0 {
		t.Errorf("warnings = %v, want none", j.record.Warnings)
	}
}
