package scene

import (
	"fmt"
	"log/slog"
	"maps"
	"strconv"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/jchantrell/arcbank/internal/arc"
	"github.com/jchantrell/arcbank/internal/arcerr"
	"github.com/jchantrell/arcbank/internal/gltf"
	"github.com/jchantrell/arcbank/internal/texel"
)

// sceneImageFormat is the only encoding glTF readers accept without
// extensions besides JPEG.
const sceneImageFormat = "png"

// FileWriter receives the loose files of a bank.
type FileWriter interface {
	WriteFile(name string, data []byte) error
}

// Options controls how a bank is assembled.
type Options struct {
	// TextureFormat is the encoding of textures written as loose files.
	TextureFormat string
	// Cache memoizes encoded textures. Nil disables caching.
	Cache *texel.Cache
}

type textureRef struct {
	name string
	// offset is -1 for textures stored in another bank.
	offset int64
	size   int
	// index is the document texture, -1 until a material embeds it.
	index int
}

type vertexRef struct {
	attrs map[string]int
	morph map[string]int
}

type indexRef struct {
	accessor int
	count    int
	elemSize int
}

type meshRef struct {
	name string
	key  int32
	mesh *arc.Mesh
}

type nodeRef struct {
	name string
	node arc.Node
}

// Builder assembles one bank into a glTF document.
type Builder struct {
	arc  *arc.Archive
	opts Options
	doc  *gltf.Document

	textures []*textureRef
	vertices map[uint32]*vertexRef
	indices  map[uint32]*indexRef
	meshes   []meshRef
	skinned  []meshRef
	nodes    []nodeRef
	clips    *clipReader

	// models maps a mesh key to the document nodes that draw it.
	models    map[int32][]int
	skeleton  mgl32.Mat4
	bones     []int
	ibms      []mgl32.Mat4
	skinIndex int

	vertexStream *gltf.Stream
	indexStream  *gltf.Stream
	animator     *Animator
	warnings     warnings
}

// NewBuilder returns a builder for archive a.
func NewBuilder(a *arc.Archive, opts Options) *Builder {
	if opts.TextureFormat == "" {
		opts.TextureFormat = sceneImageFormat
	}
	if opts.Cache == nil {
		opts.Cache = texel.NewCache(0)
	}
	doc := gltf.New()
	return &Builder{
		arc:       a,
		opts:      opts,
		doc:       doc,
		vertices:  make(map[uint32]*vertexRef),
		indices:   make(map[uint32]*indexRef),
		clips:     newClipReader(),
		models:    make(map[int32][]int),
		skeleton:  mgl32.Ident4(),
		skinIndex: -1,
		animator:  NewAnimator(doc),
	}
}

// Document returns the document being assembled.
func (b *Builder) Document() *gltf.Document {
	return b.doc
}

// Warnings returns every unresolved reference met so far.
func (b *Builder) Warnings() []Warning {
	return append(append([]Warning(nil), b.warnings...), b.animator.Warnings()...)
}

// HasContent reports whether the document holds a mesh or an animation
// and is worth writing.
func (b *Builder) HasContent() bool {
	return len(b.doc.Meshes) > 0 || len(b.doc.Animations) > 0
}

// Build decodes every record the scene consumes and links them. Any decode
// error aborts the bank.
func (b *Builder) Build() error {
	a := b.arc
	for i, e := range a.Entries {
		if e.Type.Structural() || !e.Type.Decoded() {
			continue
		}
		if err := a.Seek(i); err != nil {
			return err
		}
		if err := b.scan(i, e); err != nil {
			return fmt.Errorf("entry %d %s %q: %w", i, e.Type, a.Name(i), err)
		}
	}

	if err := b.addNodes(); err != nil {
		return err
	}
	if err := b.addSkin(); err != nil {
		return err
	}

	for _, m := range b.meshes {
		if err := b.addMesh(m, int32(a.Header.NumSkinnedModels)); err != nil {
			return fmt.Errorf("mesh %q: %w", m.name, err)
		}
	}
	for _, m := range b.skinned {
		if err := b.addMesh(m, 0); err != nil {
			return fmt.Errorf("skinned mesh %q: %w", m.name, err)
		}
	}

	for _, clip := range b.clips.clips {
		if err := b.animator.Add(clip); err != nil {
			return err
		}
	}

	slog.Debug("Assembled scene",
		"nodes", len(b.doc.Nodes),
		"meshes", len(b.doc.Meshes),
		"materials", len(b.doc.Materials),
		"animations", len(b.doc.Animations))
	return nil
}

func (b *Builder) scan(i int, e arc.Entry) error {
	r := b.arc.Reader()
	name := b.arc.Name(i)

	switch t := e.Type; {
	case t == arc.TypeTexture:
		b.textures = append(b.textures, &textureRef{name: name, offset: int64(e.Offset), size: int(e.Size()), index: -1})
	case t == arc.TypeReferencedTexture:
		b.textures = append(b.textures, &textureRef{name: name, offset: -1, size: int(e.Size()), index: -1})
	case t == arc.TypeLightmapTexture:
		b.textures = append(b.textures, &textureRef{
			name:   name,
			offset: int64(e.Offset) + arc.LightmapPrefix,
			size:   int(e.Size()) - arc.LightmapPrefix,
			index:  -1,
		})

	case t == arc.TypeMesh, t == arc.TypeSkinnedMesh:
		m, err := arc.ReadMesh(r)
		if err != nil {
			return err
		}
		ref := meshRef{name: name, key: int32(e.Index), mesh: m}
		if t == arc.TypeSkinnedMesh {
			ref.key = max(ref.key, 0)
			b.skinned = append(b.skinned, ref)
		} else {
			b.meshes = append(b.meshes, ref)
		}
	case t == arc.TypeDeformedMesh:
		slog.Debug("Skipping deformed mesh", "name", name)

	case t == arc.TypeIndexBuffer:
		ib, err := arc.ReadIndexBuffer(r)
		if err != nil {
			return err
		}
		return b.addIndexBuffer(e.Index, ib)
	case t == arc.TypeVertexBuffer:
		vb, err := arc.ReadVertexBuffer(r)
		if err != nil {
			return err
		}
		return b.addVertexBuffer(e.Index, vb)

	case t == arc.TypeMaterial:
		m, err := arc.ReadMaterial(r)
		if err != nil {
			return err
		}
		return b.addMaterial(name, m)

	case t == arc.TypeAnimation, t == arc.TypeAnimatedNode:
		return b.clips.read(b.arc, i, &b.warnings)

	case t.IsNode():
		n, err := arc.ReadNode(r, t)
		if err != nil {
			return err
		}
		if s, ok := n.(*arc.Skeleton); ok {
			b.skeleton = s.IBM
		}
		b.nodes = append(b.nodes, nodeRef{name: name, node: n})
	}
	return nil
}

func (b *Builder) addIndexBuffer(slot uint32, ib *arc.IndexBuffer) error {
	if b.indexStream == nil {
		b.indexStream = b.doc.NewStream("indices")
	}
	data, size := ib.Encode()
	acc, err := b.doc.SaveIndices(b.indexStream, data, len(ib.Indices), size)
	if err != nil {
		return fmt.Errorf("saving indices: %w", err)
	}
	b.indices[slot] = &indexRef{accessor: acc, count: len(ib.Indices), elemSize: size}
	return nil
}

var usageSemantics = map[arc.Usage]string{
	arc.UsagePosition:    "POSITION",
	arc.UsageNormal:      "NORMAL",
	arc.UsageColor:       "COLOR",
	arc.UsageTexCoord:    "TEXCOORD",
	arc.UsageBoneWeights: "WEIGHTS",
	arc.UsageBoneIndices: "JOINTS",
}

func vertexAttributes(vb *arc.VertexBuffer) []gltf.VertexAttribute {
	var attrs []gltf.VertexAttribute
	for _, a := range vb.Attributes() {
		semantic := usageSemantics[a.Usage]
		if a.Usage != arc.UsagePosition && a.Usage != arc.UsageNormal {
			semantic += "_" + strconv.Itoa(a.Set)
		}

		var format gltf.VertexFormat
		switch a.Format {
		case arc.FormatFloat2:
			format = gltf.VertexFloat2
		case arc.FormatFloat3:
			format = gltf.VertexFloat3
		case arc.FormatUnorm8x4:
			format = gltf.VertexUnorm8x4
		case arc.FormatUint8x4:
			format = gltf.VertexUint8x4
		case arc.FormatFloat4:
			// skin remap reads one byte per weight
			format = gltf.VertexFloat4Unorm8
		}
		attrs = append(attrs, gltf.VertexAttribute{Semantic: semantic, Offset: a.Offset, Format: format})
	}
	return attrs
}

func (b *Builder) addVertexBuffer(slot uint32, vb *arc.VertexBuffer) error {
	if b.vertexStream == nil {
		b.vertexStream = b.doc.NewStream("vertices")
	}
	attrs, err := b.doc.SaveVertices(b.vertexStream, vb.Data, int(vb.NumVertices), int(vb.Stride), vertexAttributes(vb))
	if err != nil {
		return fmt.Errorf("saving vertices: %w", err)
	}
	ref := &vertexRef{attrs: attrs}
	if deform := vb.DeformPositions(); deform != nil {
		ref.morph = map[string]int{"POSITION": b.doc.SavePositions(b.vertexStream, deform)}
	}
	b.vertices[slot] = ref
	return nil
}

// addMaterial embeds the textures of the leading run of params that point
// into this bank and binds the last of them as base color. The run ends at
// the first param without a texture or with a texture stored elsewhere.
func (b *Builder) addMaterial(name string, m *arc.Material) error {
	mat := gltf.Material{
		Name:        name,
		DoubleSided: true,
		AlphaMode:   "MASK",
	}

	for _, p := range m.Params {
		rel, ok := p.TextureIndex()
		if !ok {
			break
		}
		slot := int(m.TextureBaseIndex) + int(rel)
		if slot >= len(b.textures) {
			return fmt.Errorf("material %q texture %d of %d: %w", name, slot, len(b.textures), arcerr.ErrMalformedPayload)
		}
		ref := b.textures[slot]
		if ref.offset < 0 {
			break
		}
		if ref.index < 0 {
			data, err := b.encodeTexture(ref, sceneImageFormat)
			if err != nil {
				return fmt.Errorf("texture %q: %w", ref.name, err)
			}
			ref.index = b.doc.AddImage(ref.name, texel.MimeType(sceneImageFormat), data)
		}
		mat.PBRMetallicRoughness = &gltf.PBRMetallicRoughness{
			BaseColorTexture: &gltf.TextureInfo{Index: ref.index},
		}
	}

	b.doc.Materials = append(b.doc.Materials, mat)
	return nil
}

func (b *Builder) encodeTexture(ref *textureRef, format string) ([]byte, error) {
	r := b.arc.Reader()
	defer r.Save()()
	if err := r.Seek(ref.offset); err != nil {
		return nil, err
	}
	tex, err := arc.ReadTexture(r, ref.size)
	if err != nil {
		return nil, err
	}
	return b.opts.Cache.Encoded(tex, format)
}

// inverseBind returns tm2 × skeleton for matrices stored row by row. Read
// column-major the operands are transposed, so the product is reversed.
func inverseBind(tm2, skeleton mgl32.Mat4) mgl32.Mat4 {
	return skeleton.Mul4(tm2)
}

// addNodes registers nodes in table order, then links parents and mesh keys.
func (b *Builder) addNodes() error {
	start := len(b.doc.Nodes)
	bones := make([]int, b.arc.Header.NumRigNodes)
	for i := range bones {
		bones[i] = -1
	}
	ibms := make([]mgl32.Mat4, len(bones))

	for _, n := range b.nodes {
		node, idx := b.doc.AppendNode()
		node.Name = n.name
		m := [16]float32(n.node.Base().TM0)
		node.Matrix = &m

		switch v := n.node.(type) {
		case *arc.Bone:
			if v.Slot < 0 {
				break
			}
			if int(v.Slot) >= len(bones) {
				return fmt.Errorf("bone %q slot %d of %d: %w", n.name, v.Slot, len(bones), arcerr.ErrMalformedPayload)
			}
			if bones[v.Slot] >= 0 {
				return fmt.Errorf("bone %q reuses slot %d: %w", n.name, v.Slot, arcerr.ErrMalformedPayload)
			}
			bones[v.Slot] = idx
			ibms[v.Slot] = inverseBind(v.TM2, b.skeleton)
		case arc.MeshNode:
			for _, key := range v.MeshKeys() {
				b.models[key] = append(b.models[key], idx)
			}
		}
	}

	for i, n := range b.nodes {
		idx := start + i
		parent := n.node.Base().ParentBone
		if parent < 0 {
			b.doc.AddRoot(idx)
			continue
		}
		if int(parent) >= len(b.nodes) {
			return fmt.Errorf("node %q parent %d of %d: %w", n.name, parent, len(b.nodes), arcerr.ErrMalformedPayload)
		}
		p := b.doc.Nodes[start+int(parent)]
		p.Children = append(p.Children, idx)
	}

	b.bones, b.ibms = bones, ibms
	return nil
}

// addSkin emits the bank's single skin when it declares rig nodes.
func (b *Builder) addSkin() error {
	if len(b.bones) == 0 {
		return nil
	}

	joints := make([]int, len(b.bones))
	for slot, node := range b.bones {
		if node < 0 {
			b.warnings.add(WarnMissingBone, strconv.Itoa(slot), "no bone claims this skin slot")
			node = 0
		}
		joints[slot] = node
	}

	s := b.doc.NewStream("skins")
	ibm := b.doc.SaveData(s, 16, gltf.ComponentFloat, gltf.TypeMat4, len(b.ibms), b.ibms)
	b.doc.Skins = append(b.doc.Skins, gltf.Skin{InverseBindMatrices: gltf.Ptr(ibm), Joints: joints})
	b.skinIndex = len(b.doc.Skins) - 1
	return nil
}

// addMesh emits one glTF mesh with a primitive per cluster and binds it to
// the nodes registered under its key plus offset.
func (b *Builder) addMesh(m meshRef, offset int32) error {
	if len(m.mesh.Primitives) == 0 {
		return nil
	}

	out := &gltf.Mesh{Name: m.name}
	useSkin := false

	for pi, p := range m.mesh.Primitives {
		vslot := m.mesh.VertexBaseIndex + p.VertexBufferIndex
		vb, ok := b.vertices[vslot]
		if !ok {
			return fmt.Errorf("primitive %d vertex buffer %d: %w", pi, vslot, arcerr.ErrMalformedPayload)
		}
		material := int(m.mesh.MaterialBaseIndex + p.MaterialIndex)
		if material >= len(b.doc.Materials) {
			return fmt.Errorf("primitive %d material %d of %d: %w", pi, material, len(b.doc.Materials), arcerr.ErrMalformedPayload)
		}

		var skin []uint32
		for _, mod := range p.Modifiers {
			switch mod := mod.(type) {
			case arc.Skin:
				skin = mod.Joints
				useSkin = true
			case arc.Cluster:
				prim, err := b.clusterPrimitive(m.mesh, p, mod, vb, material)
				if err != nil {
					return fmt.Errorf("primitive %d: %w", pi, err)
				}
				if len(skin) > 0 {
					if err := b.remapCluster(vb, mod, skin); err != nil {
						return fmt.Errorf("primitive %d: %w", pi, err)
					}
				}
				out.Primitives = append(out.Primitives, prim)
			}
		}
	}

	meshIndex := len(b.doc.Meshes)
	b.doc.Meshes = append(b.doc.Meshes, out)

	nodes, ok := b.models[m.key+offset]
	if !ok {
		b.warnings.add(WarnUnlinkedMesh, m.name, fmt.Sprintf("no node references mesh key %d", m.key+offset))
		return nil
	}
	for _, n := range nodes {
		node := b.doc.Nodes[n]
		node.Mesh = gltf.Ptr(meshIndex)
		if useSkin && b.skinIndex >= 0 {
			node.Skin = gltf.Ptr(b.skinIndex)
		}
	}
	return nil
}

func (b *Builder) clusterPrimitive(m *arc.Mesh, p arc.Primitive, c arc.Cluster, vb *vertexRef, material int) (gltf.Primitive, error) {
	islot := m.IndexBaseIndex + p.IndexBufferIndex
	ib, ok := b.indices[islot]
	if !ok {
		return gltf.Primitive{}, fmt.Errorf("index buffer %d: %w", islot, arcerr.ErrMalformedPayload)
	}
	if uint64(c.IndexStart)+uint64(c.IndexCount) > uint64(ib.count) {
		return gltf.Primitive{}, fmt.Errorf("cluster indices %d+%d past buffer of %d: %w", c.IndexStart, c.IndexCount, ib.count, arcerr.ErrMalformedPayload)
	}

	acc, idx := b.doc.CloneAccessor(ib.accessor)
	acc.ByteOffset += int(c.IndexStart) * ib.elemSize
	acc.Count = int(c.IndexCount)

	prim := gltf.Primitive{
		Attributes: maps.Clone(vb.attrs),
		Indices:    gltf.Ptr(idx),
		Material:   gltf.Ptr(material),
		Mode:       gltf.Ptr(gltf.ModeTriangles),
	}
	if vb.morph != nil {
		prim.Targets = []map[string]int{vb.morph}
	}
	return prim, nil
}

// remapCluster rewrites the joint bytes of the cluster's vertex range in
// the already written JOINTS_0 accessor.
func (b *Builder) remapCluster(vb *vertexRef, c arc.Cluster, skin []uint32) error {
	wacc, ok := vb.attrs["WEIGHTS_0"]
	jacc, ok2 := vb.attrs["JOINTS_0"]
	if !ok || !ok2 {
		return fmt.Errorf("skinned cluster without bone weights: %w", arcerr.ErrMalformedPayload)
	}
	weights, err := b.doc.AccessorBytes(wacc)
	if err != nil {
		return err
	}
	joints, err := b.doc.AccessorBytes(jacc)
	if err != nil {
		return err
	}

	start, end := int(c.VertexStart)*4, (int(c.VertexStart)+int(c.VertexCount))*4
	if end > len(joints) {
		return fmt.Errorf("cluster vertices %d+%d past buffer of %d: %w", c.VertexStart, c.VertexCount, len(joints)/4, arcerr.ErrMalformedPayload)
	}
	return RemapJoints(joints[start:end], weights[start:end], skin)
}

// RemapJoints replaces every joint byte whose weight is non-zero with
// skin[joint/3]. Zero-weight slots are left as they are.
func RemapJoints(joints, weights []byte, skin []uint32) error {
	for i, j := range joints {
		if weights[i] == 0 {
			continue
		}
		slot := int(j) / 3
		if slot >= len(skin) {
			return fmt.Errorf("joint %d maps to skin slot %d of %d: %w", j, slot, len(skin), arcerr.ErrMalformedPayload)
		}
		if skin[slot] > 0xff {
			return fmt.Errorf("skin joint %d does not fit a byte: %w", skin[slot], arcerr.ErrMalformedPayload)
		}
		joints[i] = byte(skin[slot])
	}
	return nil
}

// WriteLoose writes the entries the scene does not consume, named
// group/name.type, and the textures no material embedded. It returns the
// number of files written.
func (b *Builder) WriteLoose(w FileWriter) (int, error) {
	written := 0
	a := b.arc

	for _, ref := range b.textures {
		if ref.offset < 0 || ref.index >= 0 {
			continue
		}
		data, err := b.encodeTexture(ref, b.opts.TextureFormat)
		if err != nil {
			return written, fmt.Errorf("texture %q: %w", ref.name, err)
		}
		if err := w.WriteFile(ref.name+texel.Extension(b.opts.TextureFormat), data); err != nil {
			return written, err
		}
		written++
	}

	r := a.Reader()
	for i, e := range a.Entries {
		if e.Type.Decoded() {
			continue
		}
		name := a.QualifiedName(i)
		if e.Type != arc.TypePlainData {
			name += "." + strconv.Itoa(int(e.Type))
		}
		if err := a.Seek(i); err != nil {
			return written, err
		}
		data, err := r.ReadBytes(int(e.Size()))
		if err != nil {
			return written, fmt.Errorf("entry %d %q: %w", i, name, err)
		}
		if err := w.WriteFile(name, data); err != nil {
			return written, err
		}
		written++
	}

	return written, nil
}
