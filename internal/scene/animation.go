package scene

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/jchantrell/arcbank/internal/arc"
	"github.com/jchantrell/arcbank/internal/arcerr"
	"github.com/jchantrell/arcbank/internal/gltf"
)

// Clip is an animation together with the channels that followed it in the
// entry table.
type Clip struct {
	*arc.Animation
	Channels []*arc.AnimatedNode
}

// clipReader tracks the animation that owns incoming channels.
type clipReader struct {
	clips   []*Clip
	current int
}

func newClipReader() *clipReader {
	return &clipReader{current: -1}
}

// read decodes an Animation or AnimatedNode entry of archive a at index i.
func (c *clipReader) read(a *arc.Archive, i int, ws *warnings) error {
	name := a.Name(i)
	switch a.Entries[i].Type {
	case arc.TypeAnimation:
		anim, err := arc.ReadAnimation(a.Reader())
		if err != nil {
			return err
		}
		anim.Name = name
		c.clips = append(c.clips, &Clip{Animation: anim})
		c.current = len(c.clips) - 1
	case arc.TypeAnimatedNode:
		node, err := arc.ReadAnimatedNode(a.Reader())
		if err != nil {
			return err
		}
		node.Name = name
		if c.current < 0 {
			ws.add(WarnOrphanChannel, name, "animated node precedes every animation")
			return nil
		}
		clip := c.clips[c.current]
		clip.Channels = append(clip.Channels, node)
	}
	return nil
}

// ReadClips decodes every animation of a bank.
func ReadClips(a *arc.Archive) ([]*Clip, []Warning, error) {
	var ws warnings
	c := newClipReader()
	for i, e := range a.Entries {
		if e.Type != arc.TypeAnimation && e.Type != arc.TypeAnimatedNode {
			continue
		}
		if err := a.Seek(i); err != nil {
			return nil, ws, err
		}
		if err := c.read(a, i, &ws); err != nil {
			return nil, ws, fmt.Errorf("entry %d %s %q: %w", i, e.Type, a.Name(i), err)
		}
	}
	return c.clips, ws, nil
}

// Animator writes clips into a document, binding channels to nodes by name.
type Animator struct {
	doc      *gltf.Document
	stream   *gltf.Stream
	warnings warnings
}

// NewAnimator returns an animator writing into doc.
func NewAnimator(doc *gltf.Document) *Animator {
	return &Animator{doc: doc}
}

// Warnings returns the channels that could not be bound.
func (an *Animator) Warnings() []Warning {
	return an.warnings
}

func (an *Animator) samples() *gltf.Stream {
	if an.stream == nil {
		an.stream = an.doc.NewStream("animations")
	}
	return an.stream
}

// Add writes clip as a glTF animation. Channels naming an unknown node are
// dropped with a warning.
func (an *Animator) Add(clip *Clip) error {
	if clip.FrameRate == 0 {
		return fmt.Errorf("animation %q has frame rate 0: %w", clip.Name, arcerr.ErrMalformedPayload)
	}
	rate := float32(clip.FrameRate)
	out := &gltf.Animation{Name: clip.Name}

	for _, ch := range clip.Channels {
		node := an.doc.FindNode(ch.Name)
		if node < 0 {
			an.warnings.add(WarnMissingNode, ch.Name, fmt.Sprintf("animation %q targets a node the scene lacks", clip.Name))
			continue
		}

		if len(ch.PosFrames) > 0 {
			input := an.times(ch.PosFrames, rate)
			output := an.doc.SaveData(an.samples(), 4, gltf.ComponentFloat, gltf.TypeVec3, len(ch.Positions), ch.Positions)
			out.AddChannel(node, gltf.PathTranslation, input, output)
		}

		if len(ch.RotFrames) > 0 {
			input := an.times(ch.RotFrames, rate)
			rots := make([][4]int16, len(ch.Rotations))
			for i, q := range ch.Rotations {
				rots[i] = EncodeRotation(arc.QuatXYZW(q))
			}
			output := an.doc.SaveData(an.samples(), 4, gltf.ComponentShort, gltf.TypeVec4, len(rots), rots)
			an.doc.Accessors[output].Normalized = true
			out.AddChannel(node, gltf.PathRotation, input, output)
		}
	}

	an.doc.Animations = append(an.doc.Animations, out)
	slog.Debug("Added animation", "name", clip.Name, "channels", len(out.Channels))
	return nil
}

// times writes the keyframe times in seconds.
func (an *Animator) times(frames []uint16, rate float32) int {
	secs := make([]float32, len(frames))
	for i, f := range frames {
		secs[i] = float32(f) / rate
	}
	idx := an.doc.SaveData(an.samples(), 4, gltf.ComponentFloat, gltf.TypeScalar, len(secs), secs)
	acc := an.doc.Accessors[idx]
	acc.Min = []float32{secs[0]}
	acc.Max = []float32{secs[len(secs)-1]}
	return idx
}

// EncodeRotation conjugates q and quantizes it to normalized int16 in
// x, y, z, w order.
func EncodeRotation(q mgl32.Quat) [4]int16 {
	c := q.Conjugate()
	var out [4]int16
	for i, v := range [4]float32{c.V[0], c.V[1], c.V[2], c.W} {
		s := math.RoundToEven(float64(v) * math.MaxInt16)
		out[i] = int16(max(-math.MaxInt16, min(math.MaxInt16, s)))
	}
	return out
}

// DecodeRotation reverses EncodeRotation up to quantization error.
func DecodeRotation(v [4]int16) mgl32.Quat {
	var c mgl32.Vec4
	for i, s := range v {
		c[i] = float32(s) / math.MaxInt16
	}
	return arc.QuatXYZW(c).Conjugate()
}
