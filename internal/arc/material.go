package arc

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/jchantrell/arcbank/internal/arcerr"
	"github.com/jchantrell/arcbank/internal/binio"
)

type MaterialHeader struct {
	TextureBaseIndex uint32
	Unk1             uint16
	Unk2             uint16
	Unk3             uint16
	Unk4             uint16
	Unk50            uint8
	Unk5             [3]uint8
	Unk6             uint32
	Unk7             uint32
}

// Param is one material parameter. The concrete types are fixed by the
// format: TexturedParam, ListParam, ConstantParam, BytesParam,
// ListBytesParam and EmptyParam.
type Param interface {
	// Kind is the discriminant the param was read with.
	Kind() uint32
	// TextureIndex returns the texture slot relative to the material's
	// texture base, and false when the param does not reference one.
	TextureIndex() (int32, bool)
}

// TexturedParam is the plain shape shared by discriminants 0 and 4.
type TexturedParam struct {
	Type    uint32
	Texture int32
	D       [6]int32
}

// ListParam extends TexturedParam with a dynamic list (discriminants 1 and 5).
type ListParam struct {
	TexturedParam
	List []uint32
}

// ConstantParam is a vector constant with no texture (discriminant 2).
type ConstantParam struct {
	Value mgl32.Vec3
}

// BytesParam is discriminant 3.
type BytesParam struct {
	TexturedParam
	Bytes [4]uint8
}

// ListBytesParam is discriminant 6.
type ListBytesParam struct {
	TexturedParam
	List  []uint32
	Bytes [4]uint8
}

// EmptyParam is the zero-size discriminant 7.
type EmptyParam struct{}

func (p TexturedParam) Kind() uint32 { return p.Type }
func (ConstantParam) Kind() uint32   { return 2 }
func (EmptyParam) Kind() uint32      { return 7 }

func (p TexturedParam) TextureIndex() (int32, bool) { return p.Texture, p.Texture > -1 }
func (ConstantParam) TextureIndex() (int32, bool)   { return -1, false }
func (EmptyParam) TextureIndex() (int32, bool)      { return -1, false }

type Material struct {
	MaterialHeader
	Params []Param
}

// ReadMaterial decodes a material record at the cursor.
func ReadMaterial(r *binio.Reader) (*Material, error) {
	hdr, err := binio.Read[MaterialHeader](r)
	if err != nil {
		return nil, fmt.Errorf("reading material header: %w", err)
	}

	count, err := binio.Read[uint32](r)
	if err != nil {
		return nil, fmt.Errorf("reading material param count: %w", err)
	}

	m := &Material{MaterialHeader: hdr}
	for i := 0; i < int(count); i++ {
		p, err := readParam(r)
		if err != nil {
			return nil, fmt.Errorf("material param %d: %w", i, err)
		}
		m.Params = append(m.Params, p)
	}

	return m, nil
}

func readParam(r *binio.Reader) (Param, error) {
	kind, err := binio.Read[uint32](r)
	if err != nil {
		return nil, err
	}

	textured := func() (TexturedParam, error) {
		var raw struct {
			Texture int32
			D       [6]int32
		}
		err := r.ReadValue(&raw)
		return TexturedParam{Type: kind, Texture: raw.Texture, D: raw.D}, err
	}

	switch kind {
	case 0, 4:
		return textured()
	case 1, 5:
		base, err := textured()
		if err != nil {
			return nil, err
		}
		list, err := binio.ReadCounted[uint32](r)
		if err != nil {
			return nil, err
		}
		return ListParam{TexturedParam: base, List: list}, nil
	case 2:
		v, err := binio.Read[mgl32.Vec3](r)
		if err != nil {
			return nil, err
		}
		return ConstantParam{Value: v}, nil
	case 3:
		base, err := textured()
		if err != nil {
			return nil, err
		}
		b, err := binio.Read[[4]uint8](r)
		if err != nil {
			return nil, err
		}
		return BytesParam{TexturedParam: base, Bytes: b}, nil
	case 6:
		base, err := textured()
		if err != nil {
			return nil, err
		}
		list, err := binio.ReadCounted[uint32](r)
		if err != nil {
			return nil, err
		}
		b, err := binio.Read[[4]uint8](r)
		if err != nil {
			return nil, err
		}
		return ListBytesParam{TexturedParam: base, List: list, Bytes: b}, nil
	case 7:
		return EmptyParam{}, nil
	}

	return nil, fmt.Errorf("unknown material param type %d: %w", kind, arcerr.ErrMalformedPayload)
}
