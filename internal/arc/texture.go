package arc

import (
	"encoding/binary"
	"fmt"

	"github.com/jchantrell/arcbank/internal/arcerr"
	"github.com/jchantrell/arcbank/internal/binio"
)

// PixelFormat is the texture type code.
type PixelFormat uint32

const (
	FormatPalette PixelFormat = 0x29
	FormatRGBA8   PixelFormat = 21
	FormatRGB5A1  PixelFormat = 25
	FormatRGBA4   PixelFormat = 26
	FormatDXT1    PixelFormat = 'D' | 'X'<<8 | 'T'<<16 | '1'<<24
	FormatDXT3    PixelFormat = 'D' | 'X'<<8 | 'T'<<16 | '3'<<24
)

// Known reports whether the format can be decoded.
func (f PixelFormat) Known() bool {
	switch f {
	case FormatPalette, FormatRGBA8, FormatRGB5A1, FormatRGBA4, FormatDXT1, FormatDXT3:
		return true
	}
	return false
}

func (f PixelFormat) String() string {
	switch f {
	case FormatPalette:
		return "palette"
	case FormatRGBA8:
		return "RGBA8"
	case FormatRGB5A1:
		return "RGB5A1"
	case FormatRGBA4:
		return "RGBA4"
	case FormatDXT1:
		return "DXT1"
	case FormatDXT3:
		return "DXT3"
	}
	return fmt.Sprintf("PixelFormat(%#x)", uint32(f))
}

const (
	textureHeaderSize = 20
	paletteColors     = 256

	// LightmapPrefix is the number of bytes preceding a lightmap's texture header.
	LightmapPrefix = 24
)

type TextureHeader struct {
	Width   uint32
	Height  uint32
	NumMips uint32
	Hash    uint32
	Format  PixelFormat
}

// Texture holds raw pixel data for all mips. Palette textures are expanded
// to RGBA8 on read, so Format never reports FormatPalette afterwards.
type Texture struct {
	TextureHeader
	Data []byte
}

// ReadTexture decodes a texture record of size bytes at the cursor.
func ReadTexture(r *binio.Reader, size int) (*Texture, error) {
	hdr, err := binio.Read[TextureHeader](r)
	if err != nil {
		return nil, fmt.Errorf("reading texture header: %w", err)
	}
	if !hdr.Format.Known() {
		return nil, fmt.Errorf("unknown texture format %#x: %w", uint32(hdr.Format), arcerr.ErrMalformedPayload)
	}

	payload := size - textureHeaderSize
	if payload < 0 {
		return nil, fmt.Errorf("texture record of %d bytes: %w", size, arcerr.ErrMalformedPayload)
	}

	t := &Texture{TextureHeader: hdr}
	if hdr.Format != FormatPalette {
		t.Data, err = r.ReadBytes(payload)
		if err != nil {
			return nil, fmt.Errorf("reading texture data: %w", err)
		}
		return t, nil
	}

	numPalettes, err := binio.Read[uint32](r)
	if err != nil {
		return nil, fmt.Errorf("reading palette count: %w", err)
	}
	if numPalettes == 0 {
		return nil, fmt.Errorf("palette texture without palette: %w", arcerr.ErrMalformedPayload)
	}
	palettes, err := binio.ReadContainer[uint32](r, int(numPalettes)*paletteColors)
	if err != nil {
		return nil, fmt.Errorf("reading palette: %w", err)
	}

	indices, err := r.ReadBytes(payload - 4 - len(palettes)*4)
	if err != nil {
		return nil, fmt.Errorf("reading palette indices: %w", err)
	}

	t.Data = ExpandPalette(palettes[:paletteColors], indices)
	t.Format = FormatRGBA8
	return t, nil
}

// ExpandPalette maps 8 bit indices through palette to 32 bit colors,
// keeping the palette's byte order.
func ExpandPalette(palette []uint32, indices []byte) []byte {
	out := make([]byte, len(indices)*4)
	for i, idx := range indices {
		binary.LittleEndian.PutUint32(out[i*4:], palette[idx])
	}
	return out
}
