// Package texel turns decoded texture records into images and encodes
// them for output.
package texel

import (
	"encoding/binary"
	"fmt"
	"image"

	"github.com/jchantrell/arcbank/internal/arc"
	"github.com/jchantrell/arcbank/internal/arcerr"
)

// Decode converts the top mip of a texture to an NRGBA image. Palette
// textures must already be expanded, which arc.ReadTexture does.
func Decode(tex *arc.Texture) (*image.NRGBA, error) {
	w, h := int(tex.Width), int(tex.Height)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("texture of %dx%d: %w", w, h, arcerr.ErrMalformedPayload)
	}

	need := topMipSize(tex.Format, w, h)
	if need < 0 {
		return nil, fmt.Errorf("texture format %s: %w", tex.Format, arcerr.ErrMalformedPayload)
	}
	if len(tex.Data) < need {
		return nil, fmt.Errorf("%s texture %dx%d needs %d bytes, has %d: %w", tex.Format, w, h, need, len(tex.Data), arcerr.ErrMalformedPayload)
	}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	switch tex.Format {
	case arc.FormatRGBA8:
		copy(img.Pix, tex.Data[:need])
	case arc.FormatRGBA4:
		for i := 0; i < w*h; i++ {
			v := binary.LittleEndian.Uint16(tex.Data[i*2:])
			img.Pix[i*4+0] = expand4(v)
			img.Pix[i*4+1] = expand4(v >> 4)
			img.Pix[i*4+2] = expand4(v >> 8)
			img.Pix[i*4+3] = expand4(v >> 12)
		}
	case arc.FormatRGB5A1:
		for i := 0; i < w*h; i++ {
			v := binary.LittleEndian.Uint16(tex.Data[i*2:])
			img.Pix[i*4+0] = expand5(v)
			img.Pix[i*4+1] = expand5(v >> 5)
			img.Pix[i*4+2] = expand5(v >> 10)
			img.Pix[i*4+3] = uint8(v>>15) * 0xff
		}
	case arc.FormatDXT1:
		decodeBlocks(img, tex.Data, 8, func(block []byte, out *[16][4]uint8) {
			decodeColorBlock(block, out, true)
		})
	case arc.FormatDXT3:
		decodeBlocks(img, tex.Data, 16, func(block []byte, out *[16][4]uint8) {
			decodeColorBlock(block[8:], out, false)
			alpha := binary.LittleEndian.Uint64(block)
			for i := range out {
				out[i][3] = expand4(uint16(alpha >> (4 * i)))
			}
		})
	default:
		return nil, fmt.Errorf("texture format %s: %w", tex.Format, arcerr.ErrMalformedPayload)
	}

	return img, nil
}

func topMipSize(f arc.PixelFormat, w, h int) int {
	bw, bh := (w+3)/4, (h+3)/4
	switch f {
	case arc.FormatRGBA8:
		return w * h * 4
	case arc.FormatRGBA4, arc.FormatRGB5A1:
		return w * h * 2
	case arc.FormatDXT1:
		return bw * bh * 8
	case arc.FormatDXT3:
		return bw * bh * 16
	}
	return -1
}

func expand4(v uint16) uint8 {
	return uint8(v&0xf) * 0x11
}

func expand5(v uint16) uint8 {
	c := uint8(v & 0x1f)
	return c<<3 | c>>2
}

func rgb565(v uint16) [4]uint8 {
	r := uint8(v>>11) & 0x1f
	g := uint8(v>>5) & 0x3f
	b := uint8(v) & 0x1f
	return [4]uint8{r<<3 | r>>2, g<<2 | g>>4, b<<3 | b>>2, 0xff}
}

func lerp(a, b [4]uint8, wa, wb, div int) [4]uint8 {
	var out [4]uint8
	for i := 0; i < 3; i++ {
		out[i] = uint8((int(a[i])*wa + int(b[i])*wb) / div)
	}
	out[3] = 0xff
	return out
}

// decodeColorBlock decodes an 8-byte BC1 color block. With punchThrough
// the c0 <= c1 ordering selects the three-color mode with transparent black.
func decodeColorBlock(block []byte, out *[16][4]uint8, punchThrough bool) {
	c0 := binary.LittleEndian.Uint16(block)
	c1 := binary.LittleEndian.Uint16(block[2:])
	bits := binary.LittleEndian.Uint32(block[4:])

	var palette [4][4]uint8
	palette[0] = rgb565(c0)
	palette[1] = rgb565(c1)
	if c0 > c1 || !punchThrough {
		palette[2] = lerp(palette[0], palette[1], 2, 1, 3)
		palette[3] = lerp(palette[0], palette[1], 1, 2, 3)
	} else {
		palette[2] = lerp(palette[0], palette[1], 1, 1, 2)
	}

	for i := range out {
		out[i] = palette[(bits>>(2*i))&3]
	}
}

func decodeBlocks(img *image.NRGBA, data []byte, blockSize int, decode func([]byte, *[16][4]uint8)) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	bw := (w + 3) / 4

	var texels [16][4]uint8
	for by := 0; by*4 < h; by++ {
		for bx := 0; bx < bw; bx++ {
			off := (by*bw + bx) * blockSize
			decode(data[off:off+blockSize], &texels)
			for i, c := range texels {
				x, y := bx*4+i%4, by*4+i/4
				if x >= w || y >= h {
					continue
				}
				copy(img.Pix[img.PixOffset(x, y):], c[:])
			}
		}
	}
}
