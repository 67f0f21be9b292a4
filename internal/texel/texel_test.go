package texel

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image/png"
	"testing"

	"github.com/jchantrell/arcbank/internal/arc"
	"github.com/jchantrell/arcbank/internal/arcerr"
)

func texture(format arc.PixelFormat, w, h uint32, data ...any) *arc.Texture {
	var buf bytes.Buffer
	for _, d := range data {
		binary.Write(&buf, binary.LittleEndian, d)
	}
	return &arc.Texture{
		TextureHeader: arc.TextureHeader{Width: w, Height: h, NumMips: 1, Format: format},
		Data:          buf.Bytes(),
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		tex  *arc.Texture
		want [4]uint8
	}{
		{"rgba8", texture(arc.FormatRGBA8, 1, 1, [4]uint8{1, 2, 3, 4}), [4]uint8{1, 2, 3, 4}},
		{"rgba4", texture(arc.FormatRGBA4, 1, 1, uint16(0xf80f)), [4]uint8{0xff, 0, 0x88, 0xff}},
		{"rgb5a1 opaque", texture(arc.FormatRGB5A1, 1, 1, uint16(0x801f)), [4]uint8{0xff, 0, 0, 0xff}},
		{"rgb5a1 clear", texture(arc.FormatRGB5A1, 1, 1, uint16(0x03e0)), [4]uint8{0, 0xff, 0, 0}},
		// c0 = red, c1 = blue, every texel index 0
		{"dxt1 solid", texture(arc.FormatDXT1, 4, 4, uint16(0xf800), uint16(0x001f), uint32(0)), [4]uint8{0xff, 0, 0, 0xff}},
		// c0 <= c1 selects three colors, index 3 is transparent black
		{"dxt1 punch through", texture(arc.FormatDXT1, 4, 4, uint16(0x001f), uint16(0xf800), uint32(0xffffffff)), [4]uint8{0, 0, 0, 0}},
		{"dxt3 alpha", texture(arc.FormatDXT3, 2, 2, uint64(0x5), uint16(0x07e0), uint16(0), uint32(0)), [4]uint8{0, 0xff, 0, 0x55}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Decode(tt.tex)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			var got [4]uint8
			copy(got[:], img.Pix[:4])
			if got != tt.want {
				t.Errorf("Decode() first texel = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecodeShortData(t *testing.T) {
	_, err := Decode(texture(arc.FormatRGBA8, 4, 4, uint32(0)))
	if !errors.Is(err, arcerr.ErrMalformedPayload) {
		t.Errorf("Decode() error = %v, want ErrMalformedPayload", err)
	}
}

func TestEncodePNG(t *testing.T) {
	img, err := Decode(texture(arc.FormatRGBA8, 2, 1, [8]uint8{10, 20, 30, 255, 40, 50, 60, 128}))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, img, "png"); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	back, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	if b := back.Bounds(); b.Dx() != 2 || b.Dy() != 1 {
		t.Errorf("decoded bounds = %v, want 2x1", b)
	}

	if err := Encode(&buf, img, "jpeg2000"); err == nil {
		t.Error("Encode() with unknown format succeeded, want error")
	}
}

func TestCache(t *testing.T) {
	c := NewCache(16)
	tex := texture(arc.FormatRGBA8, 1, 1, [4]uint8{1, 2, 3, 4})

	first, err := c.Encoded(tex, "png")
	if err != nil {
		t.Fatalf("Encoded() error = %v", err)
	}
	second, err := c.Encoded(texture(arc.FormatRGBA8, 1, 1, [4]uint8{1, 2, 3, 4}), "png")
	if err != nil {
		t.Fatalf("Encoded() error = %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("Encoded() returned different bytes for identical textures")
	}
	if c.hits != 1 || c.misses != 1 {
		t.Errorf("hits/misses = %d/%d, want 1/1", c.hits, c.misses)
	}

	if Key(tex, "png") == Key(tex, "bmp") {
		t.Error("Key() ignores the output format")
	}
}
