package texel

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"slices"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
)

// Formats lists the output encodings Encode accepts.
var Formats = []string{"png", "webp", "tga", "bmp"}

// ValidFormat reports whether format is one of Formats.
func ValidFormat(format string) bool {
	return slices.Contains(Formats, format)
}

// Extension returns the file suffix for format, including the dot.
func Extension(format string) string {
	return "." + format
}

// MimeType returns the media type of format. glTF only accepts PNG and
// JPEG, so scene documents always embed PNG.
func MimeType(format string) string {
	switch format {
	case "webp":
		return "image/webp"
	case "tga":
		return "image/x-tga"
	case "bmp":
		return "image/bmp"
	}
	return "image/png"
}

// Encode writes img to w in the given format.
func Encode(w io.Writer, img image.Image, format string) error {
	var err error
	switch format {
	case "png", "":
		err = png.Encode(w, img)
	case "webp":
		err = nativewebp.Encode(w, img, nil)
	case "tga":
		err = tga.Encode(w, img)
	case "bmp":
		err = bmp.Encode(w, img)
	default:
		return fmt.Errorf("unsupported image format %q", format)
	}
	if err != nil {
		return fmt.Errorf("encoding %s: %w", format, err)
	}
	return nil
}
