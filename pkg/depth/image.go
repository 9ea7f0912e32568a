package depth

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"os"

	_ "image/jpeg"
	// Depth predictors commonly write 16-bit PNG or TIFF.
	_ "image/png"

	_ "golang.org/x/image/tiff"
)

// FromImage converts a grayscale depth image into a Map with samples in
// [0, 1]. 16-bit images keep their full precision; any other color model is
// reduced to luminance.
func FromImage(img image.Image) *Map {
	b := img.Bounds()
	m := New(b.Dx(), b.Dy())

	switch src := img.(type) {
	case *image.Gray16:
		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				m.Set(x, y, float32(src.Gray16At(b.Min.X+x, b.Min.Y+y).Y)/0xffff)
			}
		}
	case *image.Gray:
		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				m.Set(x, y, float32(src.GrayAt(b.Min.X+x, b.Min.Y+y).Y)/0xff)
			}
		}
	default:
		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				g := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
				m.Set(x, y, float32(g.Y)/0xffff)
			}
		}
	}
	return m
}

// Decode reads a PNG or TIFF depth image.
func Decode(r io.Reader) (*Map, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("depth: decode: %w", err)
	}
	m := FromImage(img)
	if m.Len() == 0 {
		return nil, fmt.Errorf("depth: %s image has no pixels", format)
	}
	return m, nil
}

// Load reads a depth image from disk.
func Load(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("depth: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// LoadImage decodes any registered image format, typically the source photo.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}
