package depth

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gray16Ramp(w, h int) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray16(x, y, color.Gray16{Y: uint16((y*w + x) * 1000)})
		}
	}
	return img
}

func TestFromImageGray16(t *testing.T) {
	m := FromImage(gray16Ramp(3, 2))
	require.Equal(t, 3, m.Width)
	require.Equal(t, 2, m.Height)
	assert.InDelta(t, 0, m.At(0, 0), 1e-9)
	assert.InDelta(t, 5000.0/0xffff, m.At(2, 1), 1e-6)
	assert.False(t, m.Disparity)
}

func TestFromImageGray(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	img.SetGray(1, 1, color.Gray{Y: 255})
	m := FromImage(img)
	assert.Equal(t, float32(0), m.At(0, 0))
	assert.Equal(t, float32(1), m.At(1, 1))
}

func TestFromImageOffsetBounds(t *testing.T) {
	img := image.NewGray(image.Rect(10, 20, 12, 22))
	img.SetGray(11, 21, color.Gray{Y: 255})
	m := FromImage(img)
	require.Equal(t, 2, m.Width)
	assert.Equal(t, float32(1), m.At(1, 1))
}

func TestFromImageColor(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.White)
	img.Set(1, 0, color.Black)
	m := FromImage(img)
	assert.InDelta(t, 1, m.At(0, 0), 1e-6)
	assert.InDelta(t, 0, m.At(1, 0), 1e-6)
}

func TestDecodePNG16(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, gray16Ramp(4, 4)))

	m, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 16, m.Len())
	assert.InDelta(t, 15000.0/0xffff, m.At(3, 3), 1e-6)
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode(strings.NewReader("not an image"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "depth: decode")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)
}

func TestFileEstimator(t *testing.T) {
	path := filepath.Join(t.TempDir(), "depth.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, gray16Ramp(5, 3)))
	require.NoError(t, f.Close())

	m, err := FileEstimator{Path: path, Disparity: true}.Estimate(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 5, m.Width)
	assert.Equal(t, 3, m.Height)
	assert.True(t, m.Disparity)
}

func TestFileEstimatorCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := FileEstimator{Path: "unused.png"}.Estimate(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLuminanceEstimator(t *testing.T) {
	photo := image.NewRGBA(image.Rect(0, 0, 400, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 400; x++ {
			photo.Set(x, y, color.Gray{Y: uint8(x * 255 / 399)})
		}
	}

	m, err := LuminanceEstimator{Size: 100, BlurRadius: 1}.Estimate(context.Background(), photo)
	require.NoError(t, err)
	assert.Equal(t, 100, m.Width)
	assert.Equal(t, 50, m.Height)
	assert.True(t, m.Disparity)
	// Brightness grows left to right, so disparity does too.
	assert.Less(t, m.At(5, 25), m.At(94, 25))
}

func TestLuminanceEstimatorNoImage(t *testing.T) {
	_, err := LuminanceEstimator{}.Estimate(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoImage)

	_, err = LuminanceEstimator{}.Estimate(context.Background(), image.NewGray(image.Rectangle{}))
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestFitSize(t *testing.T) {
	tests := []struct {
		name       string
		w, h, size int
		wantW      int
		wantH      int
	}{
		{"no limit", 640, 480, 0, 640, 480},
		{"already small", 200, 100, 256, 200, 100},
		{"landscape", 1024, 512, 256, 256, 128},
		{"portrait", 300, 1200, 256, 64, 256},
		{"sliver keeps a pixel", 5000, 2, 256, 256, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := fitSize(tt.w, tt.h, tt.size)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}
