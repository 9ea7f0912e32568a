package depth

import (
	"context"
	"errors"
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/transform"
)

// Estimator predicts a depth map for a photo. Implementations may block for
// the duration of a model inference and should honour ctx.
type Estimator interface {
	Estimate(ctx context.Context, img image.Image) (*Map, error)
}

// EstimatorFunc adapts a plain function to Estimator.
type EstimatorFunc func(ctx context.Context, img image.Image) (*Map, error)

// Estimate calls f.
func (f EstimatorFunc) Estimate(ctx context.Context, img image.Image) (*Map, error) {
	return f(ctx, img)
}

// ErrNoImage is returned by estimators given a nil or empty photo.
var ErrNoImage = errors.New("depth: no image")

// FileEstimator returns a depth map computed ahead of time, for example the
// output of an offline MiDaS run saved next to the photo.
type FileEstimator struct {
	Path      string
	Disparity bool // file stores inverse depth
}

// Estimate loads the depth file. The photo is not inspected.
func (e FileEstimator) Estimate(ctx context.Context, _ image.Image) (*Map, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := Load(e.Path)
	if err != nil {
		return nil, err
	}
	m.Disparity = e.Disparity
	return m, nil
}

// DefaultInputSize matches the input resolution of the small MiDaS models.
const DefaultInputSize = 256

// LuminanceEstimator is a stand-in predictor that treats brightness as
// disparity: bright pixels are pulled toward the viewer. It downsamples the
// photo to a model-like resolution and optionally smooths it first.
type LuminanceEstimator struct {
	Size       int     // longest side of the output map; 0 keeps the photo size
	BlurRadius float64 // gaussian radius in output pixels; 0 disables
}

// Estimate implements Estimator.
func (e LuminanceEstimator) Estimate(ctx context.Context, img image.Image) (*Map, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrNoImage
	}
	b := img.Bounds()
	w, h := fitSize(b.Dx(), b.Dy(), e.Size)

	src := img
	if w != b.Dx() || h != b.Dy() {
		src = transform.Resize(img, w, h, transform.Linear)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.BlurRadius > 0 {
		src = blur.Gaussian(src, e.BlurRadius)
	}

	m := FromImage(src)
	m.Disparity = true
	return m, nil
}

// fitSize scales (w, h) so the longest side equals size, keeping at least
// one pixel on each axis. Images already within size are left alone.
func fitSize(w, h, size int) (int, int) {
	if size <= 0 || (w <= size && h <= size) {
		return w, h
	}
	if w >= h {
		return size, max(1, h*size/w)
	}
	return max(1, w*size/h), size
}
