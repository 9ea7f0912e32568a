package tessellate

import (
	"fmt"
	"math"

	"github.com/chewxy/math32"
)

// Winding selects the vertex order of emitted triangles.
type Winding int

const (
	WindingCCW Winding = iota // counter-clockwise seen from +Z, faces the camera
	WindingCW                 // mirrored, faces -Z
)

func (w Winding) String() string {
	switch w {
	case WindingCCW:
		return "ccw"
	case WindingCW:
		return "cw"
	default:
		return fmt.Sprintf("Winding(%d)", int(w))
	}
}

// Defaults for Options.
const (
	DefaultExtent = 1.0
	DefaultRelief = 0.5
	// DefaultScale matches the viewer's world scale, which shrinks the
	// unit-sized relief by a factor of five.
	DefaultScale = 0.2
)

// Options controls how depth samples are placed in space. The zero value is
// not usable; start from DefaultOptions.
type Options struct {
	// Extent is the length of the longest side of the mesh before scaling.
	// The other side follows the grid's aspect ratio.
	Extent float32 `json:"extent"`

	// Relief is the z distance between the nearest and farthest sample
	// before scaling.
	Relief float32 `json:"relief"`

	// Scale multiplies every coordinate; it converts mesh units into the
	// world units of the display.
	Scale float32 `json:"scale"`

	// MinDepth and MaxDepth bound the depth samples. Samples outside the
	// pair, and non-finite samples, are clamped onto it. When both are zero
	// the range is taken from the data.
	MinDepth float32 `json:"minDepth"`
	MaxDepth float32 `json:"maxDepth"`

	// ClipPercent trims the automatic range to the [p, 1-p] quantiles so a
	// few outliers do not flatten the relief. Ignored for explicit ranges.
	ClipPercent float64 `json:"clipPercent"`

	Winding Winding `json:"winding"`

	// Workers bounds the goroutines used to triangulate large grids.
	// Zero means GOMAXPROCS; 1 disables parallelism.
	Workers int `json:"workers"`
}

// DefaultOptions returns options with an automatic depth range.
func DefaultOptions() Options {
	return Options{
		Extent:  DefaultExtent,
		Relief:  DefaultRelief,
		Scale:   DefaultScale,
		Winding: WindingCCW,
	}
}

// autoRange reports whether the clamp range is derived from the samples.
func (o Options) autoRange() bool {
	return o.MinDepth == 0 && o.MaxDepth == 0
}

func finite(f float32) bool {
	return !math32.IsNaN(f) && !math32.IsInf(f, 0)
}

// Validate reports the first invalid field.
func (o Options) Validate() error {
	switch {
	case !finite(o.Extent) || o.Extent <= 0:
		return fmt.Errorf("tessellate: extent must be positive, got %g", o.Extent)
	case !finite(o.Relief) || o.Relief < 0:
		return fmt.Errorf("tessellate: relief must not be negative, got %g", o.Relief)
	case !finite(o.Scale) || o.Scale <= 0:
		return fmt.Errorf("tessellate: scale must be positive, got %g", o.Scale)
	case float64(o.Extent)*float64(o.Scale) > math.MaxFloat32 ||
		float64(o.Relief)*float64(o.Scale) > math.MaxFloat32:
		return fmt.Errorf("tessellate: scaled mesh overflows float32 (extent %g, relief %g, scale %g)",
			o.Extent, o.Relief, o.Scale)
	case !finite(o.MinDepth) || !finite(o.MaxDepth):
		return fmt.Errorf("tessellate: depth bounds must be finite, got [%g, %g]", o.MinDepth, o.MaxDepth)
	case !o.autoRange() && o.MaxDepth <= o.MinDepth:
		return fmt.Errorf("tessellate: max depth %g must exceed min depth %g", o.MaxDepth, o.MinDepth)
	case o.ClipPercent < 0 || o.ClipPercent >= 0.5:
		return fmt.Errorf("tessellate: clip percent must be in [0, 0.5), got %g", o.ClipPercent)
	case o.Winding != WindingCCW && o.Winding != WindingCW:
		return fmt.Errorf("tessellate: unknown winding %v", o.Winding)
	case o.Workers < 0:
		return fmt.Errorf("tessellate: workers must not be negative, got %d", o.Workers)
	}
	return nil
}
