// Package tessellate turns a depth grid into a textured triangle mesh.
//
// Every depth sample becomes exactly one vertex and every 2x2 block of
// neighbouring samples becomes two triangles, so the index layout depends
// only on the grid dimensions. Samples that are not finite or fall outside
// the clamp range are clamped rather than dropped, which keeps that layout
// intact.
//
// Coordinate convention: the camera sits on +Z looking down -Z, +Y is up and
// image row 0 is the top edge. The nearest sample lands on z=0 and the
// farthest on z=-Relief (before Scale is applied).
package tessellate

import (
	"fmt"
	"runtime"

	"github.com/chewxy/math32"
	"github.com/magicphoto/relief/pkg/depth"
	"github.com/magicphoto/relief/pkg/mesh"
	"golang.org/x/sync/errgroup"
)

// parallelCells is the cell count below which triangulation stays on the
// calling goroutine.
const parallelCells = 64 * 64

// Diagnostics reports numeric anomalies found while building. They never
// fail a build and never change the shape of the mesh.
type Diagnostics struct {
	Clamped   int     // samples moved onto the clamp range, non-finite ones included
	NonFinite int     // NaN or infinite samples
	Trimmed   int     // finite outliers cut by ClipPercent; not an anomaly
	MinDepth  float32 // clamp range actually used
	MaxDepth  float32
}

// Anomalous reports whether any sample had to be clamped. Quantile trims
// were asked for and do not count.
func (d Diagnostics) Anomalous() bool {
	return d.Clamped > 0
}

// Builder converts depth maps into meshes. It holds only immutable options
// and is safe for concurrent use.
type Builder struct {
	opts Options
}

// New returns a Builder for opts.
func New(opts Options) (*Builder, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Builder{opts: opts}, nil
}

// Options returns the builder's options.
func (b *Builder) Options() Options {
	return b.opts
}

// Build meshes dm. The result is a fresh allocation that the builder does
// not retain. Identical input always yields an identical mesh.
//
// Errors wrap ErrDegenerateInput or ErrMalformedInput; no partial mesh is
// ever returned.
func (b *Builder) Build(dm *depth.Map) (*mesh.Mesh, Diagnostics, error) {
	if err := checkInput(dm); err != nil {
		return nil, Diagnostics{}, err
	}

	w, h := dm.Width, dm.Height
	n := w * h
	m := &mesh.Mesh{
		Vertices:  make([]float32, 3*n),
		TexCoords: make([]float32, 2*n),
		Indices:   make([]uint32, 6*(w-1)*(h-1)),
		Width:     w,
		Height:    h,
	}

	diag := b.placeVertices(dm, m)

	if err := b.triangulate(m); err != nil {
		return nil, Diagnostics{}, fmt.Errorf("tessellate: triangulate: %w", err)
	}
	m.Normals = computeNormals(m)

	return m, diag, nil
}

// depthRange resolves the clamp range for dm.
func (b *Builder) depthRange(dm *depth.Map) (lo, hi float32) {
	if !b.opts.autoRange() {
		return b.opts.MinDepth, b.opts.MaxDepth
	}
	lo, hi, ok := dm.Range(b.opts.ClipPercent)
	if !ok {
		return 0, 1
	}
	return lo, hi
}

// planarSize returns the mesh width and height before scaling: the longest
// side spans extent and the other follows the grid's aspect ratio.
func planarSize(w, h int, extent float32) (sizeX, sizeY float32) {
	if w >= h {
		return extent, extent * float32(h) / float32(w)
	}
	return extent * float32(w) / float32(h), extent
}

// placeVertices fills vertex positions and texture coordinates in row-major
// grid order.
func (b *Builder) placeVertices(dm *depth.Map, m *mesh.Mesh) Diagnostics {
	w, h := dm.Width, dm.Height
	lo, hi := b.depthRange(dm)
	diag := Diagnostics{MinDepth: lo, MaxDepth: hi}

	sizeX, sizeY := planarSize(w, h, b.opts.Extent)
	scale := b.opts.Scale
	trimming := b.opts.autoRange() && b.opts.ClipPercent > 0

	for py := 0; py < h; py++ {
		v := float32(py) / float32(h-1)
		for px := 0; px < w; px++ {
			u := float32(px) / float32(w-1)
			i := py*w + px

			d, clamped, nonFinite := clampSample(dm.Samples[i], lo, hi, dm.Disparity)
			switch {
			case clamped && trimming && !nonFinite:
				diag.Trimmed++
			case clamped:
				diag.Clamped++
			}
			if nonFinite {
				diag.NonFinite++
			}

			m.Vertices[3*i] = (u - 0.5) * sizeX * scale
			m.Vertices[3*i+1] = (0.5 - v) * sizeY * scale
			m.Vertices[3*i+2] = depthToZ(d, lo, hi, b.opts.Relief, dm.Disparity) * scale
			m.TexCoords[2*i] = u
			m.TexCoords[2*i+1] = v
		}
	}
	return diag
}

// clampSample moves d onto [lo, hi]. NaN carries no ordering and is sent
// to the far bound, which is lo for disparity and hi for depth.
func clampSample(d, lo, hi float32, disparity bool) (v float32, clamped, nonFinite bool) {
	switch {
	case math32.IsNaN(d):
		if disparity {
			return lo, true, true
		}
		return hi, true, true
	case math32.IsInf(d, 1):
		return hi, true, true
	case math32.IsInf(d, -1):
		return lo, true, true
	case d < lo:
		return lo, true, false
	case d > hi:
		return hi, true, false
	}
	return d, false, false
}

// depthToZ maps a clamped sample to z in [-relief, 0], near samples at 0.
// For depth samples z falls as d grows; for disparity it rises. The span is
// taken in float64 since hi-lo of finite float32 bounds can overflow.
func depthToZ(d, lo, hi, relief float32, disparity bool) float32 {
	var t float64
	if span := float64(hi) - float64(lo); span > 0 {
		t = (float64(d) - float64(lo)) / span
	}
	if disparity {
		return float32((t - 1) * float64(relief))
	}
	return float32(-t * float64(relief))
}

// triangulate writes two triangles per grid cell. Rows of cells are
// independent and own disjoint index ranges, so large grids are split
// across goroutines without changing the output.
func (b *Builder) triangulate(m *mesh.Mesh) error {
	rows := m.Height - 1
	workers := b.opts.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers <= 1 || rows*(m.Width-1) < parallelCells {
		fillRows(m.Indices, m.Width, 0, rows, b.opts.Winding)
		return nil
	}
	workers = min(workers, rows)

	var g errgroup.Group
	g.SetLimit(workers)
	chunk := (rows + workers - 1) / workers
	for start := 0; start < rows; start += chunk {
		end := min(start+chunk, rows)
		g.Go(func() error {
			fillRows(m.Indices, m.Width, start, end, b.opts.Winding)
			return nil
		})
	}
	return g.Wait()
}

// fillRows writes the triangles of cell rows [y0, y1). For a cell with
// corners a=(x,y) b=(x+1,y) c=(x,y+1) d=(x+1,y+1) it emits (a,c,b),(b,c,d)
// or, for WindingCW, (a,b,c),(b,d,c).
func fillRows(idx []uint32, w, y0, y1 int, winding Winding) {
	k := 6 * y0 * (w - 1)
	for py := y0; py < y1; py++ {
		for px := 0; px < w-1; px++ {
			a := uint32(py*w + px)
			b := a + 1
			c := a + uint32(w)
			d := c + 1
			if winding == WindingCW {
				idx[k], idx[k+1], idx[k+2] = a, b, c
				idx[k+3], idx[k+4], idx[k+5] = b, d, c
			} else {
				idx[k], idx[k+1], idx[k+2] = a, c, b
				idx[k+3], idx[k+4], idx[k+5] = b, c, d
			}
			k += 6
		}
	}
}
