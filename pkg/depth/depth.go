// Package depth holds per-pixel depth grids aligned to a source photo and the
// collaborators that produce them.
package depth

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Map is a dense grid of depth samples, one per pixel of the source image.
// Samples are stored row-major: the sample for pixel (x, y) lives at
// Samples[y*Width+x].
//
// When Disparity is set the samples are inverse depth (larger means nearer),
// which is what monocular predictors such as MiDaS emit. Otherwise larger
// samples are farther from the viewer.
type Map struct {
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Samples   []float32 `json:"samples"`
	Disparity bool      `json:"disparity"`
}

// New allocates a zeroed width x height map.
func New(width, height int) *Map {
	n := 0
	if width > 0 && height > 0 {
		n = width * height
	}
	return &Map{
		Width:   width,
		Height:  height,
		Samples: make([]float32, n),
	}
}

// FromRows builds a map from a slice of equally long rows. A ragged input
// yields a map whose sample count does not match its dimensions.
func FromRows(rows [][]float32) *Map {
	m := &Map{Height: len(rows)}
	if len(rows) > 0 {
		m.Width = len(rows[0])
	}
	for _, r := range rows {
		m.Samples = append(m.Samples, r...)
	}
	return m
}

// At returns the sample at pixel (x, y).
func (m *Map) At(x, y int) float32 {
	return m.Samples[y*m.Width+x]
}

// Set stores v at pixel (x, y).
func (m *Map) Set(x, y int, v float32) {
	m.Samples[y*m.Width+x] = v
}

// Len returns the number of stored samples.
func (m *Map) Len() int {
	return len(m.Samples)
}

// finite returns the finite samples as float64, ascending.
func (m *Map) finite() []float64 {
	out := make([]float64, 0, len(m.Samples))
	for _, s := range m.Samples {
		f := float64(s)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		out = append(out, f)
	}
	sort.Float64s(out)
	return out
}

// MinMax returns the smallest and largest finite samples. ok is false when
// the map holds no finite sample.
func (m *Map) MinMax() (min, max float32, ok bool) {
	return m.Range(0)
}

// Range returns a robust sample range: the clip and 1-clip empirical
// quantiles of the finite samples. A clip of 0 is the plain min/max.
func (m *Map) Range(clip float64) (lo, hi float32, ok bool) {
	xs := m.finite()
	if len(xs) == 0 {
		return 0, 0, false
	}
	if clip <= 0 {
		return float32(xs[0]), float32(xs[len(xs)-1]), true
	}
	lo = float32(stat.Quantile(clip, stat.Empirical, xs, nil))
	hi = float32(stat.Quantile(1-clip, stat.Empirical, xs, nil))
	return lo, hi, true
}
