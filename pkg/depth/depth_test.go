package depth

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	m := New(4, 3)
	assert.Equal(t, 4, m.Width)
	assert.Equal(t, 3, m.Height)
	assert.Equal(t, 12, m.Len())

	m.Set(3, 2, 7)
	assert.Equal(t, float32(7), m.At(3, 2))
	assert.Equal(t, float32(7), m.Samples[11])
}

func TestNewNonPositive(t *testing.T) {
	for _, dims := range [][2]int{{0, 0}, {-1, 5}, {5, -1}} {
		m := New(dims[0], dims[1])
		assert.Equal(t, 0, m.Len(), "dims %v", dims)
	}
}

func TestFromRows(t *testing.T) {
	m := FromRows([][]float32{{1, 2, 3}, {4, 5, 6}})
	require.Equal(t, 3, m.Width)
	require.Equal(t, 2, m.Height)
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, m.Samples)
	assert.Equal(t, float32(6), m.At(2, 1))
}

func TestFromRowsRagged(t *testing.T) {
	m := FromRows([][]float32{{1, 2, 3}, {4}})
	assert.NotEqual(t, m.Width*m.Height, m.Len())
}

func TestMinMaxSkipsNonFinite(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	m := FromRows([][]float32{{nan, 3, -2}, {inf, 9, float32(math.Inf(-1))}})

	lo, hi, ok := m.MinMax()
	require.True(t, ok)
	assert.Equal(t, float32(-2), lo)
	assert.Equal(t, float32(9), hi)
}

func TestMinMaxNoFiniteSamples(t *testing.T) {
	nan := float32(math.NaN())
	m := FromRows([][]float32{{nan, nan}, {nan, nan}})
	_, _, ok := m.MinMax()
	assert.False(t, ok)
}

func TestRangeClip(t *testing.T) {
	m := New(101, 1)
	for i := range m.Samples {
		m.Samples[i] = float32(i)
	}
	// Outliers far outside the bulk of the data.
	m.Samples[0] = -1000
	m.Samples[100] = 1000

	lo, hi, ok := m.Range(0)
	require.True(t, ok)
	assert.Equal(t, float32(-1000), lo)
	assert.Equal(t, float32(1000), hi)

	lo, hi, ok = m.Range(0.1)
	require.True(t, ok)
	assert.InDelta(t, 10, lo, 1)
	assert.InDelta(t, 90, hi, 1)
}
