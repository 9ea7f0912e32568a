package mesh

import (
	"fmt"
	"math"
)

// Severity indicates whether a validation finding makes the mesh unusable
// or is merely informational.
type Severity int

const (
	SeverityError   Severity = iota // mesh must not be rendered
	SeverityWarning                 // informational
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Finding describes a single validation result.
type Finding struct {
	Message  string
	Severity Severity
}

func (f Finding) Error() string {
	return fmt.Sprintf("[%s] %s", f.Severity, f.Message)
}

// Validate runs the structural checks a renderer relies on and returns every
// finding. An empty slice means the mesh is consistent. It never mutates m.
func Validate(m *Mesh) []Finding {
	var fs []Finding
	fs = append(fs, validateLayout(m)...)
	if HasErrors(fs) {
		// Index and coordinate checks would read out of bounds.
		return fs
	}
	fs = append(fs, validateIndices(m)...)
	fs = append(fs, validateTexCoords(m)...)
	fs = append(fs, validatePositions(m)...)
	return fs
}

// HasErrors reports whether any finding has error severity.
func HasErrors(fs []Finding) bool {
	for _, f := range fs {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

func errorf(format string, args ...any) Finding {
	return Finding{Message: fmt.Sprintf(format, args...), Severity: SeverityError}
}

func warnf(format string, args ...any) Finding {
	return Finding{Message: fmt.Sprintf(format, args...), Severity: SeverityWarning}
}

// validateLayout checks buffer strides and the vertex/texcoord/normal parity.
func validateLayout(m *Mesh) []Finding {
	var fs []Finding
	if len(m.Vertices)%3 != 0 {
		fs = append(fs, errorf("vertex buffer length %d is not a multiple of 3", len(m.Vertices)))
	}
	if len(m.TexCoords)%2 != 0 {
		fs = append(fs, errorf("texcoord buffer length %d is not a multiple of 2", len(m.TexCoords)))
	}
	if len(m.Indices)%3 != 0 {
		fs = append(fs, errorf("index buffer length %d is not a multiple of 3", len(m.Indices)))
	}
	if m.TexCoordCount() != m.VertexCount() {
		fs = append(fs, errorf("%d texcoords for %d vertices", m.TexCoordCount(), m.VertexCount()))
	}
	if len(m.Normals) != 0 && len(m.Normals) != len(m.Vertices) {
		fs = append(fs, errorf("normal buffer length %d, want %d", len(m.Normals), len(m.Vertices)))
	}
	if m.Width > 0 || m.Height > 0 {
		if m.Width*m.Height != m.VertexCount() {
			fs = append(fs, errorf("%dx%d grid but %d vertices", m.Width, m.Height, m.VertexCount()))
		}
	}
	return fs
}

// validateIndices checks that every index references a vertex and flags
// triangles that reuse a vertex.
func validateIndices(m *Mesh) []Finding {
	var fs []Finding
	n := uint32(m.VertexCount())
	degenerate := 0
	for t := 0; t < m.TriangleCount(); t++ {
		tri := m.Triangle(t)
		for _, idx := range tri {
			if idx >= n {
				fs = append(fs, errorf("triangle %d references vertex %d, mesh has %d", t, idx, n))
			}
		}
		if tri[0] == tri[1] || tri[1] == tri[2] || tri[0] == tri[2] {
			degenerate++
		}
	}
	if degenerate > 0 {
		fs = append(fs, warnf("%d triangles reuse a vertex", degenerate))
	}
	return fs
}

// validateTexCoords checks that every texture coordinate lies in the unit square.
func validateTexCoords(m *Mesh) []Finding {
	var fs []Finding
	for i := 0; i < m.TexCoordCount(); i++ {
		u, v := m.TexCoord(i)
		if !(u >= 0 && u <= 1 && v >= 0 && v <= 1) {
			fs = append(fs, errorf("vertex %d texcoord (%g, %g) outside [0,1]", i, u, v))
		}
	}
	return fs
}

// validatePositions rejects NaN or infinite coordinates.
func validatePositions(m *Mesh) []Finding {
	var fs []Finding
	for i, c := range m.Vertices {
		f := float64(c)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			fs = append(fs, errorf("vertex %d has non-finite coordinate %g", i/3, f))
		}
	}
	return fs
}
