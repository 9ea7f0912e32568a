package tessellate

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/magicphoto/relief/pkg/mesh"
)

// computeNormals returns area-weighted vertex normals: each face adds its
// unnormalized cross product, whose length is twice its area, to its three
// corners.
func computeNormals(m *mesh.Mesh) []float32 {
	acc := make([]v3.Vec, m.VertexCount())
	for t := 0; t < m.TriangleCount(); t++ {
		tri := m.Triangle(t)
		p0 := m.Position(int(tri[0]))
		p1 := m.Position(int(tri[1]))
		p2 := m.Position(int(tri[2]))
		n := p1.Sub(p0).Cross(p2.Sub(p0))
		for _, i := range tri {
			acc[i] = acc[i].Add(n)
		}
	}

	out := make([]float32, 3*len(acc))
	for i, n := range acc {
		if n.Length() == 0 {
			n = v3.Vec{Z: 1}
		} else {
			n = n.Normalize()
		}
		out[3*i] = float32(n.X)
		out[3*i+1] = float32(n.Y)
		out[3*i+2] = float32(n.Z)
	}
	return out
}
