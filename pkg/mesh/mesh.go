// Package mesh defines the textured triangle mesh handed from the relief
// builder to renderers and exporters.
package mesh

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Mesh is an indexed triangle mesh suitable for rendering with a texture.
// All arrays are flat and index-parallel: vertex i owns Vertices[3i:3i+3],
// Normals[3i:3i+3] and TexCoords[2i:2i+2]. Indices has 3 entries per
// triangle.
//
// Width and Height record the depth grid the mesh was built from; vertex i
// corresponds to grid cell (i%Width, i/Width).
type Mesh struct {
	Vertices  []float32 `json:"vertices"`  // [x0,y0,z0, x1,y1,z1, ...]
	Normals   []float32 `json:"normals"`   // [nx0,ny0,nz0, ...]
	TexCoords []float32 `json:"texCoords"` // [u0,v0, u1,v1, ...]
	Indices   []uint32  `json:"indices"`   // [i0,i1,i2, ...] triangles
	Width     int       `json:"width"`
	Height    int       `json:"height"`
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TexCoordCount returns the number of texture coordinates.
func (m *Mesh) TexCoordCount() int {
	return len(m.TexCoords) / 2
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Position returns vertex i.
func (m *Mesh) Position(i int) v3.Vec {
	return v3.Vec{
		X: float64(m.Vertices[3*i]),
		Y: float64(m.Vertices[3*i+1]),
		Z: float64(m.Vertices[3*i+2]),
	}
}

// Normal returns the normal of vertex i, or the zero vector when the mesh
// carries no normals.
func (m *Mesh) Normal(i int) v3.Vec {
	if len(m.Normals) < 3*(i+1) {
		return v3.Vec{}
	}
	return v3.Vec{
		X: float64(m.Normals[3*i]),
		Y: float64(m.Normals[3*i+1]),
		Z: float64(m.Normals[3*i+2]),
	}
}

// TexCoord returns the (u, v) texture coordinate of vertex i.
func (m *Mesh) TexCoord(i int) (u, v float32) {
	return m.TexCoords[2*i], m.TexCoords[2*i+1]
}

// Triangle returns the vertex indices of triangle t.
func (m *Mesh) Triangle(t int) [3]uint32 {
	return [3]uint32{m.Indices[3*t], m.Indices[3*t+1], m.Indices[3*t+2]}
}

// Triangles expands the indexed mesh into sdfx triangles, as used by the
// sdfx renderers and STL writer.
func (m *Mesh) Triangles() []*sdf.Triangle3 {
	tris := make([]*sdf.Triangle3, 0, m.TriangleCount())
	for t := 0; t < m.TriangleCount(); t++ {
		idx := m.Triangle(t)
		tris = append(tris, &sdf.Triangle3{
			m.Position(int(idx[0])),
			m.Position(int(idx[1])),
			m.Position(int(idx[2])),
		})
	}
	return tris
}

// Bounds returns the axis-aligned bounding box of all vertices. An empty
// mesh has a zero box.
func (m *Mesh) Bounds() sdf.Box3 {
	if m.IsEmpty() {
		return sdf.Box3{}
	}
	lo := v3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	hi := v3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for i := 0; i < m.VertexCount(); i++ {
		p := m.Position(i)
		lo = v3.Vec{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y), Z: math.Min(lo.Z, p.Z)}
		hi = v3.Vec{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y), Z: math.Max(hi.Z, p.Z)}
	}
	return sdf.Box3{Min: lo, Max: hi}
}
