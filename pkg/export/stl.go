// Package export writes reliefs to interchange formats: binary STL for
// printing and Wavefront OBJ with a material file for textured viewers.
package export

import (
	"errors"
	"fmt"

	"github.com/deadsy/sdfx/render"
	"github.com/magicphoto/relief/pkg/mesh"
)

// ErrEmptyMesh is returned when there is nothing to write.
var ErrEmptyMesh = errors.New("export: mesh is empty")

// WriteSTL saves m as a binary STL file at path.
func WriteSTL(path string, m *mesh.Mesh) error {
	if m == nil || m.IsEmpty() || m.TriangleCount() == 0 {
		return ErrEmptyMesh
	}
	if err := render.SaveSTL(path, m.Triangles()); err != nil {
		return fmt.Errorf("export: stl: %w", err)
	}
	return nil
}
