package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/magicphoto/relief/pkg/mesh"
)

// DefaultMaterial names the single material of an exported relief.
const DefaultMaterial = "photo"

// WriteOBJ writes m as a Wavefront OBJ. When mtlLib is non-empty the output
// references it and applies DefaultMaterial to every face. Texture v runs
// bottom-up in OBJ, so it is flipped from the mesh's top-down convention.
func WriteOBJ(w io.Writer, m *mesh.Mesh, mtlLib string) error {
	if m == nil || m.IsEmpty() {
		return ErrEmptyMesh
	}
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# relief %dx%d, %d vertices, %d faces\n",
		m.Width, m.Height, m.VertexCount(), m.TriangleCount())
	if mtlLib != "" {
		fmt.Fprintf(bw, "mtllib %s\n", mtlLib)
	}

	for i := 0; i < m.VertexCount(); i++ {
		fmt.Fprintf(bw, "v %g %g %g\n", m.Vertices[3*i], m.Vertices[3*i+1], m.Vertices[3*i+2])
	}
	hasUV := m.TexCoordCount() == m.VertexCount()
	if hasUV {
		for i := 0; i < m.VertexCount(); i++ {
			u, v := m.TexCoord(i)
			fmt.Fprintf(bw, "vt %g %g\n", u, 1-v)
		}
	}
	hasNormals := len(m.Normals) == len(m.Vertices)
	if hasNormals {
		for i := 0; i < m.VertexCount(); i++ {
			fmt.Fprintf(bw, "vn %g %g %g\n", m.Normals[3*i], m.Normals[3*i+1], m.Normals[3*i+2])
		}
	}

	if mtlLib != "" {
		fmt.Fprintf(bw, "usemtl %s\n", DefaultMaterial)
	}
	for t := 0; t < m.TriangleCount(); t++ {
		tri := m.Triangle(t)
		bw.WriteString("f")
		for _, idx := range tri {
			bw.WriteString(" " + faceVertex(idx+1, hasUV, hasNormals))
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}

// faceVertex formats one 1-based face corner. Positions, texcoords and
// normals share an index since they are parallel arrays.
func faceVertex(i uint32, uv, normal bool) string {
	switch {
	case uv && normal:
		return fmt.Sprintf("%d/%d/%d", i, i, i)
	case uv:
		return fmt.Sprintf("%d/%d", i, i)
	case normal:
		return fmt.Sprintf("%d//%d", i, i)
	default:
		return fmt.Sprintf("%d", i)
	}
}

// WriteMTL writes a material library with one unlit material whose diffuse
// map is texture. An empty texture yields a plain white material.
func WriteMTL(w io.Writer, material, texture string) error {
	if material == "" {
		material = DefaultMaterial
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "newmtl %s\n", material)
	bw.WriteString("Ka 1 1 1\nKd 1 1 1\nKs 0 0 0\nd 1\nillum 1\n")
	if texture != "" {
		fmt.Fprintf(bw, "map_Kd %s\n", texture)
	}
	return bw.Flush()
}

// Files lists what SaveAll wrote.
type Files struct {
	STL, OBJ, MTL string
}

// SaveAll writes <name>.stl, <name>.obj and <name>.mtl into dir. texture is
// referenced from the material as given, typically the photo's path.
func SaveAll(dir, name string, m *mesh.Mesh, texture string) (Files, error) {
	if name == "" {
		name = "relief"
	}
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Files{}, fmt.Errorf("export: %w", err)
	}
	files := Files{
		STL: filepath.Join(dir, name+".stl"),
		OBJ: filepath.Join(dir, name+".obj"),
		MTL: filepath.Join(dir, name+".mtl"),
	}

	if err := WriteSTL(files.STL, m); err != nil {
		return Files{}, err
	}
	if err := writeFile(files.OBJ, func(w io.Writer) error {
		return WriteOBJ(w, m, filepath.Base(files.MTL))
	}); err != nil {
		return Files{}, err
	}
	if err := writeFile(files.MTL, func(w io.Writer) error {
		return WriteMTL(w, DefaultMaterial, texture)
	}); err != nil {
		return Files{}, err
	}
	return files, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("export: %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}
